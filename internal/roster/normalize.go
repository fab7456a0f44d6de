package roster

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Row is one raw spreadsheet row keyed by header text.
type Row map[string]string

// Frame is raw tabular data as read from one or more uploads. Columns keeps the
// header even when there are no data rows.
type Frame struct {
	Columns []string
	Rows    []Row
}

// Concat appends frames in order. Columns are the union of all headers in
// first-seen order.
func Concat(frames ...Frame) Frame {
	var out Frame
	seen := make(map[string]struct{})
	for _, f := range frames {
		for _, col := range f.Columns {
			if _, ok := seen[col]; ok {
				continue
			}
			seen[col] = struct{}{}
			out.Columns = append(out.Columns, col)
		}
		out.Rows = append(out.Rows, f.Rows...)
	}
	return out
}

type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

const (
	ReasonNotNumber = "not a number"
	ReasonNegative  = "negative mark"
	ReasonAboveMax  = "above maximum mark"
	ReasonNoClass   = "blank class, row left out of class views"
)

// Warning records a subject cell that was coerced or looks suspicious. The
// mark is never dropped silently: every coercion to 0 of a non-empty cell
// produces one.
type Warning struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("row %d, %s: %q (%s)", w.Row+1, w.Column, w.Value, w.Reason)
}

type options struct {
	aliases Aliases
	maxMark float64
}

type Option func(*options)

func WithAliases(a Aliases) Option {
	return func(o *options) {
		if a != nil {
			o.aliases = a
		}
	}
}

// WithMaxMark flags marks above m as warnings. Marks are kept as-is; m <= 0
// disables the check.
func WithMaxMark(m float64) Option {
	return func(o *options) { o.maxMark = m }
}

// Normalize renames alias columns, backfills missing subjects with 0 and
// builds typed records. It fails only when an identity column is absent from
// the whole frame.
func Normalize(frame Frame, opts ...Option) (*Table, error) {
	o := options{aliases: AppAliases}
	for _, opt := range opts {
		opt(&o)
	}

	present := make(map[string]bool)
	for _, col := range frame.Columns {
		present[o.aliases.Canonical(col)] = true
	}
	for _, raw := range frame.Rows {
		for col := range raw {
			present[o.aliases.Canonical(col)] = true
		}
	}
	var missing []string
	for _, col := range IdentityColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnError{Columns: missing}
	}

	table := &Table{Records: make([]StudentRecord, 0, len(frame.Rows))}
	for i, raw := range frame.Rows {
		row := o.rename(raw)
		rec := StudentRecord{
			Row:   i,
			Class: strings.TrimSpace(row[ColClass]),
			RegNo: strings.TrimSpace(row[ColRegNo]),
			Name:  strings.TrimSpace(row[ColName]),
			Marks: make(map[string]float64, len(Subjects)),
		}
		if rec.Class == "" {
			table.Warnings = append(table.Warnings, Warning{Row: i, Column: ColClass, Reason: ReasonNoClass})
		}
		for _, sub := range Subjects {
			cell := row[sub]
			mark, reason := o.parseMark(cell)
			if reason != "" {
				table.Warnings = append(table.Warnings, Warning{Row: i, Column: sub, Value: cell, Reason: reason})
			}
			rec.Marks[sub] = mark
		}
		table.Records = append(table.Records, rec)
	}
	return table, nil
}

// rename applies the alias table. A canonical column that already holds a
// value wins over any alias; among aliases the lexically first header wins.
func (o options) rename(raw Row) Row {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := make(Row, len(raw))
	for _, k := range keys {
		if o.aliases.Canonical(k) == k {
			row[k] = raw[k]
		}
	}
	for _, k := range keys {
		c := o.aliases.Canonical(k)
		if c == k {
			continue
		}
		if cur, ok := row[c]; !ok || strings.TrimSpace(cur) == "" {
			row[c] = raw[k]
		}
	}
	return row
}

func (o options) parseMark(cell string) (float64, string) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, ""
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ReasonNotNumber
	}
	if v < 0 {
		return v, ReasonNegative
	}
	if o.maxMark > 0 && v > o.maxMark {
		return v, ReasonAboveMax
	}
	return v, ""
}
