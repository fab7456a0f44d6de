// Package report renders analysis results as downloadable Excel workbooks.
package report

import (
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/feelsunbreeze/student_dashboard/internal/analysis"
	"github.com/feelsunbreeze/student_dashboard/internal/roster"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultSheet = "Sheet1"

// Kinds of export, as used in file names and on the HTTP boundary.
const (
	KindAverages = "subject_averages"
	KindTop      = "top3"
	KindWeak     = "weak_students"
	KindFull     = "report"
	KindCompare  = "class_subject_averages"
	KindStrength = "class_strength"
	KindPassRate = "class_pass_rate"
)

const (
	sheetStudents = "Students"
	sheetAverages = "Subject Averages"
	sheetTop      = "Top 3"
	sheetWeak     = "Weak Students (<40)"

	colSubject    = "Subject"
	colAverage    = "Average (%)"
	colRank       = "Rank"
	colTotal      = "Total Marks"
	colPercentage = "Percentage"
	colMarks      = "Marks"
	colStudents   = "Students"
	colPassRate   = "Pass Rate (%)"
)

var ErrUnknownKind = errors.New("unknown report kind")

// Sheet is one worksheet: a header row followed by data rows. A nil cell is
// written as an empty cell.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Export is a named workbook ready to be written.
type Export struct {
	FileName string
	Sheets   []Sheet
}

// Bytes renders the workbook.
func (e Export) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, e.Sheets...); err != nil {
		return nil, errors.Wrapf(err, "render %s", e.FileName)
	}
	return buf.Bytes(), nil
}

// Write renders sheets into one workbook. Nothing is written to w unless the
// whole workbook was built.
func Write(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return errors.New("report has no sheets")
	}
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, s.Name); err != nil {
				return errors.Wrapf(err, "name sheet %q", s.Name)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return errors.Wrapf(err, "add sheet %q", s.Name)
		}

		header := make([]any, len(s.Header))
		for j, h := range s.Header {
			header[j] = h
		}
		if err := f.SetSheetRow(s.Name, "A1", &header); err != nil {
			return errors.Wrapf(err, "write header of %q", s.Name)
		}
		for j, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(s.Name, cell, &row); err != nil {
				return errors.Wrapf(err, "write row %d of %q", j+2, s.Name)
			}
		}
	}
	_, err := f.WriteTo(w)
	return err
}

// FileName builds "<prefix>_<kind>.xlsx" with path separators removed from
// the prefix.
func FileName(prefix, kind string) string {
	prefix = strings.NewReplacer("/", "-", "\\", "-").Replace(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "unnamed"
	}
	return prefix + "_" + kind + ".xlsx"
}

func averageCell(a analysis.SubjectAverage) any {
	if !a.HasData {
		return nil
	}
	return roster.Round2(a.Average)
}

func averagesSheet(name string, avgs []analysis.SubjectAverage) Sheet {
	s := Sheet{Name: name, Header: []string{colSubject, colAverage}}
	for _, a := range avgs {
		s.Rows = append(s.Rows, []any{a.Subject, averageCell(a)})
	}
	return s
}

func topSheet(name string, top []analysis.Ranked) Sheet {
	s := Sheet{Name: name, Header: []string{colRank, roster.ColRegNo, roster.ColName, colTotal, colPercentage}}
	for _, r := range top {
		s.Rows = append(s.Rows, []any{r.Rank, r.RegNo, r.Name, r.Total, r.Percentage})
	}
	return s
}

func weakSheet(name string, weak []analysis.WeakMark) Sheet {
	s := Sheet{Name: name, Header: []string{roster.ColRegNo, roster.ColName, colSubject, colMarks}}
	for _, w := range weak {
		s.Rows = append(s.Rows, []any{w.RegNo, w.Name, w.Subject, w.Mark})
	}
	return s
}

func studentsSheet(records []roster.StudentRecord) Sheet {
	header := append([]string{roster.ColRegNo, roster.ColName}, roster.Subjects...)
	header = append(header, colTotal, colPercentage)
	s := Sheet{Name: sheetStudents, Header: header}
	for _, rec := range records {
		row := []any{rec.RegNo, rec.Name}
		for _, sub := range roster.Subjects {
			row = append(row, rec.Mark(sub))
		}
		row = append(row, rec.Total(), rec.Percentage())
		s.Rows = append(s.Rows, row)
	}
	return s
}

// ClassExports returns the per-class downloads, keyed by kind.
func ClassExports(r analysis.ClassReport) map[string]Export {
	return map[string]Export{
		KindAverages: {
			FileName: FileName(r.Class, KindAverages),
			Sheets:   []Sheet{averagesSheet(defaultSheet, r.Averages)},
		},
		KindTop: {
			FileName: FileName(r.Class, KindTop),
			Sheets:   []Sheet{topSheet(defaultSheet, r.Top)},
		},
		KindWeak: {
			FileName: FileName(r.Class, KindWeak),
			Sheets:   []Sheet{weakSheet(defaultSheet, r.Weak)},
		},
		KindFull: {
			FileName: FileName(r.Class, KindFull),
			Sheets: []Sheet{
				studentsSheet(r.Records),
				averagesSheet(sheetAverages, r.Averages),
				topSheet(sheetTop, r.Top),
				weakSheet(sheetWeak, r.Weak),
			},
		},
	}
}

// ComparisonExports returns the cross-class downloads, keyed by kind.
func ComparisonExports(cmp []analysis.ClassComparison) map[string]Export {
	averages := Sheet{Name: defaultSheet, Header: append([]string{roster.ColClass}, roster.Subjects...)}
	strength := Sheet{Name: defaultSheet, Header: []string{roster.ColClass, colStudents}}
	passRate := Sheet{Name: defaultSheet, Header: []string{roster.ColClass, colPassRate}}
	for _, c := range cmp {
		row := []any{c.Class}
		for _, a := range c.Averages {
			row = append(row, averageCell(a))
		}
		averages.Rows = append(averages.Rows, row)
		strength.Rows = append(strength.Rows, []any{c.Class, c.Students})
		passRate.Rows = append(passRate.Rows, []any{c.Class, roster.Round2(c.PassRate)})
	}

	return map[string]Export{
		KindCompare:  {FileName: KindCompare + ".xlsx", Sheets: []Sheet{averages}},
		KindStrength: {FileName: KindStrength + ".xlsx", Sheets: []Sheet{strength}},
		KindPassRate: {FileName: KindPassRate + ".xlsx", Sheets: []Sheet{passRate}},
	}
}

// Build looks up one export of either family by kind.
func Build(kind string, r analysis.ClassReport, cmp []analysis.ClassComparison) (Export, error) {
	if e, ok := ClassExports(r)[kind]; ok {
		return e, nil
	}
	if e, ok := ComparisonExports(cmp)[kind]; ok {
		return e, nil
	}
	return Export{}, errors.Wrapf(ErrUnknownKind, "%q", kind)
}

// Kinds lists every export kind in display order.
func Kinds() []string {
	return []string{KindAverages, KindTop, KindWeak, KindFull, KindCompare, KindStrength, KindPassRate}
}
