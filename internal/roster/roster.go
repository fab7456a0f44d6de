package roster

import (
	"math"
	"sort"
)

const (
	ColClass = "Class"
	ColRegNo = "Reg.no"
	ColName  = "Name"

	PassMark    = 40.0
	SubjectMax  = 100.0
	DefaultTopN = 3
)

// Subjects are the six canonical subjects, in display order. Totals, averages
// and pass rates are computed over these columns only.
var Subjects = []string{
	"OOPs C++",
	"DSA C++",
	"Mathematics",
	"Applied Data Science",
	"Embedded Systems",
	"Cloud Management",
}

// IdentityColumns must be present in an upload before it can be analyzed.
var IdentityColumns = []string{ColClass, ColRegNo, ColName}

// StudentRecord is one normalized row: a student in a class with all six
// canonical marks present.
type StudentRecord struct {
	Row   int
	Class string
	RegNo string
	Name  string
	Marks map[string]float64
}

func (r StudentRecord) Mark(subject string) float64 {
	return r.Marks[subject]
}

func (r StudentRecord) Total() float64 {
	var total float64
	for _, sub := range Subjects {
		total += r.Marks[sub]
	}
	return total
}

func (r StudentRecord) Percentage() float64 {
	return Round2(r.Total() / (float64(len(Subjects)) * SubjectMax) * 100)
}

// PassesAll reports whether every canonical subject meets the pass mark.
func (r StudentRecord) PassesAll() bool {
	for _, sub := range Subjects {
		if r.Marks[sub] < PassMark {
			return false
		}
	}
	return true
}

type Table struct {
	Records  []StudentRecord
	Warnings []Warning
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Classes returns the distinct non-blank class identifiers, sorted.
func (t *Table) Classes() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var classes []string
	for _, rec := range t.Records {
		if rec.Class == "" {
			continue
		}
		if _, ok := seen[rec.Class]; ok {
			continue
		}
		seen[rec.Class] = struct{}{}
		classes = append(classes, rec.Class)
	}
	sort.Strings(classes)
	return classes
}

func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
