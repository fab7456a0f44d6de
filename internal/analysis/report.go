package analysis

import (
	"math"

	"github.com/feelsunbreeze/student_dashboard/internal/roster"
)

const DefaultBins = 10

// Summary holds the headline figures shown above a class view.
type Summary struct {
	Students          int     `json:"students"`
	AveragePercentage float64 `json:"average_percentage"`
	PassRate          float64 `json:"pass_rate"`
	TopperPercentage  float64 `json:"topper_percentage"`
}

func Summarize(records []roster.StudentRecord) Summary {
	s := Summary{Students: len(records)}
	if len(records) == 0 {
		return s
	}
	var sum float64
	s.TopperPercentage = records[0].Percentage()
	for _, rec := range records {
		p := rec.Percentage()
		sum += p
		if p > s.TopperPercentage {
			s.TopperPercentage = p
		}
	}
	s.AveragePercentage = roster.Round2(sum / float64(len(records)))
	s.PassRate = roster.Round2(PassRate(records))
	return s
}

// Bin counts marks in [Lower, Upper). The last bin also includes Upper.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram buckets one subject's marks into equal-width bins spanning
// 0..SubjectMax, widened when marks fall outside that range.
func Histogram(records []roster.StudentRecord, subject string, bins int) []Bin {
	if bins <= 0 {
		bins = DefaultBins
	}
	lo, hi := 0.0, roster.SubjectMax
	for _, rec := range records {
		m := rec.Mark(subject)
		lo = math.Min(lo, m)
		hi = math.Max(hi, m)
	}
	width := (hi - lo) / float64(bins)

	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, rec := range records {
		i := int((rec.Mark(subject) - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

// ClassComparison is one class's row in the cross-class view.
type ClassComparison struct {
	Class    string           `json:"class"`
	Averages []SubjectAverage `json:"averages"`
	Students int              `json:"students"`
	PassRate float64          `json:"pass_rate"`
}

// CompareClasses groups the whole table by class, ignoring any view filter.
// Students counts distinct non-empty registration numbers.
func CompareClasses(table *roster.Table) []ClassComparison {
	if table == nil {
		return nil
	}
	byClass := make(map[string][]roster.StudentRecord)
	for _, rec := range table.Records {
		byClass[rec.Class] = append(byClass[rec.Class], rec)
	}

	var out []ClassComparison
	for _, class := range table.Classes() {
		records := byClass[class]
		regs := make(map[string]struct{}, len(records))
		for _, rec := range records {
			if rec.RegNo != "" {
				regs[rec.RegNo] = struct{}{}
			}
		}
		out = append(out, ClassComparison{
			Class:    class,
			Averages: SubjectAverages(records),
			Students: len(regs),
			PassRate: PassRate(records),
		})
	}
	return out
}

// ClassReport bundles everything a class view renders.
type ClassReport struct {
	Class    string                 `json:"class"`
	Query    string                 `json:"query,omitempty"`
	Records  []roster.StudentRecord `json:"-"`
	Summary  Summary                `json:"summary"`
	Averages []SubjectAverage       `json:"averages"`
	Top      []Ranked               `json:"top"`
	Weak     []WeakMark             `json:"weak"`
}

func (r ClassReport) Empty() bool {
	return len(r.Records) == 0
}

// Analyze filters the table to one class and computes its report. An unknown
// class gives an empty report.
func Analyze(table *roster.Table, class, query string) ClassReport {
	var records []roster.StudentRecord
	if table != nil {
		records = Filter(table.Records, class, query)
	}
	return ClassReport{
		Class:    class,
		Query:    query,
		Records:  records,
		Summary:  Summarize(records),
		Averages: SubjectAverages(records),
		Top:      TopN(records, roster.DefaultTopN),
		Weak:     WeakStudents(records),
	}
}
