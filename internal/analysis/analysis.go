// Package analysis computes class statistics over normalized student records.
// Every function here is pure: results depend only on the records passed in.
package analysis

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/feelsunbreeze/student_dashboard/internal/roster"
)

// SubjectAverage is the mean mark of one subject. When there were no records
// Average is NaN and HasData is false.
type SubjectAverage struct {
	Subject string
	Average float64
	HasData bool
}

func (a SubjectAverage) MarshalJSON() ([]byte, error) {
	out := struct {
		Subject string   `json:"subject"`
		Average *float64 `json:"average"`
	}{Subject: a.Subject}
	if a.HasData {
		avg := roster.Round2(a.Average)
		out.Average = &avg
	}
	return json.Marshal(out)
}

type Ranked struct {
	Rank       string  `json:"rank"`
	RegNo      string  `json:"reg_no"`
	Name       string  `json:"name"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
}

type WeakMark struct {
	RegNo   string  `json:"reg_no"`
	Name    string  `json:"name"`
	Subject string  `json:"subject"`
	Mark    float64 `json:"mark"`
}

// Filter selects the records of one class, optionally narrowed to names
// containing query (case-insensitive, surrounding space ignored).
func Filter(records []roster.StudentRecord, class, query string) []roster.StudentRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []roster.StudentRecord
	for _, rec := range records {
		if rec.Class != class {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(rec.Name), q) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func SubjectAverages(records []roster.StudentRecord) []SubjectAverage {
	out := make([]SubjectAverage, 0, len(roster.Subjects))
	for _, sub := range roster.Subjects {
		if len(records) == 0 {
			out = append(out, SubjectAverage{Subject: sub, Average: math.NaN()})
			continue
		}
		var sum float64
		for _, rec := range records {
			sum += rec.Mark(sub)
		}
		out = append(out, SubjectAverage{Subject: sub, Average: sum / float64(len(records)), HasData: true})
	}
	return out
}

// PassRate is the percentage of records passing every subject. An empty slice
// has a pass rate of 0.
func PassRate(records []roster.StudentRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	var passed int
	for _, rec := range records {
		if rec.PassesAll() {
			passed++
		}
	}
	return float64(passed) / float64(len(records)) * 100
}

// TopN ranks records by total marks, highest first. Ties keep their input
// order.
func TopN(records []roster.StudentRecord, n int) []Ranked {
	if n <= 0 {
		return nil
	}
	sorted := make([]roster.StudentRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Total() > sorted[j].Total()
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	out := make([]Ranked, 0, len(sorted))
	for i, rec := range sorted {
		out = append(out, Ranked{
			Rank:       Ordinal(i + 1),
			RegNo:      rec.RegNo,
			Name:       rec.Name,
			Total:      rec.Total(),
			Percentage: rec.Percentage(),
		})
	}
	return out
}

// Ordinal renders 1 as "1st", 2 as "2nd", 11 as "11th" and so on.
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// WeakStudents lists every mark below the pass mark, ordered by subject name
// and then by mark.
func WeakStudents(records []roster.StudentRecord) []WeakMark {
	var out []WeakMark
	for _, rec := range records {
		for _, sub := range roster.Subjects {
			if m := rec.Mark(sub); m < roster.PassMark {
				out = append(out, WeakMark{RegNo: rec.RegNo, Name: rec.Name, Subject: sub, Mark: m})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Mark < out[j].Mark
	})
	return out
}
