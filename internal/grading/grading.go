// Package grading maps percentages to letter grades.
//
// A Scheme is plain data: an ordered list of lower-bound bands and a fallback
// letter. Bands are inclusive at their lower bound, so with Standard a score
// of exactly 90 is an "A+" while 89.99 is an "A".
package grading

import (
	"math"
	"strings"
)

type Band struct {
	Min    float64
	Letter string
}

type Scheme struct {
	Name     string
	Bands    []Band // descending by Min
	Fallback string
}

// Standard is the default scheme: A+/A/B/C/D with E below 50.
var Standard = Scheme{
	Name: "standard",
	Bands: []Band{
		{Min: 90, Letter: "A+"},
		{Min: 80, Letter: "A"},
		{Min: 70, Letter: "B"},
		{Min: 60, Letter: "C"},
		{Min: 50, Letter: "D"},
	},
	Fallback: "E",
}

// Letter is the alternate A/B/C/D scheme with F below 60.
var Letter = Scheme{
	Name: "letter",
	Bands: []Band{
		{Min: 90, Letter: "A"},
		{Min: 80, Letter: "B"},
		{Min: 70, Letter: "C"},
		{Min: 60, Letter: "D"},
	},
	Fallback: "F",
}

var schemes = map[string]Scheme{
	Standard.Name: Standard,
	Letter.Name:   Letter,
}

// Lookup returns the scheme registered under name (case-insensitive).
func Lookup(name string) (Scheme, bool) {
	s, ok := schemes[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Names lists the registered scheme names, default first.
func Names() []string {
	return []string{Standard.Name, Letter.Name}
}

func (s Scheme) Grade(score float64) string {
	for _, b := range s.Bands {
		if score >= b.Min {
			return b.Letter
		}
	}
	return s.Fallback
}

// Clamp restricts x to [lo, hi]. NaN maps to lo.
func Clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	return max(lo, min(hi, x))
}

// ClampPercent restricts x to [0, 100].
func ClampPercent(x float64) float64 {
	return Clamp(x, 0, 100)
}
