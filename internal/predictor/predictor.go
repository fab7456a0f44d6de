// Package predictor estimates a student's percentage from a few study and
// background factors using a fixed linear heuristic. It is not a trained model.
//
// Gender and ethnicity are part of Input so forms can collect them, but no
// model reads them.
package predictor

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/feelsunbreeze/student_dashboard/internal/grading"
)

// Level is one named step of an ordinal scale and the points it adds.
type Level struct {
	Name  string
	Bonus float64
}

// Scale is an ordered set of levels. When Default is set, unknown names score
// as that level; otherwise they are rejected.
type Scale struct {
	Levels  []Level
	Default string
}

func (s Scale) Names() []string {
	names := make([]string, len(s.Levels))
	for i, l := range s.Levels {
		names[i] = l.Name
	}
	return names
}

func (s Scale) find(name string) (Level, bool) {
	for _, l := range s.Levels {
		if l.Name == name {
			return l, true
		}
	}
	return Level{}, false
}

func (s Scale) Bonus(name string) (float64, bool) {
	if l, ok := s.find(name); ok {
		return l.Bonus, true
	}
	if s.Default != "" {
		if l, ok := s.find(s.Default); ok {
			return l.Bonus, true
		}
	}
	return 0, false
}

type AgeShape int

const (
	Quadratic AgeShape = iota
	Absolute
)

// AgePenalty subtracts Weight times the squared or absolute distance from
// Center, then adds Offset.
type AgePenalty struct {
	Center float64
	Weight float64
	Offset float64
	Shape  AgeShape
}

func (p AgePenalty) apply(age float64) float64 {
	d := age - p.Center
	if p.Shape == Absolute {
		d = math.Abs(d)
	} else {
		d *= d
	}
	return -p.Weight*d + p.Offset
}

// Model is a prediction formula expressed as data:
//
//	Base + StudyWeight*min(hours, StudyCap) - AbsenceWeight*min(absences, AbsenceCap)
//	  + support + education + sports + age
//
// A zero cap means uncapped.
type Model struct {
	Name          string
	Base          float64
	StudyWeight   float64
	StudyCap      float64
	AbsenceWeight float64
	AbsenceCap    float64
	Support       Scale
	Education     Scale
	SportsBonus   float64
	Age           AgePenalty
	Scheme        grading.Scheme
}

var Standard = Model{
	Name:          "standard",
	Base:          50,
	StudyWeight:   2.2,
	AbsenceWeight: 1.5,
	Support: Scale{Levels: []Level{
		{"Low", -6}, {"Moderate", 0}, {"High", 6},
	}},
	Education: Scale{Levels: []Level{
		{"Primary", -4}, {"Middle School", -2}, {"High School", 0}, {"Bachelor", 3}, {"Master+", 5},
	}},
	SportsBonus: 2.5,
	Age:         AgePenalty{Center: 17, Weight: 0.15, Offset: 0.5, Shape: Quadratic},
	Scheme:      grading.Standard,
}

var Legacy = Model{
	Name:          "legacy",
	Base:          45,
	StudyWeight:   1.8,
	StudyCap:      25,
	AbsenceWeight: 1.4,
	AbsenceCap:    30,
	Support: Scale{Default: "Moderate", Levels: []Level{
		{"Low", -4}, {"Moderate", 2}, {"High", 5}, {"Very High", 7},
	}},
	Education: Scale{Default: "High School", Levels: []Level{
		{"Middle School", 0}, {"High School", 3}, {"Diploma", 5}, {"Bachelor's", 7}, {"Master's", 8}, {"PhD", 9},
	}},
	SportsBonus: 3,
	Age:         AgePenalty{Center: 16.5, Weight: 0.8, Shape: Absolute},
	Scheme:      grading.Letter,
}

// Lookup returns a model by name; an empty name selects Standard.
func Lookup(name string) (Model, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Standard.Name:
		return Standard, true
	case Legacy.Name:
		return Legacy, true
	}
	return Model{}, false
}

func Names() []string {
	return []string{Standard.Name, Legacy.Name}
}

// WithScheme returns a copy of m graded with s.
func (m Model) WithScheme(s grading.Scheme) Model {
	m.Scheme = s
	return m
}

type Input struct {
	Age        int     `json:"age" validate:"gte=10,lte=25"`
	Gender     string  `json:"gender"`
	Absences   float64 `json:"absences" validate:"finite,gte=0"`
	StudyHours float64 `json:"study_hours" validate:"finite,gte=0"`
	Education  string  `json:"parental_education" validate:"required"`
	Support    string  `json:"parental_support" validate:"required"`
	Ethnicity  string  `json:"ethnicity"`
	Sports     bool    `json:"sports"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON names so forms and API clients can match fields
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// gte alone lets +Inf through
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsInf(f, 0) && !math.IsNaN(f)
	})
	return v
}

// Validate checks field ranges. The returned error is a
// validator.ValidationErrors when a field is out of range.
func (in Input) Validate() error {
	return validate.Struct(in)
}

type Result struct {
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
	Model      string  `json:"model"`
}

type UnknownLevelError struct {
	Field string
	Value string
	Known []string
}

func (e *UnknownLevelError) Error() string {
	return fmt.Sprintf("unknown %s %q (expected one of %s)", e.Field, e.Value, strings.Join(e.Known, ", "))
}

// Predict scores in, clamped to 0..100, and grades the result.
func (m Model) Predict(in Input) (Result, error) {
	support, ok := m.Support.Bonus(in.Support)
	if !ok {
		return Result{}, &UnknownLevelError{Field: "parental support", Value: in.Support, Known: m.Support.Names()}
	}
	education, ok := m.Education.Bonus(in.Education)
	if !ok {
		return Result{}, &UnknownLevelError{Field: "parental education", Value: in.Education, Known: m.Education.Names()}
	}

	score := m.Base
	score += m.StudyWeight * capped(in.StudyHours, m.StudyCap)
	score -= m.AbsenceWeight * capped(in.Absences, m.AbsenceCap)
	score += support + education
	if in.Sports {
		score += m.SportsBonus
	}
	score += m.Age.apply(float64(in.Age))

	score = grading.ClampPercent(score)
	return Result{Percentage: score, Grade: m.Scheme.Grade(score), Model: m.Name}, nil
}

func capped(v, limit float64) float64 {
	if limit > 0 {
		return math.Min(v, limit)
	}
	return v
}
