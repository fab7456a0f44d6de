package grading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScheme_Grade(t *testing.T) {
	tests := []struct {
		name   string
		scheme Scheme
		score  float64
		want   string
	}{
		{name: "standard top band boundary", scheme: Standard, score: 90, want: "A+"},
		{name: "standard just below A+", scheme: Standard, score: 89.99, want: "A"},
		{name: "standard 80", scheme: Standard, score: 80, want: "A"},
		{name: "standard 70", scheme: Standard, score: 70, want: "B"},
		{name: "standard 60", scheme: Standard, score: 60, want: "C"},
		{name: "standard 50.5", scheme: Standard, score: 50.5, want: "D"},
		{name: "standard 49.99", scheme: Standard, score: 49.99, want: "E"},
		{name: "standard zero", scheme: Standard, score: 0, want: "E"},
		{name: "standard 100", scheme: Standard, score: 100, want: "A+"},
		{name: "letter 90", scheme: Letter, score: 90, want: "A"},
		{name: "letter 89.99", scheme: Letter, score: 89.99, want: "B"},
		{name: "letter 60", scheme: Letter, score: 60, want: "D"},
		{name: "letter 59", scheme: Letter, score: 59, want: "F"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scheme.Grade(tt.score))
		})
	}
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0.0, ClampPercent(-12.5))
	assert.Equal(t, 100.0, ClampPercent(180))
	assert.Equal(t, 42.0, ClampPercent(42))
	assert.Equal(t, 5.0, Clamp(1, 5, 10))
	assert.Equal(t, 0.0, ClampPercent(math.NaN()))
	assert.Equal(t, 100.0, ClampPercent(math.Inf(1)))
	assert.Equal(t, 0.0, ClampPercent(math.Inf(-1)))
}

func TestLookup(t *testing.T) {
	s, ok := Lookup(" Letter ")
	assert.True(t, ok)
	assert.Equal(t, "F", s.Fallback)

	_, ok = Lookup("pass-fail")
	assert.False(t, ok)

	assert.Equal(t, []string{"standard", "letter"}, Names())
}
