package analysis

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feelsunbreeze/student_dashboard/internal/roster"
)

// student builds a record whose six marks are given in canonical subject order.
func student(class, reg, name string, marks ...float64) roster.StudentRecord {
	rec := roster.StudentRecord{Class: class, RegNo: reg, Name: name, Marks: map[string]float64{}}
	for i, sub := range roster.Subjects {
		if i < len(marks) {
			rec.Marks[sub] = marks[i]
		} else {
			rec.Marks[sub] = 0
		}
	}
	return rec
}

// withTotal spreads total across the first subject only.
func withTotal(reg string, total float64) roster.StudentRecord {
	return student("A", reg, "s"+reg, total)
}

func TestFilter(t *testing.T) {
	records := []roster.StudentRecord{
		student("A", "1", "Asha Rao"),
		student("B", "2", "Asha Khan"),
		student("A", "3", "Bilal"),
	}

	assert.Len(t, Filter(records, "A", ""), 2)
	got := Filter(records, "A", "  aSHa ")
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].RegNo)
	assert.Empty(t, Filter(records, "Z", ""))
}

func TestSubjectAverages(t *testing.T) {
	records := []roster.StudentRecord{
		student("A", "1", "x", 80, 40),
		student("A", "2", "y", 60, 41),
	}

	avgs := SubjectAverages(records)
	require.Len(t, avgs, len(roster.Subjects))
	assert.Equal(t, roster.Subjects[0], avgs[0].Subject)
	assert.Equal(t, 70.0, avgs[0].Average)
	assert.Equal(t, 40.5, avgs[1].Average)
	assert.True(t, avgs[0].HasData)

	empty := SubjectAverages(nil)
	require.Len(t, empty, len(roster.Subjects))
	for _, a := range empty {
		assert.False(t, a.HasData)
		assert.True(t, math.IsNaN(a.Average))
	}

	data, err := json.Marshal(empty[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"subject":"OOPs C++","average":null}`, string(data))
}

func TestPassRate(t *testing.T) {
	allPass := []roster.StudentRecord{
		student("A", "1", "x", 40, 40, 40, 40, 40, 40),
		student("A", "2", "y", 90, 80, 70, 60, 50, 45),
	}
	allFail := []roster.StudentRecord{
		student("A", "1", "x", 39.9, 40, 40, 40, 40, 40),
		student("A", "2", "y", 90, 80, 70, 60, 50),
	}

	assert.Equal(t, 100.0, PassRate(allPass))
	assert.Equal(t, 0.0, PassRate(allFail))
	assert.Equal(t, 50.0, PassRate(append(allPass[:1:1], allFail[0])))
	assert.Equal(t, 0.0, PassRate(nil))
}

func TestTopN_TiesKeepRowOrder(t *testing.T) {
	records := []roster.StudentRecord{
		withTotal("a", 60),
		withTotal("b", 95),
		withTotal("c", 80),
		withTotal("d", 95),
	}

	top := TopN(records, roster.DefaultTopN)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"1st", "2nd", "3rd"}, []string{top[0].Rank, top[1].Rank, top[2].Rank})
	assert.Equal(t, []string{"b", "d", "c"}, []string{top[0].RegNo, top[1].RegNo, top[2].RegNo})
	assert.Equal(t, 95.0, top[0].Total)
	assert.Equal(t, 15.83, top[0].Percentage)

	assert.Len(t, TopN(records[:2], 3), 2)
	assert.Empty(t, TopN(nil, 3))
	assert.Equal(t, "4th", TopN(records, 10)[3].Rank)
}

func TestOrdinal(t *testing.T) {
	tests := map[int]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 11: "11th", 12: "12th",
		13: "13th", 21: "21st", 22: "22nd", 101: "101st", 111: "111th",
	}
	for n, want := range tests {
		assert.Equal(t, want, Ordinal(n))
	}
}

func TestWeakStudents(t *testing.T) {
	one := []roster.StudentRecord{student("A", "1", "x", 30, 50, 60, 60, 60, 60)}
	weak := WeakStudents(one)
	require.Len(t, weak, 1)
	assert.Equal(t, WeakMark{RegNo: "1", Name: "x", Subject: "OOPs C++", Mark: 30}, weak[0])

	records := []roster.StudentRecord{
		student("A", "1", "x", 30, 50, 60, 60, 60, 60),
		student("A", "2", "y", 10, 20, 60, 60, 60, 60),
	}
	weak = WeakStudents(records)
	require.Len(t, weak, 3)
	assert.Equal(t, "DSA C++", weak[0].Subject)
	assert.Equal(t, "OOPs C++", weak[1].Subject)
	assert.Equal(t, 10.0, weak[1].Mark)
	assert.Equal(t, 30.0, weak[2].Mark)
}

func TestSummarize(t *testing.T) {
	records := []roster.StudentRecord{
		student("A", "1", "x", 100, 100, 100, 100, 100, 100),
		student("A", "2", "y", 50, 50, 50, 50, 50, 20),
	}

	s := Summarize(records)
	assert.Equal(t, 2, s.Students)
	assert.Equal(t, 100.0, s.TopperPercentage)
	assert.Equal(t, 72.5, s.AveragePercentage)
	assert.Equal(t, 50.0, s.PassRate)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestSummarize_AllNegative(t *testing.T) {
	records := []roster.StudentRecord{
		student("A", "1", "x", -60),
		student("A", "2", "y", -30),
	}

	s := Summarize(records)
	assert.Equal(t, -5.0, s.TopperPercentage)
	assert.Equal(t, -7.5, s.AveragePercentage)
}

func TestHistogram_CoversAllMarks(t *testing.T) {
	records := []roster.StudentRecord{
		student("A", "1", "x", 0),
		student("A", "2", "y", 9.99),
		student("A", "3", "z", 10),
		student("A", "4", "w", 100),
		student("A", "5", "v", 150),
	}

	bins := Histogram(records, roster.Subjects[0], 0)
	require.Len(t, bins, DefaultBins)
	var total int
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, len(records), total)
	assert.Equal(t, 0.0, bins[0].Lower)
	assert.Equal(t, 150.0, bins[DefaultBins-1].Upper)

	fixed := Histogram(records[:4], roster.Subjects[0], 10)
	assert.Equal(t, 2, fixed[0].Count)
	assert.Equal(t, 1, fixed[1].Count)
	assert.Equal(t, 1, fixed[9].Count)
}

func TestCompareClasses(t *testing.T) {
	table := &roster.Table{Records: []roster.StudentRecord{
		student("B", "1", "x", 50, 50, 50, 50, 50, 50),
		student("A", "1", "x", 10, 50, 50, 50, 50, 50),
		student("A", "1", "x again", 90, 50, 50, 50, 50, 50),
		student("A", "", "no reg", 90, 50, 50, 50, 50, 50),
		student("A", "2", "y", 90, 50, 50, 50, 50, 50),
	}}

	cmp := CompareClasses(table)
	require.Len(t, cmp, 2)
	assert.Equal(t, "A", cmp[0].Class)
	assert.Equal(t, 2, cmp[0].Students)
	assert.Equal(t, 75.0, cmp[0].PassRate)
	assert.Equal(t, 70.0, cmp[0].Averages[0].Average)

	assert.Equal(t, "B", cmp[1].Class)
	assert.Equal(t, 1, cmp[1].Students)
	assert.Equal(t, 100.0, cmp[1].PassRate)

	reversed := &roster.Table{}
	for i := len(table.Records) - 1; i >= 0; i-- {
		reversed.Records = append(reversed.Records, table.Records[i])
	}
	again := CompareClasses(reversed)
	for i := range cmp {
		assert.Equal(t, cmp[i].PassRate, again[i].PassRate)
	}

	assert.Nil(t, CompareClasses(nil))
}

func TestCompareClasses_SkipsBlankClass(t *testing.T) {
	table := &roster.Table{Records: []roster.StudentRecord{
		student("A", "1", "x", 50, 50, 50, 50, 50, 50),
		student("", "2", "y", 10, 10, 10, 10, 10, 10),
	}}

	cmp := CompareClasses(table)
	require.Len(t, cmp, 1)
	assert.Equal(t, "A", cmp[0].Class)
	assert.Equal(t, 1, cmp[0].Students)
	assert.Equal(t, 100.0, cmp[0].PassRate)
}

func TestAnalyze(t *testing.T) {
	table := &roster.Table{Records: []roster.StudentRecord{
		student("A", "1", "Asha", 30, 50, 60, 60, 60, 60),
		student("A", "2", "Bilal", 70, 70, 70, 70, 70, 70),
		student("B", "3", "Chen", 90, 90, 90, 90, 90, 90),
	}}

	report := Analyze(table, "A", "")
	assert.False(t, report.Empty())
	assert.Equal(t, 2, report.Summary.Students)
	require.Len(t, report.Top, 2)
	assert.Equal(t, "2", report.Top[0].RegNo)
	require.Len(t, report.Weak, 1)
	assert.Equal(t, 50.0, report.Summary.PassRate)

	missing := Analyze(table, "Z", "")
	assert.True(t, missing.Empty())
	assert.Empty(t, missing.Top)
	assert.Empty(t, missing.Weak)
	assert.False(t, missing.Averages[0].HasData)
}
