package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_BackfillsSubjects(t *testing.T) {
	frame := Frame{
		Columns: []string{"Class", "Reg.no", "Name", "Mathematics", "Cloud Mgmt"},
		Rows: []Row{
			{"Class": "CSE-A", "Reg.no": "1", "Name": "Asha", "Mathematics": "72", "Cloud Mgmt": "55"},
			{"Class": "CSE-A", "Reg.no": "2", "Name": "Bilal", "Mathematics": "", "Cloud Mgmt": "61.5"},
		},
	}

	table, err := Normalize(frame)
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	assert.Empty(t, table.Warnings)

	for _, rec := range table.Records {
		assert.Len(t, rec.Marks, len(Subjects))
		for _, sub := range Subjects {
			_, ok := rec.Marks[sub]
			assert.True(t, ok, "subject %s missing", sub)
		}
	}

	asha := table.Records[0]
	assert.Equal(t, 72.0, asha.Mark("Mathematics"))
	assert.Equal(t, 55.0, asha.Mark("Cloud Management"))
	assert.Equal(t, 0.0, asha.Mark("OOPs C++"))
	assert.Equal(t, 0.0, table.Records[1].Mark("Mathematics"))
	assert.Equal(t, 61.5, table.Records[1].Mark("Cloud Management"))
}

func TestNormalize_MissingIdentityColumns(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		opts    []Option
		missing []string
	}{
		{
			name:    "no identity columns",
			frame:   Frame{Columns: []string{"Mathematics"}, Rows: []Row{{"Mathematics": "50"}}},
			missing: []string{"Class", "Reg.no", "Name"},
		},
		{
			name:    "registration alias unknown to app table",
			frame:   Frame{Columns: []string{"Class", "Reg No", "Name"}},
			missing: []string{"Reg.no"},
		},
		{
			name:  "registration alias known to legacy table",
			frame: Frame{Columns: []string{"Class", "Reg No", "Name"}},
			opts:  []Option{WithAliases(LegacyAliases)},
		},
		{
			name:  "column present in only one row",
			frame: Frame{Rows: []Row{{"Class": "A", "Name": "x"}, {"Reg.no": "7"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.frame, tt.opts...)
			if tt.missing == nil {
				assert.NoError(t, err)
				return
			}
			var mce *MissingColumnError
			require.ErrorAs(t, err, &mce)
			assert.Equal(t, tt.missing, mce.Columns)
		})
	}
}

func TestNormalize_Warnings(t *testing.T) {
	frame := Frame{Rows: []Row{
		{"Class": "A", "Reg.no": "1", "Name": "x", "Mathematics": "absent", "DSA C++": "-5", "OOPs C++": "150", "Embedded Systems": "nan"},
	}}

	table, err := Normalize(frame, WithMaxMark(100))
	require.NoError(t, err)

	rec := table.Records[0]
	assert.Equal(t, 0.0, rec.Mark("Mathematics"))
	assert.Equal(t, -5.0, rec.Mark("DSA C++"))
	assert.Equal(t, 150.0, rec.Mark("OOPs C++"))
	assert.Equal(t, 0.0, rec.Mark("Embedded Systems"))

	reasons := map[string]string{}
	for _, w := range table.Warnings {
		reasons[w.Column] = w.Reason
	}
	assert.Equal(t, map[string]string{
		"OOPs C++":         ReasonAboveMax,
		"DSA C++":          ReasonNegative,
		"Mathematics":      ReasonNotNumber,
		"Embedded Systems": ReasonNotNumber,
	}, reasons)

	unbounded, err := Normalize(frame)
	require.NoError(t, err)
	assert.Len(t, unbounded.Warnings, 3)
}

func TestNormalize_NonFiniteTextIsNotANumber(t *testing.T) {
	frame := Frame{Rows: []Row{
		{"Class": "A", "Reg.no": "1", "Name": "x", "Mathematics": "NaN"},
		{"Class": "A", "Reg.no": "2", "Name": "y", "Mathematics": "abc"},
		{"Class": "A", "Reg.no": "3", "Name": "z", "Mathematics": "-Inf"},
	}}

	table, err := Normalize(frame)
	require.NoError(t, err)
	require.Len(t, table.Warnings, 3)
	for i, w := range table.Warnings {
		assert.Equal(t, i, w.Row)
		assert.Equal(t, "Mathematics", w.Column)
		assert.Equal(t, ReasonNotNumber, w.Reason)
		assert.Equal(t, 0.0, table.Records[i].Mark("Mathematics"))
	}
}

func TestNormalize_BlankClass(t *testing.T) {
	frame := Frame{Rows: []Row{
		{"Class": "A", "Reg.no": "1", "Name": "x", "Mathematics": "50"},
		{"Class": "  ", "Reg.no": "2", "Name": "y", "Mathematics": "60"},
	}}

	table, err := Normalize(frame)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"A"}, table.Classes())
	require.Len(t, table.Warnings, 1)
	assert.Equal(t, Warning{Row: 1, Column: ColClass, Reason: ReasonNoClass}, table.Warnings[0])
}

func TestNormalize_CanonicalColumnWinsOverAlias(t *testing.T) {
	frame := Frame{Rows: []Row{
		{"Class": "A", "Reg.no": "1", "Name": "x", "Cloud Management": "80", "Cloud Mgmt": "10", "CloudMgmt": "20"},
		{"Class": "A", "Reg.no": "2", "Name": "y", "Cloud Management": "", "Cloud Mgmt": "10", "CloudMgmt": "20"},
	}}

	table, err := Normalize(frame)
	require.NoError(t, err)
	assert.Equal(t, 80.0, table.Records[0].Mark("Cloud Management"))
	assert.Equal(t, 10.0, table.Records[1].Mark("Cloud Management"))
}

func TestStudentRecord_Totals(t *testing.T) {
	frame := Frame{Rows: []Row{{
		"Name": "x", "Class": "A", "Reg.no": "1",
		"Cloud Management": "60", "OOPs C++": "90", "DSA C++": "85",
		"Mathematics": "77", "Applied Data Science": "68", "Embedded Systems": "71",
		"Physics": "99",
	}}}

	table, err := Normalize(frame)
	require.NoError(t, err)

	rec := table.Records[0]
	assert.Equal(t, 451.0, rec.Total())
	assert.Equal(t, 75.17, rec.Percentage())
	assert.True(t, rec.PassesAll())

	rec.Marks["Mathematics"] = 39.5
	assert.False(t, rec.PassesAll())
}

func TestConcat(t *testing.T) {
	a := Frame{Columns: []string{"Class", "Name"}, Rows: []Row{{"Class": "A"}}}
	b := Frame{Columns: []string{"Name", "Reg.no"}, Rows: []Row{{"Class": "B"}, {"Class": "B"}}}

	out := Concat(a, b)
	assert.Equal(t, []string{"Class", "Name", "Reg.no"}, out.Columns)
	assert.Len(t, out.Rows, 3)
	assert.Equal(t, "A", out.Rows[0]["Class"])
}

func TestTable_Classes(t *testing.T) {
	table := &Table{Records: []StudentRecord{{Class: "B"}, {Class: "A"}, {Class: ""}, {Class: "B"}}}
	assert.Equal(t, []string{"A", "B"}, table.Classes())

	var empty *Table
	assert.Nil(t, empty.Classes())
	assert.Equal(t, 0, empty.Len())
}

func TestLookupAliases(t *testing.T) {
	merged, ok := LookupAliases("merged")
	require.True(t, ok)
	assert.Equal(t, "Reg.no", merged.Canonical("Registration No"))
	assert.Equal(t, "OOPs C++", merged.Canonical("Object Oriented Programming C++"))
	assert.Equal(t, "Physics", merged.Canonical("Physics"))

	_, ok = LookupAliases("other")
	assert.False(t, ok)
}
