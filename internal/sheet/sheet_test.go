package sheet

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestLoad_XLSX(t *testing.T) {
	data := workbook(t, [][]any{
		{"Class", "Reg.no", "Name", "Mathematics"},
		{"CSE-A", "101", "Asha", 72.5},
		{},
		{"CSE-A", "102", "Bilal"},
	})

	frame, err := Load("cse-a.xlsx", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"Class", "Reg.no", "Name", "Mathematics"}, frame.Columns)
	require.Len(t, frame.Rows, 2)
	assert.Equal(t, "72.5", frame.Rows[0]["Mathematics"])
	assert.Equal(t, "", frame.Rows[1]["Mathematics"])
	assert.Equal(t, "Bilal", frame.Rows[1]["Name"])
}

func TestLoad_CSV(t *testing.T) {
	src := "\ufeffClass,Reg.no,Name,DSA C++\nCSE-B,7,Chen,81\n,,,\nCSE-B,8,Dana\n"

	frame, err := Load("b.CSV", strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "Class", frame.Columns[0])
	require.Len(t, frame.Rows, 2)
	assert.Equal(t, "81", frame.Rows[0]["DSA C++"])
	assert.Equal(t, "", frame.Rows[1]["DSA C++"])
}

func TestLoad_HTMLTable(t *testing.T) {
	src := `<html><body>
<table>
  <tr><th>Class</th><th>Reg.no</th><th>Name</th><th>Cloud  Mgmt</th></tr>
  <tr><td>CSE-C</td><td>9</td><td> Eve
  Ng </td><td>64</td></tr>
</table>
<table><tr><td>ignored</td></tr></table>
</body></html>`

	for _, name := range []string{"c.html", "c.htm", "c.xls"} {
		t.Run(name, func(t *testing.T) {
			frame, err := Load(name, strings.NewReader(src))
			require.NoError(t, err)
			assert.Equal(t, []string{"Class", "Reg.no", "Name", "Cloud Mgmt"}, frame.Columns)
			require.Len(t, frame.Rows, 1)
			assert.Equal(t, "Eve Ng", frame.Rows[0]["Name"])
			assert.Equal(t, "64", frame.Rows[0]["Cloud Mgmt"])
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want error
	}{
		{name: "binary xls", file: "old.xls", data: "\xd0\xcf\x11\xe0", want: ErrUnsupportedFormat},
		{name: "unknown extension", file: "notes.txt", data: "Class", want: ErrUnsupportedFormat},
		{name: "empty csv", file: "empty.csv", data: "", want: ErrNoHeader},
		{name: "html without table", file: "page.html", data: "<p>nothing</p>", want: ErrNoHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.file, strings.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadAll_KeepsUploadOrder(t *testing.T) {
	uploads := []Upload{
		{Name: "a.csv", Data: []byte("Class,Reg.no,Name\nA,1,x\nA,2,y\n")},
		{Name: "b.xlsx", Data: workbook(t, [][]any{{"Class", "Name", "Reg.no", "Physics"}, {"B", "z", "3", 50}})},
		{Name: "c.csv", Data: []byte("Class,Reg.no,Name\nC,4,w\n")},
	}

	frame, err := LoadAll(context.Background(), uploads)
	require.NoError(t, err)
	assert.Equal(t, []string{"Class", "Reg.no", "Name", "Physics"}, frame.Columns)

	var classes []string
	for _, row := range frame.Rows {
		classes = append(classes, row["Class"])
	}
	assert.Equal(t, []string{"A", "A", "B", "C"}, classes)
}

func TestLoadAll_OneBadFileFailsAll(t *testing.T) {
	uploads := []Upload{
		{Name: "a.csv", Data: []byte("Class,Reg.no,Name\nA,1,x\n")},
		{Name: "b.pdf", Data: []byte("%PDF")},
	}

	frame, err := LoadAll(context.Background(), uploads)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "b.pdf")
	assert.Empty(t, frame.Rows)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "d.csv")
	require.NoError(t, os.WriteFile(path, []byte("Class,Reg.no,Name\nD,1,v\n"), 0o600))

	frame, err := LoadFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, frame.Rows, 1)
	assert.Equal(t, "D", frame.Rows[0]["Class"])

	_, err = LoadFiles(context.Background(), []string{filepath.Join(dir, "missing.csv")})
	assert.Error(t, err)
}
