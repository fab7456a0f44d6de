// Package sheet reads uploaded class spreadsheets into raw roster frames.
//
// Supported inputs are Excel workbooks (.xlsx), CSV files and HTML-table
// exports (.html, .htm, and the .xls files many school portals produce, which
// are HTML underneath). Cells stay as text here; numeric coercion is the
// normalizer's job.
package sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/feelsunbreeze/student_dashboard/internal/roster"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrNoHeader          = errors.New("spreadsheet has no header row")
)

// Upload is one file handed over by a UI layer.
type Upload struct {
	Name string
	Data []byte
}

// Load parses a single spreadsheet, choosing the reader by file extension.
func Load(name string, r io.Reader) (roster.Frame, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return readXLSX(r)
	case ".csv":
		return readCSV(r)
	case ".html", ".htm":
		return readHTML(r)
	case ".xls":
		data, err := io.ReadAll(r)
		if err != nil {
			return roster.Frame{}, errors.Wrap(err, "read xls")
		}
		if !looksLikeHTML(data) {
			return roster.Frame{}, errors.Wrap(ErrUnsupportedFormat, "binary .xls workbooks must be saved as .xlsx")
		}
		return readHTML(bytes.NewReader(data))
	}
	return roster.Frame{}, errors.Wrapf(ErrUnsupportedFormat, "%q", filepath.Ext(name))
}

func LoadFile(path string) (roster.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return roster.Frame{}, err
	}
	defer f.Close()
	return Load(filepath.Base(path), f)
}

// LoadAll parses uploads concurrently and concatenates them in upload order.
// Any failing file fails the whole load.
func LoadAll(ctx context.Context, uploads []Upload) (roster.Frame, error) {
	frames := make([]roster.Frame, len(uploads))
	g, ctx := errgroup.WithContext(ctx)
	for i, u := range uploads {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frame, err := Load(u.Name, bytes.NewReader(u.Data))
			if err != nil {
				return errors.Wrapf(err, "load %s", u.Name)
			}
			frames[i] = frame
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return roster.Frame{}, err
	}
	return roster.Concat(frames...), nil
}

// LoadFiles is LoadAll for paths on disk.
func LoadFiles(ctx context.Context, paths []string) (roster.Frame, error) {
	uploads := make([]Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return roster.Frame{}, err
		}
		uploads = append(uploads, Upload{Name: filepath.Base(p), Data: data})
	}
	return LoadAll(ctx, uploads)
}

func readXLSX(r io.Reader) (roster.Frame, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return roster.Frame{}, errors.Wrap(err, "open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return roster.Frame{}, ErrNoHeader
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return roster.Frame{}, errors.Wrapf(err, "read sheet %q", sheets[0])
	}
	return fromRecords(rows)
}

func readCSV(r io.Reader) (roster.Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return roster.Frame{}, errors.Wrap(err, "read csv")
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return fromRecords(records)
}

func readHTML(r io.Reader) (roster.Frame, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return roster.Frame{}, errors.Wrap(err, "parse html")
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return roster.Frame{}, ErrNoHeader
	}

	var records [][]string
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		var cells []string
		row.Find("th, td").Each(func(j int, cell *goquery.Selection) {
			cells = append(cells, strings.Join(strings.Fields(cell.Text()), " "))
		})
		records = append(records, cells)
	})
	return fromRecords(records)
}

// fromRecords turns a header row plus data rows into a frame. Blank header
// cells are dropped and fully blank rows are skipped.
func fromRecords(records [][]string) (roster.Frame, error) {
	start := -1
	for i, rec := range records {
		if !blank(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return roster.Frame{}, ErrNoHeader
	}

	header := records[start]
	var frame roster.Frame
	for _, col := range header {
		if strings.TrimSpace(col) != "" {
			frame.Columns = append(frame.Columns, col)
		}
	}

	for _, rec := range records[start+1:] {
		if blank(rec) {
			continue
		}
		row := make(roster.Row, len(header))
		for j, col := range header {
			if strings.TrimSpace(col) == "" {
				continue
			}
			if j < len(rec) {
				row[col] = rec[j]
			} else {
				row[col] = ""
			}
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame, nil
}

func blank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func looksLikeHTML(data []byte) bool {
	head := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	return len(head) > 0 && head[0] == '<'
}
