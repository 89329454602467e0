package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrMissingInput is returned when an input file does not exist.
	ErrMissingInput = errors.New("missing input file")
	// ErrFormat marks malformed cell values and missing columns.
	ErrFormat = errors.New("data format error")
)

// RowError locates a data format error in a sheet. Row is the 1-based
// spreadsheet row, counting the header as row 1.
type RowError struct {
	Source string
	Row    int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %d (%s): %v", e.Source, e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Sheet is a header plus string cells, independent of the file format.
// Lines[i] is the 1-based spreadsheet row Rows[i] came from.
type Sheet struct {
	Source string
	Header []string
	Rows   [][]string
	Lines  []int
}

// Line returns the spreadsheet row number of Rows[i].
func (s *Sheet) Line(i int) int {
	if i < len(s.Lines) {
		return s.Lines[i]
	}
	return i + 2
}

// ReadSheet reads the first worksheet of an .xlsx workbook, or a .csv/.tsv
// file. Header cells are trimmed and fully blank rows are dropped.
func ReadSheet(path string) (*Sheet, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var (
		records [][]string
		lines   []int
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		records, lines, err = readWorkbook(path)
	case ".csv":
		records, lines, err = readDelimited(path, ',')
	case ".tsv", ".txt":
		records, lines, err = readDelimited(path, '\t')
	default:
		return nil, fmt.Errorf("unsupported spreadsheet type %q for %s", ext, path)
	}
	if err != nil {
		return nil, err
	}
	return newSheet(filepath.Base(path), records, lines)
}

// newSheet builds a Sheet from raw records. lines holds the source row of
// each record; nil means records are consecutive rows starting at 1.
func newSheet(source string, records [][]string, lines []int) (*Sheet, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s has no header row", ErrFormat, source)
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	s := &Sheet{Source: source, Header: header}
	for i, rec := range records {
		if i == 0 || blank(rec) {
			continue
		}
		line := i + 1
		if lines != nil {
			line = lines[i]
		}
		s.Rows = append(s.Rows, rec)
		s.Lines = append(s.Lines, line)
	}
	return s, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// readWorkbook returns the rows of the first sheet. GetRows keeps empty rows
// in place, so the record index maps straight to the row number.
func readWorkbook(path string) ([][]string, []int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: workbook %s has no sheets", ErrFormat, path)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("reading sheet %s of %s: %w", sheets[0], path, err)
	}
	return rows, nil, nil
}

func readDelimited(path string, comma rune) ([][]string, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return parseDelimited(f, comma)
}

// parseDelimited reads every record with the line it starts on. The csv
// reader skips empty lines, so positions come from FieldPos.
func parseDelimited(r io.Reader, comma rune) ([][]string, []int, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return records, lines, nil
}

// Index returns the position of the named column, or -1.
func (s *Sheet) Index(column string) int {
	for i, h := range s.Header {
		if h == column {
			return i
		}
	}
	for i, h := range s.Header {
		if strings.EqualFold(h, column) {
			return i
		}
	}
	return -1
}

// Require returns the positions of the named columns, failing on the first
// one that is absent.
func (s *Sheet) Require(columns ...string) ([]int, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = s.Index(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: %s has no %q column", ErrFormat, s.Source, c)
		}
	}
	return idx, nil
}

// Cell returns the trimmed value at idx, or "" when the row is short or idx
// is negative.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// missing mirrors the spreadsheet markers that mean "no value".
func missing(v string) bool {
	switch strings.ToLower(v) {
	case "", "na", "n/a", "nan", "null", "none":
		return true
	}
	return false
}

// value maps the "no value" markers to "".
func value(v string) string {
	if missing(v) {
		return ""
	}
	return v
}
