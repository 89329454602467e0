// Package table serves the tab-separated flat tables behind the table view:
// loading them from disk or S3, filtering, and exporting the filtered view.
package table

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned when a table is not declared or its file is absent.
var ErrNotFound = errors.New("table not found")

// Table is a header plus rows. Every row has exactly len(Columns) cells.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Parse reads tab-separated text. Header names are trimmed and every record
// must have as many fields as the header.
func Parse(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("table %s is empty", name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", name, err)
	}
	t := &Table{Name: name, Columns: make([]string, len(header))}
	for i, h := range header {
		t.Columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Index returns the position of column, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Records returns the rows as column to value maps, for JSON responses.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, len(t.Rows))
	for i, row := range t.Rows {
		m := make(map[string]string, len(t.Columns))
		for j, c := range t.Columns {
			m[c] = row[j]
		}
		out[i] = m
	}
	return out
}

// WriteTSV writes the header and rows in their original order. Cells are
// written verbatim; only a cell holding a tab or line break, which cannot
// survive a tab-separated line otherwise, is quoted with doubled quotes.
func (t *Table) WriteTSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	writeTSVLine(bw, t.Columns)
	for _, row := range t.Rows {
		writeTSVLine(bw, row)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", t.Name, err)
	}
	return nil
}

func writeTSVLine(w *bufio.Writer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			w.WriteByte('\t')
		}
		if strings.ContainsAny(c, "\t\r\n") {
			c = `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
		}
		w.WriteString(c)
	}
	w.WriteByte('\n')
}

// Export formats.
const (
	FormatTSV  = "tsv"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ContentType returns the MIME type of an export format, or "" when the
// format is unknown.
func ContentType(format string) string {
	switch format {
	case FormatTSV:
		return "text/tab-separated-values"
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	}
	return ""
}

// Export writes t in the given format. JSON is an array of column to value
// records.
func (t *Table) Export(w io.Writer, format string) error {
	switch format {
	case FormatTSV:
		return t.WriteTSV(w)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(t.Columns); err != nil {
			return err
		}
		if err := cw.WriteAll(t.Rows); err != nil {
			return fmt.Errorf("writing %s: %w", t.Name, err)
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t.Records())
	}
	return fmt.Errorf("unknown export format %q", format)
}
