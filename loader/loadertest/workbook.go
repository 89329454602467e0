// Package loadertest writes spreadsheet fixtures for tests.
package loadertest

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// LociHeader is the column layout of the locus description sheet.
var LociHeader = []any{
	"RepidName", "DiseaseName", "Link", "RepeatLocation",
	"NormalRange", "IntermediateRange", "FullMutationRange",
}

// CoordinatesHeader is the column layout of the coordinate sheet.
var CoordinatesHeader = []any{"RepidName", "Coordinates", "Frequency"}

// WriteWorkbook saves rows to dir/name as the first sheet of a new workbook
// and returns the full path.
func WriteWorkbook(t testing.TB, dir, name string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		row := r
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("writing row %d: %v", i+1, err)
		}
	}
	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving %s: %v", path, err)
	}
	return path
}

// Dataset writes a small two-locus dataset and returns the locus and
// coordinate workbook paths. ATXN1 has two observations, one without a
// frequency; HTT has one. GHOST appears only in the coordinate sheet.
func Dataset(t testing.TB, dir string) (string, string) {
	t.Helper()
	loci := WriteWorkbook(t, dir, "repid.xlsx", [][]any{
		LociHeader,
		{"ATXN1", "Spinocerebellar ataxia 1", "https://a.example/1 & https://a.example/2", "coding", "6-35", "36-38", "39-91"},
		{"HTT", "Huntington disease", "https://h.example", "coding", "<27", "27-35", ">36"},
	})
	coords := WriteWorkbook(t, dir, "coordinate_info.xlsx", [][]any{
		CoordinatesHeader,
		{"ATXN1", "12.34,-56.78", 10.0},
		{"ATXN1", "48.85, 2.35", ""},
		{"HTT", "-33.9,18.4", 2.5},
		{"GHOST", "0,0", 1.0},
	})
	return loci, coords
}
