package loader

import (
	"html"
	"strings"
)

// Locus table columns.
const (
	ColRepidName         = "RepidName"
	ColDiseaseName       = "DiseaseName"
	ColLink              = "Link"
	ColRepeatLocation    = "RepeatLocation"
	ColNormalRange       = "NormalRange"
	ColIntermediateRange = "IntermediateRange"
	ColFullMutationRange = "FullMutationRange"
)

// LocusRow is one row of the locus description sheet with its reference
// links already rendered.
// A blank RepidName or DiseaseName means the cell held no value.
type LocusRow struct {
	Line              int
	RepidName         string
	DiseaseName       string
	Link              string
	RepeatLocation    string
	NormalRange       string
	IntermediateRange string
	FullMutationRange string
}

// ReadLoci reads and parses the locus description sheet at path.
func ReadLoci(path string) ([]LocusRow, error) {
	s, err := ReadSheet(path)
	if err != nil {
		return nil, err
	}
	return ParseLoci(s)
}

// ParseLoci converts sheet rows into LocusRows. RepidName, DiseaseName and
// Link are required columns; the range descriptors are optional and carried
// through verbatim. Empty cells are not errors: a row without a name is kept
// and later matches no locus key.
func ParseLoci(s *Sheet) ([]LocusRow, error) {
	req, err := s.Require(ColRepidName, ColDiseaseName, ColLink)
	if err != nil {
		return nil, err
	}
	loc := s.Index(ColRepeatLocation)
	normal := s.Index(ColNormalRange)
	inter := s.Index(ColIntermediateRange)
	full := s.Index(ColFullMutationRange)

	rows := make([]LocusRow, 0, len(s.Rows))
	for i, r := range s.Rows {
		rows = append(rows, LocusRow{
			Line:              s.Line(i),
			RepidName:         value(Cell(r, req[0])),
			DiseaseName:       value(Cell(r, req[1])),
			Link:              RenderLinks(Cell(r, req[2])),
			RepeatLocation:    Cell(r, loc),
			NormalRange:       Cell(r, normal),
			IntermediateRange: Cell(r, inter),
			FullMutationRange: Cell(r, full),
		})
	}
	return rows, nil
}

// RenderLinks turns an &-delimited list of URLs into clickable reference
// labels separated by line breaks. Every piece yields a label, so an input
// without any & still renders exactly one.
func RenderLinks(raw string) string {
	parts := strings.Split(raw, "&")
	labels := make([]string, len(parts))
	for i, p := range parts {
		labels[i] = `<a href="` + html.EscapeString(strings.TrimSpace(p)) + `" target="_blank"><i>Reference</i></a>`
	}
	return strings.Join(labels, "<br>")
}
