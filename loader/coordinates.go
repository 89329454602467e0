package loader

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinate table columns.
const (
	ColCoordinates = "Coordinates"
	ColFrequency   = "Frequency"
)

// CoordinateRow is one geographic observation before it is tied to a
// locus key. RepidName is blank when the cell held no value.
type CoordinateRow struct {
	Line      int
	RepidName string
	Latitude  float64
	Longitude float64
	Frequency *float64
}

// ReadCoordinates reads and parses the coordinate sheet at path.
func ReadCoordinates(path string) ([]CoordinateRow, error) {
	s, err := ReadSheet(path)
	if err != nil {
		return nil, err
	}
	return ParseCoordinates(s)
}

// ParseCoordinates converts sheet rows into CoordinateRows. Every malformed
// row is reported; no rows are returned if any is malformed.
func ParseCoordinates(s *Sheet) ([]CoordinateRow, error) {
	req, err := s.Require(ColRepidName, ColCoordinates, ColFrequency)
	if err != nil {
		return nil, err
	}

	var errs []error
	rows := make([]CoordinateRow, 0, len(s.Rows))
	for i, r := range s.Rows {
		rowErr := func(col string, err error) {
			errs = append(errs, &RowError{Source: s.Source, Row: s.Line(i), Column: col, Err: err})
		}

		lat, long, err := ParseLatLong(Cell(r, req[1]))
		if err != nil {
			rowErr(ColCoordinates, err)
			continue
		}
		freq, err := ParseFrequency(Cell(r, req[2]))
		if err != nil {
			rowErr(ColFrequency, err)
			continue
		}
		rows = append(rows, CoordinateRow{
			Line:      s.Line(i),
			RepidName: value(Cell(r, req[0])),
			Latitude:  lat,
			Longitude: long,
			Frequency: freq,
		})
	}
	if len(errs) > 0 {
		return nil, joinRowErrors(errs)
	}
	return rows, nil
}

// ParseLatLong splits a combined "lat,long" value. Anything other than
// exactly two numeric parts is a format error.
func ParseLatLong(v string) (float64, float64, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: coordinates %q must be \"lat,long\"", ErrFormat, v)
	}
	lat, err := parseFinite(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: latitude %q is not a number", ErrFormat, parts[0])
	}
	long, err := parseFinite(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: longitude %q is not a number", ErrFormat, parts[1])
	}
	return lat, long, nil
}

// ParseFrequency returns nil for an absent frequency.
func ParseFrequency(v string) (*float64, error) {
	v = strings.TrimSpace(v)
	if missing(v) {
		return nil, nil
	}
	f, err := parseFinite(v)
	if err != nil {
		return nil, fmt.Errorf("%w: frequency %q is not a number", ErrFormat, v)
	}
	return &f, nil
}

func parseFinite(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not finite")
	}
	return f, nil
}

func joinRowErrors(errs []error) error {
	return fmt.Errorf("%d malformed row(s): %w", len(errs), errors.Join(errs...))
}
