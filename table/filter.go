package table

import (
	"sort"
	"strings"
)

// DefaultFilters are the columns offered as filters when present.
var DefaultFilters = []string{"AlleleClass", "Locus", "Superpopulation", "Population", "Sample"}

// Query is one table view request.
type Query struct {
	// Selections maps a filter column to its accepted values. Columns with
	// no values do not filter.
	Selections map[string][]string
	// Text holds comma separated terms that must all appear in the
	// searched columns.
	Text string
	// SearchColumns limits the text search. Empty means every active
	// filter column.
	SearchColumns []string
}

func normalize(column string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(r.Replace(column))
}

// resolve maps a loosely spelled column name onto a column of t.
func (t *Table) resolve(column string) int {
	if i := t.Index(column); i >= 0 {
		return i
	}
	want := normalize(column)
	for i, c := range t.Columns {
		if normalize(c) == want {
			return i
		}
	}
	return -1
}

// ActiveFilters returns the columns of t that appear in allow, in table
// order.
func (t *Table) ActiveFilters(allow []string) []string {
	allowed := make(map[string]bool, len(allow))
	for _, a := range allow {
		allowed[normalize(a)] = true
	}
	var out []string
	for _, c := range t.Columns {
		if allowed[normalize(c)] {
			out = append(out, c)
		}
	}
	return out
}

// DistinctValues returns the sorted distinct non-empty values of column.
func (t *Table) DistinctValues(column string) []string {
	idx := t.resolve(column)
	if idx < 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, row := range t.Rows {
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// Filter returns a new table holding the rows that satisfy q. Selections on
// columns outside the active filters are ignored. A row must match one of
// the selected values in every selected column, and must contain every
// text term, case-insensitively, somewhere in its searched columns.
func (t *Table) Filter(allow []string, q Query) *Table {
	active := t.ActiveFilters(allow)
	isActive := make(map[int]bool, len(active))
	for _, c := range active {
		isActive[t.Index(c)] = true
	}

	type selection struct {
		idx    int
		values map[string]struct{}
	}
	var sels []selection
	for col, values := range q.Selections {
		idx := t.resolve(col)
		if idx < 0 || !isActive[idx] || len(values) == 0 {
			continue
		}
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[strings.TrimSpace(v)] = struct{}{}
		}
		sels = append(sels, selection{idx: idx, values: set})
	}

	var search []int
	for _, c := range q.SearchColumns {
		if idx := t.resolve(c); idx >= 0 {
			search = append(search, idx)
		}
	}
	if len(search) == 0 {
		for _, c := range active {
			search = append(search, t.Index(c))
		}
	}
	if len(search) == 0 {
		for i := range t.Columns {
			search = append(search, i)
		}
	}
	terms := splitTerms(q.Text)

	out := &Table{Name: t.Name, Columns: append([]string(nil), t.Columns...)}
rows:
	for _, row := range t.Rows {
		for _, s := range sels {
			if _, ok := s.values[strings.TrimSpace(row[s.idx])]; !ok {
				continue rows
			}
		}
		if len(terms) > 0 {
			parts := make([]string, len(search))
			for i, idx := range search {
				parts[i] = row[idx]
			}
			hay := strings.ToLower(strings.Join(parts, " "))
			for _, term := range terms {
				if !strings.Contains(hay, term) {
					continue rows
				}
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// splitTerms returns the lower-cased, trimmed, non-empty comma separated
// terms of text.
func splitTerms(text string) []string {
	var terms []string
	for _, t := range strings.Split(text, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, strings.ToLower(t))
		}
	}
	return terms
}
