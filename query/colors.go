package query

import (
	"hash/fnv"
	"sort"
)

// FallbackColor is used for markers whose name has no assigned color.
const FallbackColor = "gray"

// DistinctNames returns the sorted distinct non-empty values of field.
func DistinctNames(rows []Row, field string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, r := range rows {
		n := r.Name(field)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AssignColors gives each distinct name in rows the palette entry at its
// sort rank, wrapping around the palette. The mapping depends only on the
// set of names present, so the same name can get another color when the
// surrounding set changes.
func AssignColors(rows []Row, field string, palette []string) map[string]string {
	colors := make(map[string]string)
	if len(palette) == 0 {
		return colors
	}
	for i, n := range DistinctNames(rows, field) {
		colors[n] = palette[i%len(palette)]
	}
	return colors
}

// StableColors hashes each name onto the palette so a name keeps its color
// across queries. Distinct names may share a color.
func StableColors(rows []Row, field string, palette []string) map[string]string {
	colors := make(map[string]string)
	if len(palette) == 0 {
		return colors
	}
	for _, n := range DistinctNames(rows, field) {
		h := fnv.New32a()
		h.Write([]byte(n))
		colors[n] = palette[h.Sum32()%uint32(len(palette))]
	}
	return colors
}

// Radius sizes a marker from its frequency.
func Radius(freq *float64) float64 {
	if freq == nil {
		return 3
	}
	return *freq + 3.5
}
