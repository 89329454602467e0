package query

import (
	"sort"
	"strings"
)

// Vocabulary is the set of names a user can pick from.
type Vocabulary struct {
	Repids   []string `json:"repids"`
	Diseases []string `json:"diseases"`
}

func (v *Vocabulary) has(list []string, term string) bool {
	i := sort.SearchStrings(list, term)
	return i < len(list) && list[i] == term
}

// Selection is the resolved pair of filter sets for Engine.Regions.
type Selection struct {
	Repids   []string `json:"repids"`
	Diseases []string `json:"diseases"`
}

// Empty reports whether nothing was selected.
func (s Selection) Empty() bool {
	return len(s.Repids) == 0 && len(s.Diseases) == 0
}

// ParseSelection merges the multi-select choices with the comma separated
// free text. Each term is matched exactly, first against the locus names
// and then against the disease names; terms matching neither are dropped.
// The vocabulary lists must be sorted, as Engine.Options returns them.
func ParseSelection(repids, diseases []string, text string, vocab *Vocabulary) Selection {
	var typedRepids, typedDiseases []string
	if vocab != nil {
		for _, term := range SplitTerms(text) {
			switch {
			case vocab.has(vocab.Repids, term):
				typedRepids = append(typedRepids, term)
			case vocab.has(vocab.Diseases, term):
				typedDiseases = append(typedDiseases, term)
			}
		}
	}
	return Selection{
		Repids:   union(repids, typedRepids),
		Diseases: union(diseases, typedDiseases),
	}
}

// SplitTerms splits comma separated text into trimmed, non-empty terms.
func SplitTerms(text string) []string {
	var terms []string
	for _, t := range strings.Split(text, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range lists {
		for _, v := range l {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
