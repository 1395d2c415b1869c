package templates

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Match is a ranked search hit.
type Match struct {
	Template *Template `json:"template"`
	Score    float64   `json:"score"`
}

// SearchIndex ranks catalog entries against free-text phrases.
type SearchIndex struct {
	catalog *Catalog
}

// NewSearchIndex creates a search index over catalog.
func NewSearchIndex(catalog *Catalog) *SearchIndex {
	return &SearchIndex{catalog: catalog}
}

// Search returns the templates whose name contains phrase, case-insensitively,
// best first. An exact name scores 1; other hits score by the share of the
// name the phrase covers. Ties keep catalog order. An empty phrase returns the
// whole catalog with score 0.
func (s *SearchIndex) Search(phrase string) []Match {
	phrase = normalizePhrase(phrase)
	items := s.catalog.List()

	matches := make([]Match, 0, len(items))
	if phrase == "" {
		for _, tmpl := range items {
			matches = append(matches, Match{Template: tmpl})
		}
		return matches
	}

	for _, tmpl := range items {
		if score, ok := scoreName(strings.ToLower(tmpl.Name), phrase); ok {
			matches = append(matches, Match{Template: tmpl, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

func scoreName(name, phrase string) (float64, bool) {
	if name == phrase {
		return 1, true
	}
	if !strings.Contains(name, phrase) {
		return 0, false
	}
	return float64(utf8.RuneCountInString(phrase)) / float64(utf8.RuneCountInString(name)), true
}

func normalizePhrase(phrase string) string {
	phrase = strings.TrimSpace(phrase)
	phrase = strings.Trim(phrase, `"'`)
	return strings.ToLower(strings.TrimSpace(phrase))
}
