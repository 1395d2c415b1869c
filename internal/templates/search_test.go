package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticCatalog(names ...string) *Catalog {
	items := make([]*Template, 0, len(names))
	for i, name := range names {
		items = append(items, &Template{
			Name: name,
			Key:  "k" + string(rune('a'+i)),
			Path: "/templates/" + strings.ReplaceAll(strings.ToLower(name), " ", "_") + ".png",
		})
	}
	return NewCatalog(items)
}

func names(matches []Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Template.Name)
	}
	return out
}

func TestSearchEmptyPhraseReturnsCatalogOrder(t *testing.T) {
	catalog := staticCatalog("Zebra", "Drake", "Aliens")
	matches := NewSearchIndex(catalog).Search("")

	assert.Equal(t, []string{"Zebra", "Drake", "Aliens"}, names(matches))
	for _, m := range matches {
		assert.Zero(t, m.Score)
	}
}

func TestSearchEmptyCatalog(t *testing.T) {
	idx := NewSearchIndex(NewCatalog(nil))
	assert.Empty(t, idx.Search(""))
	assert.Empty(t, idx.Search("drake"))

	var nilCatalog *Catalog
	assert.Empty(t, NewSearchIndex(nilCatalog).Search("x"))
}

func TestSearchIncludesExactlySubstringMatches(t *testing.T) {
	catalog := staticCatalog("Drake Hotline Bling", "Drake", "Two Buttons", "Distracted Boyfriend", "Buttons")
	idx := NewSearchIndex(catalog)

	for _, phrase := range []string{"drake", "BUTTONS", "ing", "o", "zz", "Drake Hotline Bling"} {
		t.Run(phrase, func(t *testing.T) {
			got := map[string]bool{}
			for _, name := range names(idx.Search(phrase)) {
				got[name] = true
			}
			for _, tmpl := range catalog.List() {
				want := strings.Contains(strings.ToLower(tmpl.Name), strings.ToLower(phrase))
				assert.Equal(t, want, got[tmpl.Name], tmpl.Name)
			}
		})
	}
}

func TestSearchRanking(t *testing.T) {
	catalog := staticCatalog("Drake Hotline Bling", "Drake Memes", "Drake", "Young Drake")
	matches := NewSearchIndex(catalog).Search("Drake")

	require.Len(t, matches, 4)
	assert.Equal(t, "Drake", matches[0].Template.Name)
	assert.Equal(t, 1.0, matches[0].Score)
	// "Drake Memes" and "Young Drake" share a score and keep catalog order.
	assert.Equal(t, []string{"Drake", "Drake Memes", "Young Drake", "Drake Hotline Bling"}, names(matches))
	assert.InDelta(t, 5.0/11.0, matches[1].Score, 1e-9)
	assert.Equal(t, matches[1].Score, matches[2].Score)
	assert.InDelta(t, 5.0/19.0, matches[3].Score, 1e-9)

	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestSearchDeterministic(t *testing.T) {
	catalog := staticCatalog("Bad Luck Brian", "Brian", "Success Kid", "Scumbag Brian", "Brian Cox")
	idx := NewSearchIndex(catalog)

	first := idx.Search("brian")
	second := idx.Search("brian")
	assert.Equal(t, first, second)
}

func TestSearchTrimsQuotes(t *testing.T) {
	catalog := staticCatalog("Change My Mind")
	matches := NewSearchIndex(catalog).Search(`  "my mind" `)
	assert.Equal(t, []string{"Change My Mind"}, names(matches))
}
