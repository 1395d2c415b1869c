package templates

import (
	"strings"

	"github.com/opencode-ai/memer/internal/logging"
)

// Catalog is the ordered, read-only set of templates for one invocation.
type Catalog struct {
	items  []*Template
	byKey  map[string]*Template
	byName map[string]*Template
}

// NewCatalog builds a catalog from templates in precedence order. When two
// templates share a key or a case-insensitive name, the first one wins.
func NewCatalog(items []*Template) *Catalog {
	logger := logging.Component("catalog")
	c := &Catalog{
		items:  make([]*Template, 0, len(items)),
		byKey:  make(map[string]*Template, len(items)),
		byName: make(map[string]*Template, len(items)),
	}

	for _, tmpl := range items {
		if tmpl == nil {
			continue
		}
		nameKey := strings.ToLower(tmpl.Name)
		if prev, ok := c.byKey[tmpl.Key]; ok {
			logger.Warn().
				Str("key", tmpl.Key).
				Str("kept", prev.Path).
				Str("skipped", tmpl.Path).
				Msg("template key clash")
			continue
		}
		if prev, ok := c.byName[nameKey]; ok {
			logger.Warn().
				Str("name", tmpl.Name).
				Str("kept", prev.Path).
				Str("skipped", tmpl.Path).
				Msg("template name clash")
			continue
		}
		c.byKey[tmpl.Key] = tmpl
		c.byName[nameKey] = tmpl
		c.items = append(c.items, tmpl)
	}

	return c
}

// List returns the templates in catalog order.
func (c *Catalog) List() []*Template {
	if c == nil {
		return nil
	}
	out := make([]*Template, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// ByKey looks up a template by exact key.
func (c *Catalog) ByKey(key string) (*Template, bool) {
	if c == nil {
		return nil, false
	}
	tmpl, ok := c.byKey[key]
	return tmpl, ok
}

// ByName looks up a template by case-insensitive name.
func (c *Catalog) ByName(name string) (*Template, bool) {
	if c == nil {
		return nil, false
	}
	tmpl, ok := c.byName[strings.ToLower(name)]
	return tmpl, ok
}
