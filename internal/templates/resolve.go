package templates

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/opencode-ai/memer/internal/logging"
	"github.com/rs/zerolog"
)

// Strategy names one resolution step.
type Strategy string

// Resolution strategies, evaluated in this order.
const (
	StrategyDirectFile Strategy = "direct-file"
	StrategyByKey      Strategy = "by-key"
	StrategyByName     Strategy = "by-name"
)

// strategyFunc returns (nil, nil) when the identifier does not apply.
type strategyFunc func(identifier string) (*Template, error)

type strategy struct {
	name Strategy
	find strategyFunc
}

// Resolver maps user identifiers to templates. It never guesses: anything
// that is not a readable file, an exact key or an exact name is not found.
type Resolver struct {
	catalog    *Catalog
	strategies []strategy
	logger     zerolog.Logger
}

// NewResolver creates a resolver over catalog.
func NewResolver(catalog *Catalog) *Resolver {
	r := &Resolver{
		catalog: catalog,
		logger:  logging.Component("resolver"),
	}
	r.strategies = []strategy{
		{name: StrategyDirectFile, find: resolveDirectFile},
		{name: StrategyByKey, find: r.resolveByKey},
		{name: StrategyByName, find: r.resolveByName},
	}
	return r
}

// Resolve returns the template for identifier.
func (r *Resolver) Resolve(identifier string) (*Template, error) {
	tmpl, _, err := r.ResolveWithStrategy(identifier)
	return tmpl, err
}

// ResolveWithStrategy is Resolve that also reports which strategy matched.
func (r *Resolver) ResolveWithStrategy(identifier string) (*Template, Strategy, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, "", ErrIdentifierRequired
	}

	for _, s := range r.strategies {
		tmpl, err := s.find(identifier)
		if err != nil {
			return nil, s.name, err
		}
		if tmpl != nil {
			r.logger.Debug().
				Str("identifier", identifier).
				Str("strategy", string(s.name)).
				Str("template", tmpl.Name).
				Msg("template resolved")
			return tmpl, s.name, nil
		}
	}

	return nil, "", &NotFoundError{Identifier: identifier, Searched: r.catalog.Len()}
}

// List returns the catalog in order.
func (r *Resolver) List() []*Template {
	return r.catalog.List()
}

func resolveDirectFile(identifier string) (*Template, error) {
	info, err := os.Stat(identifier)
	if err != nil || !info.Mode().IsRegular() {
		return nil, nil
	}

	abs, err := filepath.Abs(identifier)
	if err != nil {
		abs = identifier
	}
	probe, err := Probe(abs)
	if err != nil {
		return nil, err
	}

	tmpl := &Template{
		Path:   abs,
		Key:    KeyForPath(abs),
		Source: SourceDirect,
	}
	tmpl.Name = tmpl.Stem()
	tmpl.setDimensions(probe.Width, probe.Height)
	return tmpl, nil
}

func (r *Resolver) resolveByKey(identifier string) (*Template, error) {
	if tmpl, ok := r.catalog.ByKey(identifier); ok {
		return tmpl, nil
	}
	return nil, nil
}

func (r *Resolver) resolveByName(identifier string) (*Template, error) {
	if tmpl, ok := r.catalog.ByName(identifier); ok {
		return tmpl, nil
	}
	return nil, nil
}
