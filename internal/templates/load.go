package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opencode-ai/memer/internal/logging"
)

// Override carries stored metadata for a template file, keyed by absolute path.
type Override struct {
	Name   string
	Key    string
	Origin string
}

// LoadOptions configure catalog discovery.
type LoadOptions struct {
	// Paths are directories (or single image files) in precedence order.
	Paths []string
	// Extensions lists accepted file extensions without the dot.
	Extensions []string
	// Overrides maps absolute file paths to stored names and keys.
	Overrides map[string]Override
}

// Load scans the configured paths and builds a catalog. Files that cannot be
// decoded are logged and skipped; only unreadable directories are errors.
func Load(opts LoadOptions) (*Catalog, error) {
	exts := normalizeExtensions(opts.Extensions)
	items := make([]*Template, 0)

	for _, path := range opts.Paths {
		found, err := LoadTemplatesFromPath(path, exts, opts.Overrides)
		if err != nil {
			return nil, err
		}
		items = append(items, found...)
	}

	catalog := NewCatalog(items)
	logger := logging.Component("catalog")
	logger.Debug().
		Int("templates", catalog.Len()).
		Strs("paths", opts.Paths).
		Msg("catalog loaded")
	return catalog, nil
}

// LoadTemplatesFromPath loads templates from a directory, or a single template
// when path is a file. Missing paths yield no templates.
func LoadTemplatesFromPath(path string, exts map[string]struct{}, overrides map[string]Override) ([]*Template, error) {
	if strings.TrimSpace(path) == "" {
		return []*Template{}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Template{}, nil
		}
		return nil, fmt.Errorf("stat templates path %s: %w", path, err)
	}

	if !info.IsDir() {
		if tmpl := loadCatalogEntry(path, overrides); tmpl != nil {
			return []*Template{tmpl}, nil
		}
		return []*Template{}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read templates dir %s: %w", path, err)
	}

	templates := make([]*Template, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(entry.Name())), ".")
		if _, ok := exts[ext]; !ok {
			continue
		}
		if tmpl := loadCatalogEntry(filepath.Join(path, entry.Name()), overrides); tmpl != nil {
			templates = append(templates, tmpl)
		}
	}

	sort.SliceStable(templates, func(i, j int) bool {
		return templates[i].Name < templates[j].Name
	})

	return templates, nil
}

func loadCatalogEntry(path string, overrides map[string]Override) *Template {
	logger := logging.Component("catalog")

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	info, err := Probe(abs)
	if err != nil {
		logger.Warn().Err(err).Str("path", abs).Msg("skipping unreadable template")
		return nil
	}

	tmpl := &Template{
		Path:   abs,
		Source: SourceCatalog,
	}
	if override, ok := overrides[abs]; ok {
		tmpl.Name = strings.TrimSpace(override.Name)
		tmpl.Key = strings.TrimSpace(override.Key)
		tmpl.Origin = override.Origin
	}
	if tmpl.Name == "" {
		tmpl.Name = NiceName(tmpl.Stem())
	}
	if tmpl.Name == "" {
		tmpl.Name = tmpl.Stem()
	}
	if tmpl.Key == "" {
		tmpl.Key = KeyForPath(abs)
	}
	tmpl.setDimensions(info.Width, info.Height)
	return tmpl
}

func normalizeExtensions(exts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext != "" {
			out[ext] = struct{}{}
		}
	}
	return out
}
