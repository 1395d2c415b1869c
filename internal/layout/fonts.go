package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/opencode-ai/memer/internal/logging"
	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// DefaultFont selects the embedded Go Bold face.
const DefaultFont = "default"

// ErrFontUnavailable is logged, never returned, when a configured font cannot
// be loaded and the default face is used instead.
var ErrFontUnavailable = errors.New("font unavailable")

type faceKey struct {
	ref  string
	size int
}

// Fonts loads font files once and caches faces per size.
type Fonts struct {
	searchPaths []string
	logger      zerolog.Logger

	mu     sync.Mutex
	parsed map[string]*opentype.Font
	faces  map[faceKey]font.Face
}

// NewFonts creates a font cache. Font references that are not paths are
// looked up in searchPaths, with and without a .ttf/.otf suffix.
func NewFonts(searchPaths ...string) *Fonts {
	return &Fonts{
		searchPaths: searchPaths,
		logger:      logging.Component("fonts"),
		parsed:      make(map[string]*opentype.Font),
		faces:       make(map[faceKey]font.Face),
	}
}

// Face returns a face for ref at size pixels.
func (f *Fonts) Face(ref string, size int) (font.Face, error) {
	if size < 1 {
		return nil, fmt.Errorf("invalid font size %d", size)
	}
	ref = normalizeRef(ref)

	f.mu.Lock()
	defer f.mu.Unlock()

	key := faceKey{ref: ref, size: size}
	if face, ok := f.faces[key]; ok {
		return face, nil
	}

	parsed, err := f.fontLocked(ref)
	if err != nil {
		return nil, err
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face at %dpx: %w", size, err)
	}
	f.faces[key] = face
	return face, nil
}

// Close releases cached faces.
func (f *Fonts) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for key, face := range f.faces {
		if err := face.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(f.faces, key)
	}
	return errors.Join(errs...)
}

func (f *Fonts) fontLocked(ref string) (*opentype.Font, error) {
	if parsed, ok := f.parsed[ref]; ok {
		return parsed, nil
	}

	if ref != DefaultFont {
		parsed, err := f.loadFile(ref)
		if err == nil {
			f.parsed[ref] = parsed
			return parsed, nil
		}
		f.logger.Warn().
			Err(err).
			Str("font", ref).
			Msg("font unavailable, using default")
	}

	parsed, err := f.defaultLocked()
	if err != nil {
		return nil, err
	}
	f.parsed[ref] = parsed
	return parsed, nil
}

func (f *Fonts) defaultLocked() (*opentype.Font, error) {
	if parsed, ok := f.parsed[DefaultFont]; ok {
		return parsed, nil
	}
	parsed, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse default font: %w", err)
	}
	f.parsed[DefaultFont] = parsed
	return parsed, nil
}

func (f *Fonts) loadFile(ref string) (*opentype.Font, error) {
	path, err := f.locate(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontUnavailable, err)
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrFontUnavailable, path, err)
	}
	return parsed, nil
}

func (f *Fonts) locate(ref string) (string, error) {
	candidates := []string{ref}
	if !filepath.IsAbs(ref) {
		for _, dir := range f.searchPaths {
			base := filepath.Join(dir, ref)
			candidates = append(candidates, base)
			if filepath.Ext(ref) == "" {
				candidates = append(candidates, base+".ttf", base+".otf")
			}
		}
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s not found", ErrFontUnavailable, ref)
}

func normalizeRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.EqualFold(ref, DefaultFont) {
		return DefaultFont
	}
	return ref
}
