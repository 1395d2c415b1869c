// Package templates provides meme template discovery, resolution and search.
package templates

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
)

// Template sources.
const (
	SourceCatalog = "catalog"
	SourceDirect  = "direct"
)

var (
	// ErrTemplateNotFound is matched by *NotFoundError.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrUnreadableImage is matched by *UnreadableImageError.
	ErrUnreadableImage = errors.New("unreadable image")
	// ErrAnimatedImage is returned when an image has more than one frame.
	ErrAnimatedImage = errors.New("animated images are not supported")
	// ErrIdentifierRequired is returned when resolving an empty identifier.
	ErrIdentifierRequired = errors.New("template identifier is required")
)

// NotFoundError reports an identifier that matched no file, key or name.
type NotFoundError struct {
	Identifier string
	Searched   int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template %q not found (searched %d catalog entries; try 'memer templates search')", e.Identifier, e.Searched)
}

// Is reports whether target is ErrTemplateNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrTemplateNotFound
}

// UnreadableImageError reports an image that could not be decoded.
type UnreadableImageError struct {
	Path string
	Err  error
}

func (e *UnreadableImageError) Error() string {
	return fmt.Sprintf("unreadable image %s: %v", e.Path, e.Err)
}

func (e *UnreadableImageError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrUnreadableImage.
func (e *UnreadableImageError) Is(target error) bool {
	return target == ErrUnreadableImage
}

// Template is a single meme template backed by an image file.
// Templates are not modified after construction.
type Template struct {
	Name   string `json:"name"`
	Key    string `json:"key"`
	Path   string `json:"path"`
	Source string `json:"source"`
	Origin string `json:"origin,omitempty"` // URL the file was pulled from

	dimsOnce sync.Once
	width    int
	height   int
	dimsErr  error
}

// Stem returns the file name of the backing image without its extension.
func (t *Template) Stem() string {
	base := filepath.Base(t.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Dimensions returns the image size, reading the header on first use.
func (t *Template) Dimensions() (width, height int, err error) {
	t.dimsOnce.Do(func() {
		if t.width > 0 && t.height > 0 {
			return
		}
		info, probeErr := Probe(t.Path)
		if probeErr != nil {
			t.dimsErr = probeErr
			return
		}
		t.width, t.height = info.Width, info.Height
	})
	return t.width, t.height, t.dimsErr
}

func (t *Template) setDimensions(width, height int) {
	t.dimsOnce.Do(func() {
		t.width, t.height = width, height
	})
}

// KeyForPath derives a stable key from an image location.
func KeyForPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:12]
}

// NiceName turns a file stem into a display name:
// "distracted_boyfriend" and "distractedBoyfriend" both become "Distracted Boyfriend".
func NiceName(stem string) string {
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)

	var b strings.Builder
	var prev rune
	for i, r := range stem {
		if i > 0 && unicode.IsUpper(r) && prev != ' ' && !unicode.IsUpper(prev) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
		prev = r
	}

	words := strings.Fields(b.String())
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
