package meme

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/disintegration/imaging"
	"github.com/natefinch/atomic"
)

// TimestampLayout formats the Timestamp variable of output names.
const TimestampLayout = "2006-01-02_15-04-05"

// NameVars are the fields available to output name patterns.
type NameVars struct {
	Stem      string
	Name      string
	Key       string
	Timestamp string
}

// NewNameVars fills NameVars for a template rendered at now.
func NewNameVars(stem, name, key string, now time.Time) NameVars {
	return NameVars{
		Stem:      stem,
		Name:      name,
		Key:       key,
		Timestamp: now.Format(TimestampLayout),
	}
}

// RenderName expands an output name pattern such as "{{.Stem}}_{{.Timestamp}}".
// Path separators in the result are replaced so the name stays a single file.
func RenderName(pattern string, vars NameVars) (string, error) {
	if strings.TrimSpace(pattern) == "" {
		return "", fmt.Errorf("output name pattern is required")
	}

	parsed, err := template.New("output").
		Funcs(template.FuncMap{"default": defaultValue}).
		Option("missingkey=zero").
		Parse(pattern)
	if err != nil {
		return "", fmt.Errorf("parse output name %q: %w", pattern, err)
	}

	var out strings.Builder
	if err := parsed.Execute(&out, vars); err != nil {
		return "", fmt.Errorf("render output name %q: %w", pattern, err)
	}

	name := strings.TrimSpace(out.String())
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("output name pattern %q rendered an empty name", pattern)
	}
	return name, nil
}

func defaultValue(def string, value any) string {
	if value == nil {
		return def
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	default:
		text := strings.TrimSpace(fmt.Sprint(v))
		if text == "" {
			return def
		}
		return text
	}
}

// OutputRequest describes where a rendered meme should go.
type OutputRequest struct {
	// Explicit is the user-supplied path; empty derives one.
	Explicit string
	// Dir is used when Explicit is empty; empty means the working directory.
	Dir string
	// Pattern is the name pattern used when Explicit is empty.
	Pattern string
	// Format overrides the template's format when Explicit has no extension.
	Format string
	// TemplateExt is the template file's extension, with or without a dot.
	TemplateExt string
	Vars        NameVars
}

// ResolveOutput returns the destination path and the image format to write.
// An extension on the explicit path wins, then the configured format, then the
// template's own format. Formats that cannot be encoded fall back to png.
func ResolveOutput(req OutputRequest) (string, imaging.Format, error) {
	if req.Explicit != "" {
		if ext := filepath.Ext(req.Explicit); ext != "" {
			format, err := encodableFormat(ext)
			if err != nil {
				return "", 0, err
			}
			return req.Explicit, format, nil
		}
	}

	ext := req.Format
	if ext == "" {
		ext = req.TemplateExt
	}
	format, err := encodableFormat(ext)
	if err != nil {
		format = imaging.PNG
	}
	suffix := "." + formatExtension(format)

	if req.Explicit != "" {
		return req.Explicit + suffix, format, nil
	}

	name, err := RenderName(req.Pattern, req.Vars)
	if err != nil {
		return "", 0, err
	}
	return filepath.Join(req.Dir, name+suffix), format, nil
}

func encodableFormat(ext string) (imaging.Format, error) {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		return imaging.PNG, nil
	}
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return 0, fmt.Errorf("unsupported output format %q", ext)
	}
	return format, nil
}

func formatExtension(f imaging.Format) string {
	switch f {
	case imaging.JPEG:
		return "jpg"
	case imaging.GIF:
		return "gif"
	case imaging.BMP:
		return "bmp"
	case imaging.TIFF:
		return "tiff"
	default:
		return "png"
	}
}

// OutputFileMode is the permission of newly created meme files.
const OutputFileMode os.FileMode = 0o644

// Save encodes img and writes it atomically to path, creating parent
// directories as needed.
func Save(img image.Image, path string, format imaging.Format) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	_, statErr := os.Stat(path)
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	// atomic.WriteFile keeps the mode of a file it replaces, but new files
	// come from a 0600 temp file.
	if errors.Is(statErr, os.ErrNotExist) {
		if err := os.Chmod(path, OutputFileMode); err != nil {
			return fmt.Errorf("chmod %s: %w", path, err)
		}
	}
	return nil
}
