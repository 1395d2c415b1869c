// Package meme turns a template and captions into a finished image.
package meme

import (
	"errors"
	"fmt"
	"image"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/opencode-ai/memer/internal/compose"
	"github.com/opencode-ai/memer/internal/config"
	"github.com/opencode-ai/memer/internal/layout"
	"github.com/opencode-ai/memer/internal/logging"
	"github.com/opencode-ai/memer/internal/templates"
	"github.com/rs/zerolog"
)

// MaxCaptionLength bounds a single caption in characters.
const MaxCaptionLength = 1000

var (
	// ErrNoCaptions is returned when every caption is empty.
	ErrNoCaptions = errors.New("at least one of top or bottom text must be provided")
	// ErrCaptionTooLong is returned for captions over MaxCaptionLength.
	ErrCaptionTooLong = fmt.Errorf("caption too long (max %d characters)", MaxCaptionLength)
	// ErrLayoutOverflow is matched by *OverflowError.
	ErrLayoutOverflow = errors.New("caption does not fit")
)

// OverflowError reports a caption that did not fit at the minimum size while
// the overflow policy is abort.
type OverflowError struct {
	Position compose.Position
	Size     int
	Lines    int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s caption does not fit even at %dpx (%d lines); shorten the text, lower text.min_size or set text.overflow=render", e.Position, e.Size, e.Lines)
}

// Is reports whether target is ErrLayoutOverflow.
func (e *OverflowError) Is(target error) bool {
	return target == ErrLayoutOverflow
}

// Caption is user text bound to a position. Empty text is omitted.
type Caption struct {
	Text     string
	Position compose.Position
}

// Options control one render.
type Options struct {
	Style       layout.Style
	UniformSize bool
	Overflow    string // config.OverflowRender or config.OverflowAbort
}

// OptionsFromConfig builds render options from validated text configuration.
func OptionsFromConfig(text config.TextConfig) (Options, error) {
	fill, err := config.ParseColor(text.Fill)
	if err != nil {
		return Options{}, fmt.Errorf("text.fill: %w", err)
	}
	outline, err := config.ParseColor(text.Outline)
	if err != nil {
		return Options{}, fmt.Errorf("text.outline: %w", err)
	}

	return Options{
		Style: layout.Style{
			Font:                   text.Font,
			MinSize:                text.MinSize,
			MaxSize:                text.MaxSize,
			StrokeWidth:            text.StrokeWidth,
			Fill:                   fill,
			Outline:                outline,
			MarginFraction:         text.MarginFraction,
			VerticalMarginFraction: text.VerticalMargin(),
			MaxHeightRatio:         text.MaxHeightRatio,
			LineSpacing:            text.LineSpacing,
		},
		UniformSize: text.UniformSize,
		Overflow:    text.Overflow,
	}, nil
}

// Meme is a rendered image plus the layouts used to draw it.
type Meme struct {
	Image   *image.NRGBA
	Layouts map[compose.Position]layout.Result
}

// Overflowed lists positions whose captions did not fit.
func (m *Meme) Overflowed() []compose.Position {
	var out []compose.Position
	for _, pos := range []compose.Position{compose.PositionTop, compose.PositionBottom} {
		if res, ok := m.Layouts[pos]; ok && !res.Fits {
			out = append(out, pos)
		}
	}
	return out
}

// Generator fits captions and composites them.
type Generator struct {
	engine     *layout.Engine
	compositor *compose.Compositor
	logger     zerolog.Logger
}

// NewGenerator creates a generator sharing one font cache between fitting and drawing.
func NewGenerator(fonts *layout.Fonts) *Generator {
	if fonts == nil {
		fonts = layout.NewFonts()
	}
	return &Generator{
		engine:     layout.NewEngine(fonts),
		compositor: compose.NewCompositor(fonts),
		logger:     logging.Component("meme"),
	}
}

// LoadImage decodes a template image, applying EXIF orientation.
func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &templates.UnreadableImageError{Path: path, Err: err}
	}
	return img, nil
}

// Generate renders captions onto img.
func (g *Generator) Generate(img image.Image, captions []Caption, opts Options) (*Meme, error) {
	active := make([]Caption, 0, len(captions))
	for _, c := range captions {
		text, err := SanitizeCaption(c.Text)
		if err != nil {
			return nil, fmt.Errorf("%s caption: %w", c.Position, err)
		}
		if text == "" {
			continue
		}
		active = append(active, Caption{Text: text, Position: c.Position})
	}
	if len(active) == 0 {
		return nil, ErrNoCaptions
	}

	bounds := compose.Canvas(img)
	layouts := make(map[compose.Position]layout.Result, len(active))
	for _, c := range active {
		box := compose.CaptionBox(bounds, c.Position, opts.Style)
		res, err := g.engine.Fit(c.Text, box.Dx(), box.Dy(), opts.Style)
		if err != nil {
			return nil, fmt.Errorf("fit %s caption: %w", c.Position, err)
		}
		g.logger.Debug().
			Str("position", string(c.Position)).
			Int("size", res.Size).
			Int("lines", len(res.Lines)).
			Bool("fits", res.Fits).
			Msg("caption fitted")
		layouts[c.Position] = res
	}

	if opts.UniformSize && len(active) > 1 {
		if err := g.unify(bounds, active, layouts, opts.Style); err != nil {
			return nil, err
		}
	}

	placements := make([]compose.Placement, 0, len(active))
	for _, c := range active {
		res := layouts[c.Position]
		if !res.Fits {
			if opts.Overflow == config.OverflowAbort {
				return nil, &OverflowError{Position: c.Position, Size: res.Size, Lines: len(res.Lines)}
			}
			g.logger.Warn().
				Str("position", string(c.Position)).
				Int("size", res.Size).
				Msg("caption overflows its box at minimum size, rendering anyway")
		}
		placements = append(placements, compose.Placement{
			Position: c.Position,
			Layout:   res,
			Style:    opts.Style,
		})
	}

	out, err := g.compositor.Compose(img, placements)
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	return &Meme{Image: out, Layouts: layouts}, nil
}

// unify re-wraps every caption at the smallest fitted size so both captions
// share one font size.
func (g *Generator) unify(bounds image.Rectangle, active []Caption, layouts map[compose.Position]layout.Result, style layout.Style) error {
	size := 0
	for _, c := range active {
		if s := layouts[c.Position].Size; size == 0 || s < size {
			size = s
		}
	}

	for _, c := range active {
		if layouts[c.Position].Size == size {
			continue
		}
		box := compose.CaptionBox(bounds, c.Position, style)
		res, err := g.engine.LayoutAt(c.Text, size, box.Dx(), box.Dy(), style)
		if err != nil {
			return fmt.Errorf("layout %s caption at %dpx: %w", c.Position, size, err)
		}
		layouts[c.Position] = res
	}
	g.logger.Debug().Int("size", size).Msg("captions unified")
	return nil
}

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// SanitizeCaption strips control characters (keeping newlines and tabs),
// trims surrounding space and enforces MaxCaptionLength.
func SanitizeCaption(text string) (string, error) {
	if utf8.RuneCountInString(text) > MaxCaptionLength {
		return "", ErrCaptionTooLong
	}
	text = controlChars.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "")
	return strings.TrimSpace(text), nil
}
