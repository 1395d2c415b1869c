// Package layout fits caption text into a box by choosing a font size and a
// greedy word wrap.
package layout

import (
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/font"
)

// Style holds caption drawing parameters. The zero value is not usable; start
// from DefaultStyle.
type Style struct {
	Font        string
	MinSize     int
	MaxSize     int // 0 means the box height
	StrokeWidth int
	Fill        color.NRGBA
	Outline     color.NRGBA

	// MarginFraction is the horizontal margin as a share of image width.
	MarginFraction float64
	// VerticalMarginFraction is the vertical margin as a share of image height.
	VerticalMarginFraction float64
	// MaxHeightRatio bounds a caption box to this share of image height.
	MaxHeightRatio float64
	// LineSpacing is the gap between lines as a share of the font size.
	LineSpacing float64
}

// DefaultStyle returns the built-in caption style.
func DefaultStyle() Style {
	return Style{
		Font:                   DefaultFont,
		MinSize:                8,
		StrokeWidth:            2,
		Fill:                   color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		Outline:                color.NRGBA{A: 0xff},
		MarginFraction:         0.04,
		VerticalMarginFraction: 0.04,
		MaxHeightRatio:         0.25,
		LineSpacing:            0.1,
	}
}

// Result is the outcome of fitting one caption.
type Result struct {
	Size  int      `json:"size"`
	Lines []string `json:"lines"`
	// Fits is false when even MinSize overflows the box.
	Fits bool `json:"fits"`

	LineHeight int `json:"line_height"`
	Ascent     int `json:"ascent"`
	Spacing    int `json:"spacing"`
	// Height is the block height including spacing.
	Height int `json:"height"`
	// Widths holds the advance width of each line.
	Widths []int `json:"widths"`
}

// Empty reports whether there is nothing to draw.
func (r Result) Empty() bool {
	return len(r.Lines) == 0
}

// Engine fits captions using faces from a font cache.
type Engine struct {
	fonts *Fonts
}

// NewEngine creates a layout engine.
func NewEngine(fonts *Fonts) *Engine {
	if fonts == nil {
		fonts = NewFonts()
	}
	return &Engine{fonts: fonts}
}

// Fonts returns the engine's font cache.
func (e *Engine) Fonts() *Fonts {
	return e.fonts
}

// Fit binary-searches the largest size in [MinSize, MaxSize] whose wrap fits
// boxW x boxH. When MinSize does not fit, the wrap at MinSize is returned with
// Fits false; no text is dropped.
func (e *Engine) Fit(text string, boxW, boxH int, style Style) (Result, error) {
	if isBlank(text) {
		return Result{Fits: true}, nil
	}

	minSize, maxSize := sizeRange(style, boxH)

	var best Result
	found := false
	lo, hi := minSize, maxSize
	for lo <= hi {
		mid := lo + (hi-lo)/2
		candidate, err := e.LayoutAt(text, mid, boxW, boxH, style)
		if err != nil {
			return Result{}, err
		}
		if candidate.Fits {
			best, found = candidate, true
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if found {
		return best, nil
	}

	fallback, err := e.LayoutAt(text, minSize, boxW, boxH, style)
	if err != nil {
		return Result{}, err
	}
	fallback.Fits = false
	return fallback, nil
}

// LayoutAt wraps text at a fixed size and reports whether it fits the box.
func (e *Engine) LayoutAt(text string, size, boxW, boxH int, style Style) (Result, error) {
	if isBlank(text) {
		return Result{Size: size, Fits: true}, nil
	}

	face, err := e.fonts.Face(style.Font, size)
	if err != nil {
		return Result{}, err
	}

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	lineHeight := ascent + metrics.Descent.Ceil()
	spacing := int(math.Round(float64(size) * style.LineSpacing))

	lines, widths := Wrap(face, text, boxW)

	height := len(lines)*lineHeight + (len(lines)-1)*spacing
	fits := height <= boxH
	for _, w := range widths {
		if w > boxW {
			fits = false
			break
		}
	}

	return Result{
		Size:       size,
		Lines:      lines,
		Fits:       fits,
		LineHeight: lineHeight,
		Ascent:     ascent,
		Spacing:    spacing,
		Height:     height,
		Widths:     widths,
	}, nil
}

// Wrap breaks text greedily: a word joins the current line only while the
// line stays within maxWidth. A word wider than maxWidth sits alone on its own
// line; words are never split. Newlines force a break.
func Wrap(face font.Face, text string, maxWidth int) ([]string, []int) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var lines []string
	var widths []int
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}

		current := words[0]
		currentWidth := Measure(face, current)
		for _, word := range words[1:] {
			candidate := current + " " + word
			candidateWidth := Measure(face, candidate)
			if candidateWidth <= maxWidth {
				current, currentWidth = candidate, candidateWidth
				continue
			}
			lines = append(lines, current)
			widths = append(widths, currentWidth)
			current, currentWidth = word, Measure(face, word)
		}
		lines = append(lines, current)
		widths = append(widths, currentWidth)
	}
	return lines, widths
}

// Measure returns the advance width of s in whole pixels.
func Measure(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

func sizeRange(style Style, boxH int) (int, int) {
	minSize := style.MinSize
	if minSize < 1 {
		minSize = 1
	}
	maxSize := style.MaxSize
	if maxSize <= 0 {
		maxSize = boxH
	}
	if maxSize < minSize {
		maxSize = minSize
	}
	return minSize, maxSize
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
