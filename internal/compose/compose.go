// Package compose draws fitted captions onto template images.
package compose

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/opencode-ai/memer/internal/layout"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Position is where a caption is anchored.
type Position string

// Caption positions.
const (
	PositionTop    Position = "top"
	PositionBottom Position = "bottom"
)

// ParsePosition converts a string to a Position.
func ParsePosition(s string) (Position, error) {
	switch Position(strings.ToLower(strings.TrimSpace(s))) {
	case PositionTop:
		return PositionTop, nil
	case PositionBottom:
		return PositionBottom, nil
	default:
		return "", fmt.Errorf("unknown caption position %q", s)
	}
}

// Placement is one fitted caption ready to draw.
type Placement struct {
	Position Position
	Layout   layout.Result
	Style    layout.Style
}

// Canvas returns the bounds of the image Compose produces for src: the same
// size, anchored at the origin. Caption boxes used for fitting must be built
// from it so they match the boxes drawn.
func Canvas(src image.Image) image.Rectangle {
	b := src.Bounds()
	return image.Rect(0, 0, b.Dx(), b.Dy())
}

// CaptionBox returns the region a caption at pos may occupy inside bounds:
// inset by the margins and by the stroke width so outlines stay inside the
// margins. Its height is MaxHeightRatio of the image height.
func CaptionBox(bounds image.Rectangle, pos Position, style layout.Style) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	hMargin := int(math.Round(float64(w) * style.MarginFraction))
	vMargin := int(math.Round(float64(h) * style.VerticalMarginFraction))
	boxH := int(math.Round(float64(h) * style.MaxHeightRatio))
	stroke := style.StrokeWidth

	minX := bounds.Min.X + hMargin + stroke
	maxX := bounds.Max.X - hMargin - stroke
	if maxX <= minX {
		maxX = minX + 1
	}

	var minY, maxY int
	switch pos {
	case PositionBottom:
		maxY = bounds.Max.Y - vMargin - stroke
		minY = maxY - boxH + 2*stroke
	default:
		minY = bounds.Min.Y + vMargin + stroke
		maxY = minY + boxH - 2*stroke
	}
	if maxY <= minY {
		if pos == PositionBottom {
			minY = maxY - 1
		} else {
			maxY = minY + 1
		}
	}

	return image.Rect(minX, minY, maxX, maxY)
}

// FaceSource supplies font faces by reference and pixel size.
type FaceSource interface {
	Face(ref string, size int) (font.Face, error)
}

// Compositor renders placements onto copies of template images.
type Compositor struct {
	faces FaceSource
}

// NewCompositor creates a compositor drawing with faces from src.
func NewCompositor(src FaceSource) *Compositor {
	return &Compositor{faces: src}
}

// Compose returns a new image with every non-empty placement drawn on it.
// The source image is not modified.
func (c *Compositor) Compose(src image.Image, placements []Placement) (*image.NRGBA, error) {
	dst := imaging.Clone(src)
	canvas := Canvas(src)

	for _, p := range placements {
		if p.Layout.Empty() {
			continue
		}
		face, err := c.faces.Face(p.Style.Font, p.Layout.Size)
		if err != nil {
			return nil, fmt.Errorf("%s caption: %w", p.Position, err)
		}
		drawCaption(dst, canvas, face, p)
	}

	return dst, nil
}

func drawCaption(dst *image.NRGBA, canvas image.Rectangle, face font.Face, p Placement) {
	box := CaptionBox(canvas, p.Position, p.Style)
	res := p.Layout

	top := box.Min.Y
	if p.Position == PositionBottom {
		top = box.Max.Y - res.Height
	}

	for i, line := range res.Lines {
		width := layout.Measure(face, line)
		if i < len(res.Widths) {
			width = res.Widths[i]
		}
		x := box.Min.X + (box.Dx()-width)/2
		baseline := top + i*(res.LineHeight+res.Spacing) + res.Ascent
		drawOutlined(dst, face, line, x, baseline, p.Style)
	}
}

// drawOutlined draws the outline as copies offset over a disc of radius
// StrokeWidth, then the fill on top.
func drawOutlined(dst *image.NRGBA, face font.Face, text string, x, baseline int, style layout.Style) {
	stroke := style.StrokeWidth
	if stroke > 0 {
		outline := image.NewUniform(style.Outline)
		for dy := -stroke; dy <= stroke; dy++ {
			for dx := -stroke; dx <= stroke; dx++ {
				if (dx == 0 && dy == 0) || dx*dx+dy*dy > stroke*stroke {
					continue
				}
				drawText(dst, face, outline, text, x+dx, baseline+dy)
			}
		}
	}
	drawText(dst, face, image.NewUniform(style.Fill), text, x, baseline)
}

func drawText(dst *image.NRGBA, face font.Face, src *image.Uniform, text string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
