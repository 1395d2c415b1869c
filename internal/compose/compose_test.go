package compose

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/opencode-ai/memer/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gray = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

func grayImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, gray)
		}
	}
	return img
}

func fitPlacement(t *testing.T, engine *layout.Engine, img image.Image, pos Position, text string) Placement {
	t.Helper()
	style := layout.DefaultStyle()
	box := CaptionBox(img.Bounds(), pos, style)
	res, err := engine.Fit(text, box.Dx(), box.Dy(), style)
	require.NoError(t, err)
	return Placement{Position: pos, Layout: res, Style: style}
}

// changedRows returns the first and last rows that differ from the gray background.
func changedRows(img *image.NRGBA) (int, int) {
	first, last := -1, -1
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y) != gray {
				if first < 0 {
					first = y
				}
				last = y
				break
			}
		}
	}
	return first, last
}

func TestParsePosition(t *testing.T) {
	pos, err := ParsePosition(" Top ")
	require.NoError(t, err)
	assert.Equal(t, PositionTop, pos)

	pos, err = ParsePosition("bottom")
	require.NoError(t, err)
	assert.Equal(t, PositionBottom, pos)

	_, err = ParsePosition("middle")
	require.Error(t, err)
}

func TestCaptionBox(t *testing.T) {
	style := layout.DefaultStyle()
	bounds := image.Rect(0, 0, 500, 400)

	top := CaptionBox(bounds, PositionTop, style)
	// 4% margins (20px, 16px) plus a 2px stroke; 25% height minus the stroke on both sides.
	assert.Equal(t, image.Rect(22, 18, 478, 114), top)

	bottom := CaptionBox(bounds, PositionBottom, style)
	assert.Equal(t, image.Rect(22, 286, 478, 382), bottom)
}

func TestCanvas(t *testing.T) {
	assert.Equal(t, image.Rect(0, 0, 500, 400), Canvas(grayImage(500, 400)))

	offset := grayImage(600, 500).SubImage(image.Rect(100, 100, 600, 500))
	assert.Equal(t, image.Rect(0, 0, 500, 400), Canvas(offset))
	assert.Equal(t,
		CaptionBox(image.Rect(0, 0, 500, 400), PositionTop, layout.DefaultStyle()),
		CaptionBox(Canvas(offset), PositionTop, layout.DefaultStyle()))
}

func TestComposeTopCaption(t *testing.T) {
	engine := layout.NewEngine(layout.NewFonts())
	src := grayImage(400, 300)
	placement := fitPlacement(t, engine, src, PositionTop, "ONE DOES NOT SIMPLY")

	out, err := NewCompositor(engine.Fonts()).Compose(src, []Placement{placement})
	require.NoError(t, err)

	first, last := changedRows(out)
	box := CaptionBox(src.Bounds(), PositionTop, placement.Style)
	require.GreaterOrEqual(t, first, 0, "caption drawn")
	assert.GreaterOrEqual(t, first, box.Min.Y-placement.Style.StrokeWidth)
	assert.Less(t, last, 150, "top caption stays in the upper half")

	whites := 0
	for y := 0; y < 150; y++ {
		for x := 0; x < 400; x++ {
			if out.NRGBAAt(x, y) == placement.Style.Fill {
				whites++
			}
		}
	}
	assert.Positive(t, whites, "fill pass drawn")
}

func TestComposeBottomCaptionIsFlushWithBottomMargin(t *testing.T) {
	engine := layout.NewEngine(layout.NewFonts())
	src := grayImage(400, 300)
	placement := fitPlacement(t, engine, src, PositionBottom, "BRACE YOURSELVES")

	out, err := NewCompositor(engine.Fonts()).Compose(src, []Placement{placement})
	require.NoError(t, err)

	first, last := changedRows(out)
	box := CaptionBox(src.Bounds(), PositionBottom, placement.Style)
	assert.Greater(t, first, 150, "bottom caption stays in the lower half")
	assert.LessOrEqual(t, last, box.Max.Y+placement.Style.StrokeWidth)
	assert.Greater(t, last, box.Max.Y-placement.Layout.LineHeight/2, "text sits on the bottom edge of its box")
}

func TestComposeDoesNotMutateSource(t *testing.T) {
	engine := layout.NewEngine(layout.NewFonts())
	src := grayImage(200, 200)
	before := append([]uint8(nil), src.Pix...)

	placements := []Placement{
		fitPlacement(t, engine, src, PositionTop, "TOP"),
		fitPlacement(t, engine, src, PositionBottom, "BOTTOM"),
	}
	_, err := NewCompositor(engine.Fonts()).Compose(src, placements)
	require.NoError(t, err)
	assert.Equal(t, before, src.Pix)
}

func TestComposeIdempotent(t *testing.T) {
	engine := layout.NewEngine(layout.NewFonts())
	src := grayImage(320, 240)
	placements := []Placement{
		fitPlacement(t, engine, src, PositionTop, "WHEN THE CODE COMPILES"),
		fitPlacement(t, engine, src, PositionBottom, "ON THE FIRST TRY"),
	}
	compositor := NewCompositor(engine.Fonts())

	encode := func() []byte {
		out, err := compositor.Compose(src, placements)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, out))
		return buf.Bytes()
	}

	assert.True(t, bytes.Equal(encode(), encode()))
}

func TestComposeSkipsEmptyLayouts(t *testing.T) {
	engine := layout.NewEngine(layout.NewFonts())
	src := grayImage(100, 100)

	out, err := NewCompositor(engine.Fonts()).Compose(src, []Placement{
		{Position: PositionTop, Layout: layout.Result{Fits: true}, Style: layout.DefaultStyle()},
	})
	require.NoError(t, err)
	assert.Equal(t, src.Pix, out.Pix)
}
