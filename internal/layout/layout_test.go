package layout

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func newTestEngine() *Engine {
	return NewEngine(NewFonts())
}

func TestFitEmptyText(t *testing.T) {
	engine := newTestEngine()
	for _, text := range []string{"", "   ", "\n\n"} {
		result, err := engine.Fit(text, 300, 100, DefaultStyle())
		require.NoError(t, err)
		assert.True(t, result.Fits)
		assert.Empty(t, result.Lines)
		assert.True(t, result.Empty())
	}
}

func TestFitLongCaptionScenario(t *testing.T) {
	engine := newTestEngine()
	style := DefaultStyle()
	text := "THIS IS A VERY LONG PIECE OF TEXT THAT MUST WRAP"

	result, err := engine.Fit(text, 300, 100, style)
	require.NoError(t, err)
	require.True(t, result.Fits)
	assert.Greater(t, len(result.Lines), 1, "caption should wrap")
	assert.Equal(t, text, strings.Join(result.Lines, " "), "no words dropped")

	face, err := engine.Fonts().Face(style.Font, result.Size)
	require.NoError(t, err)
	for _, line := range result.Lines {
		assert.LessOrEqual(t, Measure(face, line), 300, line)
	}
	assert.LessOrEqual(t, result.Height, 100)

	// The chosen size is the largest fitting one in [min, max].
	largest := 0
	for size := style.MinSize; size <= 100; size++ {
		candidate, err := engine.LayoutAt(text, size, 300, 100, style)
		require.NoError(t, err)
		if candidate.Fits {
			largest = size
		}
	}
	assert.Equal(t, largest, result.Size)
}

func TestFitShortTextUsesMaxSize(t *testing.T) {
	engine := newTestEngine()
	style := DefaultStyle()
	style.MaxSize = 20

	result, err := engine.Fit("HI", 500, 200, style)
	require.NoError(t, err)
	assert.True(t, result.Fits)
	assert.Equal(t, 20, result.Size)
	assert.Equal(t, []string{"HI"}, result.Lines)
}

func TestFitLinesWithinWidth(t *testing.T) {
	engine := newTestEngine()
	style := DefaultStyle()

	texts := []string{
		"ONE DOES NOT SIMPLY",
		"WALK INTO MORDOR WITHOUT A PLAN AND A VERY LARGE SANDWICH",
		"a b c d e f g h i j k l m n o p q r s t u v w x y z",
		"SUPERCALIFRAGILISTICEXPIALIDOCIOUS is a word",
		"line one\nline two",
	}
	boxes := [][2]int{{300, 100}, {120, 40}, {60, 200}, {800, 30}}

	for _, text := range texts {
		for _, box := range boxes {
			result, err := engine.Fit(text, box[0], box[1], style)
			require.NoError(t, err)

			face, err := engine.Fonts().Face(style.Font, result.Size)
			require.NoError(t, err)
			for i, line := range result.Lines {
				width := Measure(face, line)
				assert.Equal(t, result.Widths[i], width)
				if width > box[0] {
					assert.NotContains(t, line, " ", "only single words may overflow: %q in %v", line, box)
				}
			}
			assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(result.Lines, " ")))
		}
	}
}

func TestFitOverflowFallsBackToMinSize(t *testing.T) {
	engine := newTestEngine()
	style := DefaultStyle()
	style.MinSize = 12

	result, err := engine.Fit("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA BBB", 50, 200, style)
	require.NoError(t, err)
	assert.False(t, result.Fits)
	assert.Equal(t, 12, result.Size)
	require.Len(t, result.Lines, 2)
	assert.Equal(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", result.Lines[0], "wide word kept whole on its own line")
	assert.Equal(t, "BBB", result.Lines[1])

	tooTall, err := engine.Fit("MANY WORDS THAT WILL NEVER FIT", 400, 5, style)
	require.NoError(t, err)
	assert.False(t, tooTall.Fits)
	assert.Equal(t, 12, tooTall.Size)
	assert.NotEmpty(t, tooTall.Lines)
}

func TestFitMaxBelowMinClamps(t *testing.T) {
	engine := newTestEngine()
	style := DefaultStyle()
	style.MinSize = 10

	result, err := engine.Fit("HELLO", 400, 4, style)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Size)
	assert.False(t, result.Fits)
}

func TestWrapGreedy(t *testing.T) {
	fonts := NewFonts()
	face, err := fonts.Face(DefaultFont, 20)
	require.NoError(t, err)

	width := Measure(face, "AAA AAA")
	lines, widths := Wrap(face, "AAA AAA AAA", width)
	assert.Equal(t, []string{"AAA AAA", "AAA"}, lines)
	assert.Equal(t, []int{width, Measure(face, "AAA")}, widths)

	lines, _ = Wrap(face, "AAA AAA AAA", width-1)
	assert.Equal(t, []string{"AAA", "AAA", "AAA"}, lines)
}

func TestFontFallback(t *testing.T) {
	fonts := NewFonts()

	missing, err := fonts.Face("/definitely/not/here.ttf", 16)
	require.NoError(t, err)
	def, err := fonts.Face(DefaultFont, 16)
	require.NoError(t, err)
	assert.Equal(t, Measure(def, "MEME"), Measure(missing, "MEME"))

	_, err = fonts.Face(DefaultFont, 0)
	require.Error(t, err)
	require.NoError(t, fonts.Close())
}

func TestFontSearchPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "regular.ttf"), goregular.TTF, 0o644))

	fonts := NewFonts(dir)
	custom, err := fonts.Face("regular", 24)
	require.NoError(t, err)
	def, err := fonts.Face(DefaultFont, 24)
	require.NoError(t, err)

	// Go Regular is narrower than the bundled Go Bold for most glyphs; W is
	// the same width in both.
	assert.Equal(t, Measure(def, "WWWWWWWW"), Measure(custom, "WWWWWWWW"))
	assert.Less(t, Measure(custom, "iiiiiiii"), Measure(def, "iiiiiiii"))
	assert.Less(t, Measure(custom, "Hello world"), Measure(def, "Hello world"))
}
