package meme

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func TestRenderName(t *testing.T) {
	vars := NewNameVars("drake", "Drake Hotline Bling", "a1b2c3d4e5f6", fixedNow)

	tests := []struct {
		pattern string
		want    string
	}{
		{"{{.Stem}}_{{.Timestamp}}", "drake_2024-03-09_14-05-07"},
		{"{{.Key}}", "a1b2c3d4e5f6"},
		{"memes/{{.Stem}}", "memes_drake"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := RenderName(tt.pattern, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := RenderName(`{{default "meme" .Stem}}`, NameVars{})
	require.NoError(t, err)
	assert.Equal(t, "meme", got)

	_, err = RenderName("", vars)
	require.Error(t, err)
	_, err = RenderName("{{.Stem", vars)
	require.Error(t, err)
	_, err = RenderName("{{.Stem}}", NameVars{})
	require.Error(t, err, "empty render")
	_, err = RenderName("{{.Missing}}", vars)
	require.Error(t, err, "unknown field")
}

func TestResolveOutput(t *testing.T) {
	vars := NewNameVars("drake", "Drake", "k", fixedNow)

	tests := []struct {
		name       string
		req        OutputRequest
		wantPath   string
		wantFormat imaging.Format
	}{
		{
			name:       "explicit with extension",
			req:        OutputRequest{Explicit: "out/meme.jpg", TemplateExt: ".png", Format: "gif"},
			wantPath:   "out/meme.jpg",
			wantFormat: imaging.JPEG,
		},
		{
			name:       "explicit without extension uses configured format",
			req:        OutputRequest{Explicit: "out/meme", TemplateExt: ".png", Format: "bmp"},
			wantPath:   "out/meme.bmp",
			wantFormat: imaging.BMP,
		},
		{
			name:       "derived follows template",
			req:        OutputRequest{Dir: "/tmp/x", Pattern: "{{.Stem}}_{{.Timestamp}}", TemplateExt: ".JPEG"},
			wantPath:   "/tmp/x/drake_2024-03-09_14-05-07.jpg",
			wantFormat: imaging.JPEG,
		},
		{
			name:       "webp template falls back to png",
			req:        OutputRequest{Pattern: "{{.Stem}}", TemplateExt: "webp"},
			wantPath:   "drake.png",
			wantFormat: imaging.PNG,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Vars = vars
			path, format, err := ResolveOutput(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantFormat, format)
		})
	}

	_, _, err := ResolveOutput(OutputRequest{Explicit: "meme.xyz"})
	require.Error(t, err)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "meme.png")

	require.NoError(t, Save(testImage(40, 30), path, imaging.PNG))

	img, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, OutputFileMode, info.Mode().Perm(), "new memes are world-readable")

	// Overwrite in place.
	require.NoError(t, Save(testImage(10, 10), path, imaging.PNG))
	img, err = imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())

	// Replacing a file keeps its existing mode.
	require.NoError(t, os.Chmod(path, 0o600))
	require.NoError(t, Save(testImage(12, 12), path, imaging.PNG))
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
