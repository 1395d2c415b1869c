package templates

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"io"
	"os"

	// Decoders for catalog images beyond the standard set.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	_ "image/jpeg"
	_ "image/png"
)

// ImageInfo describes a decodable image header.
type ImageInfo struct {
	Width  int
	Height int
	Format string
}

// Probe checks that path is a decodable, single-frame image and returns its
// header. Errors are *UnreadableImageError.
func Probe(path string) (ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImageInfo{}, &UnreadableImageError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := probe(f)
	if err != nil {
		return ImageInfo{}, &UnreadableImageError{Path: path, Err: err}
	}
	return info, nil
}

// ProbeBytes is Probe for in-memory data; label names the data in errors.
func ProbeBytes(label string, data []byte) (ImageInfo, error) {
	info, err := probe(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, &UnreadableImageError{Path: label, Err: err}
	}
	return info, nil
}

func probe(r io.ReadSeeker) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return ImageInfo{}, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("empty image %dx%d", cfg.Width, cfg.Height)
	}

	if format == "gif" {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return ImageInfo{}, err
		}
		anim, err := gif.DecodeAll(r)
		if err != nil {
			return ImageInfo{}, err
		}
		if len(anim.Image) > 1 {
			return ImageInfo{}, ErrAnimatedImage
		}
	}

	return ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}
