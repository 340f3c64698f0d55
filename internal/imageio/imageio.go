// Package imageio validates and decodes user-supplied image content.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmpty       = errors.New("image content is empty")
	ErrUnsupported = errors.New("unsupported image type")
	ErrTooLarge    = errors.New("image exceeds pixel limit")
)

// supported lists the MIME types with a registered decoder.
var supported = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/webp": true,
	"image/tiff": true,
}

// Image is validated source content plus the facts read from its header.
type Image struct {
	Content []byte
	Name    string
	MIME    string
	Width   int
	Height  int
}

// Limits bounds accepted input. Zero values disable a check.
type Limits struct {
	MaxPixels int
}

// Sniff returns the detected MIME type of content, or ErrUnsupported when it
// is not an image type this package decodes.
func Sniff(content []byte) (string, error) {
	if len(content) == 0 {
		return "", ErrEmpty
	}
	mt := mimetype.Detect(content)
	for m := mt; m != nil; m = m.Parent() {
		if supported[m.String()] {
			return m.String(), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, mt.String())
}

// Inspect validates content and reads its dimensions without decoding pixels.
func Inspect(content []byte, name string, lim Limits) (Image, error) {
	mime, err := Sniff(content)
	if err != nil {
		return Image{}, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return Image{}, fmt.Errorf("read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Image{}, fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if lim.MaxPixels > 0 && cfg.Width*cfg.Height > lim.MaxPixels {
		return Image{}, fmt.Errorf("%w: %dx%d > %d", ErrTooLarge, cfg.Width, cfg.Height, lim.MaxPixels)
	}
	return Image{Content: content, Name: name, MIME: mime, Width: cfg.Width, Height: cfg.Height}, nil
}

// Decode fully decodes content.
func Decode(content []byte) (image.Image, error) {
	if len(content) == 0 {
		return nil, ErrEmpty
	}
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// IsUnsupported reports whether err stems from an unrecognised content type.
func IsUnsupported(err error) bool { return errors.Is(err, ErrUnsupported) }

// IsTooLarge reports whether err stems from the pixel limit.
func IsTooLarge(err error) bool { return errors.Is(err, ErrTooLarge) }
