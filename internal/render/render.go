// Package render turns raw engine pixels into an encoded, displayable image.
// It never resizes: the encoded image has exactly the raw dimensions.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/imgio"

	"upscaled/internal/engine"
)

// Format is an output encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// DefaultJPEGQuality is the quality used when none is configured.
const DefaultJPEGQuality = 95

// ParseFormat maps a config value onto a Format. Empty selects JPEG.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJPEG, "jpg":
		return FormatJPEG, nil
	case FormatPNG:
		return FormatPNG, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == FormatPNG {
		return ".png"
	}
	return ".jpg"
}

// MIME returns the media type for f.
func (f Format) MIME() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// EncodeError reports that raw pixels could not be turned into an image.
type EncodeError struct {
	Reason string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Err != nil {
		return "encode output: " + e.Reason + ": " + e.Err.Error()
	}
	return "encode output: " + e.Reason
}

func (e *EncodeError) Unwrap() error { return e.Err }

// IsEncodeError reports whether err is or wraps an *EncodeError.
func IsEncodeError(err error) bool {
	var ee *EncodeError
	return errors.As(err, &ee)
}

// Image is an encoded output.
type Image struct {
	Data   []byte
	MIME   string
	Ext    string
	Width  int
	Height int
}

// Encoder encodes raw pixels.
type Encoder struct {
	Format  Format
	Quality int
}

// Encode validates px and encodes it.
func (e Encoder) Encode(px engine.RawPixels) (Image, error) {
	img, err := ToImage(px)
	if err != nil {
		return Image{}, err
	}
	f := e.Format
	var enc imgio.Encoder
	switch f {
	case "", FormatJPEG:
		f = FormatJPEG
		q := e.Quality
		if q <= 0 || q > 100 {
			q = DefaultJPEGQuality
		}
		enc = imgio.JPEGEncoder(q)
	case FormatPNG:
		enc = imgio.PNGEncoder()
	default:
		return Image{}, &EncodeError{Reason: fmt.Sprintf("unknown format %q", f)}
	}
	var buf bytes.Buffer
	if err := enc(&buf, img); err != nil {
		return Image{}, &EncodeError{Reason: string(f), Err: err}
	}
	return Image{Data: buf.Bytes(), MIME: f.MIME(), Ext: f.Ext(), Width: px.Width, Height: px.Height}, nil
}

// ToImage expands px into an NRGBA raster. One channel is gray, two
// is gray plus alpha, three is RGB and four is RGBA.
func ToImage(px engine.RawPixels) (*image.NRGBA, error) {
	if px.Width <= 0 || px.Height <= 0 {
		return nil, &EncodeError{Reason: fmt.Sprintf("invalid dimensions %dx%d", px.Width, px.Height)}
	}
	if px.Channels < 1 || px.Channels > 4 {
		return nil, &EncodeError{Reason: fmt.Sprintf("unsupported channel count %d", px.Channels)}
	}
	n := px.Width * px.Height
	if len(px.Data) != n*px.Channels {
		return nil, &EncodeError{Reason: fmt.Sprintf("buffer length %d, want %d", len(px.Data), n*px.Channels)}
	}
	img := image.NewNRGBA(image.Rect(0, 0, px.Width, px.Height))
	c := px.Channels
	for i := 0; i < n; i++ {
		s := px.Data[i*c : i*c+c]
		d := img.Pix[i*4 : i*4+4]
		switch c {
		case 1:
			d[0], d[1], d[2], d[3] = s[0], s[0], s[0], 0xff
		case 2:
			d[0], d[1], d[2], d[3] = s[0], s[0], s[0], s[1]
		case 3:
			d[0], d[1], d[2], d[3] = s[0], s[1], s[2], 0xff
		case 4:
			copy(d, s)
		}
	}
	return img, nil
}
