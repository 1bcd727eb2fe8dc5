// Package texture turns encoded image resources into pixel data for the resource bundle.
package texture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/cogentcore/webgpu/wgpu"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned for encodings no registered decoder understands (e.g. KTX2).
var ErrUnsupportedImage = errors.New("unsupported image encoding")

// Source is an encoded image handed to a Factory.
type Source struct {
	Name     string
	URI      string
	MimeType string
	Data     []byte

	// SRGB is true when the image is sampled as color.
	SRGB bool
}

// Factory creates texture pixel data from an encoded image.
// Implementations must be safe for concurrent use; the loader decodes images in parallel.
type Factory interface {
	// Create decodes src.
	//
	// Parameters:
	//   - ctx: cancels the decode
	//   - src: the encoded image
	//
	// Returns:
	//   - *model.TextureImage: the pixels
	//   - error: error if the image cannot be decoded
	Create(ctx context.Context, src Source) (*model.TextureImage, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, src Source) (*model.TextureImage, error)

func (f FactoryFunc) Create(ctx context.Context, src Source) (*model.TextureImage, error) {
	return f(ctx, src)
}

// DecoderOption is a functional option for configuring the decoder created by NewDecoder.
type DecoderOption func(*decoderImpl)

// decoderImpl decodes with the standard image registry.
type decoderImpl struct {
	maxSize int
}

var _ Factory = &decoderImpl{}

// NewDecoder creates a Factory that decodes PNG, JPEG, GIF, WebP, BMP and TIFF into RGBA8.
//
// Parameters:
//   - options: a variadic list of DecoderOption functions
//
// Returns:
//   - Factory: the decoder
func NewDecoder(options ...DecoderOption) Factory {
	d := &decoderImpl{}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// WithMaxSize is an option builder that downscales images whose larger side exceeds n pixels.
//
// Parameters:
//   - n: the maximum width or height, 0 for no limit
//
// Returns:
//   - DecoderOption: a function that applies the size limit
func WithMaxSize(n int) DecoderOption {
	return func(d *decoderImpl) {
		d.maxSize = n
	}
}

func (d *decoderImpl) Create(ctx context.Context, src Source) (*model.TextureImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch src.MimeType {
	case "image/ktx2", "image/basis":
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, src.MimeType)
	}

	img, format, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, src.Name)
		}
		return nil, fmt.Errorf("failed to decode %s image %s: %w", format, src.Name, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if d.maxSize > 0 && (w > d.maxSize || h > d.maxSize) {
		if w >= h {
			h = max(1, h*d.maxSize/w)
			w = d.maxSize
		} else {
			w = max(1, w*d.maxSize/h)
			h = d.maxSize
		}
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(rgba, rgba.Bounds(), img, bounds, draw.Src, nil)
	}

	texFormat := wgpu.TextureFormatRGBA8Unorm
	if src.SRGB {
		texFormat = wgpu.TextureFormatRGBA8UnormSrgb
	}
	return &model.TextureImage{
		Width:  w,
		Height: h,
		Format: texFormat,
		Pixels: rgba.Pix,
	}, nil
}
