// Package vision decodes images and prepares them as network input tensors.
//
// The Codec owns every Tensor it produces and counts the ones still alive,
// so callers can verify that preprocessing releases all intermediates.
package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
	"sync/atomic"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image preprocessing errors
var (
	ErrInvalidImage      = errors.New("vision: invalid image data")
	ErrEmptyImage        = errors.New("vision: empty image data")
	ErrInvalidDimensions = errors.New("vision: invalid dimensions")
	ErrReleased          = errors.New("vision: tensor already released")
)

// Filter names a resize interpolation filter.
type Filter string

const (
	// FilterBilinear matches the bilinear resize classification networks are usually trained with.
	FilterBilinear Filter = "bilinear"
	// FilterCatmullRom is a sharper bicubic filter.
	FilterCatmullRom Filter = "catmullrom"
	// FilterNearest is nearest-neighbour sampling.
	FilterNearest Filter = "nearest"
	// FilterLanczos3 uses nfnt/resize Lanczos3.
	FilterLanczos3 Filter = "lanczos3"
)

// ParseFilter parses a filter name, falling back to FilterBilinear.
func ParseFilter(s string) Filter {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterBilinear, FilterCatmullRom, FilterNearest, FilterLanczos3:
		return f
	default:
		return FilterBilinear
	}
}

// CodecConfig configures a Codec.
type CodecConfig struct {
	Filter Filter
	// MaxPixels bounds decoded image area; 0 means unbounded.
	MaxPixels int
}

// DefaultCodecConfig returns the default codec configuration.
func DefaultCodecConfig() CodecConfig {
	return CodecConfig{
		Filter:    FilterBilinear,
		MaxPixels: 64 << 20,
	}
}

// Codec decodes, resizes and crops images into tensors.
type Codec struct {
	config CodecConfig
	live   atomic.Int64
}

// NewCodec creates a Codec.
func NewCodec(config CodecConfig) *Codec {
	if config.Filter == "" {
		config.Filter = FilterBilinear
	}
	return &Codec{config: config}
}

// Live returns the number of tensors produced by this codec that have not
// been released.
func (c *Codec) Live() int64 {
	return c.live.Load()
}

// Filter returns the resize filter in use.
func (c *Codec) Filter() Filter {
	return c.config.Filter
}

// Load reads and decodes an image file.
func (c *Codec) Load(path string) (*Tensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return c.Decode(data)
}

// Decode decodes an in-memory image in any registered format
// (PNG, JPEG, GIF, BMP, TIFF, WebP).
func (c *Codec) Decode(data []byte) (*Tensor, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cfg.Width, cfg.Height)
	}
	if c.config.MaxPixels > 0 && cfg.Width*cfg.Height > c.config.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels",
			ErrInvalidDimensions, cfg.Width, cfg.Height, c.config.MaxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return c.FromImage(img), nil
}

// FromImage converts img to a tensor owned by this codec.
func (c *Codec) FromImage(img image.Image) *Tensor {
	return c.wrap(toRGBA(img))
}

// ResizeMin scales t so that its shorter side equals dim, preserving the
// aspect ratio. The input tensor is left untouched.
func (c *Codec) ResizeMin(t *Tensor, dim int) (*Tensor, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%w: resize target %d", ErrInvalidDimensions, dim)
	}

	w, h := ResizeMinDims(t.Width(), t.Height(), dim)
	return c.wrap(c.scale(t.img, w, h)), nil
}

// CenterCrop cuts a w x h window from the centre of t. Regions that fall
// outside the source are filled with black.
func (c *Codec) CenterCrop(t *Tensor, w, h int) (*Tensor, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: crop %dx%d", ErrInvalidDimensions, w, h)
	}

	dx := (t.Width() - w) / 2
	dy := (t.Height() - h) / 2
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), t.img, image.Pt(dx, dy), draw.Src)
	return c.wrap(dst), nil
}

// ResizeMinDims computes the dimensions ResizeMin produces.
func ResizeMinDims(width, height, dim int) (int, int) {
	if width < height {
		return dim, max(1, height*dim/width)
	}
	return max(1, width*dim/height), dim
}

func (c *Codec) scale(src *image.RGBA, w, h int) *image.RGBA {
	if c.config.Filter == FilterLanczos3 {
		return toRGBA(resize.Resize(uint(w), uint(h), src, resize.Lanczos3))
	}

	var scaler xdraw.Scaler
	switch c.config.Filter {
	case FilterCatmullRom:
		scaler = xdraw.CatmullRom
	case FilterNearest:
		scaler = xdraw.NearestNeighbor
	default:
		scaler = xdraw.BiLinear
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func (c *Codec) wrap(img *image.RGBA) *Tensor {
	c.live.Add(1)
	return &Tensor{img: img, codec: c}
}

// toRGBA returns img as an *image.RGBA anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
