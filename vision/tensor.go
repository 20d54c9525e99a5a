package vision

import (
	"fmt"
	"image"
)

// Tensor is an image held by a Codec. It must be released exactly once by
// its owner; Release is idempotent.
type Tensor struct {
	img      *image.RGBA
	codec    *Codec
	released bool
}

// Width returns the tensor width in pixels.
func (t *Tensor) Width() int {
	return t.img.Bounds().Dx()
}

// Height returns the tensor height in pixels.
func (t *Tensor) Height() int {
	return t.img.Bounds().Dy()
}

// Image exposes the underlying pixels. The image is invalid after Release.
func (t *Tensor) Image() *image.RGBA {
	return t.img
}

// Released reports whether Release has been called.
func (t *Tensor) Released() bool {
	return t == nil || t.released
}

// Release frees the pixel buffer.
func (t *Tensor) Release() {
	if t == nil || t.released {
		return
	}
	t.released = true
	t.img = nil
	if t.codec != nil {
		t.codec.live.Add(-1)
	}
}

// CHW returns the pixels as planar float32 values in [0,1]. With one
// channel the planes are averaged to luma; with three they are R, G, B.
func (t *Tensor) CHW(channels int) ([]float32, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidDimensions, channels)
	}

	w, h := t.Width(), t.Height()
	plane := w * h
	out := make([]float32, plane*channels)
	pix := t.img.Pix
	stride := t.img.Stride
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := y*stride + x*4
			r := float32(pix[off]) / 255
			g := float32(pix[off+1]) / 255
			b := float32(pix[off+2]) / 255
			i := y*w + x
			if channels == 1 {
				out[i] = (r + g + b) / 3
				continue
			}
			out[i] = r
			out[plane+i] = g
			out[2*plane+i] = b
		}
	}
	return out, nil
}

func (t *Tensor) check() error {
	if t == nil || t.released {
		return ErrReleased
	}
	return nil
}
