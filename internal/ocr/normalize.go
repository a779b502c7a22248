package ocr

import (
	"context"
	"image"
	"slices"

	"github.com/disintegration/imaging"
)

const (
	DefaultScale        = 2.5
	DefaultMedianKernel = 3
)

// Normalizer prepares a photographed document for recognition: landscape
// input is turned upright, enlarged, converted to grayscale and denoised.
type Normalizer struct {
	Scale        float64
	MedianKernel int
}

// NewNormalizer returns a Normalizer with the default scale and kernel.
func NewNormalizer() *Normalizer {
	return &Normalizer{Scale: DefaultScale, MedianKernel: DefaultMedianKernel}
}

// Normalize only fails when ctx is done. The result is a fresh image; img
// is not modified.
func (n *Normalizer) Normalize(ctx context.Context, img image.Image) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scale := n.Scale
	if scale <= 0 {
		scale = DefaultScale
	}

	b := img.Bounds()
	if b.Dx() > b.Dy() {
		img = imaging.Rotate90(img)
		b = img.Bounds()
	}

	w := int(float64(b.Dx())*scale + 0.5)
	h := int(float64(b.Dy())*scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	resized := imaging.Resize(img, w, h, imaging.CatmullRom)

	gray := toGray(imaging.Grayscale(resized))
	if n.MedianKernel > 1 {
		return medianFilter(ctx, gray, n.MedianKernel)
	}
	return gray, ctx.Err()
}

// toGray copies the red channel of an already desaturated image.
func toGray(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return out
}

// medianFilter applies a k×k median with edge pixels replicated outward.
// Even k is rounded up to the next odd size. ctx is checked once per row.
func medianFilter(ctx context.Context, src *image.Gray, k int) (*image.Gray, error) {
	if k%2 == 0 {
		k++
	}
	r := k / 2
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	window := make([]uint8, k*k)
	mid := len(window) / 2

	for y := 0; y < h; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < w; x++ {
			i := 0
			for dy := -r; dy <= r; dy++ {
				row := src.Pix[clamp(y+dy, 0, h-1)*src.Stride:]
				for dx := -r; dx <= r; dx++ {
					window[i] = row[clamp(x+dx, 0, w-1)]
					i++
				}
			}
			dst.Pix[y*dst.Stride+x] = median(window, mid)
		}
	}
	return dst, nil
}

// median returns the mid-th smallest value of window, reordering it.
// Small windows use an insertion sort.
func median(window []uint8, mid int) uint8 {
	if len(window) > 25 {
		slices.Sort(window)
		return window[mid]
	}
	for i := 1; i < len(window); i++ {
		v := window[i]
		j := i
		for ; j > 0 && window[j-1] > v; j-- {
			window[j] = window[j-1]
		}
		window[j] = v
	}
	return window[mid]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
