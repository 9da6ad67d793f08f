package inference

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/andresmejia3/facekit/internal/types"
	"github.com/nfnt/resize"
)

var ErrShapeMismatch = errors.New("input geometry mismatch")

// Layout is the memory order the model expects for its input batch.
type Layout string

const (
	NHWC Layout = "nhwc"
	NCHW Layout = "nchw"
)

func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case NHWC, NCHW:
		return Layout(s), nil
	case "":
		return NHWC, nil
	}
	return "", fmt.Errorf("%w: unknown layout %q", ErrShapeMismatch, s)
}

// Input describes the tensor a model was trained on.
type Input struct {
	Size   int
	Layout Layout
	Scale  float64
}

// Shape returns the batch-of-one tensor shape for three colour channels.
func (in Input) Shape() []int {
	if in.Layout == NCHW {
		return []int{1, 3, in.Size, in.Size}
	}
	return []int{1, in.Size, in.Size, 3}
}

// ToRGB copies img into an opaque RGBA image anchored at the origin. Alpha
// is discarded rather than composited, so transparent pixels keep their colour.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			dst.SetRGBA(x, y, color.RGBA{c.R, c.G, c.B, 0xff})
		}
	}
	return dst
}

// Preprocess converts img to RGB, resizes it to Size x Size with bicubic
// sampling, multiplies each channel byte by Scale and adds the batch axis.
func Preprocess(img image.Image, in Input) (types.Tensor, error) {
	if in.Size <= 0 {
		return types.Tensor{}, fmt.Errorf("%w: size %d", ErrShapeMismatch, in.Size)
	}
	if img == nil || img.Bounds().Empty() {
		return types.Tensor{}, fmt.Errorf("%w: empty image", ErrShapeMismatch)
	}

	resized := resize.Resize(uint(in.Size), uint(in.Size), ToRGB(img), resize.Bicubic)
	b := resized.Bounds()
	if b.Dx() != in.Size || b.Dy() != in.Size {
		return types.Tensor{}, fmt.Errorf("%w: resized to %dx%d", ErrShapeMismatch, b.Dx(), b.Dy())
	}

	n := in.Size * in.Size
	data := make([]float32, 3*n)
	for y := 0; y < in.Size; y++ {
		for x := 0; x < in.Size; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			px := y*in.Size + x
			for ch, v := range [3]uint32{r >> 8, g >> 8, bl >> 8} {
				var idx int
				if in.Layout == NCHW {
					idx = ch*n + px
				} else {
					idx = px*3 + ch
				}
				data[idx] = float32(float64(v) * in.Scale)
			}
		}
	}
	return types.Tensor{Shape: in.Shape(), Data: data}, nil
}

// Argmax returns the index of the highest score, the first one on ties,
// or -1 for an empty slice.
func Argmax(scores []float32) int {
	best := -1
	for i, s := range scores {
		if best == -1 || s > scores[best] {
			best = i
		}
	}
	return best
}
