package detect

import (
	"errors"
	"image"
)

var ErrCascadeNotFound = errors.New("face cascade not found")

// Params tunes a cascade run. ScaleFactor and MinNeighbors follow the
// OpenCV meaning; backends without an equivalent map them as closely as they can.
type Params struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int
	MaxSize      int
}

// Detector finds face bounding boxes in a colour image. Returned rectangles
// are in the image's own coordinate space and are trusted by callers as-is.
type Detector interface {
	Detect(img image.Image) ([]image.Rectangle, error)
	Close() error
}

// Func adapts a plain function to Detector.
type Func func(img image.Image) ([]image.Rectangle, error)

func (f Func) Detect(img image.Image) ([]image.Rectangle, error) { return f(img) }
func (f Func) Close() error                                      { return nil }
