package pigo

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/andresmejia3/facekit/internal/detect"
	"github.com/disintegration/imaging"
	pigo "github.com/esimov/pigo/core"
)

const (
	// Clustered detections scoring below this are dropped.
	minQuality   = 5.0
	iouThreshold = 0.2
)

// Detector runs pigo's pure-Go pixel-intensity cascade, usable on hosts
// without an OpenCV installation.
type Detector struct {
	mu         sync.Mutex
	classifier *pigo.Pigo
	params     detect.Params
}

// New unpacks the facefinder cascade stored at path.
func New(path string, params detect.Params) (*Detector, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no pigo cascade configured", detect.ErrCascadeNotFound)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detect.ErrCascadeNotFound, err)
	}
	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %w", err)
	}
	return &Detector{classifier: classifier, params: params}, nil
}

func (d *Detector) Detect(img image.Image) ([]image.Rectangle, error) {
	src := imaging.Clone(img)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	minSize := d.params.MinSize
	if minSize <= 0 {
		minSize = 20
	}
	maxSize := d.params.MaxSize
	if maxSize <= 0 {
		maxSize = max(cols, rows)
	}
	scale := d.params.ScaleFactor
	if scale <= 1 {
		scale = 1.1
	}

	cp := pigo.CascadeParams{
		MinSize:     minSize,
		MaxSize:     maxSize,
		ShiftFactor: 0.1,
		ScaleFactor: scale,
		ImageParams: pigo.ImageParams{
			Pixels: grayscale(src),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	d.mu.Lock()
	dets := d.classifier.RunCascade(cp, 0.0)
	dets = d.classifier.ClusterDetections(dets, iouThreshold)
	d.mu.Unlock()

	off := img.Bounds().Min
	var faces []image.Rectangle
	for _, det := range dets {
		if det.Q < minQuality {
			continue
		}
		half := det.Scale / 2
		r := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half)
		faces = append(faces, r.Intersect(src.Bounds()).Add(off))
	}
	return faces, nil
}

func (d *Detector) Close() error { return nil }

// grayscale flattens an NRGBA image into luma bytes, row-major.
func grayscale(src *image.NRGBA) []uint8 {
	width, height := src.Bounds().Dx(), src.Bounds().Dy()
	gray := make([]uint8, width*height)

	for y := 0; y < height; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < width; x++ {
			r, g, b := row[x*4], row[x*4+1], row[x*4+2]
			gray[y*width+x] = uint8(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
		}
	}
	return gray
}
