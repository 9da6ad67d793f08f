package dlib

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"github.com/Kagami/go-face"
	"github.com/andresmejia3/facekit/internal/detect"
	"github.com/disintegration/imaging"
)

// Detector uses dlib's face detector through go-face. The models directory
// must hold the shape predictor and ResNet files go-face expects.
type Detector struct {
	mu         sync.Mutex
	recognizer *face.Recognizer
	cnn        bool
}

func New(modelsDir string, cnn bool) (*Detector, error) {
	if modelsDir == "" {
		return nil, fmt.Errorf("%w: no dlib models directory configured", detect.ErrCascadeNotFound)
	}
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("fail to initialize recognizer: %w", err)
	}
	return &Detector{recognizer: rec, cnn: cnn}, nil
}

// Detect hands dlib a JPEG re-encoding of img; go-face only accepts encoded bytes.
func (d *Detector) Detect(img image.Image) ([]image.Rectangle, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return nil, fmt.Errorf("encode for dlib: %w", err)
	}

	d.mu.Lock()
	var faces []face.Face
	var err error
	if d.cnn {
		faces, err = d.recognizer.RecognizeCNN(buf.Bytes())
	} else {
		faces, err = d.recognizer.Recognize(buf.Bytes())
	}
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	off := img.Bounds().Min
	rects := make([]image.Rectangle, 0, len(faces))
	for _, f := range faces {
		rects = append(rects, f.Rectangle.Add(off))
	}
	return rects, nil
}

func (d *Detector) Close() error {
	d.recognizer.Close()
	return nil
}
