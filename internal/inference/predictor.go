package inference

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/facekit/internal/model"
	"github.com/andresmejia3/facekit/internal/types"
)

// Backend runs a forward pass over a preprocessed batch and returns the
// class scores of its single sample.
type Backend interface {
	Predict(t types.Tensor) ([]float32, error)
	Close() error
}

// Predictor pairs a loaded model with its label mapping. Both are loaded
// once by the caller and passed in; nothing here is global.
type Predictor struct {
	backend Backend
	classes *model.ClassIndex
	input   Input
}

func NewPredictor(backend Backend, classes *model.ClassIndex, input Input) *Predictor {
	return &Predictor{backend: backend, classes: classes, input: input}
}

// Predict classifies one already decoded image.
func (p *Predictor) Predict(img image.Image) (types.Prediction, error) {
	t, err := Preprocess(img, p.input)
	if err != nil {
		return types.Prediction{}, err
	}
	scores, err := p.backend.Predict(t)
	if err != nil {
		return types.Prediction{}, fmt.Errorf("forward pass: %w", err)
	}
	return p.Label(scores), nil
}

// Label maps raw scores to a prediction; an index with no name becomes model.UnknownLabel.
func (p *Predictor) Label(scores []float32) types.Prediction {
	idx := Argmax(scores)
	return types.Prediction{Index: idx, Label: p.classes.Lookup(idx)}
}

func (p *Predictor) Close() error {
	return p.backend.Close()
}

// BackendFor picks the runtime for a model file: Keras archives need the
// Python worker, everything else goes to OpenCV's dnn module.
func BackendFor(modelPath, override string) string {
	if override != "" {
		return override
	}
	switch strings.ToLower(filepath.Ext(modelPath)) {
	case ".h5", ".hdf5", ".keras":
		return "python"
	default:
		return "opencv"
	}
}
