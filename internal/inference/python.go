package inference

import (
	"context"

	"github.com/andresmejia3/facekit/internal/types"
	"github.com/andresmejia3/facekit/internal/worker"
)

// PythonBackend runs the Keras model inside a worker subprocess.
type PythonBackend struct {
	Worker *worker.PythonWorker
}

func NewPythonBackend(ctx context.Context, cfg worker.Config) (*PythonBackend, error) {
	w, err := worker.NewPythonWorker(ctx, 0, cfg)
	if err != nil {
		return nil, err
	}
	return &PythonBackend{Worker: w}, nil
}

func (b *PythonBackend) Predict(t types.Tensor) ([]float32, error) {
	return b.Worker.Predict(t)
}

func (b *PythonBackend) Close() error {
	b.Worker.Close()
	return nil
}
