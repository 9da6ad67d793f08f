package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/andresmejia3/facekit/internal/inference"
	infcv "github.com/andresmejia3/facekit/internal/inference/opencv"
	"github.com/andresmejia3/facekit/internal/model"
	"github.com/andresmejia3/facekit/internal/utils"
	"github.com/andresmejia3/facekit/internal/worker"
	"github.com/spf13/cobra"
)

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&cfg.ModelPath, "model", "m", cfg.ModelPath, "Trained classifier (.h5/.keras via Python, .onnx/.pb via OpenCV)")
	cmd.Flags().StringVarP(&cfg.ClassIndexPath, "classes", "c", cfg.ClassIndexPath, "JSON mapping of class name to index")
	cmd.Flags().StringVar(&cfg.Backend, "backend", cfg.Backend, "Inference backend: python or opencv (default: by model extension)")
	cmd.Flags().IntVar(&cfg.InputSize, "input-size", cfg.InputSize, "Model input width and height")
	cmd.Flags().StringVar(&cfg.Layout, "layout", cfg.Layout, "Model input layout: nhwc or nchw")
	cmd.Flags().StringVar(&cfg.PythonBin, "python", cfg.PythonBin, "Python interpreter for the Keras worker")
	cmd.Flags().StringVar(&cfg.WorkerScript, "worker-script", cfg.WorkerScript, "Path to the Keras worker script")
	cmd.Flags().DurationVar(&cfg.WorkerTimeout, "worker-timeout", cfg.WorkerTimeout, "Maximum wait for one worker reply")
}

// loadPredictor reads the class mapping and the model exactly once.
// The returned predictor owns the backend and must be closed.
func loadPredictor(ctx context.Context) (*inference.Predictor, error) {
	layout, err := inference.ParseLayout(cfg.Layout)
	if err != nil {
		return nil, err
	}

	classes, err := model.LoadClassIndex(cfg.ClassIndexPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model %s: %w", cfg.ModelPath, err)
	}

	var backend inference.Backend
	switch name := inference.BackendFor(cfg.ModelPath, cfg.Backend); name {
	case "python":
		fmt.Fprintln(os.Stderr, "🚀 Starting Keras worker...")
		backend, err = inference.NewPythonBackend(ctx, worker.Config{
			Python:      cfg.PythonBin,
			Script:      cfg.WorkerScript,
			ModelPath:   cfg.ModelPath,
			ReadTimeout: cfg.WorkerTimeout,
		})
	case "opencv":
		backend, err = infcv.Load(cfg.ModelPath)
	default:
		err = fmt.Errorf("unknown inference backend %q (want python or opencv)", name)
	}
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(os.Stderr, "🧠 Loaded %s with %d classes\n", cfg.ModelPath, classes.Len())
	return inference.NewPredictor(backend, classes, inference.Input{
		Size:   cfg.InputSize,
		Layout: layout,
		Scale:  cfg.PixelScale,
	}), nil
}

// workerCommand digs the crashed interpreter out of err so ShowError can print its logs.
func workerCommand(err error) *utils.SafeCommand {
	var se *worker.StartupError
	if errors.As(err, &se) {
		return se.Cmd
	}
	return nil
}
