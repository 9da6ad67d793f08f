package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/andresmejia3/facekit/internal/inference"
	"github.com/andresmejia3/facekit/internal/utils"
	"github.com/spf13/cobra"
)

var predictJSON bool

var predictCmd = &cobra.Command{
	Use:   "predict <image_path>",
	Short: "Classify a single image without starting the web server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runPredict(cmd.Context(), os.Stdout, args[0])
	},
}

func init() {
	addModelFlags(predictCmd)
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "Print the prediction as JSON")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(ctx context.Context, out io.Writer, imagePath string) error {
	if _, err := os.Stat(imagePath); os.IsNotExist(err) {
		utils.ShowError("Input file does not exist", err, nil)
		return err
	}

	img, err := inference.OpenImage(imagePath)
	if err != nil {
		utils.ShowError("Failed to decode image", err, nil)
		return err
	}

	predictor, err := loadPredictor(ctx)
	if err != nil {
		utils.ShowError("Failed to load model", err, workerCommand(err))
		return err
	}
	defer predictor.Close()

	fmt.Fprintln(os.Stderr, "🔍 Analyzing face...")
	pred, err := predictor.Predict(img)
	if err != nil {
		utils.ShowError("Prediction failed", err, nil)
		return err
	}

	if predictJSON {
		return json.NewEncoder(out).Encode(pred)
	}
	fmt.Fprintf(out, "Prediction: %s\n", pred.Label)
	return nil
}
