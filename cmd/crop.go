package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresmejia3/facekit/internal/extract"
	"github.com/andresmejia3/facekit/internal/types"
	"github.com/andresmejia3/facekit/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var cropPerson string

var cropCmd = &cobra.Command{
	Use:   "crop [person_folder]",
	Short: "Crop detected faces out of a person's downloaded images",
	Long: `Runs a frontal-face cascade over every file in <input-root>/<person_folder>
and writes each detected face to <output-root>/<person_folder>/001.jpg, 002.jpg, ...`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		person := cropPerson
		if len(args) == 1 {
			person = args[0]
		}
		return runCrop(cmd.Context(), person)
	},
}

func init() {
	cropCmd.Flags().StringVarP(&cropPerson, "person", "p", "", "Person folder inside the input root")
	cropCmd.Flags().StringVarP(&cfg.Detector, "detector", "D", cfg.Detector, "Face detector: opencv, pigo or dlib")
	cropCmd.Flags().Float64Var(&cfg.ScaleFactor, "scale-factor", cfg.ScaleFactor, "Cascade scale factor")
	cropCmd.Flags().IntVar(&cfg.MinNeighbors, "min-neighbors", cfg.MinNeighbors, "Cascade min neighbours")
	cropCmd.Flags().StringVar(&cfg.CascadePath, "cascade", cfg.CascadePath, "Path to haarcascade_frontalface_alt.xml (searched in OpenCV install paths when empty)")
	cropCmd.Flags().StringVar(&cfg.PigoCascade, "pigo-cascade", cfg.PigoCascade, "Path to the pigo facefinder cascade")
	cropCmd.Flags().StringVar(&cfg.DlibModels, "dlib-models", cfg.DlibModels, "Directory with dlib models")
	rootCmd.AddCommand(cropCmd)
}

func runCrop(ctx context.Context, person string) error {
	if person == "" {
		p, err := prompt(stdin, fmt.Sprintf("Enter the person's folder name inside '%s': ", cfg.CropInputDir))
		if err != nil {
			return err
		}
		person = p
	}

	inputDir := filepath.Join(cfg.CropInputDir, person)
	outputDir := filepath.Join(cfg.CroppedDir, person)

	// Checked before the detector or ledger are touched so a typo writes nothing.
	if info, err := os.Stat(inputDir); person == "" || err != nil || !info.IsDir() {
		fmt.Printf("Folder '%s' does not exist.\n", inputDir)
		return fmt.Errorf("%w: %s", extract.ErrInputMissing, inputDir)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		utils.ShowError("Failed to list input folder", err, nil)
		return err
	}

	det, err := newDetector(cfg)
	if err != nil {
		utils.ShowError("Failed to load face detector", err, nil)
		return err
	}
	defer det.Close()

	if DB != nil {
		if err := DB.ResetCrops(ctx, person); err != nil {
			utils.ShowError("Failed to reset crop ledger", err, nil)
			return err
		}
	}

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("✂️  Cropping"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	e := &extract.Extractor{
		Detector: det,
		Out:      os.Stdout,
		OnImage:  func() { bar.Add(1) },
		OnCrop: func(c types.CropResult) error {
			if DB == nil {
				return nil
			}
			return DB.RecordCrop(ctx, person, c.Source, c.Path, c.Box)
		},
	}

	sum, err := e.Run(ctx, inputDir, outputDir)
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "🛑 Interrupted after %d crops\n", len(sum.Crops))
		}
		utils.ShowError("Face extraction failed", err, nil)
		return err
	}

	fmt.Fprintf(os.Stderr, "✅ %d faces from %d/%d readable images written to %s\n",
		len(sum.Crops), sum.Decoded, sum.Files, outputDir)
	return nil
}
