package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/andresmejia3/facekit/internal/detect"
	"github.com/andresmejia3/facekit/internal/types"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrInputMissing is returned before anything is written when the person folder is absent.
var ErrInputMissing = errors.New("input folder does not exist")

// JPEGQuality matches the encoder default of the OpenCV writer the datasets were first built with.
const JPEGQuality = 95

// Summary reports what one extraction run saw and produced.
type Summary struct {
	Files      int
	Decoded    int
	Unreadable int
	Crops      []types.CropResult
}

// Extractor crops every detected face out of a folder of images.
type Extractor struct {
	Detector detect.Detector
	// Out receives the human-readable progress lines.
	Out io.Writer
	// OnImage, if set, is called once per directory entry after it is handled.
	OnImage func()
	// OnCrop, if set, is called after each crop is written. An error aborts the run.
	OnCrop func(types.CropResult) error
}

func (e *Extractor) out() io.Writer {
	if e.Out == nil {
		return io.Discard
	}
	return e.Out
}

// Run reads every entry of inputDir in name order and writes one JPEG per
// detected face into outputDir as 001.jpg, 002.jpg, ... The counter is shared
// across all images of the run and restarts at 1 on every run, so earlier
// crops with the same names are overwritten.
func (e *Extractor) Run(ctx context.Context, inputDir, outputDir string) (Summary, error) {
	var sum Summary

	info, err := os.Stat(inputDir)
	if err != nil || !info.IsDir() {
		return sum, fmt.Errorf("%w: %s", ErrInputMissing, inputDir)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return sum, fmt.Errorf("create output folder: %w", err)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return sum, fmt.Errorf("list %s: %w", inputDir, err)
	}
	sum.Files = len(entries)
	fmt.Fprintf(e.out(), "Found %d files in %s\n", len(entries), inputDir)

	count := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		path := filepath.Join(inputDir, entry.Name())
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			fmt.Fprintf(e.out(), "Could not read image: %s\n", path)
			sum.Unreadable++
			e.tick()
			continue
		}
		sum.Decoded++

		faces, err := e.Detector.Detect(img)
		if err != nil {
			return sum, fmt.Errorf("detect faces in %s: %w", path, err)
		}

		for _, box := range faces {
			count++
			outPath := filepath.Join(outputDir, fmt.Sprintf("%03d.jpg", count))
			crop := imaging.Crop(img, box)
			if err := imaging.Save(crop, outPath, imaging.JPEGQuality(JPEGQuality)); err != nil {
				return sum, fmt.Errorf("write %s: %w", outPath, err)
			}

			res := types.CropResult{Source: path, Path: outPath, Box: box}
			sum.Crops = append(sum.Crops, res)
			if e.OnCrop != nil {
				if err := e.OnCrop(res); err != nil {
					return sum, err
				}
			}
		}
		e.tick()
	}

	return sum, nil
}

func (e *Extractor) tick() {
	if e.OnImage != nil {
		e.OnImage()
	}
}
