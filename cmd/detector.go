package cmd

import (
	"fmt"

	"github.com/andresmejia3/facekit/internal/config"
	"github.com/andresmejia3/facekit/internal/detect"
	"github.com/andresmejia3/facekit/internal/detect/dlib"
	"github.com/andresmejia3/facekit/internal/detect/opencv"
	"github.com/andresmejia3/facekit/internal/detect/pigo"
)

func newDetector(c config.Config) (detect.Detector, error) {
	params := detect.Params{
		ScaleFactor:  c.ScaleFactor,
		MinNeighbors: c.MinNeighbors,
	}
	switch c.Detector {
	case "", "opencv":
		return opencv.New(c.CascadePath, params)
	case "pigo":
		return pigo.New(c.PigoCascade, params)
	case "dlib":
		return dlib.New(c.DlibModels, c.DlibCNN)
	default:
		return nil, fmt.Errorf("unknown detector %q (want opencv, pigo or dlib)", c.Detector)
	}
}
