package opencv

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/andresmejia3/facekit/internal/detect"
	"gocv.io/x/gocv"
)

const cascadeFile = "haarcascade_frontalface_alt.xml"

// searchPaths lists where distro and Homebrew OpenCV packages install their Haar data.
var searchPaths = []string{
	cascadeFile,
	"/usr/local/share/opencv4/haarcascades/" + cascadeFile,
	"/usr/share/opencv4/haarcascades/" + cascadeFile,
	"/usr/share/opencv/haarcascades/" + cascadeFile,
	"/opt/homebrew/share/opencv4/haarcascades/" + cascadeFile,
}

// Detector runs OpenCV's Haar frontal-face cascade.
type Detector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	params     detect.Params
}

// New loads the cascade from path, or from the usual install locations when path is empty.
func New(path string, params detect.Params) (*Detector, error) {
	classifier := gocv.NewCascadeClassifier()

	candidates := searchPaths
	if path != "" {
		candidates = []string{path}
	} else if dir := os.Getenv("OPENCV_HAARCASCADES"); dir != "" {
		candidates = append([]string{filepath.Join(dir, cascadeFile)}, candidates...)
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if classifier.Load(p) {
			return &Detector{classifier: classifier, params: params}, nil
		}
	}
	classifier.Close()
	return nil, fmt.Errorf("%w: tried %v", detect.ErrCascadeNotFound, candidates)
}

// Detect converts img to grayscale and runs the cascade over it.
func (d *Detector) Detect(img image.Image) ([]image.Rectangle, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	var minSize, maxSize image.Point
	if d.params.MinSize > 0 {
		minSize = image.Pt(d.params.MinSize, d.params.MinSize)
	}
	if d.params.MaxSize > 0 {
		maxSize = image.Pt(d.params.MaxSize, d.params.MaxSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	faces := d.classifier.DetectMultiScaleWithParams(
		gray,
		d.params.ScaleFactor,
		d.params.MinNeighbors,
		0, // flags
		minSize,
		maxSize,
	)

	// Mat coordinates start at the origin; shift back if the source did not.
	off := img.Bounds().Min
	if off != (image.Point{}) {
		for i := range faces {
			faces[i] = faces[i].Add(off)
		}
	}
	return faces, nil
}

func (d *Detector) Close() error {
	return d.classifier.Close()
}
