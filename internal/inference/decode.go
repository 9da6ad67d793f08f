package inference

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
)

// DecodeImage reads an encoded image and returns it as opaque RGB, exactly as
// the model sees it. EXIF orientation is ignored: the pixels are classified in
// stored order whether they come from an upload or from a file on disk.
func DecodeImage(r io.Reader) (*image.RGBA, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(false))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return ToRGB(img), nil
}

// OpenImage is DecodeImage for a file path.
func OpenImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeImage(f)
}
