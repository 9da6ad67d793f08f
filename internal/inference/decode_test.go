package inference

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// rotatedJPEG encodes a w x h image with an EXIF orientation of 6
// ("rotate 90° clockwise to display").
func rotatedJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h, color.RGBA{200, 10, 10, 255}), nil); err != nil {
		t.Fatal(err)
	}

	exif := []byte("Exif\x00\x00" +
		"MM\x00\x2a\x00\x00\x00\x08" + // big-endian TIFF header, IFD at offset 8
		"\x00\x01" + // one entry
		"\x01\x12\x00\x03\x00\x00\x00\x01\x00\x06\x00\x00" + // Orientation, SHORT, 1, value 6
		"\x00\x00\x00\x00") // no next IFD
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(exif)+2))
	seg = append(seg, exif...)

	raw := buf.Bytes()
	out := append([]byte{}, raw[:2]...) // SOI
	out = append(out, seg...)
	return append(out, raw[2:]...)
}

func TestDecodeImageIgnoresOrientation(t *testing.T) {
	data := rotatedJPEG(t, 40, 20)

	// Sanity check: the tag is real and would rotate the picture if honoured.
	rotated, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		t.Fatal(err)
	}
	if b := rotated.Bounds(); b.Dx() != 20 || b.Dy() != 40 {
		t.Fatalf("fixture orientation tag not recognised, got %v", b)
	}

	img, err := DecodeImage(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if b := img.Bounds(); b != image.Rect(0, 0, 40, 20) {
		t.Errorf("expected stored 40x20 geometry, got %v", b)
	}
	if a := img.RGBAAt(5, 5).A; a != 255 {
		t.Errorf("expected opaque output, alpha=%d", a)
	}

	path := filepath.Join(t.TempDir(), "rotated.jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	fromFile, err := OpenImage(path)
	if err != nil {
		t.Fatalf("OpenImage failed: %v", err)
	}
	if !bytes.Equal(fromFile.Pix, img.Pix) {
		t.Error("file and stream decoding disagree")
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	if _, err := DecodeImage(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected an error")
	}
	if _, err := OpenImage(filepath.Join(t.TempDir(), "missing.png")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist, got %v", err)
	}
}
