package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/andresmejia3/facekit/internal/detect"
	"github.com/andresmejia3/facekit/internal/types"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// boxesByWidth returns n boxes for an image that is n*10 pixels wide, so each
// fixture controls its own detection count.
func boxesByWidth() detect.Detector {
	return detect.Func(func(img image.Image) ([]image.Rectangle, error) {
		n := img.Bounds().Dx() / 10
		var out []image.Rectangle
		for i := 0; i < n; i++ {
			out = append(out, image.Rect(i*10, 0, i*10+8, 8))
		}
		return out, nil
	})
}

func TestRunSharedCounterAndNaming(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "original", "John_Smith")
	out := filepath.Join(root, "cropped", "John_Smith")
	if err := os.MkdirAll(in, 0755); err != nil {
		t.Fatal(err)
	}

	writePNG(t, filepath.Join(in, "000001.png"), 20, 10) // 2 faces
	writePNG(t, filepath.Join(in, "000002.png"), 5, 10)  // 0 faces
	writePNG(t, filepath.Join(in, "000003.png"), 30, 10) // 3 faces
	os.WriteFile(filepath.Join(in, "000004.jpg"), []byte("not an image"), 0644)
	os.Mkdir(filepath.Join(in, "nested"), 0755)

	var log bytes.Buffer
	var seen []types.CropResult
	ticks := 0
	e := &Extractor{
		Detector: boxesByWidth(),
		Out:      &log,
		OnImage:  func() { ticks++ },
		OnCrop: func(c types.CropResult) error {
			seen = append(seen, c)
			return nil
		},
	}

	sum, err := e.Run(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sum.Files != 5 || sum.Decoded != 3 || sum.Unreadable != 2 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	if ticks != 5 {
		t.Errorf("expected one tick per entry, got %d", ticks)
	}
	if len(sum.Crops) != 5 || len(seen) != 5 {
		t.Fatalf("expected 5 crops, got %d (callback saw %d)", len(sum.Crops), len(seen))
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for i, name := range names {
		if want := fmt.Sprintf("%03d.jpg", i+1); name != want {
			t.Errorf("file %d: expected %s, got %s", i, want, name)
		}
	}

	// The third image's crops continue where the first left off.
	if !strings.HasSuffix(sum.Crops[2].Path, "003.jpg") || !strings.HasSuffix(sum.Crops[2].Source, "000003.png") {
		t.Errorf("unexpected third crop: %+v", sum.Crops[2])
	}

	if !strings.Contains(log.String(), "Found 5 files in "+in) {
		t.Errorf("missing file count line:\n%s", log.String())
	}
	if !strings.Contains(log.String(), "Could not read image: "+filepath.Join(in, "000004.jpg")) {
		t.Errorf("missing warning for undecodable file:\n%s", log.String())
	}
}

func TestRunMissingInputWritesNothing(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "cropped", "Nobody")

	e := &Extractor{Detector: boxesByWidth()}
	_, err := e.Run(context.Background(), filepath.Join(root, "original", "Nobody"), out)
	if !errors.Is(err, ErrInputMissing) {
		t.Fatalf("expected ErrInputMissing, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "cropped")); !os.IsNotExist(err) {
		t.Errorf("output root should not exist, stat err = %v", err)
	}
}

func TestRunRerunOverwritesFromOne(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	os.MkdirAll(in, 0755)
	writePNG(t, filepath.Join(in, "a.png"), 10, 10)

	e := &Extractor{Detector: boxesByWidth()}
	for i := 0; i < 2; i++ {
		sum, err := e.Run(context.Background(), in, out)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if len(sum.Crops) != 1 || filepath.Base(sum.Crops[0].Path) != "001.jpg" {
			t.Errorf("run %d: unexpected crops %+v", i, sum.Crops)
		}
	}

	entries, _ := os.ReadDir(out)
	if len(entries) != 1 {
		t.Errorf("expected a single overwritten crop, found %d files", len(entries))
	}
}

func TestRunDetectorError(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(root+"/in", 0755)
	writePNG(t, filepath.Join(root, "in", "a.png"), 10, 10)

	boom := errors.New("cascade exploded")
	e := &Extractor{Detector: detect.Func(func(image.Image) ([]image.Rectangle, error) {
		return nil, boom
	})}
	if _, err := e.Run(context.Background(), root+"/in", root+"/out"); !errors.Is(err, boom) {
		t.Errorf("expected detector error to propagate, got %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(root+"/in", 0755)
	writePNG(t, filepath.Join(root, "in", "a.png"), 10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := &Extractor{Detector: boxesByWidth()}
	if _, err := e.Run(ctx, root+"/in", root+"/out"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
