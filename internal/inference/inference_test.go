package inference

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/andresmejia3/facekit/internal/model"
	"github.com/andresmejia3/facekit/internal/types"
)

type fakeBackend struct {
	scores []float32
	err    error
	got    types.Tensor
	closed bool
}

func (f *fakeBackend) Predict(t types.Tensor) ([]float32, error) {
	f.got = t
	return f.scores, f.err
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

var std = Input{Size: 112, Layout: NHWC, Scale: 1.0 / 255.0}

func TestPreprocessShapeAndRange(t *testing.T) {
	tensor, err := Preprocess(solid(300, 200, color.NRGBA{255, 0, 51, 255}), std)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	want := []int{1, 112, 112, 3}
	for i := range want {
		if tensor.Shape[i] != want[i] {
			t.Fatalf("shape = %v, want %v", tensor.Shape, want)
		}
	}
	if len(tensor.Data) != 112*112*3 {
		t.Fatalf("expected %d values, got %d", 112*112*3, len(tensor.Data))
	}
	for i, v := range tensor.Data {
		if v < 0 || v > 1 {
			t.Fatalf("value %d out of range: %f", i, v)
		}
	}
	// NHWC: first pixel is R, G, B.
	if tensor.Data[0] != 1 || tensor.Data[1] != 0 || tensor.Data[2] != 0.2 {
		t.Errorf("unexpected first pixel %v", tensor.Data[:3])
	}
}

func TestPreprocessNCHW(t *testing.T) {
	in := Input{Size: 4, Layout: NCHW, Scale: 1.0 / 255.0}
	tensor, err := Preprocess(solid(8, 8, color.NRGBA{0, 255, 0, 255}), in)
	if err != nil {
		t.Fatal(err)
	}
	if tensor.Shape[1] != 3 {
		t.Fatalf("expected channels first, got %v", tensor.Shape)
	}
	// Green plane is the second block of 16 values.
	for i := 0; i < 16; i++ {
		if tensor.Data[i] != 0 || tensor.Data[16+i] != 1 || tensor.Data[32+i] != 0 {
			t.Fatalf("unexpected planar layout at %d", i)
		}
	}
}

func TestPreprocessDropsAlpha(t *testing.T) {
	tensor, err := Preprocess(solid(10, 10, color.NRGBA{255, 255, 255, 0}), Input{Size: 2, Layout: NHWC, Scale: 1.0 / 255.0})
	if err != nil {
		t.Fatal(err)
	}
	// Fully transparent white keeps its colour once alpha is dropped.
	if tensor.Data[0] != 1 {
		t.Errorf("expected 1.0, got %f", tensor.Data[0])
	}
}

func TestPreprocessRejectsBadInput(t *testing.T) {
	if _, err := Preprocess(image.NewNRGBA(image.Rect(0, 0, 0, 0)), std); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for empty image, got %v", err)
	}
	if _, err := Preprocess(solid(2, 2, color.White), Input{Size: 0}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for zero size, got %v", err)
	}
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		scores []float32
		want   int
	}{
		{nil, -1},
		{[]float32{0.2, 0.9}, 1},
		{[]float32{0.5, 0.5, 0.1}, 0},
		{[]float32{-3, -1, -2}, 1},
	}
	for _, tt := range tests {
		if got := Argmax(tt.scores); got != tt.want {
			t.Errorf("Argmax(%v) = %d, want %d", tt.scores, got, tt.want)
		}
	}
}

func TestPredictorLabels(t *testing.T) {
	classes := model.NewClassIndex(map[string]int{"alice": 0, "bob": 1})

	tests := []struct {
		name   string
		scores []float32
		want   string
	}{
		{"maps argmax to name", []float32{0.2, 0.9}, "bob"},
		{"unmapped index is unknown", []float32{0.1, 0.2, 0.9}, model.UnknownLabel},
		{"no scores is unknown", nil, model.UnknownLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{scores: tt.scores}
			p := NewPredictor(backend, classes, std)
			pred, err := p.Predict(solid(50, 50, color.Gray{128}))
			if err != nil {
				t.Fatalf("Predict failed: %v", err)
			}
			if pred.Label != tt.want {
				t.Errorf("got %q, want %q", pred.Label, tt.want)
			}
			if len(backend.got.Data) != 112*112*3 {
				t.Errorf("backend got %d values", len(backend.got.Data))
			}
		})
	}
}

func TestPredictorBackendError(t *testing.T) {
	boom := errors.New("worker died")
	p := NewPredictor(&fakeBackend{err: boom}, model.NewClassIndex(nil), std)
	if _, err := p.Predict(solid(5, 5, color.White)); !errors.Is(err, boom) {
		t.Errorf("expected backend error, got %v", err)
	}
}

func TestPredictorClose(t *testing.T) {
	b := &fakeBackend{}
	NewPredictor(b, nil, std).Close()
	if !b.closed {
		t.Error("backend was not closed")
	}
}

func TestBackendFor(t *testing.T) {
	tests := []struct {
		path, override, want string
	}{
		{"mobilefacenet_trained.h5", "", "python"},
		{"model.KERAS", "", "python"},
		{"model.onnx", "", "opencv"},
		{"frozen.pb", "", "opencv"},
		{"model.h5", "opencv", "opencv"},
	}
	for _, tt := range tests {
		if got := BackendFor(tt.path, tt.override); got != tt.want {
			t.Errorf("BackendFor(%q, %q) = %q, want %q", tt.path, tt.override, got, tt.want)
		}
	}
}

func TestParseLayout(t *testing.T) {
	if l, err := ParseLayout(""); err != nil || l != NHWC {
		t.Errorf("empty layout should default to NHWC, got %q %v", l, err)
	}
	if _, err := ParseLayout("hwcn"); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}
