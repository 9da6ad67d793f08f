package opencv

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/andresmejia3/facekit/internal/types"
	"gocv.io/x/gocv"
)

// Net runs an exported model (ONNX, TensorFlow pb, ...) through OpenCV's dnn module.
type Net struct {
	mu  sync.Mutex
	net gocv.Net
}

func Load(modelPath string) (*Net, error) {
	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("error reading network model: %s", modelPath)
	}
	return &Net{net: net}, nil
}

// Predict feeds t as a CV_32F blob and returns the flattened output.
func (n *Net) Predict(t types.Tensor) ([]float32, error) {
	// OpenCV reads host byte order; every supported target is little-endian.
	raw := make([]byte, 4*len(t.Data))
	for i, v := range t.Data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	blob, err := gocv.NewMatWithSizesFromBytes(t.Shape, gocv.MatTypeCV32F, raw)
	if err != nil {
		return nil, fmt.Errorf("build input blob: %w", err)
	}
	defer blob.Close()

	// cv::dnn::Net keeps per-forward state, one caller at a time.
	n.mu.Lock()
	defer n.mu.Unlock()
	n.net.SetInput(blob, "")
	out := n.net.Forward("")
	defer out.Close()

	scores, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	return append([]float32(nil), scores...), nil
}

func (n *Net) Close() error {
	return n.net.Close()
}
