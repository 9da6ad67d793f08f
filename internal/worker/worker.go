package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/andresmejia3/facekit/internal/types"
	"github.com/andresmejia3/facekit/internal/utils" // Using the SafeCommand wrapper
)

const (
	statusOK    = 0
	statusError = 1
)

var ErrTimeout = errors.New("python worker timed out")

// ErrBroken is returned by every request after the reply stream lost sync.
var ErrBroken = errors.New("python worker is no longer usable")

// StartupError is returned when the worker dies before its handshake. Cmd
// still holds whatever the interpreter wrote to stderr.
type StartupError struct {
	Cmd *utils.SafeCommand
	Err error
}

func (e *StartupError) Error() string { return e.Err.Error() }
func (e *StartupError) Unwrap() error { return e.Err }

// Config locates the interpreter, the worker script and the model it loads.
type Config struct {
	Python      string
	Script      string
	ModelPath   string
	ReadTimeout time.Duration
}

// PythonWorker owns a long-lived Python process that holds the Keras model.
// Requests go over stdin, replies come back on FD 3 so library chatter on
// stdout can never corrupt the stream. Both are framed as [uint32 BE length][payload].
type PythonWorker struct {
	ID          int
	Cmd         *utils.SafeCommand
	Stdin       io.WriteCloser
	DataPipe    io.ReadCloser
	ReadTimeout time.Duration

	mu sync.Mutex
	// broken records the I/O error that left a reply unread in the pipe.
	// Once set the worker is killed and never read from again.
	broken error
	done   chan struct{}
}

// NewPythonWorker starts the worker and blocks until it reports the model is loaded.
func NewPythonWorker(ctx context.Context, id int, cfg Config) (*PythonWorker, error) {
	py := utils.NewSafeCommand(cfg.Python, "-u", cfg.Script, "--model", cfg.ModelPath)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	pw := &PythonWorker{
		ID:          id,
		Cmd:         py,
		Stdin:       stdin,
		DataPipe:    r,
		ReadTimeout: cfg.ReadTimeout,
		done:        make(chan struct{}),
	}

	go func() {
		select {
		case <-ctx.Done():
			if py.Process != nil {
				py.Process.Kill()
			}
		case <-pw.done:
		}
	}()

	// The first frame is the readiness handshake: an OK with no scores.
	if _, err := pw.readScores(); err != nil {
		pw.Close()
		return nil, &StartupError{Cmd: py, Err: fmt.Errorf("worker %d failed to load model: %w", id, err)}
	}
	return pw, nil
}

// Communicate sends one framed request and returns the framed reply body.
func (w *PythonWorker) Communicate(data []byte) ([]byte, error) {
	// Protocol: [Length][Data]
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, err
	}
	return w.readFrame()
}

func (w *PythonWorker) readFrame() ([]byte, error) {
	if w.ReadTimeout > 0 {
		if d, ok := w.DataPipe.(interface{ SetReadDeadline(time.Time) error }); ok {
			d.SetReadDeadline(time.Now().Add(w.ReadTimeout))
			defer d.SetReadDeadline(time.Time{})
		}
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, wrapReadErr(err)
	}

	respLen := binary.BigEndian.Uint32(header)
	respBody := make([]byte, respLen)
	if _, err := io.ReadFull(w.DataPipe, respBody); err != nil {
		return nil, wrapReadErr(err)
	}
	return respBody, nil
}

func wrapReadErr(err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// EncodeTensor serialises t as [uint32 ndim][uint32 dim...][float32 value...], big-endian.
func EncodeTensor(t types.Tensor) ([]byte, error) {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	if n != len(t.Data) {
		return nil, fmt.Errorf("tensor shape %v wants %d values, have %d", t.Shape, n, len(t.Data))
	}

	buf := bytes.NewBuffer(make([]byte, 0, 4+4*len(t.Shape)+4*len(t.Data)))
	binary.Write(buf, binary.BigEndian, uint32(len(t.Shape)))
	for _, d := range t.Shape {
		binary.Write(buf, binary.BigEndian, uint32(d))
	}
	binary.Write(buf, binary.BigEndian, t.Data)
	return buf.Bytes(), nil
}

// DecodeScores parses a reply body: [status:1] then either
// [uint32 n][float32 score...] on success or [uint32 msglen][msg] on failure.
func DecodeScores(body []byte) ([]float32, error) {
	r := bytes.NewReader(body)
	status, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("empty worker reply: %w", err)
	}

	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("truncated worker reply: %w", err)
	}

	switch status {
	case statusOK:
		if uint64(n)*4 > uint64(r.Len()) {
			return nil, fmt.Errorf("truncated worker reply: want %d scores", n)
		}
		scores := make([]float32, n)
		if err := binary.Read(r, binary.BigEndian, scores); err != nil {
			return nil, err
		}
		for i, s := range scores {
			if math.IsNaN(float64(s)) {
				return nil, fmt.Errorf("worker returned NaN at index %d", i)
			}
		}
		return scores, nil
	case statusError:
		msg := make([]byte, n)
		if _, err := io.ReadFull(r, msg); err != nil {
			return nil, fmt.Errorf("truncated worker error: %w", err)
		}
		return nil, fmt.Errorf("python worker error: %s", msg)
	default:
		return nil, fmt.Errorf("unknown worker status %d", status)
	}
}

func (w *PythonWorker) readScores() ([]float32, error) {
	body, err := w.readFrame()
	if err != nil {
		return nil, err
	}
	return DecodeScores(body)
}

// Predict runs one forward pass over a single-sample batch and returns the raw scores.
func (w *PythonWorker) Predict(t types.Tensor) ([]float32, error) {
	payload, err := EncodeTensor(t)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.broken != nil {
		return nil, fmt.Errorf("%w: %w", ErrBroken, w.broken)
	}
	body, err := w.Communicate(payload)
	if err != nil {
		// A timed out or half-written exchange leaves the stream mid-frame;
		// the next read would return this request's reply to another caller.
		w.broken = err
		w.kill()
		return nil, err
	}
	return DecodeScores(body)
}

func (w *PythonWorker) kill() {
	if w.Cmd != nil && w.Cmd.Process != nil {
		w.Cmd.Process.Kill()
	}
	w.Close()
}

func (w *PythonWorker) Close() {
	if w.done != nil {
		select {
		case <-w.done:
			return
		default:
			close(w.done)
		}
	}
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd != nil {
		w.Cmd.Wait()
	}
}
