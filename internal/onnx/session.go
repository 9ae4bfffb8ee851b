// Package onnx wraps ONNX Runtime for token classification models such as
// Segment-any-Text.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	envOnce sync.Once
	envErr  error
)

// Init initializes the ONNX Runtime environment once per process.
// libraryPath overrides the shared library location when non-empty; it only
// takes effect on the first call.
func Init(libraryPath string) error {
	envOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// Names lists the graph inputs and output a Session binds to.
type Names struct {
	InputIDs      string
	AttentionMask string
	Logits        string
}

// DefaultNames matches the exported SaT models.
var DefaultNames = Names{
	InputIDs:      "input_ids",
	AttentionMask: "attention_mask",
	Logits:        "logits",
}

// Session runs one model instance. Calls to Infer are serialized.
type Session struct {
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
	closed  bool
}

// NewSession loads the model at modelPath.
func NewSession(modelPath string, names Names) (*Session, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	if err := Init(""); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }()

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{names.InputIDs, names.AttentionMask},
		[]string{names.Logits},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{session: session}, nil
}

// Infer returns one logit per input token.
func (s *Session) Infer(ctx context.Context, inputIDs, attentionMask []int64) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inputIDs) != len(attentionMask) {
		return nil, fmt.Errorf("input_ids has %d entries, attention_mask %d", len(inputIDs), len(attentionMask))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("session is closed")
	}

	seqLen := int64(len(inputIDs))
	shape := ort.NewShape(1, seqLen)

	ids, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("creating input_ids tensor: %w", err)
	}
	defer func() { _ = ids.Destroy() }()

	mask, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("creating attention_mask tensor: %w", err)
	}
	defer func() { _ = mask.Destroy() }()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{ids, mask}, outputs); err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}
	if outputs[0] == nil {
		return nil, errors.New("no output produced")
	}
	defer func() { _ = outputs[0].Destroy() }()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("unexpected output tensor type")
	}

	data := tensor.GetData()
	if int64(len(data)) < seqLen {
		return nil, fmt.Errorf("output has %d values for %d tokens", len(data), seqLen)
	}
	logits := make([]float32, seqLen)
	copy(logits, data[:seqLen])
	return logits, nil
}

// Close releases ONNX resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
