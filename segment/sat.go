package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime"

	"github.com/jamesainslie/go-textshard/internal/onnx"
	"github.com/jamesainslie/go-textshard/internal/pool"
	"github.com/jamesainslie/go-textshard/tokenizer"
)

const (
	// maxSeqLen is the longest token window fed to the model. SaT models
	// accept positions 0-513; 512 leaves a margin.
	maxSeqLen = 512

	// chunkOverlap is the number of tokens shared by consecutive windows so
	// boundaries near a window edge see context on both sides.
	chunkOverlap = 64
)

// Errors returned by NewSaT.
var (
	ErrModelNotFound   = errors.New("segment: model file not found")
	ErrInvalidModel    = errors.New("segment: invalid model format")
	ErrTokenizerFailed = errors.New("segment: tokenizer initialization failed")
)

// SaTOption configures a SaT segmenter.
type SaTOption func(*satConfig)

type satConfig struct {
	threshold   float32
	sessions    int
	libraryPath string
	names       onnx.Names
	logger      *slog.Logger
}

// WithThreshold sets the boundary probability threshold (default: 0.025).
func WithThreshold(t float32) SaTOption {
	return func(c *satConfig) {
		c.threshold = t
	}
}

// WithSessions sets the ONNX session pool size (default: runtime.NumCPU()).
func WithSessions(n int) SaTOption {
	return func(c *satConfig) {
		if n > 0 {
			c.sessions = n
		}
	}
}

// WithRuntimeLibrary sets the path of the onnxruntime shared library.
func WithRuntimeLibrary(path string) SaTOption {
	return func(c *satConfig) {
		c.libraryPath = path
	}
}

// WithSaTLogger sets the logger (default: slog.Default()).
func WithSaTLogger(l *slog.Logger) SaTOption {
	return func(c *satConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// SaT detects sentence boundaries with a Segment-any-Text ONNX model.
// It is safe for concurrent use.
type SaT struct {
	tokenizer *tokenizer.Tokenizer
	sessions  *pool.Pool[*onnx.Session]
	threshold float32
	logger    *slog.Logger
}

// NewSaT loads the ONNX model and the SentencePiece tokenizer model.
func NewSaT(modelPath, tokenizerPath string, opts ...SaTOption) (*SaT, error) {
	cfg := satConfig{
		threshold: 0.025,
		sessions:  runtime.NumCPU(),
		names:     onnx.DefaultNames,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
		}
		return nil, fmt.Errorf("checking model file: %w", err)
	}

	tok, err := tokenizer.New(tokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenizerFailed, err)
	}

	if err := onnx.Init(cfg.libraryPath); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	sessions, err := pool.New(cfg.sessions,
		func() (*onnx.Session, error) { return onnx.NewSession(modelPath, cfg.names) },
		(*onnx.Session).Close,
	)
	if err != nil {
		_ = tok.Close()
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	cfg.logger.Debug("sat segmenter ready", "model", modelPath, "vocab", tok.VocabSize(), "sessions", sessions.Size(), "threshold", cfg.threshold)

	return &SaT{
		tokenizer: tok,
		sessions:  sessions,
		threshold: cfg.threshold,
		logger:    cfg.logger,
	}, nil
}

// Segment splits text into sentences.
func (s *SaT) Segment(ctx context.Context, text string) ([]string, error) {
	tokens := s.tokenizer.Encode(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	var logits []float32
	err := s.sessions.Do(ctx, func(session *onnx.Session) error {
		var err error
		logits, err = windowedLogits(ctx, session, tokens)
		return err
	})
	if err != nil {
		return nil, err
	}

	var boundaries []int
	for i, logit := range logits {
		if sigmoid(logit) > s.threshold {
			boundaries = append(boundaries, tokens[i].End)
		}
	}
	return clean(splitAt(text, boundaries)), nil
}

// Close releases all resources.
func (s *SaT) Close() error {
	return errors.Join(s.sessions.Close(), s.tokenizer.Close())
}

// splitAt cuts text at the given ascending byte offsets.
func splitAt(text string, boundaries []int) []string {
	var parts []string
	start := 0
	for _, end := range boundaries {
		if end > start && end <= len(text) {
			parts = append(parts, text[start:end])
			start = end
		}
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

// windowedLogits runs the model over overlapping windows of at most
// maxSeqLen tokens and averages logits where windows overlap.
func windowedLogits(ctx context.Context, session *onnx.Session, tokens []tokenizer.TokenInfo) ([]float32, error) {
	if len(tokens) <= maxSeqLen {
		return infer(ctx, session, tokens)
	}

	logits := make([]float32, len(tokens))
	counts := make([]int, len(tokens))

	for start := 0; start < len(tokens); start += maxSeqLen - chunkOverlap {
		end := min(start+maxSeqLen, len(tokens))

		chunk, err := infer(ctx, session, tokens[start:end])
		if err != nil {
			return nil, err
		}
		for i, logit := range chunk {
			logits[start+i] += logit
			counts[start+i]++
		}

		if end == len(tokens) {
			break
		}
	}

	for i := range logits {
		if counts[i] > 1 {
			logits[i] /= float32(counts[i])
		}
	}
	return logits, nil
}

func infer(ctx context.Context, session *onnx.Session, tokens []tokenizer.TokenInfo) ([]float32, error) {
	ids := make([]int64, len(tokens))
	mask := make([]int64, len(tokens))
	for i, t := range tokens {
		ids[i] = int64(t.ID)
		mask[i] = 1
	}
	return session.Infer(ctx, ids, mask)
}

func sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(float64(-x))))
}
