package segment

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"github.com/jamesainslie/go-textshard/internal/pool"
)

// Punkt segments text with the unsupervised Punkt algorithm.
// Tokenizers are pooled so concurrent callers never share one.
type Punkt struct {
	tokenizers *pool.Pool[*sentences.DefaultSentenceTokenizer]
}

// NewPunkt returns a Punkt segmenter using the built-in English model.
// size bounds the number of tokenizers; size <= 0 uses runtime.NumCPU().
func NewPunkt(size int) (*Punkt, error) {
	return newPunkt(size, func() (*sentences.DefaultSentenceTokenizer, error) {
		return english.NewSentenceTokenizer(nil)
	})
}

// NewPunktFromFile returns a Punkt segmenter using training data in the
// JSON format produced by the Punkt trainer.
func NewPunktFromFile(path string, size int) (*Punkt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading punkt training data: %w", err)
	}
	storage, err := sentences.LoadTraining(data)
	if err != nil {
		return nil, fmt.Errorf("loading punkt training data %s: %w", path, err)
	}

	return newPunkt(size, func() (*sentences.DefaultSentenceTokenizer, error) {
		return sentences.NewSentenceTokenizer(storage), nil
	})
}

func newPunkt(size int, create func() (*sentences.DefaultSentenceTokenizer, error)) (*Punkt, error) {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p, err := pool.New(size, create, nil)
	if err != nil {
		return nil, fmt.Errorf("creating punkt tokenizers: %w", err)
	}
	return &Punkt{tokenizers: p}, nil
}

// Segment splits text into sentences.
func (p *Punkt) Segment(ctx context.Context, text string) ([]string, error) {
	var out []string
	err := p.tokenizers.Do(ctx, func(tok *sentences.DefaultSentenceTokenizer) error {
		for _, s := range tok.Tokenize(text) {
			out = append(out, s.Text)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clean(out), nil
}

// Close releases the tokenizer pool.
func (p *Punkt) Close() error {
	return p.tokenizers.Close()
}
