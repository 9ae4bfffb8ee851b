// Package segment splits articles into sentences.
//
// A Segmenter wraps a sentence boundary detector. The Engine applies one to
// every article of a Source with a fixed pool of workers and collects the
// results into a Set aligned with the article ids.
package segment

import (
	"context"
	"strings"
)

// Segmenter splits text into an ordered list of sentences.
// Implementations must be deterministic and safe for concurrent use.
type Segmenter interface {
	Segment(ctx context.Context, text string) ([]string, error)
}

// Func adapts a function to the Segmenter interface.
type Func func(ctx context.Context, text string) ([]string, error)

// Segment calls f.
func (f Func) Segment(ctx context.Context, text string) ([]string, error) {
	return f(ctx, text)
}

// Source is the article collection being segmented. Ids run from 0 to Len()-1.
type Source interface {
	Len() int
	Article(id int) string
}

// Set holds the sentences of every article, indexed by article id.
type Set [][]string

// Sentences returns the total sentence count over ids.
func (s Set) Sentences(ids []int) int {
	n := 0
	for _, id := range ids {
		n += len(s[id])
	}
	return n
}

// Result is the outcome of segmenting a Source.
type Result struct {
	Sentences Set

	// Failed lists, in ascending order, the articles the segmenter returned
	// an error for. Their entries in Sentences are empty.
	Failed []int
}

// clean trims each sentence and drops the empty ones.
func clean(sentences []string) []string {
	out := sentences[:0]
	for _, s := range sentences {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
