// Package tokenizer implements the XLM-RoBERTa SentencePiece unigram
// tokenizer used to feed Segment-any-Text models.
package tokenizer

import (
	"fmt"
	"unicode/utf8"
)

// Tokenizer implements XLM-RoBERTa compatible SentencePiece Unigram tokenization.
//
// Token IDs are remapped from SentencePiece indices to the HuggingFace
// XLM-RoBERTa convention:
//   - HF[0] = <s>   (SP[1])
//   - HF[1] = <pad> (not in SentencePiece)
//   - HF[2] = </s>  (SP[2])
//   - HF[3] = <unk> (SP[0])
//   - HF[n+1] = SP[n] for n >= 3
type Tokenizer struct {
	pieces    map[string]int32
	scores    map[string]float32
	idToPiece []string

	unkScore    float64 // min piece score - unkPenalty
	maxTokenLen int     // in runes
}

// TokenInfo represents a token with its position in the original text.
type TokenInfo struct {
	ID    int32
	Text  string
	Start int // byte offset in original text
	End   int // byte offset in original text
}

// HuggingFace XLM-RoBERTa special token IDs.
const (
	BOSID int32 = 0
	PadID int32 = 1
	EOSID int32 = 2
	UnkID int32 = 3
)

// New loads a tokenizer from a SentencePiece .model file.
func New(modelPath string) (*Tokenizer, error) {
	model, err := LoadModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("loading model: %w", err)
	}
	return FromModel(model)
}

// FromModel builds a tokenizer from an already parsed model.
func FromModel(model *Model) (*Tokenizer, error) {
	if model.ModelType != ModelUnigram {
		return nil, fmt.Errorf("unsupported model type %d, want unigram", model.ModelType)
	}

	t := &Tokenizer{
		pieces:    make(map[string]int32, len(model.Pieces)),
		scores:    make(map[string]float32, len(model.Pieces)),
		idToPiece: make([]string, len(model.Pieces)),
	}

	for i, p := range model.Pieces {
		t.idToPiece[i] = p.Piece
		t.pieces[p.Piece] = int32(i)
		// Control, unknown and unused pieces never match input text.
		if p.Type == PieceControl || p.Type == PieceUnknown || p.Type == PieceUnused {
			continue
		}
		t.scores[p.Piece] = p.Score
		if s := float64(p.Score); s < t.unkScore {
			t.unkScore = s
		}
		if n := utf8.RuneCountInString(p.Piece); n > t.maxTokenLen {
			t.maxTokenLen = n
		}
	}

	// Unknown characters score below every known piece.
	t.unkScore -= unkPenalty

	return t, nil
}

// spIndexToHFID converts a SentencePiece index to a HuggingFace XLM-RoBERTa token ID.
func spIndexToHFID(spIndex int32) int32 {
	switch spIndex {
	case 0:
		return UnkID
	case 1:
		return BOSID
	case 2:
		return EOSID
	default:
		return spIndex + 1
	}
}

// Close releases tokenizer resources.
func (t *Tokenizer) Close() error {
	return nil
}

// VocabSize returns the HuggingFace vocabulary size: the SentencePiece
// pieces plus the inserted <pad> and the trailing <mask>.
func (t *Tokenizer) VocabSize() int {
	return len(t.idToPiece) + 2
}
