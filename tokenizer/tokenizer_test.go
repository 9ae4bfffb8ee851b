package tokenizer

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

var testPieces = []Piece{
	{"<unk>", 0, PieceUnknown},
	{"<s>", 0, PieceControl},
	{"</s>", 0, PieceControl},
	{"▁Hello", -1, PieceNormal},
	{"▁world", -1, PieceNormal},
	{".", -2, PieceNormal},
	{"▁", -3, PieceNormal},
	{"H", -5, PieceNormal},
	{"e", -5, PieceNormal},
	{"l", -5, PieceNormal},
	{"o", -5, PieceNormal},
}

// encodeModel serializes pieces as a sentencepiece.ModelProto.
func encodeModel(pieces []Piece, modelType ModelType) []byte {
	var b []byte
	for _, p := range pieces {
		var pb []byte
		pb = protowire.AppendTag(pb, fieldPiece, protowire.BytesType)
		pb = protowire.AppendString(pb, p.Piece)
		pb = protowire.AppendTag(pb, fieldPieceScore, protowire.Fixed32Type)
		pb = protowire.AppendFixed32(pb, math.Float32bits(p.Score))
		pb = protowire.AppendTag(pb, fieldPieceType, protowire.VarintType)
		pb = protowire.AppendVarint(pb, uint64(p.Type))

		b = protowire.AppendTag(b, fieldPieces, protowire.BytesType)
		b = protowire.AppendBytes(b, pb)
	}

	var spec []byte
	spec = protowire.AppendTag(spec, 1, protowire.BytesType) // input, skipped
	spec = protowire.AppendString(spec, "corpus.txt")
	spec = protowire.AppendTag(spec, fieldModelType, protowire.VarintType)
	spec = protowire.AppendVarint(spec, uint64(modelType))
	b = protowire.AppendTag(b, fieldTrainerSpec, protowire.BytesType)
	b = protowire.AppendBytes(b, spec)

	// normalizer_spec, skipped
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte{})
	return b
}

func newTestTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	m, err := ParseModel(encodeModel(testPieces, ModelUnigram))
	require.NoError(t, err)
	tok, err := FromModel(m)
	require.NoError(t, err)
	return tok
}

func TestParseModel(t *testing.T) {
	m, err := ParseModel(encodeModel(testPieces, ModelUnigram))
	require.NoError(t, err)

	assert.Equal(t, ModelUnigram, m.ModelType)
	assert.Equal(t, testPieces, m.Pieces)
}

func TestParseModel_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated tag", []byte{0xff}},
		{"truncated piece", append(protowire.AppendTag(nil, fieldPieces, protowire.BytesType), 10, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModel(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestLoadModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.model")
	require.NoError(t, os.WriteFile(path, encodeModel(testPieces, ModelUnigram), 0o644))

	tok, err := New(path)
	require.NoError(t, err)
	defer func() { assert.NoError(t, tok.Close()) }()

	assert.Equal(t, len(testPieces)+2, tok.VocabSize())

	_, err = New(filepath.Join(t.TempDir(), "missing.model"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFromModel_RejectsBPE(t *testing.T) {
	m, err := ParseModel(encodeModel(testPieces, ModelBPE))
	require.NoError(t, err)

	_, err = FromModel(m)
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	tok := newTestTokenizer(t)

	got := tok.Encode("Hello world.")
	want := []TokenInfo{
		{ID: 4, Text: "▁Hello", Start: 0, End: 5},
		{ID: 5, Text: "▁world", Start: 5, End: 11},
		{ID: 6, Text: ".", Start: 11, End: 12},
	}
	assert.Equal(t, want, got)
}

func TestEncode_Unknown(t *testing.T) {
	tok := newTestTokenizer(t)

	got := tok.Encode("Hello €")
	require.Len(t, got, 3)
	assert.Equal(t, "▁", got[1].Text)
	assert.Equal(t, TokenInfo{ID: UnkID, Text: "€", Start: 6, End: 9}, got[2])
}

func TestEncode_Empty(t *testing.T) {
	tok := newTestTokenizer(t)

	assert.Nil(t, tok.Encode(""))
	assert.Nil(t, tok.Encode("   \n\t"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ends     []int
	}{
		{"simple word", "Hi", "▁Hi", []int{0, 1, 2}},
		{"two words", "a b", "▁a▁b", []int{0, 1, 2, 3}},
		{"extra spaces", "  ab  ", "▁ab", []int{2, 3, 4}},
		{"multibyte", "é", "▁é", []int{0, 2}},
		{"empty string", "", "", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runes, ends := normalize(tc.input)
			assert.Equal(t, tc.expected, string(runes))
			assert.Equal(t, tc.ends, ends)
		})
	}
}
