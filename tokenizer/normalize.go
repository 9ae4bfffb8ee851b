package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const sentencePieceSpace = '▁' // U+2581 LOWER ONE EIGHTH BLOCK

// normalize prepares text for tokenization following XLM-RoBERTa conventions:
// a dummy ▁ prefix, whitespace runs collapsed to a single ▁, trailing
// whitespace dropped.
//
// ends[i] is the byte offset in text just past normalized rune i, so token
// spans can be mapped back to the original string. A ▁ covers no original
// bytes and maps to the start of the rune it precedes.
func normalize(text string) (normalized []rune, ends []int) {
	if text == "" {
		return nil, nil
	}

	var builder strings.Builder
	needSpace := true
	for offset, r := range text {
		if unicode.IsSpace(r) {
			if builder.Len() > 0 {
				needSpace = true
			}
			continue
		}
		if needSpace {
			builder.WriteRune(sentencePieceSpace)
			ends = append(ends, offset)
			needSpace = false
		}
		builder.WriteRune(r)
		ends = append(ends, offset+utf8.RuneLen(r))
	}

	return []rune(builder.String()), ends
}
