package tokenizer

import "math"

const unkPenalty = 10.0

// Encode tokenizes text with the Viterbi algorithm, returning tokens with
// byte offsets into text.
func (t *Tokenizer) Encode(text string) []TokenInfo {
	runes, ends := normalize(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	// best[i] is the best score for runes[:i], parent[i] the start of the
	// last token in that segmentation.
	best := make([]float64, n+1)
	parent := make([]int, n+1)
	known := make([]bool, n+1)
	for i := 1; i <= n; i++ {
		best[i] = math.Inf(-1)
		parent[i] = -1
	}

	for i := 1; i <= n; i++ {
		maxLen := min(t.maxTokenLen, i)
		for length := 1; length <= maxLen; length++ {
			j := i - length
			if math.IsInf(best[j], -1) {
				continue
			}
			score, ok := t.scores[string(runes[j:i])]
			if !ok {
				continue
			}
			if candidate := best[j] + float64(score); candidate > best[i] {
				best[i] = candidate
				parent[i] = j
				known[i] = true
			}
		}

		// No piece ends here: emit the single rune as <unk>.
		if parent[i] < 0 {
			best[i] = best[i-1] + t.unkScore
			parent[i] = i - 1
			known[i] = false
		}
	}

	var tokens []TokenInfo
	for pos := n; pos > 0; pos = parent[pos] {
		start := parent[pos]
		piece := string(runes[start:pos])

		id := UnkID
		if known[pos] {
			id = spIndexToHFID(t.pieces[piece])
		}

		startByte := 0
		if start > 0 {
			startByte = ends[start-1]
		}
		tokens = append(tokens, TokenInfo{
			ID:    id,
			Text:  piece,
			Start: startByte,
			End:   ends[pos-1],
		})
	}

	for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}
	return tokens
}
