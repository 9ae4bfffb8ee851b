package segment

import (
	"context"
	"regexp"
	"strings"
)

// DefaultAbbreviations are words whose trailing period never ends a sentence.
var DefaultAbbreviations = []string{
	"Mr", "Mrs", "Ms", "Dr", "Prof", "Sr", "Jr", "St", "vs", "etc",
	"i.e", "e.g", "U.S", "U.K", "Inc", "Ltd", "Fig", "approx",
}

// Rules splits text at sentence-ending punctuation followed by whitespace,
// skipping known abbreviations. It needs no model.
type Rules struct {
	abbreviation *regexp.Regexp
}

// NewRules returns a rule-based segmenter. abbreviations replaces
// DefaultAbbreviations when non-empty.
func NewRules(abbreviations ...string) *Rules {
	if len(abbreviations) == 0 {
		abbreviations = DefaultAbbreviations
	}
	quoted := make([]string, len(abbreviations))
	for i, a := range abbreviations {
		quoted[i] = regexp.QuoteMeta(a)
	}
	return &Rules{
		abbreviation: regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\.$`),
	}
}

// Segment splits text into sentences. It never fails.
func (r *Rules) Segment(_ context.Context, text string) ([]string, error) {
	return r.split(text), nil
}

func (r *Rules) split(text string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch != '.' && ch != '?' && ch != '!' {
			continue
		}

		// Absorb runs like "?!" or "..." and closing quotes or brackets.
		end := i + 1
		for end < len(text) && strings.IndexByte(`.?!"')]`, text[end]) >= 0 {
			end++
		}
		if end < len(text) && !isSpaceByte(text[end]) {
			i = end - 1
			continue
		}
		if ch == '.' && end == i+1 && r.abbreviation.MatchString(text[start:end]) {
			continue
		}

		sentences = append(sentences, text[start:end])
		start = end
		i = end - 1
	}

	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return clean(sentences)
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
