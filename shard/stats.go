package shard

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Count is the article and sentence count of one shard.
type Count struct {
	Name      string `json:"name"`
	Family    string `json:"family"`
	Articles  int    `json:"articles"`
	Sentences int    `json:"sentences"`
}

// FamilyStats summarizes the sentences per shard of one family.
type FamilyStats struct {
	Shards int     `json:"shards"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Stats describes how evenly sentences are spread over the shards.
type Stats struct {
	Counts   []Count     `json:"counts"`
	Training FamilyStats `json:"training"`
	Test     FamilyStats `json:"test"`
}

// Summarize counts the articles and sentences of every shard in set.
// sentences is indexed by article id.
func Summarize(set *Set, sentences [][]string) Stats {
	var s Stats
	s.Training, s.Counts = summarizeFamily(set.Training, sentences, s.Counts)
	s.Test, s.Counts = summarizeFamily(set.Test, sentences, s.Counts)
	return s
}

func summarizeFamily(shards []*Shard, sentences [][]string, counts []Count) (FamilyStats, []Count) {
	x := make([]float64, len(shards))
	for i, sh := range shards {
		n := 0
		for _, id := range sh.Articles {
			n += len(sentences[id])
		}
		x[i] = float64(n)
		counts = append(counts, Count{
			Name:      sh.Name,
			Family:    sh.Family.String(),
			Articles:  len(sh.Articles),
			Sentences: n,
		})
	}

	fs := FamilyStats{Shards: len(x)}
	if len(x) == 0 {
		return fs, counts
	}
	fs.Mean = stat.Mean(x, nil)
	if len(x) > 1 {
		fs.StdDev = stat.StdDev(x, nil)
	}
	fs.Min = floats.Min(x)
	fs.Max = floats.Max(x)
	return fs, counts
}
