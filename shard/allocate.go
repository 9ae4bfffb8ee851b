package shard

import (
	"math/rand/v2"

	"github.com/jamesainslie/go-textshard/internal/failure"
)

// Plan fixes how many articles go into each shard.
type Plan struct {
	PerTest     int `json:"per_test_shard"`
	TotalTest   int `json:"total_test"`
	PerTraining int `json:"per_training_shard"`
}

// NewPlan sizes the shards of l for total articles, reserving fraction of
// them for the test family:
//
//	PerTest     = floor(fraction*total) / l.Test
//	TotalTest   = PerTest * l.Test
//	PerTraining = (total - TotalTest) / l.Training
//
// Integer division leaves up to l.Count() articles unassigned; see Dropped.
func NewPlan(total int, l Layout, fraction float64) (Plan, error) {
	if err := l.Validate(); err != nil {
		return Plan{}, err
	}
	if !(fraction > 0 && fraction <= 1) {
		return Plan{}, failure.Configf("test fraction must be in (0, 1], got %v", fraction)
	}
	if total < l.Count() {
		return Plan{}, failure.Configf("%d articles for %d shards; add data or request fewer shards", total, l.Count())
	}

	p := Plan{PerTest: int(fraction*float64(total)) / l.Test}
	if p.PerTest == 0 {
		return Plan{}, failure.Configf("test fraction %v of %d articles leaves %d test shards empty", fraction, total, l.Test)
	}
	p.TotalTest = p.PerTest * l.Test
	p.PerTraining = (total - p.TotalTest) / l.Training

	if p.PerTraining == 0 && total > p.TotalTest {
		return Plan{}, failure.Configf("%d articles left for %d training shards", total-p.TotalTest, l.Training)
	}
	return p, nil
}

// Dropped returns how many of total articles the plan leaves unassigned.
func (p Plan) Dropped(total int, l Layout) int {
	return total - p.PerTraining*l.Training - p.PerTest*l.Test
}

// Allocate assigns the articles 0..n-1 to the shards of l following plan.
//
// The ids are shuffled once with rng, the only source of randomness. The
// first plan.TotalTest shuffled ids fill the test shards in order, PerTest
// each; the rest fill the training shards, PerTraining each. Ids past the
// last shard are dropped and counted in Set.Dropped.
func Allocate(n int, l Layout, plan Plan, rng *rand.Rand) (*Set, error) {
	if plan.PerTest <= 0 {
		return nil, failure.Configf("plan has %d articles per test shard", plan.PerTest)
	}
	if plan.PerTraining <= 0 && n > plan.TotalTest {
		return nil, failure.Configf("plan has %d articles per training shard", plan.PerTraining)
	}
	set, err := NewSet(l)
	if err != nil {
		return nil, err
	}

	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	rng.Shuffle(n, func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	for i, id := range ids {
		var target []*Shard
		var index int
		if i < plan.TotalTest {
			target, index = set.Test, i/plan.PerTest
		} else {
			target, index = set.Training, (i-plan.TotalTest)/plan.PerTraining
		}

		if index >= len(target) {
			set.Dropped++
			continue
		}
		target[index].Articles = append(target[index].Articles, id)
	}
	return set, nil
}
