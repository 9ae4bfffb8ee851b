package textshard

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jamesainslie/go-textshard/segment"
)

// Option configures a Sharder.
type Option func(*config)

type config struct {
	logger        *slog.Logger
	workers       int
	seed          *uint64
	rng           *rand.Rand
	idleTimeout   time.Duration
	progressEvery int
	progress      func(done, total int)
	manifest      string
	runID         string
}

func defaultConfig() config {
	return config{
		logger:        slog.Default(),
		workers:       segment.DefaultWorkers,
		idleTimeout:   segment.DefaultIdleTimeout,
		progressEvery: segment.DefaultProgressEvery,
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithWorkers sets the number of segmentation workers (default: 16).
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithSerial segments on the calling goroutine.
func WithSerial() Option {
	return func(c *config) {
		c.workers = 1
	}
}

// WithSeed makes the run reproducible. The seed is recorded in the report.
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.seed = &seed
		c.rng = nil
	}
}

// WithRand sets the random source directly. Reports from such runs carry
// no seed.
func WithRand(r *rand.Rand) Option {
	return func(c *config) {
		if r != nil {
			c.rng = r
			c.seed = nil
		}
	}
}

// WithIdleTimeout sets how long segmentation may go without any worker
// reporting before the run fails (default: 5m).
func WithIdleTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

// WithProgress calls fn every articles segmented, and once at the end.
// fn runs on the goroutine that called Run.
func WithProgress(every int, fn func(done, total int)) Option {
	return func(c *config) {
		if every > 0 {
			c.progressEvery = every
		}
		c.progress = fn
	}
}

// WithManifest writes the run report as JSON to path after the shards.
func WithManifest(path string) Option {
	return func(c *config) {
		c.manifest = path
	}
}

// WithRunID sets the run id (default: a random UUID).
func WithRunID(id string) Option {
	return func(c *config) {
		if id != "" {
			c.runID = id
		}
	}
}
