package textshard

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/go-textshard/corpus"
	"github.com/jamesainslie/go-textshard/internal/failure"
	"github.com/jamesainslie/go-textshard/segment"
	"github.com/jamesainslie/go-textshard/shard"
)

// Config describes the input corpus and the shard layout of a run.
type Config struct {
	// InputFiles are read in order; each non-blank line is one article.
	InputFiles []string

	// OutputPrefix is prepended to every shard file name. It may contain
	// a directory, which must exist.
	OutputPrefix string

	TrainingShards int
	TestShards     int

	// FractionTestSet is the share of articles reserved for test shards,
	// in (0, 1].
	FractionTestSet float64

	// Extension is the shard file extension (default: ".txt").
	Extension string
}

func (c Config) layout() shard.Layout {
	return shard.Layout{
		Prefix:   c.OutputPrefix,
		Training: c.TrainingShards,
		Test:     c.TestShards,
		Ext:      c.Extension,
	}
}

// Validate checks everything that can be checked without reading input.
func (c Config) Validate() error {
	if len(c.InputFiles) == 0 {
		return failure.Configf("no input files")
	}
	if err := c.layout().Validate(); err != nil {
		return err
	}
	if !(c.FractionTestSet > 0 && c.FractionTestSet <= 1) {
		return failure.Configf("test fraction must be in (0, 1], got %v", c.FractionTestSet)
	}
	return nil
}

// ShardReport describes one written shard.
type ShardReport = shard.Written

// Report is the outcome of a run.
type Report struct {
	RunID string `json:"run_id"`

	// Seed reproduces the run's shuffles when passed to WithSeed. It is
	// nil when the random source was set with WithRand.
	Seed *uint64 `json:"seed,omitempty"`

	Articles int        `json:"articles"`
	Plan     shard.Plan `json:"plan"`

	// Dropped counts articles that fit in no shard after rounding.
	Dropped int `json:"dropped"`

	// Failed lists the articles the segmenter failed on. They were
	// written with no sentences.
	Failed []int `json:"failed,omitempty"`

	Shards    []ShardReport           `json:"shards"`
	Stats     shard.Stats             `json:"stats"`
	Durations map[Stage]time.Duration `json:"durations_ns"`
}

// Sharder turns a corpus into training and test shards.
// A Sharder is not safe for concurrent use.
type Sharder struct {
	cfg    Config
	layout shard.Layout
	seg    segment.Segmenter
	opts   config
	runID  string
	seed   *uint64
	rng    *rand.Rand
	logger *slog.Logger
}

// New validates cfg and returns a Sharder that segments with seg.
func New(cfg Config, seg segment.Segmenter, opts ...Option) (*Sharder, error) {
	c := defaultConfig()
	for _, opt := range opts {
		opt(&c)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if seg == nil {
		return nil, failure.Configf("no segmenter")
	}

	s := &Sharder{
		cfg:    cfg,
		layout: cfg.layout(),
		seg:    seg,
		opts:   c,
		runID:  c.runID,
		seed:   c.seed,
		rng:    c.rng,
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	if s.rng == nil {
		if s.seed == nil {
			seed := rand.Uint64()
			s.seed = &seed
		}
		s.rng = newRand(*s.seed)
	}
	s.logger = c.logger.With("run_id", s.runID)
	return s, nil
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// RunID returns the id that tags the run's log records and report.
func (s *Sharder) RunID() string {
	return s.runID
}

// Run loads, segments, allocates and writes. The shard plan is checked
// right after loading, so a corpus too small for the layout fails before
// segmentation starts and before any file is written.
func (s *Sharder) Run(ctx context.Context) (*Report, error) {
	if s.seed != nil {
		s.rng = newRand(*s.seed)
	}
	rep := &Report{
		RunID:     s.runID,
		Seed:      s.seed,
		Durations: make(map[Stage]time.Duration),
	}

	var store *corpus.Store
	err := s.stage(ctx, rep, StageLoad, func() error {
		var err error
		store, err = s.Load()
		return err
	})
	if err != nil {
		return nil, err
	}
	rep.Articles = store.Len()

	rep.Plan, err = s.Plan(rep.Articles)
	if err != nil {
		s.logger.Error("stage failed", "stage", StageAllocate, "error", err)
		return nil, stageError(StageAllocate, err)
	}

	var result *segment.Result
	err = s.stage(ctx, rep, StageSegment, func() error {
		var err error
		result, err = s.Segment(ctx, store)
		return err
	})
	if err != nil {
		return nil, err
	}
	rep.Failed = result.Failed

	var set *shard.Set
	err = s.stage(ctx, rep, StageAllocate, func() error {
		var err error
		set, err = s.Allocate(rep.Articles, rep.Plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	rep.Dropped = set.Dropped
	s.logger.Debug("articles allocated",
		"assigned", set.Assigned(),
		"dropped", set.Dropped,
		"planned_dropped", rep.Plan.Dropped(rep.Articles, s.layout))
	rep.Stats = shard.Summarize(set, result.Sentences)

	err = s.stage(ctx, rep, StageWrite, func() error {
		var err error
		rep.Shards, err = s.Write(set, result.Sentences)
		if err != nil {
			return err
		}
		if s.opts.manifest != "" {
			return writeManifest(s.opts.manifest, rep)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("run finished",
		"articles", rep.Articles,
		"shards", len(rep.Shards),
		"dropped", rep.Dropped,
		"failed", len(rep.Failed))
	return rep, nil
}

func (s *Sharder) stage(ctx context.Context, rep *Report, stage Stage, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return stageError(stage, err)
	}

	s.logger.Info("stage started", "stage", stage)
	start := time.Now()
	err := fn()
	rep.Durations[stage] = time.Since(start)
	if err != nil {
		s.logger.Error("stage failed", "stage", stage, "error", err)
		return stageError(stage, err)
	}
	s.logger.Info("stage finished", "stage", stage, "duration", rep.Durations[stage])
	return nil
}

// Load reads the configured input files. A corpus with fewer articles than
// shards is a configuration error.
func (s *Sharder) Load() (*corpus.Store, error) {
	store, err := corpus.Load(s.cfg.InputFiles)
	if err != nil {
		return nil, err
	}
	if err := store.Require(s.layout.Count()); err != nil {
		return nil, err
	}
	return store, nil
}

// Plan sizes the shards for total articles.
func (s *Sharder) Plan(total int) (shard.Plan, error) {
	return shard.NewPlan(total, s.layout, s.cfg.FractionTestSet)
}

// Segment splits every article of src into sentences.
func (s *Sharder) Segment(ctx context.Context, src segment.Source) (*segment.Result, error) {
	e := &segment.Engine{
		Workers:       s.opts.workers,
		Rand:          rand.New(rand.NewPCG(s.rng.Uint64(), s.rng.Uint64())),
		IdleTimeout:   s.opts.idleTimeout,
		ProgressEvery: s.opts.progressEvery,
		Progress:      s.opts.progress,
		Logger:        s.logger,
	}
	return e.Run(ctx, src, s.seg)
}

// Allocate shuffles total article ids into the shards of plan.
func (s *Sharder) Allocate(total int, plan shard.Plan) (*shard.Set, error) {
	return shard.Allocate(total, s.layout, plan, s.rng)
}

// Write writes every shard of set.
func (s *Sharder) Write(set *shard.Set, sentences [][]string) ([]ShardReport, error) {
	w := &shard.Writer{Logger: s.logger}
	return w.WriteAll(set, sentences)
}

func writeManifest(path string, rep *Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return failure.IO(path, err)
	}
	return nil
}
