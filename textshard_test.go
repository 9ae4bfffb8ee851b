package textshard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/go-textshard/segment"
	"github.com/jamesainslie/go-textshard/shard"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeCorpus writes n two-sentence articles, separated by blank lines,
// and returns the file path.
func writeCorpus(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "Article %d opens here. Article %d closes here.\n\n", i, i)
	}
	path := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(input, prefix string) Config {
	return Config{
		InputFiles:      []string{input},
		OutputPrefix:    prefix,
		TrainingShards:  2,
		TestShards:      1,
		FractionTestSet: 0.2,
	}
}

// readArticles returns the first sentence of every article in the shards.
func readArticles(t *testing.T, reports []ShardReport) []string {
	t.Helper()
	var firsts []string
	for _, r := range reports {
		f, err := os.Open(r.Path)
		require.NoError(t, err)
		articles, err := shard.ReadShard(f)
		_ = f.Close()
		require.NoError(t, err)
		for _, a := range articles {
			firsts = append(firsts, a[0])
		}
	}
	return firsts
}

func requireStage(t *testing.T, err error, stage Stage) {
	t.Helper()
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, stage, se.Stage)
}

func TestConfig_Validate(t *testing.T) {
	valid := testConfig("in.txt", "out_")
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no inputs", func(c *Config) { c.InputFiles = nil }},
		{"no training shards", func(c *Config) { c.TrainingShards = 0 }},
		{"negative test shards", func(c *Config) { c.TestShards = -2 }},
		{"zero fraction", func(c *Config) { c.FractionTestSet = 0 }},
		{"fraction above one", func(c *Config) { c.FractionTestSet = 1.01 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := New(cfg, segment.NewRules())
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}

	_, err := New(valid, nil)
	assert.ErrorIs(t, err, ErrConfiguration, "nil segmenter")
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir, 10)
	manifest := filepath.Join(dir, "manifest.json")

	s, err := New(testConfig(input, filepath.Join(dir, "wiki_")), segment.NewRules(),
		WithSeed(7), WithWorkers(3), WithManifest(manifest), WithLogger(discardLogger()), WithRunID("run-1"))
	require.NoError(t, err)

	rep, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, rep.Articles)
	assert.Equal(t, shard.Plan{PerTest: 2, TotalTest: 2, PerTraining: 4}, rep.Plan)
	assert.Zero(t, rep.Dropped)
	assert.Empty(t, rep.Failed)
	require.NotNil(t, rep.Seed)
	assert.Equal(t, uint64(7), *rep.Seed)

	wantFiles := []string{"wiki_training0.txt", "wiki_training1.txt", "wiki_test0.txt"}
	wantArticles := []int{4, 4, 2}
	require.Len(t, rep.Shards, len(wantFiles))
	for i, r := range rep.Shards {
		assert.Equal(t, wantFiles[i], filepath.Base(r.Path))
		assert.Equal(t, wantArticles[i], r.Articles, r.Path)
		assert.Equal(t, 2*wantArticles[i], r.Sentences, r.Path)
	}

	firsts := readArticles(t, rep.Shards)
	assert.Len(t, firsts, 10)
	for i := range 10 {
		assert.Contains(t, firsts, fmt.Sprintf("Article %d opens here.", i))
	}

	for _, stage := range []Stage{StageLoad, StageSegment, StageAllocate, StageWrite} {
		assert.Contains(t, rep.Durations, stage)
	}

	data, err := os.ReadFile(manifest)
	require.NoError(t, err)
	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 10, got.Articles)
	assert.Len(t, got.Shards, 3)
}

func TestRun_Reproducible(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir, 60)

	run := func(name string, opts ...Option) []ShardReport {
		t.Helper()
		opts = append(opts, WithSeed(42), WithLogger(discardLogger()))
		s, err := New(testConfig(input, filepath.Join(dir, name+"_")), segment.NewRules(), opts...)
		require.NoError(t, err)
		rep, err := s.Run(context.Background())
		require.NoError(t, err, name)
		return rep.Shards
	}

	serial := run("serial", WithSerial())
	parallel := run("parallel", WithWorkers(8))
	again := run("again", WithWorkers(3))

	require.Len(t, parallel, len(serial))
	require.Len(t, again, len(serial))
	for i := range serial {
		assert.Equal(t, serial[i].BLAKE3, parallel[i].BLAKE3, "shard %d", i)
		assert.Equal(t, serial[i].BLAKE3, again[i].BLAKE3, "shard %d", i)
	}
}

func TestRun_TooFewArticles(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir, 4)
	prefix := filepath.Join(dir, "out_")

	s, err := New(testConfig(input, prefix), segment.NewRules(), WithLogger(discardLogger()))
	require.NoError(t, err)
	_, err = s.Run(context.Background())

	requireStage(t, err, StageAllocate)
	assert.ErrorIs(t, err, ErrConfiguration)

	matches, _ := filepath.Glob(prefix + "*")
	assert.Empty(t, matches, "files written before failure")
}

func TestRun_FewerArticlesThanShards(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir, 2)
	prefix := filepath.Join(dir, "out_")

	cfg := testConfig(input, prefix)
	cfg.FractionTestSet = 1

	s, err := New(cfg, segment.NewRules(), WithSeed(1), WithLogger(discardLogger()))
	require.NoError(t, err)
	_, err = s.Run(context.Background())

	requireStage(t, err, StageLoad)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorContains(t, err, "2 articles for 3 shards")

	matches, _ := filepath.Glob(prefix + "*")
	assert.Empty(t, matches, "no shard may be written")
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()
	s, err := New(testConfig(filepath.Join(dir, "missing.txt"), filepath.Join(dir, "out_")),
		segment.NewRules(), WithLogger(discardLogger()))
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	requireStage(t, err, StageLoad)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.True(t, strings.HasPrefix(err.Error(), "load: "), "error %q not tagged with stage", err)
}

func TestRun_SegmentationFailure(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir, 10)

	rules := segment.NewRules()
	seg := segment.Func(func(ctx context.Context, text string) ([]string, error) {
		if strings.HasPrefix(text, "Article 3 ") {
			return nil, errors.New("unparseable")
		}
		return rules.Segment(ctx, text)
	})

	s, err := New(testConfig(input, filepath.Join(dir, "out_")), seg, WithWorkers(4), WithLogger(discardLogger()))
	require.NoError(t, err)
	rep, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{3}, rep.Failed)

	sentences := 0
	for _, r := range rep.Shards {
		sentences += r.Sentences
	}
	assert.Equal(t, 18, sentences)
}

func TestRun_WorkerFailure(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir, 10)
	prefix := filepath.Join(dir, "out_")

	seg := segment.Func(func(ctx context.Context, text string) ([]string, error) {
		if strings.HasPrefix(text, "Article 5 ") {
			panic("segmenter bug")
		}
		return []string{text}, nil
	})

	s, err := New(testConfig(input, prefix), seg, WithWorkers(4), WithLogger(discardLogger()))
	require.NoError(t, err)
	_, err = s.Run(context.Background())

	requireStage(t, err, StageSegment)
	assert.ErrorIs(t, err, ErrWorkerFailure)

	matches, _ := filepath.Glob(prefix + "*")
	assert.Empty(t, matches, "files written after worker failure")
}

func TestRun_Unwritable(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir, 10)

	s, err := New(testConfig(input, filepath.Join(dir, "no", "such", "dir_")), segment.NewRules(),
		WithLogger(discardLogger()))
	require.NoError(t, err)
	_, err = s.Run(context.Background())

	requireStage(t, err, StageWrite)
	assert.ErrorIs(t, err, ErrIO)
}

func TestRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir, 10)

	s, err := New(testConfig(input, filepath.Join(dir, "out_")), segment.NewRules(), WithLogger(discardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Progress(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir, 10)

	var last [2]int
	calls := 0
	s, err := New(testConfig(input, filepath.Join(dir, "out_")), segment.NewRules(),
		WithLogger(discardLogger()),
		WithProgress(3, func(done, total int) {
			calls++
			last = [2]int{done, total}
		}))
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, calls)
	assert.Equal(t, [2]int{10, 10}, last)
}
