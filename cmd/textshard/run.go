package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	textshard "github.com/jamesainslie/go-textshard"
	"github.com/jamesainslie/go-textshard/segment"
)

// barEvery is the progress bar update interval, in articles.
const barEvery = 100

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Segment the input files and write the shards",
		Example: `  textshard run --input wiki_00.txt --input wiki_01.txt --prefix out/wiki_ \
    --training-shards 256 --test-shards 256 --fraction-test 0.1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShards(cmd, v)
		},
	}

	f := cmd.Flags()
	f.StringSlice("input", nil, "Input article file (repeatable)")
	f.String("prefix", "", "Output path prefix of every shard file")
	f.Int("training-shards", 0, "Number of training shards")
	f.Int("test-shards", 0, "Number of test shards")
	f.Float64("fraction-test", 0.1, "Share of articles reserved for test shards, in (0, 1]")
	f.String("extension", ".txt", "Shard file extension")
	f.Int("workers", segment.DefaultWorkers, "Segmentation workers")
	f.Uint64("seed", 0, "Shuffle seed (default: random, recorded in the manifest)")
	f.Bool("serial", false, "Segment on a single goroutine")
	f.Duration("idle-timeout", segment.DefaultIdleTimeout, "Fail when no worker reports for this long")
	f.String("manifest", "", "Write a JSON run report to this file")
	f.Bool("progress", false, "Show a progress bar on stderr")
	return cmd
}

func runShards(cmd *cobra.Command, v *viper.Viper) error {
	runID := uuid.NewString()
	logger, err := newLogger(cmd.ErrOrStderr(), v.GetString("log-level"))
	if err != nil {
		return err
	}

	workers := v.GetInt("workers")
	if v.GetBool("serial") {
		workers = 1
	}
	seg, closeSeg, err := openSegmenter(v, workers, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeSeg() }() // Cleanup error ignored in CLI

	cfg := textshard.Config{
		InputFiles:      v.GetStringSlice("input"),
		OutputPrefix:    v.GetString("prefix"),
		TrainingShards:  v.GetInt("training-shards"),
		TestShards:      v.GetInt("test-shards"),
		FractionTestSet: v.GetFloat64("fraction-test"),
		Extension:       v.GetString("extension"),
	}
	opts := []textshard.Option{
		textshard.WithLogger(logger),
		textshard.WithRunID(runID),
		textshard.WithWorkers(workers),
		textshard.WithIdleTimeout(v.GetDuration("idle-timeout")),
		textshard.WithManifest(v.GetString("manifest")),
	}
	if v.GetBool("serial") {
		opts = append(opts, textshard.WithSerial())
	}
	if v.IsSet("seed") {
		opts = append(opts, textshard.WithSeed(v.GetUint64("seed")))
	}

	var bar *progressbar.ProgressBar
	if v.GetBool("progress") {
		opts = append(opts, textshard.WithProgress(barEvery, func(done, total int) {
			if bar == nil {
				bar = newBar(cmd.ErrOrStderr(), total)
			}
			_ = bar.Set(done)
		}))
	}

	s, err := textshard.New(cfg, seg, opts...)
	if err != nil {
		return err
	}

	start := time.Now()
	rep, err := s.Run(cmd.Context())
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), rep, time.Since(start))
	return nil
}

func newBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("segmenting"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("articles"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func printReport(w io.Writer, rep *textshard.Report, elapsed time.Duration) {
	var bytes int64
	sentences := 0
	for _, sh := range rep.Shards {
		bytes += sh.Bytes
		sentences += sh.Sentences
	}

	fmt.Fprintf(w, "run %s", rep.RunID)
	if rep.Seed != nil {
		fmt.Fprintf(w, " (seed %d)", *rep.Seed)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  articles:  %s (%s dropped, %s failed)\n",
		humanize.Comma(int64(rep.Articles)), humanize.Comma(int64(rep.Dropped)), humanize.Comma(int64(len(rep.Failed))))
	fmt.Fprintf(w, "  sentences: %s\n", humanize.Comma(int64(sentences)))
	fmt.Fprintf(w, "  shards:    %d training x %d articles, %d test x %d articles\n",
		rep.Stats.Training.Shards, rep.Plan.PerTraining, rep.Stats.Test.Shards, rep.Plan.PerTest)
	fmt.Fprintf(w, "  sentences per training shard: mean %.1f, stddev %.1f, min %.0f, max %.0f\n",
		rep.Stats.Training.Mean, rep.Stats.Training.StdDev, rep.Stats.Training.Min, rep.Stats.Training.Max)
	fmt.Fprintf(w, "  written:   %s in %s\n", humanize.Bytes(uint64(bytes)), elapsed.Round(time.Millisecond))
}
