// Package textshard prepares sentence-segmented pretraining shards from a
// corpus of newline-delimited articles.
//
// # Quick Start
//
//	seg, err := segment.NewPunkt(16)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer seg.Close()
//
//	s, err := textshard.New(textshard.Config{
//	    InputFiles:      []string{"wiki_00.txt", "wiki_01.txt"},
//	    OutputPrefix:    "out/wiki_",
//	    TrainingShards:  256,
//	    TestShards:      256,
//	    FractionTestSet: 0.1,
//	}, seg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := s.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d articles, %d dropped\n", report.Articles, report.Dropped)
//
// # Pipeline
//
// A run loads every article, segments the articles into sentences with a
// pool of workers, shuffles the article ids into training and test shards,
// and writes each shard as one sentence per line with a blank line after
// each article. The shard file of index i in family f is named
// {OutputPrefix}{f}{i}{Extension}.
//
// Integer division in shard sizing can leave up to TrainingShards +
// TestShards articles out of every shard; Report.Dropped counts them.
//
// # Errors
//
// Run returns a *StageError naming the failed stage. errors.Is matches the
// cause against ErrConfiguration, ErrIO and ErrWorkerFailure.
// A segmenter error on a single article does not fail the run: the article
// is written with no sentences and listed in Report.Failed.
//
// # Segmenters
//
// Package segment provides Punkt (trained, pure Go), Rules (regular
// expressions) and SaT (ONNX neural model) segmenters. Any type with a
// Segment method can be used.
package textshard
