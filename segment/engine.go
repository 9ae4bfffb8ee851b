package segment

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/go-textshard/internal/failure"
)

// Engine defaults.
const (
	DefaultWorkers       = 16
	DefaultIdleTimeout   = 5 * time.Minute
	DefaultProgressEvery = 5000
)

// shutdownGrace bounds how long a failed run waits for cancelled workers.
const shutdownGrace = 5 * time.Second

// Engine segments every article of a Source with a fixed pool of workers.
//
// Article ids are shuffled and split into Workers chunks so slow articles
// spread evenly. Workers stream results over one shared channel and finish
// with a completion message; the caller's goroutine merges results by id.
// The outcome never depends on worker interleaving: Run returns the same
// Set as Serial.
//
// A worker panic or a stall longer than IdleTimeout fails the whole run
// with failure.ErrWorkerFailure. An error returned by the Segmenter for one
// article only empties that article.
type Engine struct {
	// Workers is the pool size. Values <= 1 segment serially.
	Workers int

	// Rand shuffles ids before chunking. Nil uses a fresh random seed.
	Rand *rand.Rand

	// IdleTimeout is the longest the engine waits for any worker message.
	IdleTimeout time.Duration

	// ProgressEvery is the number of articles between progress reports.
	ProgressEvery int

	// Progress, if set, is called from the collecting goroutine.
	Progress func(done, total int)

	Logger *slog.Logger
}

// message is one worker result, or a completion signal when done is set.
type message struct {
	worker    int
	id        int
	sentences []string
	err       error
	done      bool
}

// Serial segments src on the calling goroutine.
func Serial(ctx context.Context, src Source, seg Segmenter, logger *slog.Logger) (*Result, error) {
	e := &Engine{Workers: 1, Logger: logger}
	return e.Run(ctx, src, seg)
}

// Run segments every article of src.
func (e *Engine) Run(ctx context.Context, src Source, seg Segmenter) (*Result, error) {
	if e.workers() <= 1 {
		return e.serial(ctx, src, seg)
	}
	return e.parallel(ctx, src, seg)
}

func (e *Engine) serial(ctx context.Context, src Source, seg Segmenter) (res *Result, err error) {
	logger := e.logger()
	n := src.Len()
	col := newCollector(n, logger)
	prog := e.newProgress(n)

	var pc panics.Catcher
	pc.Try(func() {
		for id := 0; id < n; id++ {
			if err = ctx.Err(); err != nil {
				return
			}
			sentences, segErr := seg.Segment(ctx, src.Article(id))
			if segErr != nil && ctx.Err() != nil {
				err = ctx.Err()
				return
			}
			if err = col.add(message{id: id, sentences: sentences, err: segErr}); err != nil {
				return
			}
			prog.tick()
		}
	})
	if r := pc.Recovered(); r != nil {
		return nil, fmt.Errorf("%w: serial segmentation: %w", failure.ErrWorkerFailure, r.AsError())
	}
	if err != nil {
		return nil, err
	}

	if err := col.complete(); err != nil {
		return nil, err
	}
	return col.result(), nil
}

func (e *Engine) parallel(ctx context.Context, src Source, seg Segmenter) (*Result, error) {
	logger := e.logger()
	n := src.Len()
	chunks := Chunks(n, e.workers(), e.Rand)
	timeout := e.idleTimeout()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	results := make(chan message, 4*len(chunks))

	for w, chunk := range chunks {
		logger.Debug("starting worker", "worker", w, "articles", len(chunk))
		g.Go(func() error {
			return work(gctx, w, chunk, src, seg, results)
		})
	}

	col := newCollector(n, logger)
	prog := e.newProgress(n)
	idle := time.NewTimer(timeout)
	defer idle.Stop()

	for pending := len(chunks); pending > 0; {
		select {
		case m := <-results:
			idle.Reset(timeout)
			if m.done {
				pending--
				logger.Debug("worker finished", "worker", m.worker, "pending", pending)
				continue
			}
			if err := col.add(m); err != nil {
				cancel()
				_ = join(g)
				return nil, err
			}
			prog.tick()

		case <-gctx.Done():
			cancel()
			err := join(g)
			if err == nil {
				err = failure.Worker("workers did not shut down within %s", shutdownGrace)
			}
			return nil, err

		case <-idle.C:
			cancel()
			_ = join(g)
			return nil, failure.Worker("no worker reported for %s", timeout)
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := col.complete(); err != nil {
		return nil, err
	}
	return col.result(), nil
}

// work segments one chunk and reports each article on out, followed by a
// completion message. A panic is converted to failure.ErrWorkerFailure.
func work(ctx context.Context, w int, ids []int, src Source, seg Segmenter, out chan<- message) (err error) {
	var pc panics.Catcher
	pc.Try(func() {
		err = segmentChunk(ctx, w, ids, src, seg, out)
	})
	if r := pc.Recovered(); r != nil {
		return fmt.Errorf("%w: worker %d: %w", failure.ErrWorkerFailure, w, r.AsError())
	}
	return err
}

func segmentChunk(ctx context.Context, w int, ids []int, src Source, seg Segmenter, out chan<- message) error {
	send := func(m message) error {
		select {
		case out <- m:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		sentences, err := seg.Segment(ctx, src.Article(id))
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err := send(message{worker: w, id: id, sentences: sentences, err: err}); err != nil {
			return err
		}
	}
	return send(message{worker: w, done: true})
}

// join waits for cancelled workers, giving up after shutdownGrace.
func join(g *errgroup.Group) error {
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(shutdownGrace):
		return nil
	}
}

// Chunks shuffles the ids 0..n-1 with rng and splits them into parts
// chunks of ceil(n/parts) ids; trailing chunks may be short or empty.
func Chunks(n, parts int, rng *rand.Rand) [][]int {
	if parts < 1 {
		parts = 1
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	rng.Shuffle(n, func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	size := (n + parts - 1) / parts
	chunks := make([][]int, parts)
	start := 0
	for i := range chunks {
		end := min(start+size, n)
		chunks[i] = ids[start:end]
		start = end
	}
	return chunks
}

func (e *Engine) workers() int {
	if e.Workers == 0 {
		return DefaultWorkers
	}
	return e.Workers
}

func (e *Engine) idleTimeout() time.Duration {
	if e.IdleTimeout <= 0 {
		return DefaultIdleTimeout
	}
	return e.IdleTimeout
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Engine) newProgress(total int) *progress {
	every := e.ProgressEvery
	if every <= 0 {
		every = DefaultProgressEvery
	}
	return &progress{every: every, total: total, fn: e.Progress, logger: e.logger()}
}

type progress struct {
	every, total, done int
	fn                 func(done, total int)
	logger             *slog.Logger
}

func (p *progress) tick() {
	p.done++
	if p.done%p.every != 0 && p.done != p.total {
		return
	}
	p.logger.Debug("segmenting", "done", p.done, "total", p.total)
	if p.fn != nil {
		p.fn(p.done, p.total)
	}
}

// collector merges worker results into a Set.
type collector struct {
	set    Set
	seen   []bool
	count  int
	failed []int
	logger *slog.Logger
}

func newCollector(n int, logger *slog.Logger) *collector {
	return &collector{
		set:    make(Set, n),
		seen:   make([]bool, n),
		logger: logger,
	}
}

func (c *collector) add(m message) error {
	if m.id < 0 || m.id >= len(c.set) {
		return failure.Worker("result for unknown article %d", m.id)
	}
	if c.seen[m.id] {
		return failure.Worker("article %d segmented twice", m.id)
	}
	c.seen[m.id] = true
	c.count++

	if m.err != nil {
		c.failed = append(c.failed, m.id)
		c.logger.Warn("segmentation failed; keeping article empty",
			"article", m.id,
			"error", fmt.Errorf("%w: %w", failure.ErrSegmentation, m.err))
		return nil
	}
	c.set[m.id] = m.sentences
	return nil
}

// complete checks that every article has exactly one entry.
func (c *collector) complete() error {
	if c.count != len(c.set) {
		return failure.Worker("%d of %d articles segmented", c.count, len(c.set))
	}
	return nil
}

func (c *collector) result() *Result {
	slices.Sort(c.failed)
	return &Result{Sentences: c.set, Failed: c.failed}
}
