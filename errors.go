package textshard

import (
	"fmt"

	"github.com/jamesainslie/go-textshard/internal/failure"
)

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrConfiguration indicates shard counts, fractions or corpus size
	// that cannot produce a valid shard layout.
	ErrConfiguration = failure.ErrConfiguration

	// ErrIO indicates an unreadable input or unwritable output path.
	ErrIO = failure.ErrIO

	// ErrSegmentation indicates the segmenter failed on a single article.
	// Runs recover from it; see Report.Failed.
	ErrSegmentation = failure.ErrSegmentation

	// ErrWorkerFailure indicates a segmentation worker died or stopped
	// making progress.
	ErrWorkerFailure = failure.ErrWorkerFailure
)

// Stage names a step of the sharding pipeline.
type Stage string

const (
	StageLoad     Stage = "load"
	StageSegment  Stage = "segment"
	StageAllocate Stage = "allocate"
	StageWrite    Stage = "write"
)

// StageError reports the pipeline stage a run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
