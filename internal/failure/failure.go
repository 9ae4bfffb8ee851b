// Package failure defines the error taxonomy shared by the sharding packages.
package failure

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrConfiguration indicates shard counts, fractions or corpus size
	// that cannot produce a valid shard layout.
	ErrConfiguration = errors.New("textshard: configuration error")

	// ErrIO indicates an unreadable input or unwritable output path.
	ErrIO = errors.New("textshard: i/o error")

	// ErrSegmentation indicates the segmenter failed on a single article.
	// The engine recovers from it locally.
	ErrSegmentation = errors.New("textshard: segmentation failed")

	// ErrWorkerFailure indicates a segmentation worker died or stopped
	// making progress. Results from such a run are never returned.
	ErrWorkerFailure = errors.New("textshard: worker failure")
)

// Configf returns an ErrConfiguration with a formatted reason.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// IO wraps err as an ErrIO for path.
func IO(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, path, err)
}

// Worker returns an ErrWorkerFailure with a formatted reason.
func Worker(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrWorkerFailure, fmt.Sprintf(format, args...))
}
