// Package pool provides a fixed-size pool of reusable resources such as
// inference sessions or sentence tokenizers.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("pool: closed")

// Pool hands out at most Size resources at a time.
// It is safe for concurrent use.
type Pool[T any] struct {
	items   chan T
	release func(T) error
	size    int
	mu      sync.Mutex
	closed  bool
}

// New creates a pool of size resources built by create. release, if non-nil,
// is called for every resource when the pool is closed.
func New[T any](size int, create func() (T, error), release func(T) error) (*Pool[T], error) {
	if size <= 0 {
		size = 1
	}

	p := &Pool[T]{
		items:   make(chan T, size),
		release: release,
		size:    size,
	}

	// Pre-create all resources
	for i := 0; i < size; i++ {
		item, err := create()
		if err != nil {
			_ = p.Close() // Best-effort cleanup; original error takes precedence
			return nil, fmt.Errorf("creating resource %d: %w", i, err)
		}
		p.items <- item
	}

	return p, nil
}

// Acquire takes a resource, blocking until one is free or ctx is done.
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	var zero T
	select {
	case item, ok := <-p.items:
		if !ok {
			return zero, ErrClosed
		}
		return item, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Release returns a resource taken with Acquire.
func (p *Pool[T]) Release(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.drop(item)
		return
	}

	select {
	case p.items <- item:
	default:
		p.drop(item) // More releases than acquires
	}
}

// Do runs fn with a pooled resource.
func (p *Pool[T]) Do(ctx context.Context, fn func(T) error) error {
	item, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(item)
	return fn(item)
}

// Close releases every idle resource. Resources still checked out are
// released when they come back. Close is idempotent.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.items)
	p.mu.Unlock()

	var errs []error
	for item := range p.items {
		if p.release == nil {
			continue
		}
		if err := p.release(item); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool size.
func (p *Pool[T]) Size() int {
	return p.size
}

func (p *Pool[T]) drop(item T) {
	if p.release != nil {
		_ = p.release(item)
	}
}
