// Package shard assigns articles to training and test shards and writes the
// shards to disk.
package shard

import (
	"strconv"

	"github.com/jamesainslie/go-textshard/internal/failure"
)

// Family separates training shards from test shards.
type Family int

const (
	Training Family = iota
	Test
)

func (f Family) String() string {
	switch f {
	case Training:
		return "training"
	case Test:
		return "test"
	default:
		return "family(" + strconv.Itoa(int(f)) + ")"
	}
}

// DefaultExt is the shard file extension.
const DefaultExt = ".txt"

// Layout describes the shards of a run.
type Layout struct {
	Prefix   string
	Training int
	Test     int
	Ext      string
}

// Validate reports non-positive shard counts.
func (l Layout) Validate() error {
	if l.Training <= 0 {
		return failure.Configf("training shard count must be positive, got %d", l.Training)
	}
	if l.Test <= 0 {
		return failure.Configf("test shard count must be positive, got %d", l.Test)
	}
	return nil
}

// Count returns the total number of shards.
func (l Layout) Count() int {
	return l.Training + l.Test
}

func (l Layout) ext() string {
	if l.Ext == "" {
		return DefaultExt
	}
	return l.Ext
}

// Name returns the file name of shard index in family:
// {prefix}{training|test}{index}{ext}.
func Name(prefix string, family Family, index int, ext string) string {
	return prefix + family.String() + strconv.Itoa(index) + ext
}

// Shard is one output file and the ids of the articles it holds, in
// output order.
type Shard struct {
	Name     string
	Family   Family
	Index    int
	Articles []int
}

// Set is every shard of a layout.
type Set struct {
	Training []*Shard
	Test     []*Shard

	// Dropped counts articles left out by allocation rounding.
	Dropped int
}

// NewSet creates every shard of l, empty.
func NewSet(l Layout) (*Set, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	s := &Set{
		Training: make([]*Shard, l.Training),
		Test:     make([]*Shard, l.Test),
	}
	for i := range s.Training {
		s.Training[i] = &Shard{Name: Name(l.Prefix, Training, i, l.ext()), Family: Training, Index: i}
	}
	for i := range s.Test {
		s.Test[i] = &Shard{Name: Name(l.Prefix, Test, i, l.ext()), Family: Test, Index: i}
	}
	return s, nil
}

// All returns training shards followed by test shards.
func (s *Set) All() []*Shard {
	all := make([]*Shard, 0, len(s.Training)+len(s.Test))
	all = append(all, s.Training...)
	return append(all, s.Test...)
}

// Assigned returns the number of articles placed in any shard.
func (s *Set) Assigned() int {
	n := 0
	for _, sh := range s.All() {
		n += len(sh.Articles)
	}
	return n
}
