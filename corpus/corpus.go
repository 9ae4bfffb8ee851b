// Package corpus loads newline-delimited articles into an indexed store.
//
// Each non-blank input line is one article. Articles get dense ids in the
// order they are read, across all input files.
package corpus

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/jamesainslie/go-textshard/internal/failure"
)

// Store holds articles indexed by id. The id of an article is its index.
type Store struct {
	articles []string
}

// Load reads every file in paths, in order.
func Load(paths []string) (*Store, error) {
	if len(paths) == 0 {
		return nil, failure.Configf("no input files")
	}

	s := &Store{}
	for _, path := range paths {
		if err := s.loadFile(path); err != nil {
			return nil, err
		}
	}

	if s.Len() == 0 {
		return nil, failure.Configf("input files contain no articles")
	}
	return s, nil
}

func (s *Store) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return failure.IO(path, err)
	}
	defer func() { _ = f.Close() }() // Read-only; close error carries no data loss

	if err := s.AppendFrom(f); err != nil {
		return failure.IO(path, err)
	}
	return nil
}

// AppendFrom appends one article per non-blank line of r.
// Lines may be arbitrarily long.
func (s *Store) AppendFrom(r io.Reader) error {
	br := bufio.NewReaderSize(r, 1<<20)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			s.Append(line)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Append stores text with trailing whitespace trimmed and returns its id.
// Whitespace-only text is not stored and yields -1.
func (s *Store) Append(text string) int {
	text = strings.TrimRightFunc(text, unicode.IsSpace)
	if strings.TrimSpace(text) == "" {
		return -1
	}
	s.articles = append(s.articles, text)
	return len(s.articles) - 1
}

// Require fails with a configuration error when the store holds fewer than n
// articles.
func (s *Store) Require(n int) error {
	if s.Len() < n {
		return failure.Configf("%d articles for %d shards; add data or request fewer shards", s.Len(), n)
	}
	return nil
}

// Len returns the number of articles.
func (s *Store) Len() int {
	return len(s.articles)
}

// Article returns the text of article id.
func (s *Store) Article(id int) string {
	return s.articles[id]
}
