package shard

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/zeebo/blake3"

	"github.com/jamesainslie/go-textshard/internal/failure"
)

// Written describes one shard file on disk.
type Written struct {
	Path      string `json:"path"`
	Family    string `json:"family"`
	Articles  int    `json:"articles"`
	Sentences int    `json:"sentences"`
	Bytes     int64  `json:"bytes"`
	BLAKE3    string `json:"blake3"`
}

// Writer writes a shard set to disk.
type Writer struct {
	Logger *slog.Logger
}

func (w *Writer) logger() *slog.Logger {
	if w == nil || w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

// WriteAll writes every shard of set, training shards first and then test
// shards, creating or truncating each file. Empty shards produce empty
// files. Files written before a failure are left in place.
func (w *Writer) WriteAll(set *Set, sentences [][]string) ([]Written, error) {
	all := set.All()
	written := make([]Written, 0, len(all))
	for _, sh := range all {
		wr, err := w.writeFile(sh, sentences)
		if err != nil {
			return written, err
		}
		w.logger().Debug("shard written",
			"path", wr.Path,
			"articles", wr.Articles,
			"sentences", wr.Sentences,
			"bytes", wr.Bytes)
		written = append(written, wr)
	}
	return written, nil
}

func (w *Writer) writeFile(sh *Shard, sentences [][]string) (wr Written, err error) {
	f, err := os.Create(sh.Name)
	if err != nil {
		return Written{}, failure.IO(sh.Name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = failure.IO(sh.Name, cerr)
		}
	}()

	h := blake3.New()
	cw := &countingWriter{w: io.MultiWriter(f, h)}
	bw := bufio.NewWriter(cw)

	n, err := WriteShard(bw, sh.Articles, sentences)
	if err != nil {
		return Written{}, failure.IO(sh.Name, err)
	}
	if err := bw.Flush(); err != nil {
		return Written{}, failure.IO(sh.Name, err)
	}

	return Written{
		Path:      sh.Name,
		Family:    sh.Family.String(),
		Articles:  len(sh.Articles),
		Sentences: n,
		Bytes:     cw.n,
		BLAKE3:    hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// WriteShard serializes the articles ids to w: one line per sentence and
// a blank line after each article. It returns the number of sentences
// written.
func WriteShard(w io.Writer, ids []int, sentences [][]string) (int, error) {
	n := 0
	for _, id := range ids {
		if id < 0 || id >= len(sentences) {
			return n, fmt.Errorf("article %d out of range [0, %d)", id, len(sentences))
		}
		for _, s := range sentences[id] {
			if _, err := io.WriteString(w, s); err != nil {
				return n, err
			}
			if _, err := io.WriteString(w, "\n"); err != nil {
				return n, err
			}
			n++
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return n, err
		}
	}
	return n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
