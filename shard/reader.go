package shard

import (
	"bufio"
	"io"
	"strings"
)

// ReadShard parses a shard written by WriteShard into articles of
// sentences. An article written with no sentences leaves only a separator
// behind and is not returned.
func ReadShard(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)

	var articles [][]string
	var current []string
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			if line == "" {
				if len(current) > 0 {
					articles = append(articles, current)
					current = nil
				}
			} else {
				current = append(current, line)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(current) > 0 {
		articles = append(articles, current)
	}
	return articles, nil
}
