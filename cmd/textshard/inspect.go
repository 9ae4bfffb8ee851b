package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"

	textshard "github.com/jamesainslie/go-textshard"
	"github.com/jamesainslie/go-textshard/shard"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Count the articles and sentences of shard files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd.OutOrStdout(), args)
		},
	}
}

type shardInfo struct {
	path      string
	articles  int
	sentences int
	bytes     int64
	digest    string
}

func inspect(w io.Writer, paths []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tARTICLES\tSENTENCES\tSIZE\tBLAKE3")

	var total shardInfo
	for _, path := range paths {
		info, err := inspectFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.16s\n", info.path,
			humanize.Comma(int64(info.articles)), humanize.Comma(int64(info.sentences)),
			humanize.Bytes(uint64(info.bytes)), info.digest)

		total.articles += info.articles
		total.sentences += info.sentences
		total.bytes += info.bytes
	}
	if len(paths) > 1 {
		fmt.Fprintf(tw, "total\t%s\t%s\t%s\t\n",
			humanize.Comma(int64(total.articles)), humanize.Comma(int64(total.sentences)),
			humanize.Bytes(uint64(total.bytes)))
	}
	return tw.Flush()
}

func inspectFile(path string) (shardInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return shardInfo{}, fmt.Errorf("%w: %s: %w", textshard.ErrIO, path, err)
	}

	articles, err := shard.ReadShard(bytes.NewReader(data))
	if err != nil {
		return shardInfo{}, fmt.Errorf("%w: %s: %w", textshard.ErrIO, path, err)
	}

	info := shardInfo{path: path, articles: len(articles), bytes: int64(len(data))}
	for _, a := range articles {
		info.sentences += len(a)
	}
	sum := blake3.Sum256(data)
	info.digest = hex.EncodeToString(sum[:])
	return info, nil
}
