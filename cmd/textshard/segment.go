package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSegmentCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "segment TEXT...",
		Short: "Print the sentences the configured segmenter finds in TEXT",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), v.GetString("log-level"))
			if err != nil {
				return err
			}
			seg, closeSeg, err := openSegmenter(v, 1, logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeSeg() }() // Cleanup error ignored in CLI

			text := strings.Join(args, " ")
			sentences, err := seg.Segment(cmd.Context(), text)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Text: %q\n", text)
			fmt.Fprintf(w, "Sentences (%d):\n", len(sentences))
			for i, s := range sentences {
				fmt.Fprintf(w, "  %d: %q\n", i+1, s)
			}
			return nil
		},
	}
}
