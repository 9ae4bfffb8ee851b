package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	textshard "github.com/jamesainslie/go-textshard"
	"github.com/jamesainslie/go-textshard/segment"
)

func addSegmenterFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("segmenter", "punkt", "Sentence segmenter: punkt, rules or sat")
	f.String("punkt-training", "", "Punkt training data (JSON); default is the built-in English model")
	f.String("model", "", "SaT ONNX model file")
	f.String("tokenizer", "", "SaT SentencePiece tokenizer model")
	f.String("onnx-lib", "", "onnxruntime shared library path")
	f.Float64("threshold", 0.025, "SaT boundary probability threshold")
}

// openSegmenter builds the configured segmenter. size bounds the number of
// tokenizers or model sessions it holds.
func openSegmenter(v *viper.Viper, size int, logger *slog.Logger) (segment.Segmenter, func() error, error) {
	switch name := v.GetString("segmenter"); name {
	case "punkt":
		var (
			p   *segment.Punkt
			err error
		)
		if path := v.GetString("punkt-training"); path != "" {
			p, err = segment.NewPunktFromFile(path, size)
		} else {
			p, err = segment.NewPunkt(size)
		}
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil

	case "rules":
		return segment.NewRules(), func() error { return nil }, nil

	case "sat":
		model, tok := v.GetString("model"), v.GetString("tokenizer")
		if model == "" || tok == "" {
			return nil, nil, fmt.Errorf("%w: the sat segmenter needs --model and --tokenizer", textshard.ErrConfiguration)
		}
		s, err := segment.NewSaT(model, tok,
			segment.WithThreshold(float32(v.GetFloat64("threshold"))),
			segment.WithSessions(size),
			segment.WithRuntimeLibrary(v.GetString("onnx-lib")),
			segment.WithSaTLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown segmenter %q", textshard.ErrConfiguration, name)
	}
}
