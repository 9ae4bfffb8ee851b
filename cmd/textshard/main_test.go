package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	textshard "github.com/jamesainslie/go-textshard"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCorpus(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "Article %d starts. It has a middle. Article %d ends.\n", i, i)
	}
	path := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRunCmd(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir, 20)
	manifest := filepath.Join(dir, "manifest.json")

	out, err := execute(t, "run",
		"--input", input,
		"--prefix", filepath.Join(dir, "wiki_"),
		"--training-shards", "3",
		"--test-shards", "2",
		"--fraction-test", "0.2",
		"--segmenter", "rules",
		"--workers", "4",
		"--seed", "11",
		"--manifest", manifest,
		"--log-level", "error",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "(seed 11)")
	assert.Contains(t, out, "articles:  20 (1 dropped, 0 failed)")

	for _, name := range []string{"wiki_training0.txt", "wiki_training2.txt", "wiki_test1.txt"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	data, err := os.ReadFile(manifest)
	require.NoError(t, err)
	var rep textshard.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, 20, rep.Articles)
	assert.Equal(t, 1, rep.Dropped)
	require.NotNil(t, rep.Seed)
	assert.Equal(t, uint64(11), *rep.Seed)
	assert.NotEmpty(t, rep.RunID)
}

func TestRunCmd_ConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir, 10)
	prefix := filepath.Join(dir, "cfg_")

	config := filepath.Join(dir, "textshard.yaml")
	require.NoError(t, os.WriteFile(config, []byte(fmt.Sprintf(`input:
  - %s
prefix: %s
training-shards: 2
fraction-test: 0.2
segmenter: rules
log-level: error
`, input, prefix)), 0o644))

	t.Setenv("TEXTSHARD_TEST_SHARDS", "1")

	_, err := execute(t, "run", "--config", config, "--serial")
	require.NoError(t, err)

	assert.FileExists(t, prefix+"training1.txt")
	assert.FileExists(t, prefix+"test0.txt")
	assert.NoFileExists(t, prefix+"test1.txt")
}

func TestRunCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir, 4)
	prefix := filepath.Join(dir, "e_")

	tests := []struct {
		name   string
		args   []string
		target error
		prefix string
	}{
		{
			name:   "too few articles",
			args:   []string{"--training-shards", "1", "--test-shards", "1", "--fraction-test", "0.2"},
			target: textshard.ErrConfiguration,
			prefix: "allocate: ",
		},
		{
			name:   "no shards",
			args:   []string{"--training-shards", "0", "--test-shards", "1"},
			target: textshard.ErrConfiguration,
		},
		{
			name:   "unknown segmenter",
			args:   []string{"--training-shards", "1", "--test-shards", "1", "--segmenter", "magic"},
			target: textshard.ErrConfiguration,
		},
		{
			name:   "sat without model",
			args:   []string{"--training-shards", "1", "--test-shards", "1", "--segmenter", "sat"},
			target: textshard.ErrConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"run", "--input", input, "--prefix", prefix, "--log-level", "error"}, tt.args...)
			if !strings.Contains(strings.Join(tt.args, " "), "--segmenter") {
				args = append(args, "--segmenter", "rules")
			}
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
			if tt.prefix != "" {
				assert.True(t, strings.HasPrefix(err.Error(), tt.prefix), "got %v", err)
			}
		})
	}

	matches, _ := filepath.Glob(prefix + "*")
	assert.Empty(t, matches)
}

func TestRunCmd_InvalidLogLevel(t *testing.T) {
	_, err := execute(t, "run", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestInspectCmd(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("One.\nTwo.\n\nThree.\n\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("Four.\n\n"), 0o644))

	out, err := execute(t, "inspect", a, b)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{a, "2", "3", "19", "B"}, strings.Fields(lines[1])[:5])
	assert.Equal(t, []string{"total", "3", "4"}, strings.Fields(lines[3])[:3])

	_, err = execute(t, "inspect", filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, textshard.ErrIO)
}

func TestSegmentCmd(t *testing.T) {
	out, err := execute(t, "segment", "--segmenter", "rules", "Hello there.", "General Kenobi!")
	require.NoError(t, err)
	assert.Contains(t, out, "Sentences (2):")
	assert.Contains(t, out, `1: "Hello there."`)
	assert.Contains(t, out, `2: "General Kenobi!"`)
}

func TestSegmentCmd_Punkt(t *testing.T) {
	out, err := execute(t, "segment", "The cat sat down. The dog barked.")
	require.NoError(t, err)
	assert.Contains(t, out, "Sentences (2):")
}
