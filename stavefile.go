//go:build stave

package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
	"github.com/yaklabco/stave/pkg/target"
)

// Default target when running `stave` with no arguments.
var Default = All

// Aliases for common targets.
var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"l": Lint,
	"c": Clean,
}

// All runs the complete build pipeline: lint, test, and build.
func All() error {
	st.Deps(Init)
	st.Deps(Lint, Test)
	st.Deps(Build)
	return nil
}

// Init downloads and verifies module dependencies.
func Init() error {
	return sh.Run("go", "mod", "download")
}

// Build compiles the textshard binary with version information.
func Build() error {
	st.Deps(Init)

	// Check if rebuild is needed
	rebuild, err := target.Glob("bin/textshard", "**/*.go", "go.mod", "go.sum")
	if err != nil {
		return fmt.Errorf("checking rebuild: %w", err)
	}
	if !rebuild {
		if st.Verbose() {
			fmt.Println("textshard is up to date")
		}
		return nil
	}

	ldflags := buildLdflags()
	return sh.RunV("go", "build", "-ldflags", ldflags, "-o", "bin/textshard", "./cmd/textshard")
}

// buildLdflags returns ldflags for version injection.
func buildLdflags() string {
	version, _ := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	commit, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	date := time.Now().Format(time.RFC3339)

	return fmt.Sprintf(
		"-X main.version=%s -X main.commit=%s -X main.date=%s",
		strings.TrimSpace(version),
		strings.TrimSpace(commit),
		date,
	)
}

// Test runs all tests with the race detector, in shuffled order.
func Test() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-race", "-shuffle=on", "./...")
}

// TestShort skips the tests that need SaT model files.
func TestShort() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-short", "./...")
}

// Lint runs golangci-lint on the codebase.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Vet runs go vet on all packages.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	artifacts := []string{
		"bin/",
		"coverage.out",
		"testdata/shards/",
	}
	for _, a := range artifacts {
		if err := sh.Rm(a); err != nil {
			return fmt.Errorf("removing %s: %w", a, err)
		}
	}
	return nil
}

// Install builds and installs the binaries to GOBIN.
func Install() error {
	st.Deps(Build)

	gocmd := st.GoCmd()
	bin, err := sh.Output(gocmd, "env", "GOBIN")
	if err != nil {
		return fmt.Errorf("determining GOBIN: %w", err)
	}
	if bin == "" {
		gopath, err := sh.Output(gocmd, "env", "GOPATH")
		if err != nil {
			return fmt.Errorf("determining GOPATH: %w", err)
		}
		bin = gopath + "/bin"
	}

	dst := bin + "/textshard"
	if runtime.GOOS == "windows" {
		dst += ".exe"
	}
	if err := sh.Copy(dst, "bin/textshard"); err != nil {
		return fmt.Errorf("installing textshard: %w", err)
	}
	if st.Verbose() {
		fmt.Printf("Installed textshard to %s\n", dst)
	}
	return nil
}

// Corpus namespace for sample corpus targets.
type Corpus st.Namespace

// Gutenberg converts raw Project Gutenberg downloads in testdata/gutenberg
// into testdata/articles.txt, one chapter per line.
func (Corpus) Gutenberg() error {
	return sh.RunV("go", "run", "./scripts/gutenberg-articles.go",
		"-in", "testdata/gutenberg",
		"-out", "testdata/articles.txt",
	)
}

// Shard runs textshard over testdata/articles.txt into testdata/shards/.
// TEXTSHARD_SEGMENTER selects the segmenter (default: punkt).
func (Corpus) Shard() error {
	st.Deps(Build, Corpus.Gutenberg)

	if err := os.MkdirAll("testdata/shards", 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return sh.RunV("./bin/textshard", "run",
		"--input", "testdata/articles.txt",
		"--prefix", "testdata/shards/gutenberg_",
		"--training-shards", "8",
		"--test-shards", "2",
		"--fraction-test", "0.1",
		"--manifest", "testdata/shards/manifest.json",
		"--progress",
	)
}

// Bench namespace for benchmark-related targets.
type Bench st.Namespace

// Run runs the segmentation and allocation benchmarks.
func (Bench) Run() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-run", "^$", "-bench", ".", "-benchmem", "./segment/...", "./shard/...")
}

// Workers compares engine throughput across worker counts.
func (Bench) Workers() error {
	st.Deps(Init)
	return sh.RunV("go", "test", "-run", "^$", "-bench", "BenchmarkEngine", "-benchtime", "3x", "./segment/...")
}

// CI runs the full CI pipeline (lint, test, build).
func CI() error {
	st.Deps(Init)
	st.SerialDeps(Lint, Test, Build)
	return nil
}

// Check runs quick validation (vet, lint, short tests).
func Check() error {
	st.Deps(Vet, Lint, TestShort)
	return nil
}

// Coverage prints per-function coverage of the library packages.
func Coverage() error {
	st.Deps(Init)
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out",
		".", "./corpus/...", "./segment/...", "./shard/...", "./tokenizer/...", "./internal/..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func=coverage.out")
}
