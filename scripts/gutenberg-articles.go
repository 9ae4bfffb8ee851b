//go:build ignore

// Convert raw Project Gutenberg downloads into textshard input: one chapter
// per line.
// Usage: go run ./scripts/gutenberg-articles.go [-in testdata/gutenberg] [-out testdata/articles.txt]
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	startMarkers = []string{
		"*** START OF THE PROJECT GUTENBERG EBOOK",
		"*** START OF THIS PROJECT GUTENBERG EBOOK",
		"*END*THE SMALL PRINT",
	}
	endMarkers = []string{
		"*** END OF THE PROJECT GUTENBERG EBOOK",
		"*** END OF THIS PROJECT GUTENBERG EBOOK",
		"End of Project Gutenberg",
		"End of the Project Gutenberg",
	}

	chapterRe      = regexp.MustCompile(`(?m)^(Chapter|CHAPTER)\s+([IVXLC]+|[0-9]+)[\.\]\s]`)
	romanRe        = regexp.MustCompile(`^[IVXLC]+\.?$`)
	illustrationRe = regexp.MustCompile(`\[Illustration[^\]]*\]`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

func main() {
	inDir := flag.String("in", "testdata/gutenberg", "Directory of *_raw.txt downloads")
	outPath := flag.String("out", "testdata/articles.txt", "Output corpus file")
	minLen := flag.Int("min", 200, "Drop chapters shorter than this many bytes")
	flag.Parse()

	files, err := filepath.Glob(filepath.Join(*inDir, "*_raw.txt"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No raw files found in %s.\n", *inDir)
		os.Exit(1)
	}

	out, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output: %v\n", err)
		os.Exit(1)
	}
	w := bufio.NewWriter(out)

	total := 0
	for _, path := range files {
		chapters, err := bookChapters(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", path, err)
			continue
		}
		n := 0
		for _, ch := range chapters {
			if len(ch) < *minLen {
				continue
			}
			w.WriteString(ch)
			w.WriteString("\n")
			n++
		}
		fmt.Printf("%s: %d articles\n", filepath.Base(path), n)
		total += n
	}

	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
	if err := out.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDone! %d articles written to %s\n", total, *outPath)
}

// bookChapters returns the body of a Gutenberg book split into chapters,
// each flattened to a single line.
func bookChapters(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = body(text)

	if loc := chapterRe.FindStringIndex(text); loc != nil && loc[0] < 50000 {
		text = text[loc[0]:]
	}
	text = illustrationRe.ReplaceAllString(text, "")

	var chapters []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(spaceRe.ReplaceAllString(current.String(), " ")); s != "" {
			chapters = append(chapters, s)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if isChapterHeader(line) {
			flush()
			continue
		}
		current.WriteString(line)
		current.WriteString(" ")
	}
	flush()
	return chapters, nil
}

func body(text string) string {
	start := 0
	for _, m := range startMarkers {
		if idx := strings.Index(text, m); idx != -1 {
			if eol := strings.Index(text[idx:], "\n"); eol != -1 {
				start = idx + eol + 1
			}
			break
		}
	}

	end := len(text)
	for _, m := range endMarkers {
		if idx := strings.Index(text, m); idx != -1 && idx >= start {
			end = idx
			break
		}
	}
	return text[start:end]
}

func isChapterHeader(line string) bool {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "CHAPTER ") || strings.HasPrefix(line, "Chapter ") {
		return true
	}
	return romanRe.MatchString(line)
}
