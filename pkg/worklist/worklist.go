// Package worklist builds and serializes the (URL, directory, filename)
// triples handed to a fetch dispatcher.
package worklist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidFilename marks a URL whose last path segment is unusable as a
// local file name
var ErrInvalidFilename = errors.New("invalid filename")

// Entry is one transfer for the fetch dispatcher
type Entry struct {
	URL      string
	Dir      string
	Filename string
}

// Path is the entry's destination on disk
func (e Entry) Path() string {
	return filepath.Join(e.Dir, e.Filename)
}

// FilenameFromURL returns the final path segment of an absolute URL.
// Extracted URLs are already percent-decoded, so the segment is taken
// verbatim. Names that could escape the destination directory are rejected.
func FilenameFromURL(raw string) (string, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" || rest == "" || strings.HasPrefix(rest, "/") {
		return "", fmt.Errorf("%w: %q is not an absolute URL", ErrInvalidFilename, raw)
	}
	if !strings.Contains(rest, "/") {
		return "", fmt.Errorf("%w: %q has no path", ErrInvalidFilename, raw)
	}
	return ValidateFilename(raw[strings.LastIndex(raw, "/")+1:])
}

// ValidateFilename rejects empty names, dot names and anything carrying a
// path separator or NUL
func ValidateFilename(name string) (string, error) {
	switch {
	case name == "", name == ".", name == "..", name == "/":
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidFilename, name)
	}
	return name, nil
}

// Build turns URLs into entries destined for dir, skipping URLs without a
// usable filename. The skipped URLs are returned alongside.
func Build(urls []string, dir string) ([]Entry, []string) {
	entries := make([]Entry, 0, len(urls))
	var skipped []string
	for _, u := range urls {
		name, err := FilenameFromURL(u)
		if err != nil {
			skipped = append(skipped, u)
			continue
		}
		entries = append(entries, Entry{URL: u, Dir: dir, Filename: name})
	}
	return entries, skipped
}

// WriteAria2 writes entries in aria2c input-file format
func WriteAria2(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s\n  dir=%s\n  out=%s\n", e.URL, e.Dir, e.Filename); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes entries to path in aria2c input-file format
func WriteFile(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create work list directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create work list: %w", err)
	}
	if err := WriteAria2(f, entries); err != nil {
		f.Close()
		return fmt.Errorf("failed to write work list: %w", err)
	}
	return f.Close()
}

// Parse reads an aria2c input file. Option lines other than dir and out are
// ignored. An entry without out= takes its name from the URL.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if line[0] != ' ' && line[0] != '\t' {
			entries = append(entries, Entry{URL: trimmed})
			continue
		}

		if len(entries) == 0 {
			return nil, fmt.Errorf("line %d: option before any URL", lineNo)
		}
		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: malformed option %q", lineNo, trimmed)
		}
		cur := &entries[len(entries)-1]
		switch key {
		case "dir":
			cur.Dir = value
		case "out":
			cur.Filename = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		if entries[i].Filename == "" {
			name, err := FilenameFromURL(entries[i].URL)
			if err != nil {
				return nil, err
			}
			entries[i].Filename = name
		}
	}
	return entries, nil
}

// ReadFile parses the aria2c input file at path
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}
