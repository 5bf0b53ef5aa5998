package worklist

import (
	"fmt"
	"os"

	"epsteindl/pkg/datasets"
)

// Store persists a dataset's work list next to its index
type Store struct {
	layout datasets.Layout
}

// NewStore creates a Store rooted at the output directory
func NewStore(root string) *Store {
	return &Store{layout: datasets.Layout{Root: root}}
}

// Write creates the dataset's PDF directory and overwrites
// dataset{n}-urls.txt with the entries for urls. An empty list still
// produces an empty file, so the file always reflects the latest run.
func (s *Store) Write(dataset int, urls []string) ([]Entry, error) {
	dir := s.layout.PDFDir(dataset)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create PDF directory: %w", err)
	}

	entries, _ := Build(urls, dir)
	if err := WriteFile(s.layout.URLListFile(dataset), entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Path is the work list file for a dataset
func (s *Store) Path(dataset int) string {
	return s.layout.URLListFile(dataset)
}
