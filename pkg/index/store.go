package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"epsteindl/pkg/datasets"
	"epsteindl/pkg/logger"
)

// Store reads and writes dataset{n}-index.json files under an output root.
// Writes are whole-record and atomic. Concurrent writers are not
// coordinated; the last one wins.
type Store struct {
	layout datasets.Layout
	logger logger.Logger
}

// NewStore creates a Store rooted at dir
func NewStore(dir string, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{
		layout: datasets.Layout{Root: dir},
		logger: log,
	}
}

// Path is the index file for a dataset
func (s *Store) Path(dataset int) string {
	return s.layout.IndexFile(dataset)
}

// Exists reports whether a dataset has a persisted index
func (s *Store) Exists(dataset int) bool {
	_, err := os.Stat(s.Path(dataset))
	return err == nil
}

// Load returns the persisted index, or an empty one when none exists yet
func (s *Store) Load(dataset int) (*DatasetIndex, error) {
	path := s.Path(dataset)

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer file.Close()

	idx := New()
	if err := json.NewDecoder(file).Decode(idx); err != nil {
		return nil, fmt.Errorf("failed to decode index %s: %w", path, err)
	}
	if idx.Files == nil {
		idx.Files = make(map[string]string)
	}

	s.logger.DebugWithFields("Index loaded", map[string]interface{}{
		"dataset":   dataset,
		"files":     idx.Len(),
		"last_page": idx.LastPage,
		"complete":  idx.Complete,
	})

	return idx, nil
}

// Save writes the whole index to a temp file and renames it into place
func (s *Store) Save(dataset int, idx *DatasetIndex) error {
	path := s.Path(dataset)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	file, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary index file: %w", err)
	}
	tempPath := file.Name()

	record := idx
	if record.Files == nil {
		record = &DatasetIndex{Files: map[string]string{}, LastPage: idx.LastPage, Complete: idx.Complete}
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(record); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode index: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync index file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close index file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace index file: %w", err)
	}

	s.logger.DebugWithFields("Index saved", map[string]interface{}{
		"dataset":   dataset,
		"files":     idx.Len(),
		"last_page": idx.LastPage,
		"complete":  idx.Complete,
	})

	return nil
}
