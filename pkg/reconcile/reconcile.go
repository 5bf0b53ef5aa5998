// Package reconcile compares a dataset's index with the documents already on
// disk.
package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"epsteindl/pkg/datasets"
	"epsteindl/pkg/index"
)

// PresentFiles lists the regular files in dir ending in ext. A missing
// directory is an empty set, not an error.
func PresentFiles(dir, ext string) (map[string]struct{}, error) {
	present := make(map[string]struct{})

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return present, nil
		}
		return nil, fmt.Errorf("failed to read download directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		present[entry.Name()] = struct{}{}
	}
	return present, nil
}

// Missing returns the URLs of indexed files absent from present, ordered
// by filename
func Missing(files map[string]string, present map[string]struct{}) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		if _, ok := present[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	urls := make([]string, len(names))
	for i, name := range names {
		urls[i] = files[name]
	}
	return urls
}

// IndexLoader loads a dataset index
type IndexLoader interface {
	Load(dataset int) (*index.DatasetIndex, error)
}

// Report summarizes one reconciliation
type Report struct {
	Dataset int
	Dir     string
	Indexed int
	Present int
	Missing []string
}

// Reconciler finds indexed documents that have not been downloaded
type Reconciler struct {
	indexes   IndexLoader
	layout    datasets.Layout
	extension string
}

// New creates a Reconciler over the output root
func New(indexes IndexLoader, root, extension string) *Reconciler {
	return &Reconciler{
		indexes:   indexes,
		layout:    datasets.Layout{Root: root},
		extension: extension,
	}
}

// Reconcile loads the dataset index and diffs it against its PDF directory
func (r *Reconciler) Reconcile(dataset int) (*Report, error) {
	idx, err := r.indexes.Load(dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to load index for dataset %d: %w", dataset, err)
	}

	dir := r.layout.PDFDir(dataset)
	present, err := PresentFiles(dir, r.extension)
	if err != nil {
		return nil, err
	}

	missing := Missing(idx.Files, present)
	return &Report{
		Dataset: dataset,
		Dir:     dir,
		Indexed: idx.Len(),
		Present: idx.Len() - len(missing),
		Missing: missing,
	}, nil
}
