// Package status summarizes what is on disk under an output root: file
// counts and sizes per download location, and scrape progress per dataset.
package status

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"epsteindl/pkg/datasets"
	"epsteindl/pkg/index"
)

const bytesPerGB = 1 << 30

// Location is one download directory
type Location struct {
	Name  string
	Path  string
	Files int
	Bytes int64
}

// GB is the location's size in gibibytes
func (l Location) GB() float64 {
	return float64(l.Bytes) / bytesPerGB
}

// IndexStatus is the scrape progress of one dataset
type IndexStatus struct {
	Dataset  int
	Started  bool
	Files    int
	LastPage int
	Complete bool
}

// Progress renders "complete", "page N" or "not started"
func (s IndexStatus) Progress() string {
	if !s.Started {
		return "not started"
	}
	if s.Complete {
		return "complete"
	}
	return fmt.Sprintf("page %d", s.LastPage)
}

// Report is a full status snapshot
type Report struct {
	Root      string
	Locations []Location
	Indexes   []IndexStatus
}

// Indexes is the read side of the index store
type Indexes interface {
	Exists(dataset int) bool
	Load(dataset int) (*index.DatasetIndex, error)
}

// Scan walks the output root. Missing directories count as empty; an
// unreadable index is an error.
func Scan(root, documentExt string, indexes Indexes) (*Report, error) {
	layout := datasets.Layout{Root: root}
	report := &Report{Root: root}

	torrents, err := scanDir("torrents/", layout.TorrentDir(), "", true)
	if err != nil {
		return nil, err
	}
	zips, err := scanDir("zips/", layout.ZipDir(), ".zip", false)
	if err != nil {
		return nil, err
	}
	report.Locations = append(report.Locations, torrents, zips)

	for _, n := range datasets.Numbers() {
		dir := layout.PDFDir(n)
		loc, err := scanDir(filepath.Base(dir)+"/", dir, documentExt, false)
		if err != nil {
			return nil, err
		}
		report.Locations = append(report.Locations, loc)
	}

	for _, n := range datasets.Numbers() {
		st := IndexStatus{Dataset: n}
		if indexes.Exists(n) {
			idx, err := indexes.Load(n)
			if err != nil {
				return nil, fmt.Errorf("dataset %d: %w", n, err)
			}
			st.Started = true
			st.Files = idx.Len()
			st.LastPage = idx.LastPage
			st.Complete = idx.Complete
		}
		report.Indexes = append(report.Indexes, st)
	}

	return report, nil
}

// scanDir counts regular files in dir whose name ends in ext (any file when
// ext is empty), descending into subdirectories when recursive is set
func scanDir(name, dir, ext string, recursive bool) (Location, error) {
	loc := Location{Name: name, Path: dir}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return fs.SkipDir
			}
			return nil
		}
		if ext != "" && !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		loc.Files++
		loc.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return loc, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return loc, nil
}

// Totals sums files and bytes across locations
func (r *Report) Totals() (files int, bytes int64) {
	for _, l := range r.Locations {
		files += l.Files
		bytes += l.Bytes
	}
	return files, bytes
}

