// Package index persists the per-dataset record of discovered documents and
// scrape progress.
package index

import "strconv"

// DatasetIndex is the persisted state of one dataset. Fields missing from an
// older record decode to their zero values.
type DatasetIndex struct {
	// Files maps filename to source URL
	Files    map[string]string `json:"files"`
	LastPage int               `json:"last_page"`
	Complete bool              `json:"complete"`
}

// New returns an empty index
func New() *DatasetIndex {
	return &DatasetIndex{Files: make(map[string]string)}
}

// Has reports whether filename is indexed
func (i *DatasetIndex) Has(filename string) bool {
	_, ok := i.Files[filename]
	return ok
}

// Add records filename -> url unless filename is already present.
// Existing entries are never overwritten.
func (i *DatasetIndex) Add(filename, url string) bool {
	if i.Files == nil {
		i.Files = make(map[string]string)
	}
	if _, ok := i.Files[filename]; ok {
		return false
	}
	i.Files[filename] = url
	return true
}

// Len is the number of indexed files
func (i *DatasetIndex) Len() int {
	return len(i.Files)
}

// Filenames returns a snapshot set of the indexed names
func (i *DatasetIndex) Filenames() map[string]struct{} {
	set := make(map[string]struct{}, len(i.Files))
	for name := range i.Files {
		set[name] = struct{}{}
	}
	return set
}

// Progress describes the scrape state in a few words
func (i *DatasetIndex) Progress() string {
	if i.Complete {
		return "complete"
	}
	return "page " + strconv.Itoa(i.LastPage)
}
