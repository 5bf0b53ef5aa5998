// Package datasets describes the published document collections and where
// their artifacts live on disk.
package datasets

import (
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
)

// Count is the number of published datasets, numbered from 1
const Count = 13

// Dataset is one published collection
type Dataset struct {
	Number int
	// ZipAvailable is false where the bulk archive was taken down
	ZipAvailable bool
	// Magnet is empty unless a torrent is configured for the dataset
	Magnet string
}

// removedZips lists datasets whose bulk ZIP is no longer served
var removedZips = map[int]bool{9: true, 10: true, 11: true}

// DefaultTrackers are appended to configured magnets that lack them
var DefaultTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.torrent.eu.org:451/announce",
	"udp://exodus.desync.com:6969/announce",
	"udp://open.demonii.com:1337/announce",
}

// All returns the catalogue in dataset order, attaching magnets from the
// given map
func All(magnets map[int]string) []Dataset {
	out := make([]Dataset, 0, Count)
	for n := 1; n <= Count; n++ {
		out = append(out, Dataset{
			Number:       n,
			ZipAvailable: !removedZips[n],
			Magnet:       magnets[n],
		})
	}
	return out
}

// Get returns a single dataset
func Get(n int, magnets map[int]string) (Dataset, error) {
	if err := Validate(n); err != nil {
		return Dataset{}, err
	}
	return Dataset{Number: n, ZipAvailable: !removedZips[n], Magnet: magnets[n]}, nil
}

// Validate rejects dataset numbers outside the catalogue
func Validate(n int) error {
	if n < 1 || n > Count {
		return fmt.Errorf("unknown dataset %d (valid: 1-%d)", n, Count)
	}
	return nil
}

// Numbers returns 1..Count
func Numbers() []int {
	nums := make([]int, Count)
	for i := range nums {
		nums[i] = i + 1
	}
	return nums
}

// ZipName is the archive's file name
func ZipName(n int) string {
	return fmt.Sprintf("DataSet%d.zip", n)
}

// ZipURL is the bulk archive URL for dataset n
func ZipURL(baseURL string, n int) string {
	return fmt.Sprintf("%s/epstein/files/DataSet%%20%d.zip", strings.TrimRight(baseURL, "/"), n)
}

// MagnetWithTrackers appends every default tracker the magnet does not
// already announce to
func MagnetWithTrackers(magnet string) string {
	if magnet == "" {
		return ""
	}

	present := make(map[string]bool)
	if i := strings.Index(magnet, "?"); i >= 0 {
		if q, err := url.ParseQuery(magnet[i+1:]); err == nil {
			for _, tr := range q["tr"] {
				present[tr] = true
			}
		}
	}

	var b strings.Builder
	b.WriteString(magnet)
	for _, tr := range DefaultTrackers {
		if present[tr] {
			continue
		}
		b.WriteString("&tr=")
		b.WriteString(url.QueryEscape(tr))
	}
	return b.String()
}

// Layout maps datasets to paths under an output root
type Layout struct {
	Root string
}

func (l Layout) IndexFile(n int) string {
	return filepath.Join(l.Root, fmt.Sprintf("dataset%d-index.json", n))
}

func (l Layout) URLListFile(n int) string {
	return filepath.Join(l.Root, fmt.Sprintf("dataset%d-urls.txt", n))
}

func (l Layout) PDFDir(n int) string {
	return filepath.Join(l.Root, fmt.Sprintf("dataset%d-pdfs", n))
}

func (l Layout) ZipDir() string {
	return filepath.Join(l.Root, "zips")
}

func (l Layout) TorrentDir() string {
	return filepath.Join(l.Root, "torrents")
}

// TempInputFile is the scratch aria2c input file used for ad hoc lists
func (l Layout) TempInputFile() string {
	return filepath.Join(l.Root, "pdf-urls-temp.txt")
}

// WithMagnets filters the catalogue to datasets that have a torrent
func WithMagnets(all []Dataset) []Dataset {
	var out []Dataset
	for _, d := range all {
		if d.Magnet != "" {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}
