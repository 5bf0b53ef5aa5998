package status

import (
	"os"
	"path/filepath"
	"testing"

	"epsteindl/pkg/index"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "torrents", "DataSet 9", "part1.pdf"), 100)
	write(t, filepath.Join(root, "torrents", "DataSet 9", "nested", "part2.bin"), 50)
	write(t, filepath.Join(root, "zips", "DataSet1.zip"), 1000)
	write(t, filepath.Join(root, "zips", "DataSet2.zip.aria2"), 7)
	write(t, filepath.Join(root, "dataset9-pdfs", "a.pdf"), 10)
	write(t, filepath.Join(root, "dataset9-pdfs", "b.pdf"), 20)
	write(t, filepath.Join(root, "dataset9-pdfs", "b.pdf.part"), 5)
	write(t, filepath.Join(root, "dataset9-pdfs", "sub", "c.pdf"), 5)

	store := index.NewStore(root, nil)
	idx := index.New()
	idx.Add("a.pdf", "https://x/a.pdf")
	idx.LastPage = 42
	require.NoError(t, store.Save(9, idx))

	done := index.New()
	done.Complete = true
	require.NoError(t, store.Save(1, done))

	report, err := Scan(root, ".pdf", store)
	require.NoError(t, err)

	require.Len(t, report.Locations, 2+13)
	assert.Equal(t, "torrents/", report.Locations[0].Name)
	assert.Equal(t, 2, report.Locations[0].Files)
	assert.EqualValues(t, 150, report.Locations[0].Bytes)

	assert.Equal(t, "zips/", report.Locations[1].Name)
	assert.Equal(t, 1, report.Locations[1].Files)

	ds9 := report.Locations[2+8]
	assert.Equal(t, "dataset9-pdfs/", ds9.Name)
	assert.Equal(t, 2, ds9.Files)
	assert.EqualValues(t, 30, ds9.Bytes)

	assert.Equal(t, 0, report.Locations[2].Files)

	require.Len(t, report.Indexes, 13)
	assert.Equal(t, "complete", report.Indexes[0].Progress())
	assert.Equal(t, "not started", report.Indexes[1].Progress())
	assert.Equal(t, "page 42", report.Indexes[8].Progress())
	assert.Equal(t, 1, report.Indexes[8].Files)

	files, bytes := report.Totals()
	assert.Equal(t, 5, files)
	assert.EqualValues(t, 1180, bytes)
}

func TestScanEmptyRoot(t *testing.T) {
	report, err := Scan(filepath.Join(t.TempDir(), "missing"), ".pdf", index.NewStore(t.TempDir(), nil))
	require.NoError(t, err)

	files, bytes := report.Totals()
	assert.Zero(t, files)
	assert.Zero(t, bytes)
	for _, s := range report.Indexes {
		assert.False(t, s.Started)
	}
}

func TestScanCorruptIndex(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "dataset3-index.json"), 0)
	require.NoError(t, os.WriteFile(filepath.Join(root, "dataset3-index.json"), []byte("{not json"), 0644))

	_, err := Scan(root, ".pdf", index.NewStore(root, nil))
	assert.ErrorContains(t, err, "dataset 3")
}

func TestLocationGB(t *testing.T) {
	assert.InDelta(t, 1.5, Location{Bytes: 3 << 29}.GB(), 1e-9)
}
