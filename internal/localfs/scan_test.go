package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetNames(t *testing.T) {
	fs := memfs.New()
	for _, p := range []string{
		"/ICOS_ATC_L2_HTM.zip/part1.csv",
		"/ICOS_ATC_L2_HTM.zip/part2.csv",
		"/nested/deeper/OTC_SOOP_2021/data.CSV",
		"/notes/readme.txt",
	} {
		require.NoError(t, util.WriteFile(fs, p, []byte("a,b\n"), 0o644))
	}

	names, err := DatasetNames(fs)
	require.NoError(t, err)
	assert.Equal(t, []string{"ICOS_ATC_L2_HTM.zip.csv", "OTC_SOOP_2021.csv"}, names)
}

func TestDatasetNames_Empty(t *testing.T) {
	names, err := DatasetNames(memfs.New())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "HTM_CO2"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "HTM_CO2", "x.csv"), []byte("a\n"), 0o644))

	names, err := Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"HTM_CO2.csv"}, names)

	_, err = Scan(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	_, err = Scan(filepath.Join(dir, "HTM_CO2", "x.csv"))
	assert.Error(t, err)
}
