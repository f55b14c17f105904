// Package localfs finds the datasets already downloaded to local storage.
package localfs

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// DatasetExt is the extension of downloaded dataset files.
const DatasetExt = ".csv"

// Scan lists the dataset names under dir on the host filesystem.
func Scan(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "scan", Path: dir, Err: os.ErrInvalid}
	}
	return DatasetNames(osfs.New(dir))
}

// DatasetNames walks fsys and returns one name per directory holding a
// dataset file: the directory name plus DatasetExt. A dataset is stored as
// <name>/<part>.csv, so the directory, not the file, carries the name the
// remote catalog knows it by. Names are sorted and unique.
func DatasetNames(fsys billy.Filesystem) ([]string, error) {
	seen := make(map[string]bool)
	err := util.Walk(fsys, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if p == "/" && os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() || !strings.EqualFold(path.Ext(p), DatasetExt) {
			return nil
		}
		seen[parentName(fsys, p)+DatasetExt] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func parentName(fsys billy.Filesystem, p string) string {
	dir := path.Dir(filepath.ToSlash(p))
	switch dir {
	case "/", ".", "":
		return filepath.Base(fsys.Root())
	}
	return path.Base(dir)
}
