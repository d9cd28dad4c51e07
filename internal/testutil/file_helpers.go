package testutil

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// CollectFiles returns the paths below root, relative to it, whose extension is ext.
// The result is sorted. This is a test helper and should not be used in production code.
func CollectFiles(root, ext string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files, err
}
