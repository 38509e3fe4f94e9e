package suite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"caveat/internal/source"
)

// Discover expands paths into script files. Directories are walked
// recursively for *.cvt files; explicit files are taken as given. The result
// is sorted by path within each argument and deduplicated.
func Discover(paths []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		var found []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == Ext {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}
	return out, nil
}

// Load reads and parses every script through sources, so that source lines
// of raised warnings come from the same bytes. Every file is attempted.
func Load(paths []string, sources *source.Cache) ([]*File, error) {
	if sources == nil {
		sources = source.NewCache()
	}
	files := make([]*File, 0, len(paths))
	var errs []error
	for _, path := range paths {
		f, err := sources.Load(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", path, err))
			continue
		}
		parsed, err := Parse(filepath.ToSlash(path), f.Content)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, parsed)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return files, nil
}
