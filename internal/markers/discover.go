package markers

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"contentmark/internal/paths"
)

// Discover walks root and returns the root-relative, slash-separated paths of
// every file selected by include and not excluded. Excluded directories are
// not descended into. Files without a supported extension are skipped.
func Discover(root string, include, exclude []string) ([]string, error) {
	m, err := paths.NewMatcher(include, exclude)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			// Unreadable subtrees are skipped
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if m.ExcludedDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if _, ok := LanguageForFile(rel); !ok {
			return nil
		}
		if m.MatchFile(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering files under %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}
