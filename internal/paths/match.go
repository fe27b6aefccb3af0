package paths

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher filters root-relative paths with doublestar include and exclude
// globs. An empty include list matches every file.
type Matcher struct {
	include []string
	exclude []string
}

// NewMatcher validates the patterns and returns a Matcher.
func NewMatcher(include, exclude []string) (*Matcher, error) {
	for _, p := range include {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q", p)
		}
	}
	for _, p := range exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &Matcher{include: include, exclude: exclude}, nil
}

// MatchFile reports whether a file path is included and not excluded.
func (m *Matcher) MatchFile(rel string) bool {
	rel = filepath.ToSlash(rel)
	if matchAny(m.exclude, rel) {
		return false
	}
	if len(m.include) == 0 {
		return true
	}
	return matchAny(m.include, rel)
}

// ExcludedDir reports whether a directory and everything below it is excluded.
func (m *Matcher) ExcludedDir(rel string) bool {
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == "" {
		return false
	}
	return matchAny(m.exclude, rel) || matchAny(m.exclude, rel+"/")
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}
