// Package paths maps between absolute file system paths and the
// slash-separated, root-relative paths stored in detections and schemas.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Well-known entries under the output directory.
const (
	SchemaJSON  = "schema.json"
	SchemaYAML  = "schema.yaml"
	HistoryDir  = "history"
	DatabaseDB  = "content.db"
	LogFileName = "contentmark.log"
)

// Relative converts an absolute path to a root-relative path with forward
// slashes. Symlinks are resolved when the target exists.
func Relative(absolutePath, root string) (string, error) {
	resolved, err := resolve(absolutePath)
	if err != nil {
		return "", err
	}
	rootResolved, err := resolve(root)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func resolve(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		// Deleted files still need a relative path
		if os.IsNotExist(err) {
			return filepath.Clean(p), nil
		}
		return "", err
	}
	return resolved, nil
}

// IsWithin reports whether path lies inside root.
func IsWithin(path, root string) bool {
	rel, err := Relative(path, root)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, "../")
}

// Join joins root with a slash-separated relative path.
func Join(root, rel string) string {
	parts := strings.Split(strings.ReplaceAll(rel, "\\", "/"), "/")
	return filepath.Join(append([]string{root}, parts...)...)
}

// SchemaFile returns the schema artifact path for the given output format.
func SchemaFile(outDir, format string) string {
	if format == "yaml" {
		return filepath.Join(outDir, SchemaYAML)
	}
	return filepath.Join(outDir, SchemaJSON)
}

// HistoryPath returns the snapshot history directory.
func HistoryPath(outDir string) string {
	return filepath.Join(outDir, HistoryDir)
}

// DefaultDatabase returns the sqlite database used when no DSN is configured.
func DefaultDatabase(outDir string) string {
	return filepath.Join(outDir, DatabaseDB)
}

// EnsureDir creates dir and its parents.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
