package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	cmerrors "contentmark/internal/errors"
	"contentmark/internal/markers"
	"contentmark/internal/schema"
)

type fakeExtractor struct {
	mu          sync.Mutex
	byFile      map[string][]markers.DetectedField
	errs        map[string][]*cmerrors.ScanError
	fail        error
	gate        chan struct{}
	entered     chan struct{}
	calls       int
	invalidated []string
	cleared     int
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		byFile: make(map[string][]markers.DetectedField),
		errs:   make(map[string][]*cmerrors.ScanError),
	}
}

func (f *fakeExtractor) set(file string, paths ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fields := make([]markers.DetectedField, 0, len(paths))
	for i, p := range paths {
		fields = append(fields, markers.DetectedField{Path: p, File: file, Line: i + 1, Column: 1, Element: "div"})
	}
	f.byFile[file] = fields
}

func (f *fakeExtractor) setLabel(file, path, label string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.byFile[file] {
		if f.byFile[file][i].Path == path {
			f.byFile[file][i].Attributes = map[string]*string{"label": &label}
		}
	}
}

func (f *fakeExtractor) ExtractFiles(ctx context.Context, root string, files []string) ([]*markers.FileResult, error) {
	f.mu.Lock()
	f.calls++
	gate, entered, fail := f.gate, f.entered, f.fail
	f.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*markers.FileResult, 0, len(files))
	for _, file := range files {
		out = append(out, &markers.FileResult{
			File:   file,
			Fields: append([]markers.DetectedField{}, f.byFile[file]...),
			Errors: f.errs[file],
		})
	}
	return out, nil
}

func (f *fakeExtractor) Invalidate(file string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, file)
	return true
}

func (f *fakeExtractor) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeExtractor) invalidatedFiles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.invalidated...)
}

type memStore struct {
	mu      sync.Mutex
	snap    *schema.ProjectSchema
	saves   int
	saveErr error
}

func (m *memStore) Load(context.Context) (*schema.ProjectSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

func (m *memStore) Save(_ context.Context, s *schema.ProjectSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snap = s
	m.saves++
	return nil
}

type recordingTypes struct {
	mu     sync.Mutex
	writes int
}

func (r *recordingTypes) Write(context.Context, *schema.ProjectSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	return nil
}

// sourceTree creates files under a temporary source root.
func sourceTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("export default function X() { return null }\n"), 0o644))
	}
	return root
}

func testConfig(root string) Config {
	return Config{
		Root:    root,
		SrcDir:  "src",
		Include: []string{"**/*.tsx"},
		Exclude: []string{"**/node_modules/**"},
		Sort:    true,
	}
}
