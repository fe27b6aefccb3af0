package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmerrors "contentmark/internal/errors"
	"contentmark/internal/events"
	"contentmark/internal/output"
	"contentmark/internal/schema"
	"contentmark/internal/schemadiff"
	"contentmark/internal/storage"
)

func sampleDiff() *schemadiff.SchemaDiff {
	return &schemadiff.SchemaDiff{
		Added:   []schema.FieldSchema{{Path: "home.hero.title", Type: schema.TypeText}},
		Removed: []schema.FieldSchema{{Path: "home.hero.subtitle", Type: schema.TypeTextarea}},
		Modified: []schemadiff.Modification{
			{Path: "home.hero.cta", Changes: []string{"label", "required"}},
		},
		HasChanges: true,
	}
}

func TestFormatResponse_JSON(t *testing.T) {
	report := &DiffReport{Summary: "no changes", Diff: &schemadiff.SchemaDiff{}}

	result, err := FormatResponse(report, FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, result, `"summary": "no changes"`)
	assert.Contains(t, result, `"hasChanges": false`)
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	_, err := FormatResponse(map[string]string{"key": "value"}, "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestFormatHuman_UnknownTypeFallsBackToJSON(t *testing.T) {
	result, err := FormatResponse(map[string]int{"num": 42}, FormatHuman)
	require.NoError(t, err)
	assert.Contains(t, result, `"num": 42`)
}

func TestFormatScanHuman(t *testing.T) {
	report := &ScanReport{
		Files:            12,
		FilesWithMarkers: 3,
		Pages:            2,
		Fields:           7,
		DurationMs:       45,
		Output:           ".contentmark/schema.json",
		Diff:             sampleDiff(),
		Errors:           []*cmerrors.ScanError{cmerrors.Parse("src/Broken.tsx", 3, 5, "syntax error")},
		Warnings: []*cmerrors.ScanError{
			cmerrors.Validation("src/Home.tsx", 2, 0, "home.hero", "marker path needs at least three segments"),
		},
	}

	result, err := FormatResponse(report, FormatHuman)
	require.NoError(t, err)

	want := strings.Join([]string{
		"Scanned 12 files (3 with markers) in 45ms",
		"Schema: 2 pages, 7 fields",
		"Written to .contentmark/schema.json",
		"Changes: 1 added, 1 removed, 1 modified",
		"  + home.hero.title (text)",
		"  - home.hero.subtitle (textarea)",
		"  ~ home.hero.cta: label, required",
		"Errors (1):",
		"  " + report.Errors[0].Error(),
		"Warnings (1):",
		"  " + report.Warnings[0].Error(),
	}, "\n")
	assert.Equal(t, want, result)
	assert.Contains(t, result, "src/Home.tsx:2")
	assert.Contains(t, result, `"home.hero"`)
}

func TestFormatDiffHuman_NoChanges(t *testing.T) {
	result, err := FormatResponse(&DiffReport{Diff: &schemadiff.SchemaDiff{}}, FormatHuman)
	require.NoError(t, err)
	assert.Equal(t, "Changes: no changes", result)
}

func TestFormatSyncHuman(t *testing.T) {
	report := &SyncReport{
		Driver: "sqlite",
		Result: &storage.SyncResult{
			Pages:    storage.Counts{Created: 1},
			Sections: storage.Counts{Created: 2, Unchanged: 1},
			Fields:   storage.Counts{Updated: 3, Deleted: 1},
			Duration: 12 * time.Millisecond,
		},
	}

	result, err := FormatResponse(report, FormatHuman)
	require.NoError(t, err)

	lines := strings.Split(result, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Synced schema (sqlite) in 12ms", lines[0])
	assert.Equal(t, "  Pages:    1 created, 0 updated, 0 deleted, 0 unchanged", lines[1])
	assert.Equal(t, "  Sections: 2 created, 0 updated, 0 deleted, 1 unchanged", lines[2])
	assert.Equal(t, "  Fields:   0 created, 3 updated, 1 deleted, 0 unchanged", lines[3])
}

func TestFormatHistoryHuman(t *testing.T) {
	empty, err := FormatResponse(&HistoryReport{Dir: "/tmp/h"}, FormatHuman)
	require.NoError(t, err)
	assert.Equal(t, "No snapshots in /tmp/h", empty)

	at := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	result, err := FormatResponse(&HistoryReport{
		Dir:     "/tmp/h",
		Entries: []output.Entry{{Name: "schema-a.json.zst", GeneratedAt: at, Size: 512}},
	}, FormatHuman)
	require.NoError(t, err)
	assert.Equal(t, "Snapshots in /tmp/h:\n  schema-a.json.zst  2026-10-16T09:30:00Z  512 bytes", result)
}

func TestFormatWatchEvent(t *testing.T) {
	at := time.Date(2026, 10, 16, 9, 30, 5, 0, time.Local)

	change := events.Change("pages/Home.tsx", "change")
	change.Time = at
	assert.Equal(t, "[09:30:05] change pages/Home.tsx", formatWatchEvent(change))

	failed := events.Error("scan-1", errors.New("boom"))
	failed.Time = at
	assert.Equal(t, "[09:30:05] error: boom", formatWatchEvent(failed))

	done := events.Complete("scan-1", &schema.ProjectSchema{TotalFields: 4}, sampleDiff())
	done.Time = at
	assert.Equal(t, "[09:30:05] scan complete: 4 fields, 1 added, 1 removed, 1 modified\n"+
		"  home.hero.cta\n  home.hero.subtitle\n  home.hero.title", formatWatchEvent(done))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(errScanProblems))
	assert.Equal(t, 2, exitCode(fmt.Errorf("wrapped: %w", errScanProblems)))
	assert.Equal(t, 1, exitCode(errors.New("other")))
}
