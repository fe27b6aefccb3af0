package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cmerrors "contentmark/internal/errors"
	"contentmark/internal/output"
	"contentmark/internal/scanner"
	"contentmark/internal/schemadiff"
	"contentmark/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// ScanReport is the printable outcome of a scan.
type ScanReport struct {
	ID               string                 `json:"id"`
	Success          bool                   `json:"success"`
	Files            int                    `json:"files"`
	FilesWithMarkers int                    `json:"filesWithMarkers"`
	Pages            int                    `json:"pages"`
	Fields           int                    `json:"fields"`
	Errors           []*cmerrors.ScanError  `json:"errors"`
	Warnings         []*cmerrors.ScanError  `json:"warnings"`
	Diff             *schemadiff.SchemaDiff `json:"diff"`
	DurationMs       int64                  `json:"durationMs"`
	Output           string                 `json:"output,omitempty"`
}

func newScanReport(res *scanner.ScanResult, out string) *ScanReport {
	return &ScanReport{
		ID:               res.ID,
		Success:          res.Success,
		Files:            len(res.Files),
		FilesWithMarkers: res.FilesWithMarkers,
		Pages:            res.Schema.PageCount,
		Fields:           res.Schema.TotalFields,
		Errors:           res.Errors,
		Warnings:         res.Warnings,
		Diff:             res.Diff,
		DurationMs:       res.Duration.Milliseconds(),
		Output:           out,
	}
}

// DiffReport is the printable outcome of a dry-run scan.
type DiffReport struct {
	Summary string                 `json:"summary"`
	Diff    *schemadiff.SchemaDiff `json:"diff"`
}

// SyncReport is the printable outcome of a database sync.
type SyncReport struct {
	Driver string              `json:"driver"`
	Result *storage.SyncResult `json:"result"`
}

// HistoryReport lists stored snapshots.
type HistoryReport struct {
	Dir     string         `json:"dir"`
	Entries []output.Entry `json:"entries"`
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *ScanReport:
		return formatScanHuman(v), nil
	case *DiffReport:
		return formatDiffHuman(v), nil
	case *SyncReport:
		return formatSyncHuman(v), nil
	case *HistoryReport:
		return formatHistoryHuman(v), nil
	default:
		return formatJSON(resp)
	}
}

func formatScanHuman(r *ScanReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Scanned %d files (%d with markers) in %dms\n", r.Files, r.FilesWithMarkers, r.DurationMs)
	fmt.Fprintf(&b, "Schema: %d pages, %d fields\n", r.Pages, r.Fields)
	if r.Output != "" {
		fmt.Fprintf(&b, "Written to %s\n", r.Output)
	}
	writeDiff(&b, r.Diff)
	writeProblems(&b, "Errors", r.Errors)
	writeProblems(&b, "Warnings", r.Warnings)

	return strings.TrimRight(b.String(), "\n")
}

func formatDiffHuman(r *DiffReport) string {
	var b strings.Builder
	writeDiff(&b, r.Diff)
	return strings.TrimRight(b.String(), "\n")
}

func writeDiff(b *strings.Builder, d *schemadiff.SchemaDiff) {
	fmt.Fprintf(b, "Changes: %s\n", d.Summary())
	if d == nil {
		return
	}
	for _, f := range d.Added {
		fmt.Fprintf(b, "  + %s (%s)\n", f.Path, f.Type)
	}
	for _, f := range d.Removed {
		fmt.Fprintf(b, "  - %s (%s)\n", f.Path, f.Type)
	}
	for _, m := range d.Modified {
		fmt.Fprintf(b, "  ~ %s: %s\n", m.Path, strings.Join(m.Changes, ", "))
	}
}

func writeProblems(b *strings.Builder, title string, errs []*cmerrors.ScanError) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d):\n", title, len(errs))
	for _, e := range errs {
		fmt.Fprintf(b, "  %s\n", e.Error())
	}
}

func formatSyncHuman(r *SyncReport) string {
	var b strings.Builder
	res := r.Result

	fmt.Fprintf(&b, "Synced schema (%s) in %dms\n", r.Driver, res.Duration.Milliseconds())
	rows := []struct {
		name string
		c    storage.Counts
	}{
		{"Pages", res.Pages},
		{"Sections", res.Sections},
		{"Fields", res.Fields},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "  %-9s %d created, %d updated, %d deleted, %d unchanged\n",
			row.name+":", row.c.Created, row.c.Updated, row.c.Deleted, row.c.Unchanged)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHistoryHuman(r *HistoryReport) string {
	if len(r.Entries) == 0 {
		return "No snapshots in " + r.Dir
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Snapshots in %s:\n", r.Dir)
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "  %s  %s  %d bytes\n", e.Name, e.GeneratedAt.UTC().Format(time.RFC3339), e.Size)
	}
	return strings.TrimRight(b.String(), "\n")
}
