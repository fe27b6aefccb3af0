package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cmerrors "contentmark/internal/errors"
	"contentmark/internal/markers"
	"contentmark/internal/scanner"
	"contentmark/internal/schema"
)

var diffFormat string

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show schema changes without writing anything",
	Long:  "Scans the sources and compares the result with the persisted schema. Nothing is written.",
	Args:  cobra.NoArgs,
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffFormat, "format", "human", "Output format (human, json)")
	rootCmd.AddCommand(diffCmd)
}

// readOnlyStore loads the persisted snapshot but never saves.
type readOnlyStore struct {
	scanner.Store
}

func (readOnlyStore) Save(context.Context, *schema.ProjectSchema) error { return nil }

func runDiff(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	if !markers.IsAvailable() {
		return cmerrors.New(cmerrors.ParserUnavailable, "this build cannot parse sources", markers.ErrNoCGO)
	}
	store, err := p.fileStore()
	if err != nil {
		return err
	}
	ctrl := scanner.New(scanner.FromConfig(p.root, p.cfg),
		scanner.WithLogger(p.logger),
		scanner.WithStore(readOnlyStore{store}),
	)

	ctx := commandContext(cmd)
	res, err := ctrl.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	out, err := FormatResponse(&DiffReport{Summary: res.Diff.Summary(), Diff: res.Diff}, OutputFormat(diffFormat))
	if err != nil {
		return err
	}
	printOut(cmd, out)
	return nil
}
