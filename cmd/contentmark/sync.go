package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentmark/internal/paths"
	"contentmark/internal/storage"
)

var (
	syncDeleteRemoved bool
	syncScan          bool
	syncFormat        string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the content schema into the database",
	Long: `Upserts every page, section and field of the persisted schema into the
configured database (sqlite by default, or PostgreSQL with driver "pgx").
Rows missing from the schema are kept unless --delete-removed is set.
Pass -v to log every row change.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDeleteRemoved, "delete-removed", false, "Delete rows no longer present in the schema")
	syncCmd.Flags().BoolVar(&syncScan, "scan", false, "Scan before syncing instead of using the persisted schema")
	syncCmd.Flags().StringVar(&syncFormat, "format", "human", "Output format (human, json)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	store, err := p.fileStore()
	if err != nil {
		return err
	}
	snap, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if snap == nil || syncScan {
		ctrl, err := p.controller(nil)
		if err != nil {
			return err
		}
		res, err := ctrl.Scan(ctx)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		snap = res.Schema
	}

	dsn := p.cfg.Database.DSN
	if dsn == "" && p.cfg.Database.Driver == storage.DriverSQLite {
		dsn = paths.DefaultDatabase(p.outputDir())
	}
	db, err := storage.Open(ctx, p.cfg.Database.Driver, dsn, p.logger)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := storage.SyncSchema(ctx, db, snap, storage.SyncOptions{
		DeleteRemoved: syncDeleteRemoved || p.cfg.Database.DeleteRemoved,
		Verbose:       verboseFlag > 0,
	})
	if err != nil {
		return err
	}

	out, err := FormatResponse(&SyncReport{Driver: db.Driver(), Result: result}, OutputFormat(syncFormat))
	if err != nil {
		return err
	}
	printOut(cmd, out)
	return nil
}
