package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"contentmark/internal/paths"
)

// errScanProblems signals that the scan completed but reported problems.
// The report has already been printed.
var errScanProblems = errors.New("scan reported problems")

var (
	scanFormat         string
	scanFailOnWarnings bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan sources and write the content schema",
	Long: `Scans the configured source directory once, writes the schema and type
declarations to the output directory and prints what changed since the last scan.

Exits with status 2 when a file failed to parse or read, or when warnings were
reported and --fail-on-warnings is set.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanFormat, "format", "human", "Output format (human, json)")
	scanCmd.Flags().BoolVar(&scanFailOnWarnings, "fail-on-warnings", false, "Exit non-zero when validation warnings are reported")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	ctrl, err := p.controller(nil)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	res, err := ctrl.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	out, err := FormatResponse(newScanReport(res, paths.SchemaFile(p.outputDir(), p.cfg.Output.Format)), OutputFormat(scanFormat))
	if err != nil {
		return err
	}
	printOut(cmd, out)

	if !res.Success || (scanFailOnWarnings && len(res.Warnings) > 0) {
		return errScanProblems
	}
	return nil
}
