package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentmark/internal/output"
	"contentmark/internal/schema"
)

var historyFormat string

var historyCmd = &cobra.Command{
	Use:   "history [snapshot|latest]",
	Short: "List stored schema snapshots, or print one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format (human, json)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	store, err := p.fileStore()
	if err != nil {
		return err
	}
	h := store.History()
	if !h.Enabled() {
		return fmt.Errorf("snapshot history is disabled (output.historyLimit = 0)")
	}

	if len(args) == 1 {
		var snap *schema.ProjectSchema
		if args[0] == "latest" {
			snap, err = h.Latest()
		} else {
			snap, err = h.Read(args[0])
		}
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("no snapshots in %s", h.Dir())
		}
		data, err := output.Encode(snap, output.FormatJSON, true)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	entries, err := h.List()
	if err != nil {
		return err
	}
	out, err := FormatResponse(&HistoryReport{Dir: h.Dir(), Entries: entries}, OutputFormat(historyFormat))
	if err != nil {
		return err
	}
	printOut(cmd, out)
	return nil
}
