package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentmark/internal/output"
)

var schemaFormat string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the persisted content schema",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

func init() {
	schemaCmd.Flags().StringVar(&schemaFormat, "format", "", "Output format (json, yaml; default: configured format)")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	store, err := p.fileStore()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	snap, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("no schema at %s; run 'contentmark scan' first", store.Path())
	}

	name := schemaFormat
	if name == "" {
		name = p.cfg.Output.Format
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return err
	}
	data, err := output.Encode(snap, format, true)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
