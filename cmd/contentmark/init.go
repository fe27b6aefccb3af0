package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"contentmark/internal/config"
	cmerrors "contentmark/internal/errors"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Long:  "Creates .contentmark/config.toml with default settings in the project root",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	configPath := filepath.Join(root, config.StateDir, "config.toml")
	if _, statErr := os.Stat(configPath); statErr == nil && !initForce {
		// Already initialized is success
		printOut(cmd, "contentmark already initialized.")
		printOut(cmd, fmt.Sprintf("Configuration at: %s", configPath))
		printOut(cmd, "\nRun 'contentmark init --force' to overwrite.")
		return nil
	}

	if err := config.DefaultConfig().Save(root); err != nil {
		return cmerrors.New(cmerrors.InternalError, "failed to write configuration", err)
	}

	printOut(cmd, fmt.Sprintf("Wrote %s", configPath))
	return nil
}
