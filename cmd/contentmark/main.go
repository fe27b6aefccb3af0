package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errScanProblems) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps command errors to process exit codes: 2 when a scan
// finished with problems, 1 for every other failure.
func exitCode(err error) int {
	if errors.Is(err, errScanProblems) {
		return 2
	}
	return 1
}
