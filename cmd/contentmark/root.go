package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"contentmark/internal/config"
	cmerrors "contentmark/internal/errors"
	"contentmark/internal/markers"
	"contentmark/internal/metrics"
	"contentmark/internal/output"
	"contentmark/internal/paths"
	"contentmark/internal/scanner"
	"contentmark/internal/slogutil"
	"contentmark/internal/version"
)

var (
	rootFlag    string
	verboseFlag int
	quietFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "contentmark",
	Short: "contentmark - content schema scanner",
	Long: `contentmark scans JSX/TSX sources for data-cms markers and turns them into a
Page → Section → Field content schema. The schema is written to .contentmark/,
diffed against the previous run, and can be mirrored into a database.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(version.Full() + "\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Project root (default: current directory)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all logs")
}

// project is the loaded state shared by every command.
type project struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
}

// projectRoot resolves --root, falling back to the working directory.
func projectRoot() (string, error) {
	root := rootFlag
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", cmerrors.New(cmerrors.InternalError, "failed to get current directory", err)
		}
		root = cwd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", cmerrors.New(cmerrors.InternalError, "failed to resolve project root", err)
	}
	return abs, nil
}

func loadProject() (*project, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, cmerrors.New(cmerrors.ConfigInvalid, "failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cmerrors.New(cmerrors.ConfigInvalid, "invalid configuration", err)
	}

	return &project{
		root:   root,
		cfg:    cfg,
		logger: newLogger(cfg.Logging),
	}, nil
}

// newLogger writes to stderr so stdout stays parseable. Command-line
// verbosity wins over the configured level.
func newLogger(lc config.LoggingConfig) *slog.Logger {
	level := slogutil.LevelFromString(lc.Level)
	if verboseFlag > 0 || quietFlag {
		level = slogutil.LevelFromVerbosity(verboseFlag, quietFlag)
	}
	return slogutil.New(os.Stderr, lc.Format, level)
}

func (p *project) outputDir() string {
	return p.cfg.OutputDir(p.root)
}

// fileStore returns the schema store, with history when enabled.
func (p *project) fileStore() (*output.FileStore, error) {
	format, err := output.ParseFormat(p.cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	dir := p.outputDir()
	return output.NewFileStore(dir, format, p.cfg.Output.Pretty,
		output.WithHistory(output.NewHistory(paths.HistoryPath(dir), p.cfg.Output.HistoryLimit)),
		output.WithLogger(p.logger),
	), nil
}

// controller wires the persisted outputs into a scan controller. Extra
// options are applied last.
func (p *project) controller(m *metrics.Collector, extra ...scanner.Option) (*scanner.Controller, error) {
	if !markers.IsAvailable() {
		return nil, cmerrors.New(cmerrors.ParserUnavailable, "this build cannot parse sources", markers.ErrNoCGO)
	}
	store, err := p.fileStore()
	if err != nil {
		return nil, err
	}
	opts := []scanner.Option{
		scanner.WithLogger(p.logger),
		scanner.WithStore(store),
		scanner.WithMetrics(m),
	}
	if p.cfg.Output.Types {
		opts = append(opts, scanner.WithTypeWriter(output.NewTypeWriter(filepath.Join(p.outputDir(), p.cfg.Output.TypesFile))))
	}
	opts = append(opts, extra...)
	return scanner.New(scanner.FromConfig(p.root, p.cfg), opts...), nil
}

func printOut(cmd *cobra.Command, s string) {
	fmt.Fprintln(cmd.OutOrStdout(), s)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
