package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"contentmark/internal/events"
	"contentmark/internal/metrics"
	"contentmark/internal/paths"
	"contentmark/internal/slogutil"
)

var (
	watchMetrics     bool
	watchMetricsAddr string
	watchFlush       bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan, then rescan whenever sources change",
	Long: `Runs an initial scan and then watches the source directory. Changes are
debounced per file and overlapping rescans are folded into one. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchMetrics, "metrics", false, "Serve Prometheus metrics on /metrics")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Metrics listen address (default: metrics.addr from config)")
	watchCmd.Flags().BoolVar(&watchFlush, "flush-on-stop", false, "Rescan once on shutdown for changes still debouncing")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	logFile, err := teeToFile(p)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var collector *metrics.Collector
	var server *http.Server
	serverErr := make(chan error, 1)
	if watchMetrics || p.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector = metrics.New(reg)

		addr := p.cfg.Metrics.Addr
		if watchMetricsAddr != "" {
			addr = watchMetricsAddr
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			p.logger.Info("Serving metrics", "addr", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	if watchFlush {
		p.cfg.Watch.FlushOnStop = true
	}
	ctrl, err := p.controller(collector)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	ctrl.On(func(_ context.Context, e events.Event) error {
		_, err := fmt.Fprintln(out, formatWatchEvent(e))
		return err
	}, events.KindComplete, events.KindError, events.KindChange)

	if err := ctrl.StartWatch(ctx); err != nil {
		shutdownServer(server)
		return err
	}
	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", p.cfg.SourceRoot(p.root))

	select {
	case <-ctx.Done():
		p.logger.Info("Received shutdown signal")
	case err = <-serverErr:
		p.logger.Error("Metrics server failed", "error", err)
	}

	if stopErr := ctrl.StopWatch(); stopErr != nil && err == nil {
		err = stopErr
	}
	shutdownServer(server)
	return err
}

// teeToFile sends info and above to <output>/contentmark.log as well as
// the console logger.
func teeToFile(p *project) (io.Closer, error) {
	dir := p.outputDir()
	if err := paths.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, paths.LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	fileHandler := slogutil.NewLineHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo})
	p.logger = slog.New(slogutil.NewTeeHandler(p.logger.Handler(), fileHandler))
	return f, nil
}

func shutdownServer(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}

// formatWatchEvent renders one event as a single status line, followed by
// the changed paths for completed scans.
func formatWatchEvent(e events.Event) string {
	stamp := e.Time.Format("15:04:05")
	switch e.Kind {
	case events.KindChange:
		return fmt.Sprintf("[%s] %s %s", stamp, e.Op, e.ChangedFile)
	case events.KindError:
		return fmt.Sprintf("[%s] error: %v", stamp, e.Err)
	case events.KindComplete:
		var b strings.Builder
		fields := 0
		if e.Schema != nil {
			fields = e.Schema.TotalFields
		}
		fmt.Fprintf(&b, "[%s] scan complete: %d fields, %s", stamp, fields, e.Diff.Summary())
		for _, path := range e.Diff.Paths() {
			fmt.Fprintf(&b, "\n  %s", path)
		}
		return b.String()
	default:
		return fmt.Sprintf("[%s] %s", stamp, e.Kind)
	}
}
