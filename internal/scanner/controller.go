// Package scanner runs the scan pipeline (discover, extract, generate, diff,
// persist) and keeps the current schema snapshot of one project.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"contentmark/internal/config"
	cmerrors "contentmark/internal/errors"
	"contentmark/internal/events"
	"contentmark/internal/markers"
	"contentmark/internal/metrics"
	"contentmark/internal/schema"
	"contentmark/internal/schemadiff"
	"contentmark/internal/slogutil"
	"contentmark/internal/watcher"
)

// ErrAlreadyWatching is returned by StartWatch while a watch session is
// active.
var ErrAlreadyWatching = errors.New("already watching")

// Extractor produces per-file detections. *markers.Pool implements it.
type Extractor interface {
	ExtractFiles(ctx context.Context, root string, files []string) ([]*markers.FileResult, error)
	Invalidate(file string) bool
	Clear()
}

// Store persists the latest snapshot. Load returns nil, nil when nothing was
// saved yet.
type Store interface {
	Load(ctx context.Context) (*schema.ProjectSchema, error)
	Save(ctx context.Context, s *schema.ProjectSchema) error
}

// TypeWriter emits type declarations for a snapshot.
type TypeWriter interface {
	Write(ctx context.Context, s *schema.ProjectSchema) error
}

// Config describes the project a Controller scans.
type Config struct {
	// Root is the absolute source directory.
	Root string
	// SrcDir is the configured source directory as recorded in schema meta.
	SrcDir   string
	Include  []string
	Exclude  []string
	Sort     bool
	Debounce time.Duration
	// FlushOnStop makes StopWatch rescan once for changes still debouncing.
	FlushOnStop bool

	Attribute   string
	Concurrency int
}

// FromConfig derives a Config from the project configuration.
func FromConfig(projectRoot string, cfg *config.Config) Config {
	return Config{
		Root:        cfg.SourceRoot(projectRoot),
		SrcDir:      cfg.SrcDir,
		Include:     cfg.Include,
		Exclude:     cfg.Exclude,
		Sort:        cfg.Schema.Sort,
		Debounce:    cfg.Watch.Debounce(),
		FlushOnStop: cfg.Watch.FlushOnStop,
		Attribute:   cfg.MarkerAttribute,
		Concurrency: cfg.Scan.Concurrency,
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithExtractor replaces the default extraction pool.
func WithExtractor(e Extractor) Option {
	return func(c *Controller) { c.extractor = e }
}

// WithStore persists every snapshot and diffs against the stored one.
// Without a store the previous in-memory snapshot is used.
func WithStore(s Store) Option {
	return func(c *Controller) { c.store = s }
}

// WithTypeWriter emits type declarations after every successful save.
func WithTypeWriter(w TypeWriter) Option {
	return func(c *Controller) { c.types = w }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics records scans on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// ScanResult is the outcome of one scan. Errors holds per-file parse and io
// problems; Warnings holds validation problems found while generating.
type ScanResult struct {
	ID               string
	Schema           *schema.ProjectSchema
	Diff             *schemadiff.SchemaDiff
	Files            []string
	FilesWithMarkers int
	Errors           []*cmerrors.ScanError
	Warnings         []*cmerrors.ScanError
	Success          bool
	Duration         time.Duration
}

// Controller owns the scan pipeline and the current snapshot. Multiple
// controllers may run side by side.
type Controller struct {
	cfg       Config
	extractor Extractor
	store     Store
	types     TypeWriter
	logger    *slog.Logger
	metrics   *metrics.Collector
	bus       *events.Bus
	now       func() time.Time

	// scanMu serializes scans
	scanMu sync.Mutex

	mu          sync.Mutex
	current     *schema.ProjectSchema
	watching    bool
	watcher     *watcher.Watcher
	watchCancel context.CancelFunc
	inFlight    bool
	pending     bool
	drained     bool
	rescans     sync.WaitGroup
}

// New creates an idle controller.
func New(cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.extractor == nil {
		c.extractor = markers.NewPool(markers.PoolOptions{
			Attribute:   cfg.Attribute,
			Concurrency: cfg.Concurrency,
			Logger:      c.logger,
		})
	}
	c.bus = events.NewBus(c.logger)
	return c
}

// On subscribes h to controller events of the given kinds, or all kinds.
// Handlers run synchronously on the publishing goroutine.
func (c *Controller) On(h events.Handler, kinds ...events.Kind) *events.Subscription {
	return c.bus.Subscribe(h, kinds...)
}

// Schema returns the current snapshot, nil before the first scan.
func (c *Controller) Schema() *schema.ProjectSchema {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Clear drops cached detections and the current snapshot.
func (c *Controller) Clear() {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()

	c.extractor.Clear()
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

// IsWatching reports whether a watch session is active.
func (c *Controller) IsWatching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watching
}

// Scan runs the whole pipeline once. Concurrent calls run one after another.
// The error is non-nil only when the pipeline itself failed; problems in
// individual files are reported in the result.
//
// Events are published outside the scan lock, so handlers may call back into
// the controller. Events of concurrent Scan calls can interleave; use
// Event.ScanID to pair them.
func (c *Controller) Scan(ctx context.Context) (*ScanResult, error) {
	id := uuid.NewString()
	c.bus.Publish(ctx, events.Start(id))

	res, err := c.scanLocked(ctx, id)
	if err != nil {
		c.bus.Publish(ctx, events.Error(id, err))
		return nil, err
	}
	c.bus.Publish(ctx, events.Complete(id, res.Schema, res.Diff))
	return res, nil
}

func (c *Controller) scanLocked(ctx context.Context, id string) (*ScanResult, error) {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()

	logger := slogutil.ForScan(c.logger, id)
	started := c.now()
	logger.Debug("Scan started", "root", c.cfg.Root)

	res, err := c.run(ctx, id, started)
	if err != nil {
		elapsed := c.now().Sub(started)
		c.metrics.ObserveScan(metrics.ResultError, elapsed, 0, 0)
		logger.Error("Scan failed", "error", err)
		return nil, err
	}

	result := metrics.ResultSuccess
	if !res.Success || len(res.Warnings) > 0 {
		result = metrics.ResultWarning
	}
	c.metrics.ObserveScan(result, res.Duration, res.Schema.PageCount, res.Schema.TotalFields)
	for kind, n := range cmerrors.CountByKind(append(append([]*cmerrors.ScanError{}, res.Errors...), res.Warnings...)) {
		c.metrics.AddScanErrors(string(kind), n)
	}

	for _, e := range res.Errors {
		logger.Warn("Scan error", "type", string(e.Kind), "location", e.Location(), "path", e.Path, "message", e.Message)
	}
	for _, w := range res.Warnings {
		logger.Warn("Schema warning", "location", w.Location(), "path", w.Path, "message", w.Message)
	}
	logger.Info("Scan complete",
		"files", len(res.Files),
		"pages", res.Schema.PageCount,
		"fields", res.Schema.TotalFields,
		"errors", len(res.Errors),
		"warnings", len(res.Warnings),
		"changes", res.Diff.Summary(),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (c *Controller) run(ctx context.Context, id string, started time.Time) (*ScanResult, error) {
	files, err := markers.Discover(c.cfg.Root, c.cfg.Include, c.cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}

	results, err := c.extractor.ExtractFiles(ctx, c.cfg.Root, files)
	if err != nil {
		return nil, fmt.Errorf("extracting markers: %w", err)
	}

	withMarkers := 0
	for _, r := range results {
		if r != nil && r.HasMarkers() {
			withMarkers++
		}
	}

	snap, warnings := schema.Generate(markers.Detections(results), schema.Options{
		Sort:             c.cfg.Sort,
		SrcDir:           c.cfg.SrcDir,
		FilesScanned:     len(files),
		FilesWithMarkers: withMarkers,
		StartedAt:        started,
		Now:              c.now,
	})

	var prev *schema.ProjectSchema
	if c.store != nil {
		prev, err = c.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading previous schema: %w", err)
		}
	} else {
		prev = c.Schema()
	}
	diff := schemadiff.Diff(prev, snap)

	if c.store != nil {
		if err := c.store.Save(ctx, snap); err != nil {
			return nil, fmt.Errorf("saving schema: %w", err)
		}
	}
	if c.types != nil {
		if err := c.types.Write(ctx, snap); err != nil {
			return nil, fmt.Errorf("writing type declarations: %w", err)
		}
	}

	c.mu.Lock()
	c.current = snap
	c.mu.Unlock()

	errs := markers.Errors(results)
	if errs == nil {
		errs = []*cmerrors.ScanError{}
	}
	if warnings == nil {
		warnings = []*cmerrors.ScanError{}
	}
	return &ScanResult{
		ID:               id,
		Schema:           snap,
		Diff:             diff,
		Files:            files,
		FilesWithMarkers: withMarkers,
		Errors:           errs,
		Warnings:         warnings,
		Success:          len(errs) == 0,
		Duration:         c.now().Sub(started),
	}, nil
}
