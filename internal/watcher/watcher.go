// Package watcher turns file system notifications under a source root into
// debounced per-file change callbacks.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"contentmark/internal/paths"
)

// DefaultDebounce is the quiet period applied per path.
const DefaultDebounce = 300 * time.Millisecond

// ErrAlreadyRunning is returned by Start on a running watcher.
var ErrAlreadyRunning = errors.New("watcher already running")

// Op is the kind of a debounced change.
type Op string

const (
	OpAdd    Op = "add"
	OpChange Op = "change"
	OpUnlink Op = "unlink"
)

// Event is one debounced change. File is relative to the root with forward
// slashes.
type Event struct {
	File string
	Op   Op
}

// WatchError wraps an error reported by the notification backend. Fatal
// errors mean events may no longer be delivered; the watcher keeps running.
type WatchError struct {
	Err   error
	Fatal bool
}

func (e *WatchError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("fatal watcher error: %v", e.Err)
	}
	return fmt.Sprintf("watcher error: %v", e.Err)
}

func (e *WatchError) Unwrap() error {
	return e.Err
}

// Config configures a Watcher.
type Config struct {
	Root     string
	Include  []string
	Exclude  []string
	Debounce time.Duration
	// FlushOnStop makes Stop deliver pending debounced events instead of
	// dropping them.
	FlushOnStop bool

	// OnChange receives every debounced event. It runs on a timer goroutine
	// and must not call Stop.
	OnChange func(ctx context.Context, evt Event)
	// Invalidate runs before OnChange for unlink events.
	Invalidate func(file string)
	OnError    func(err *WatchError)

	Logger *slog.Logger
}

// Watcher is idle until Start and idle again after Stop. It may be
// restarted.
type Watcher struct {
	cfg     Config
	root    string
	matcher *paths.Matcher
	logger  *slog.Logger

	mu         sync.Mutex
	running    bool
	fsw        *fsnotify.Watcher
	cancel     context.CancelFunc
	done       chan struct{}
	ready      chan struct{}
	dirs       map[string]struct{}
	debouncers map[string]*Debouncer
	pending    map[string]Op
	inflight   sync.WaitGroup
}

// New validates cfg and returns an idle watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, errors.New("watcher: root is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	matcher, err := paths.NewMatcher(cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, err
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Watcher{
		cfg:     cfg,
		root:    root,
		matcher: matcher,
		logger:  logger,
		ready:   make(chan struct{}),
	}, nil
}

// Root returns the absolute watched root.
func (w *Watcher) Root() string {
	return w.root
}

// Start registers every non-excluded directory under the root and begins
// delivering events. The watcher stops when ctx is cancelled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrAlreadyRunning
	}

	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root %s is not a directory", w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w.fsw = fsw
	w.dirs = make(map[string]struct{})
	w.debouncers = make(map[string]*Debouncer)
	w.pending = make(map[string]Op)

	if _, err := w.addTree(w.root); err != nil {
		_ = fsw.Close()
		w.fsw = nil
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.loop(runCtx, fsw, w.done)

	w.logger.Info("Watching for changes",
		"root", w.root,
		"directories", len(w.dirs),
		"debounce", w.cfg.Debounce.String(),
	)

	close(w.ready)
	return nil
}

// Stop cancels pending debounced events, or delivers them first when
// FlushOnStop is set, then closes the notification backend and waits for the
// event loop and any running callback. Stopping an idle watcher is a no-op.
func (w *Watcher) Stop() error {
	if w.cfg.FlushOnStop {
		w.flush()
	}

	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.cancel()
	for _, d := range w.debouncers {
		d.Cancel()
	}
	w.debouncers = nil
	w.pending = nil
	w.dirs = nil
	fsw, done := w.fsw, w.done
	w.fsw = nil
	w.ready = make(chan struct{})
	w.mu.Unlock()

	err := fsw.Close()
	<-done
	w.inflight.Wait()

	w.logger.Info("Stopped watching", "root", w.root)
	if err != nil {
		return fmt.Errorf("closing fsnotify watcher: %w", err)
	}
	return nil
}

// flush runs every pending debounced event on the calling goroutine.
func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	var due []*Debouncer
	for _, d := range w.debouncers {
		if d.Pending() {
			due = append(due, d)
		}
	}
	w.mu.Unlock()

	if len(due) > 0 {
		w.logger.Debug("Flushing pending changes", "count", len(due))
	}
	for _, d := range due {
		d.Flush()
	}
}

// IsRunning reports whether the watcher is started.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Ready is closed once Start has registered the directory tree.
func (w *Watcher) Ready() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ready
}

// PendingCount returns the number of paths waiting for their debounce timer.
func (w *Watcher) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, evt)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

func (w *Watcher) reportError(err error) {
	we := &WatchError{Err: err, Fatal: isFatalError(err)}
	if we.Fatal {
		w.logger.Error("File watcher can no longer deliver events", "error", err)
	} else {
		w.logger.Warn("File watcher error", "error", err)
	}
	if w.cfg.OnError != nil {
		w.cfg.OnError(we)
	}
}

func (w *Watcher) handleEvent(ctx context.Context, evt fsnotify.Event) {
	if !paths.IsWithin(evt.Name, w.root) {
		return
	}
	rel, err := paths.Relative(evt.Name, w.root)
	if err != nil {
		return
	}

	if evt.Has(fsnotify.Create) {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if w.matcher.ExcludedDir(rel) {
				return
			}
			w.mu.Lock()
			if !w.running {
				w.mu.Unlock()
				return
			}
			found, err := w.addTree(evt.Name)
			w.mu.Unlock()
			if err != nil {
				w.reportError(err)
			}
			// Files may land in the directory before its watch is registered
			for _, f := range found {
				w.schedule(ctx, f, OpAdd)
			}
			return
		}
	}

	if evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
		if w.forgetDir(rel) {
			w.schedule(ctx, rel, OpUnlink)
			return
		}
	}

	var op Op
	switch {
	case evt.Has(fsnotify.Create):
		op = OpAdd
	case evt.Has(fsnotify.Write):
		op = OpChange
	case evt.Has(fsnotify.Remove), evt.Has(fsnotify.Rename):
		op = OpUnlink
	default:
		return
	}

	if !w.matcher.MatchFile(rel) {
		return
	}
	w.schedule(ctx, rel, op)
}

// addTree registers dir and every non-excluded directory below it and
// returns the matching files found. Callers hold w.mu.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !d.IsDir() {
			if path != dir && w.matcher.MatchFile(rel) {
				files = append(files, rel)
			}
			return nil
		}
		if rel != "." && w.matcher.ExcludedDir(rel) {
			return filepath.SkipDir
		}
		if _, ok := w.dirs[rel]; ok {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		w.dirs[rel] = struct{}{}
		return nil
	})
	return files, err
}

// forgetDir drops a removed directory and everything below it.
func (w *Watcher) forgetDir(rel string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.dirs[rel]; !ok {
		return false
	}
	prefix := rel + "/"
	for d := range w.dirs {
		if d == rel || (len(d) > len(prefix) && d[:len(prefix)] == prefix) {
			delete(w.dirs, d)
			// The backend drops watches on deleted directories itself
			_ = w.fsw.Remove(paths.Join(w.root, d))
		}
	}
	return true
}

func (w *Watcher) schedule(ctx context.Context, rel string, op Op) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	d, ok := w.debouncers[rel]
	if !ok {
		d = NewDebouncer(w.cfg.Debounce)
		w.debouncers[rel] = d
	}
	w.pending[rel] = op
	d.Trigger(func() { w.fire(ctx, rel) })
}

func (w *Watcher) fire(ctx context.Context, rel string) {
	w.mu.Lock()
	if !w.running || ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	op, ok := w.pending[rel]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.pending, rel)
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	evt := Event{File: rel, Op: op}
	w.logger.Debug("File changed", "file", rel, "op", string(op))

	if op == OpUnlink && w.cfg.Invalidate != nil {
		w.cfg.Invalidate(rel)
	}
	if w.cfg.OnChange != nil {
		w.cfg.OnChange(ctx, evt)
	}
}
