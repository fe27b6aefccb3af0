package scanner

import (
	"context"
	"fmt"

	cmerrors "contentmark/internal/errors"
	"contentmark/internal/events"
	"contentmark/internal/watcher"
)

// StartWatch scans once and then rescans on every debounced change under the
// source root. Watching continues until StopWatch or until ctx is cancelled.
func (c *Controller) StartWatch(ctx context.Context) error {
	c.mu.Lock()
	if c.watching {
		c.mu.Unlock()
		return ErrAlreadyWatching
	}
	c.watching = true
	c.mu.Unlock()

	started := false
	defer func() {
		if !started {
			c.mu.Lock()
			c.watching = false
			c.mu.Unlock()
		}
	}()

	if _, err := c.Scan(ctx); err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w, err := watcher.New(watcher.Config{
		Root:        c.cfg.Root,
		Include:     c.cfg.Include,
		Exclude:     c.cfg.Exclude,
		Debounce:    c.cfg.Debounce,
		FlushOnStop: c.cfg.FlushOnStop,
		OnChange:    c.onChange,
		Invalidate:  c.invalidate,
		OnError:     c.onWatchError,
		Logger:      c.logger,
	})
	if err != nil {
		cancel()
		return cmerrors.New(cmerrors.WatchFailed, "failed to create watcher", err)
	}
	if err := w.Start(watchCtx); err != nil {
		cancel()
		return cmerrors.New(cmerrors.WatchFailed, "failed to start watcher", err)
	}

	c.mu.Lock()
	c.watcher = w
	c.watchCancel = cancel
	c.mu.Unlock()
	started = true
	return nil
}

// StopWatch stops the watcher and waits for a running rescan to finish.
// Pending debounced changes are dropped unless FlushOnStop is set, in which
// case they are delivered and one final scan picks them up. It is a no-op
// when not watching.
func (c *Controller) StopWatch() error {
	c.mu.Lock()
	if !c.watching {
		c.mu.Unlock()
		return nil
	}
	c.watching = false
	if c.cfg.FlushOnStop && c.pending {
		c.drained = true
	}
	c.pending = false
	w, cancel := c.watcher, c.watchCancel
	c.watcher, c.watchCancel = nil, nil
	c.mu.Unlock()

	var err error
	if w != nil {
		err = w.Stop()
	}
	c.rescans.Wait()
	if cancel != nil {
		cancel()
	}

	c.mu.Lock()
	drained := c.drained
	c.drained = false
	c.mu.Unlock()
	if drained {
		if _, serr := c.Scan(context.Background()); serr != nil {
			c.logger.Warn("Final rescan failed", "error", serr)
		}
	}

	if err != nil {
		return fmt.Errorf("stopping watcher: %w", err)
	}
	return nil
}

func (c *Controller) onChange(ctx context.Context, evt watcher.Event) {
	c.metrics.WatchEvent(string(evt.Op))
	c.bus.Publish(ctx, events.Change(evt.File, string(evt.Op)))
	c.requestRescan(ctx)
}

func (c *Controller) invalidate(file string) {
	if c.extractor.Invalidate(file) {
		c.logger.Debug("Invalidated cached markers", "file", file)
	}
}

func (c *Controller) onWatchError(err *watcher.WatchError) {
	c.bus.Publish(context.Background(), events.Error("", err))
}

// requestRescan starts a rescan, or marks one pending when a rescan is
// already running. Any number of requests during a run yield one follow-up.
func (c *Controller) requestRescan(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.watching {
		// changes flushed by StopWatch
		if c.cfg.FlushOnStop {
			c.drained = true
		}
		return
	}
	if c.inFlight {
		c.pending = true
		c.metrics.RescanCoalesced()
		return
	}
	c.inFlight = true
	c.rescans.Add(1)
	go c.rescanLoop(ctx)
}

func (c *Controller) rescanLoop(ctx context.Context) {
	defer c.rescans.Done()
	for {
		if _, err := c.Scan(ctx); err != nil {
			c.logger.Warn("Rescan failed", "error", err)
		}

		c.mu.Lock()
		if !c.pending || !c.watching {
			c.inFlight = false
			c.pending = false
			c.mu.Unlock()
			return
		}
		c.pending = false
		c.mu.Unlock()
	}
}
