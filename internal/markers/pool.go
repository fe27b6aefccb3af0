package markers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	cmerrors "contentmark/internal/errors"
	"contentmark/internal/paths"
)

// PoolOptions configures a Pool.
type PoolOptions struct {
	Attribute   string
	Concurrency int // <= 0 means runtime.NumCPU()
	Logger      *slog.Logger
}

// Stats describes the last ExtractFiles call.
type Stats struct {
	Files  int
	Parsed int
	Cached int
}

// Pool extracts markers from many files with a bounded set of workers. Each
// worker owns its own Extractor. Results are served from the per-file cache
// when the content hash is unchanged.
type Pool struct {
	attribute   string
	workerCount int
	cache       *Cache
	logger      *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewPool creates a pool with an empty cache.
func NewPool(opts PoolOptions) *Pool {
	workers := opts.Concurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	attr := opts.Attribute
	if attr == "" {
		attr = DefaultAttribute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pool{
		attribute:   attr,
		workerCount: workers,
		cache:       NewCache(),
		logger:      logger,
	}
}

// Cache exposes the per-file cache.
func (p *Pool) Cache() *Cache {
	return p.cache
}

// Invalidate drops the cached detections of one file.
func (p *Pool) Invalidate(file string) bool {
	return p.cache.Invalidate(file)
}

// Clear drops every cached detection.
func (p *Pool) Clear() {
	p.cache.Clear()
}

// LastStats returns the counters of the most recent ExtractFiles call.
func (p *Pool) LastStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

type job struct {
	index int
	file  string
}

// ExtractFiles extracts every file (root-relative) and returns one result per
// file in input order. Per-file problems are recorded in the results; the
// error is non-nil only when extraction cannot run at all (context cancelled
// or the parser is unavailable).
func (p *Pool) ExtractFiles(ctx context.Context, root string, files []string) ([]*FileResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*FileResult, len(files))
	jobs := make(chan job)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		parsed   int
		cached   int
		countMu  sync.Mutex
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	workers := p.workerCount
	if workers > len(files) {
		workers = len(files)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ex := NewExtractor(p.attribute)
			for j := range jobs {
				r, fromCache, err := p.extractOne(ctx, ex, root, j.file)
				if err != nil {
					fail(err)
					continue
				}
				results[j.index] = r
				countMu.Lock()
				if fromCache {
					cached++
				} else {
					parsed++
				}
				countMu.Unlock()
			}
		}()
	}

feed:
	for i, f := range files {
		select {
		case jobs <- job{index: i, file: f}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	removed := p.cache.Retain(files)

	p.mu.Lock()
	p.stats = Stats{Files: len(files), Parsed: parsed, Cached: cached}
	p.mu.Unlock()

	p.logger.Debug("Extracted markers",
		"files", len(files),
		"parsed", parsed,
		"cached", cached,
		"evicted", removed,
		"workers", workers,
	)

	return results, nil
}

func (p *Pool) extractOne(ctx context.Context, ex *Extractor, root, file string) (*FileResult, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	src, err := os.ReadFile(paths.Join(root, file))
	if err != nil {
		// A file deleted between discovery and extraction is not cached
		p.cache.Invalidate(file)
		return &FileResult{
			File:   file,
			Fields: []DetectedField{},
			Errors: []*cmerrors.ScanError{cmerrors.IO(file, err)},
		}, false, nil
	}

	hash := HashContent(src)
	if r, ok := p.cache.Get(file, hash); ok {
		return r, true, nil
	}

	lang, ok := LanguageForFile(file)
	if !ok {
		return &FileResult{File: file, Fields: []DetectedField{}, Hash: hash}, false, nil
	}

	r, err := ex.ExtractSource(ctx, file, src, lang)
	if err != nil {
		if errors.Is(err, ErrNoCGO) {
			return nil, false, cmerrors.New(cmerrors.ParserUnavailable, "tree-sitter is not available", err)
		}
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return &FileResult{
			File:   file,
			Fields: []DetectedField{},
			Errors: []*cmerrors.ScanError{cmerrors.NewScanError(cmerrors.KindParse, "failed to parse file", err).At(file, 0, 0)},
		}, false, nil
	}

	p.cache.Put(r)
	return r, false, nil
}

// ExtractFile reads one root-relative file and extracts its markers.
func (e *Extractor) ExtractFile(ctx context.Context, root, file string) (*FileResult, error) {
	src, err := os.ReadFile(paths.Join(root, file))
	if err != nil {
		return nil, err
	}
	lang, ok := LanguageForFile(file)
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", file)
	}
	return e.ExtractSource(ctx, file, src, lang)
}

// Detections flattens results into one detection list in file order.
func Detections(results []*FileResult) []DetectedField {
	var n int
	for _, r := range results {
		if r != nil {
			n += len(r.Fields)
		}
	}
	out := make([]DetectedField, 0, n)
	for _, r := range results {
		if r != nil {
			out = append(out, r.Fields...)
		}
	}
	return out
}

// Errors flattens the per-file errors of results.
func Errors(results []*FileResult) []*cmerrors.ScanError {
	var out []*cmerrors.ScanError
	for _, r := range results {
		if r != nil {
			out = append(out, r.Errors...)
		}
	}
	return out
}
