package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yourflix/enrich/internal/catalog"
)

const (
	defaultConcurrency  = 2
	defaultEntryTimeout = 45 * time.Second
)

// CoverDownloader persists a local copy of a poster image. Implemented by
// the covers package; optional.
type CoverDownloader interface {
	Download(ctx context.Context, imageURL string, entryID int64) (string, error)
}

// Runner selects eligible entries and drives the resolver over them with
// bounded concurrency. The worker pool bounds overall parallel work; the rate
// limiter separately bounds per-provider request rate.
type Runner struct {
	store        catalog.Store
	resolver     *Resolver
	concurrency  int
	entryTimeout time.Duration
	covers       CoverDownloader
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency sets the worker pool size.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithEntryTimeout bounds one entry's full resolution, including rate-limit
// waits.
func WithEntryTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.entryTimeout = d
		}
	}
}

// WithCoverDownloader enables local poster downloads for applied posters.
func WithCoverDownloader(d CoverDownloader) RunnerOption {
	return func(r *Runner) {
		r.covers = d
	}
}

// NewRunner creates a batch runner over the given store and resolver.
func NewRunner(store catalog.Store, resolver *Resolver, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:        store,
		resolver:     resolver,
		concurrency:  defaultConcurrency,
		entryTimeout: defaultEntryTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunBatch resolves up to limit entries missing at least one of the target
// fields and returns the aggregated report. A single entry's failure never
// aborts the batch; only selection errors (bad fields, store unavailable)
// fail the run itself.
func (r *Runner) RunBatch(ctx context.Context, limit int, fields []string) (*RunReport, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("run batch: limit must be positive, got %d", limit)
	}
	if len(fields) == 0 {
		fields = catalog.EnrichableFields
	}
	r.resolver.SetTargetFields(fields)

	entries, err := r.store.ListMissing(ctx, fields, limit)
	if err != nil {
		return nil, fmt.Errorf("run batch: %w", err)
	}

	slog.Info("Starting enrichment run",
		"eligible", len(entries),
		"fields", fields,
		"concurrency", r.concurrency,
	)

	start := time.Now()
	report := &RunReport{}
	var mu sync.Mutex

	jobs := make(chan catalog.Entry)
	var wg sync.WaitGroup
	for i := 0; i < r.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				outcome := r.processEntry(ctx, entry)
				mu.Lock()
				report.record(outcome)
				mu.Unlock()
			}
		}()
	}

feed:
	for _, entry := range entries {
		select {
		case jobs <- entry:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	report.finish(start)
	return report, nil
}

// processEntry runs one entry end to end: resolve, patch, optional cover
// download. Panics and store failures are converted to failed outcomes.
func (r *Runner) processEntry(ctx context.Context, entry catalog.Entry) (outcome Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Panic while resolving entry", "entry_id", entry.ID, "panic", rec)
			outcome = Outcome{
				EntryID: entry.ID,
				Status:  StatusFailed,
				Err:     fmt.Errorf("panic: %v", rec),
			}
		}
	}()

	entryCtx, cancel := context.WithTimeout(ctx, r.entryTimeout)
	defer cancel()

	outcome = r.resolver.ResolveOne(entryCtx, &entry)
	if outcome.Status != StatusMatched || len(outcome.patch) == 0 {
		return outcome
	}

	if err := r.store.ApplyPatch(entryCtx, entry.ID, outcome.patch); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			err = fmt.Errorf("entry vanished before write: %w", err)
		}
		return Outcome{
			EntryID:  entry.ID,
			Status:   StatusFailed,
			Provider: outcome.Provider,
			Err:      err,
		}
	}

	slog.Info("Entry enriched",
		"entry_id", entry.ID,
		"provider", outcome.Provider,
		"fields", outcome.Applied,
	)

	r.downloadCover(entryCtx, entry.ID, outcome.patch)

	return outcome
}

func (r *Runner) downloadCover(ctx context.Context, entryID int64, patch map[string]any) {
	if r.covers == nil {
		return
	}
	posterURL, ok := patch[catalog.FieldPosterURL].(string)
	if !ok || posterURL == "" {
		return
	}
	path, err := r.covers.Download(ctx, posterURL, entryID)
	if err != nil {
		slog.Warn("Cover download failed", "entry_id", entryID, "url", posterURL, "error", err)
		return
	}
	slog.Debug("Cover downloaded", "entry_id", entryID, "path", path)
}
