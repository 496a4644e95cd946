package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/gophercrawl/internal/config"
	"github.com/nao1215/gophercrawl/internal/model"
)

// DefaultConcurrency crawls targets one at a time.
const DefaultConcurrency = 1

// CrawlFunc crawls a single target. It returns an error only when the
// target could not be crawled at all; failures met while crawling belong in
// the returned statistics.
type CrawlFunc func(ctx context.Context, target config.Target) (*model.Statistics, error)

// BatchProcessor crawls several targets, each as an independent crawl with
// its own statistics. It uses errgroup to respect the concurrency limit.
type BatchProcessor struct {
	// crawl is called once per target.
	crawl CrawlFunc

	// concurrency is the maximum number of concurrent crawls.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor that runs crawl for every target.
func NewBatchProcessor(crawl CrawlFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		crawl:       crawl,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls every target and returns the statistics in target order.
//
// Targets that were never started because ctx ended first, and targets whose
// crawl returned an error, have no entry in the result. The error joins every
// per-target error and, if ctx ended, ctx.Err(). Partial statistics of crawls
// that were running when ctx ended are still returned.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []config.Target) ([]*model.Statistics, error) {
	results := make([]*model.Statistics, len(targets))

	err := bp.ProcessBatchWithCallback(ctx, targets, func(stats *model.Statistics, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = stats
	})

	collected := make([]*model.Statistics, 0, len(results))
	for _, s := range results {
		if s != nil {
			collected = append(collected, s)
		}
	}
	return collected, err
}

// ProcessBatchWithCallback crawls every target and calls callback for each
// completed crawl with the index of its target. Callbacks run on the crawling
// goroutine and may run concurrently when the concurrency limit is above one.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []config.Target,
	callback func(stats *model.Statistics, index int),
) error {
	bp.logger.Debug("starting batch",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			// A slot may free up only after cancellation.
			if ctx.Err() != nil {
				return nil
			}

			bp.logger.Debug("crawling target",
				"target", target.String(),
				"index", i+1,
				"total", len(targets),
			)

			stats, err := bp.crawl(ctx, target)
			if err != nil {
				bp.logger.Warn("crawl failed", "target", target.String(), "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", target, err))
				mu.Unlock()
				return nil
			}

			callback(stats, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	bp.logger.Debug("batch complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
	)

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
