package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/dsreport/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of reports generated at once when no
// concurrency is configured.
const DefaultConcurrency = 4

// BatchProcessor generates reports for multiple categories concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each category so no state
	// is shared between runs.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent runs.
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

// WithConcurrency sets the maximum number of concurrent runs.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch generates the report of every category concurrently.
//
// Results are returned in the order of categoryIDs, including runs that
// failed; their errors are recorded on the run. The error return is only set
// when the batch was cancelled, in which case categories that never started
// have a nil entry.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, categoryIDs []string) ([]*model.ReportRun, error) {
	results := make([]*model.ReportRun, len(categoryIDs))

	err := bp.ProcessBatchWithCallback(ctx, categoryIDs, func(run *model.ReportRun, index int) {
		// Each goroutine owns its slot.
		results[index] = run
	})

	return results, err
}

// ProcessBatchWithCallback generates the reports and calls callback for each
// completed run. This is useful for streaming results.
//
// The callback receives the run and the index of its category in
// categoryIDs. It is called from the goroutine that completed the run, so it
// must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	categoryIDs []string,
	callback func(run *model.ReportRun, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_categories", len(categoryIDs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, categoryID := range categoryIDs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			run := model.NewReportRun(categoryID)
			pipeline := bp.pipelineFactory()
			_ = pipeline.Execute(ctx, run) //nolint:errcheck // Error is stored in run

			if run.Failed() {
				bp.logger.Warn("report failed",
					"category", categoryID,
					"error", run.ErrorMessage,
				)
			}

			callback(run, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_categories", len(categoryIDs),
		"elapsed", time.Since(startTime),
	)

	return err
}
