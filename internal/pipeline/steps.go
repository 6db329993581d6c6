package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/dsreport/internal/builder"
	"github.com/nao1215/dsreport/internal/model"
)

// ErrNoSnapshot is returned by BuildStep when it has nothing to read.
var ErrNoSnapshot = errors.New("no datastandard snapshot")

// BuildStep generates the rows of a run from a datastandard snapshot.
type BuildStep struct {
	snapshot *model.Snapshot
	builder  *builder.Builder
	logger   *slog.Logger
}

// BuildStepOption configures a BuildStep.
type BuildStepOption func(*BuildStep)

// WithBuildLogger sets the logger of the step and of its builder.
func WithBuildLogger(logger *slog.Logger) BuildStepOption {
	return func(s *BuildStep) {
		s.logger = logger
	}
}

// NewBuildStep creates a step that reads snapshot. The snapshot is shared
// by every run and never modified.
func NewBuildStep(snapshot *model.Snapshot, opts ...BuildStepOption) *BuildStep {
	s := &BuildStep{
		snapshot: snapshot,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.builder = builder.New(builder.WithLogger(s.logger))
	return s
}

// Name returns the step name.
func (s *BuildStep) Name() string {
	return "build"
}

// Do fills run.Rows. Rows are only assigned when the whole report was
// built, so a failed run never carries partial rows.
func (s *BuildStep) Do(ctx context.Context, run *model.ReportRun) error {
	if s.snapshot == nil {
		return ErrNoSnapshot
	}

	run.Source = s.snapshot.Source
	run.Digest = s.snapshot.Digest

	var rows []model.Row
	for row, err := range s.builder.Report(s.snapshot.Datastandard, run.CategoryID) {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rows = append(rows, row)
	}

	run.Rows = rows
	s.logger.Debug("report built",
		"category", run.CategoryID,
		"rows", run.RowCount(),
	)
	return nil
}

// Recorder stores report runs.
type Recorder interface {
	SaveRun(ctx context.Context, run *model.ReportRun) (int64, error)
}

// RecordStep stores the run in the report history. Failed runs are stored
// too, with their error message.
type RecordStep struct {
	recorder Recorder
	logger   *slog.Logger
}

// NewRecordStep creates a step that saves runs to recorder. A nil recorder
// turns the step into a no-op.
func NewRecordStep(recorder Recorder, logger *slog.Logger) *RecordStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStep{
		recorder: recorder,
		logger:   logger,
	}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record"
}

// Do saves run.
func (s *RecordStep) Do(ctx context.Context, run *model.ReportRun) error {
	if s.recorder == nil {
		return nil
	}

	// A save failure is logged for successful runs. A failed run keeps its
	// own error joined with the save error.
	id, err := s.recorder.SaveRun(ctx, run)
	if err != nil {
		if run.Error != nil {
			return errors.Join(run.Error, err)
		}
		s.logger.Warn("failed to record report run",
			"category", run.CategoryID,
			"error", err,
		)
		return nil
	}

	s.logger.Debug("report run recorded",
		"category", run.CategoryID,
		"id", id,
	)
	return nil
}

// DefaultPipeline creates the pipeline used by the report and serve
// commands: build the rows, then record the run. A nil recorder skips
// recording. The pipeline continues after a failed build so the failure is
// recorded as well.
func DefaultPipeline(snapshot *model.Snapshot, recorder Recorder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	p := New(WithLogger(logger), WithContinueOnError(true))
	p.AddStep(NewBuildStep(snapshot, WithBuildLogger(logger)))
	if recorder != nil {
		p.AddStep(NewRecordStep(recorder, logger))
	}
	logger.Debug("pipeline created", "steps", p.StepNames())
	return p
}
