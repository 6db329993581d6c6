package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/dsreport/internal/model"
)

// Step is one stage of a report run.
type Step interface {
	// Do performs the step on run. Failures are returned, not recorded;
	// the Pipeline records them on the run.
	Do(ctx context.Context, run *model.ReportRun) error

	// Name identifies the step in logs and in run.PerformedSteps.
	Name() string
}

// Pipeline runs its steps in order against one report run at a time.
// A Pipeline is not safe for concurrent use; BatchProcessor creates one per
// category.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError keeps running later steps after a failed one.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running steps after one fails. The failure is
// still recorded on the run, so a later step can store a failed run in the
// history.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in the given order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps against run.
//
// Cancellation is checked before every step. A cancelled run records the
// context error and stops, even with continueOnError. Otherwise a failing
// step records its error on the run; Execute returns it only when
// continueOnError is off. The last failure wins when several steps fail.
func (p *Pipeline) Execute(ctx context.Context, run *model.ReportRun) error {
	logger := p.logger.With("category", run.CategoryID)

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			recordFailure(run, err)
			return err
		}

		start := time.Now()
		err := step.Do(ctx, run)
		run.PerformedSteps = append(run.PerformedSteps, step.Name())

		if err != nil {
			logger.Error("step failed", "step", step.Name(), "error", err)
			recordFailure(run, err)
			if !p.continueOnError {
				return err
			}
			continue
		}
		logger.Debug("step completed", "step", step.Name(), "elapsed", time.Since(start))
	}

	return nil
}

// recordFailure stores err on run.
func recordFailure(run *model.ReportRun, err error) {
	run.Error = err
	run.ErrorMessage = err.Error()
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
