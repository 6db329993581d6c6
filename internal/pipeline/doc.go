// Package pipeline runs report generation as a sequence of steps.
//
// A report run passes through the steps of a Pipeline in order: BuildStep
// turns the datastandard snapshot into rows for the run's category and
// RecordStep stores the run in the history database. Steps record their
// failures on the run so callers can render failed runs like successful ones.
//
// BatchProcessor generates reports for many categories concurrently with
// errgroup. Every category gets a fresh pipeline, and all of them read the
// same immutable snapshot.
package pipeline
