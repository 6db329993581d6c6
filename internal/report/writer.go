package report

import (
	"fmt"
	"io"

	"github.com/nao1215/dsreport/internal/config"
	"github.com/nao1215/dsreport/internal/model"
)

// ErrUnknownFormat is returned by New for formats without a writer.
var ErrUnknownFormat = config.ErrUnknownFormat

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the run to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(run *model.ReportRun) (int, error)
}

// New returns the writer for format. JSON output is pretty printed.
func New(format config.Format, output io.Writer) (Writer, error) {
	switch format {
	case config.FormatText:
		return NewTextWriter(output), nil
	case config.FormatCSV:
		return NewCSVWriter(output), nil
	case config.FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case config.FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case config.FormatHTML:
		return NewHTMLWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(run *model.ReportRun) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// countingWriter counts the bytes written through it, for encoders that do
// not report sizes.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

// statusText describes the outcome of run.
func statusText(run *model.ReportRun) string {
	switch {
	case run.Failed():
		return "ERROR - " + errorMessage(run)
	case len(run.Rows) == 0:
		return "Incomplete datastandard (no rows)"
	default:
		return "Complete"
	}
}

func errorMessage(run *model.ReportRun) string {
	if run.ErrorMessage != "" {
		return run.ErrorMessage
	}
	if run.Error != nil {
		return run.Error.Error()
	}
	return ""
}

const timeLayout = "2006-01-02 15:04:05 MST"
