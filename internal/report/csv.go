package report

import (
	"encoding/csv"
	"io"

	"github.com/nao1215/dsreport/internal/model"
)

// CSVWriter outputs the rows as CSV, header first. An incomplete
// datastandard produces no output at all.
type CSVWriter struct {
	baseWriter

	comma rune
}

// CSVWriterOption configures a CSVWriter.
type CSVWriterOption func(*CSVWriter)

// WithComma sets the field delimiter.
func WithComma(comma rune) CSVWriterOption {
	return func(w *CSVWriter) {
		w.comma = comma
	}
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer, opts ...CSVWriterOption) *CSVWriter {
	w := &CSVWriter{
		baseWriter: newBaseWriter(output),
		comma:      ',',
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the rows of run.
func (w *CSVWriter) Write(run *model.ReportRun) (int, error) {
	cw := &countingWriter{w: w.output}
	enc := csv.NewWriter(cw)
	enc.Comma = w.comma

	for _, row := range run.Rows {
		if err := enc.Write(row); err != nil {
			return cw.n, err
		}
	}
	enc.Flush()
	return cw.n, enc.Error()
}
