package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/dsreport/internal/model"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// TextWriter outputs human-readable reports for terminal display: a short
// summary block followed by the rows as an aligned table. Multi-line cells
// such as composite types and group lists span several table lines.
type TextWriter struct {
	baseWriter

	// summary controls whether the summary block is printed.
	summary bool

	// verbose adds per-category counts and the performed steps.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithSummary enables or disables the summary block.
func WithSummary(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.summary = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		summary:    true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run in human-readable format.
func (w *TextWriter) Write(run *model.ReportRun) (int, error) {
	var buf bytes.Buffer

	if w.summary {
		w.writeHeader(&buf, run)
	}
	if w.verbose {
		w.writeCounts(&buf, run)
	}
	if err := w.writeRows(&buf, run); err != nil {
		return 0, err
	}

	return w.output.Write(buf.Bytes())
}

// writeHeader writes the run information.
func (w *TextWriter) writeHeader(buf *bytes.Buffer, run *model.ReportRun) {
	buf.WriteString(strings.Repeat("=", 70))
	buf.WriteString("\n")
	buf.WriteString("                       DATASTANDARD REPORT\n")
	buf.WriteString(strings.Repeat("=", 70))
	buf.WriteString("\n\n")

	fmt.Fprintf(buf, "Category:   %s\n", run.CategoryID)
	if run.Source != "" {
		fmt.Fprintf(buf, "Source:     %s\n", run.Source)
	}
	if run.Digest != "" {
		fmt.Fprintf(buf, "Digest:     %s\n", run.Digest)
	}
	fmt.Fprintf(buf, "Generated:  %s\n", run.GeneratedAt.Format(timeLayout))
	fmt.Fprintf(buf, "Rows:       %d\n", run.RowCount())
	fmt.Fprintf(buf, "Status:     %s\n", statusText(run))
	buf.WriteString("\n")
}

// writeCounts writes the number of attributes contributed by each category.
func (w *TextWriter) writeCounts(buf *bytes.Buffer, run *model.ReportRun) {
	names, counts := run.CategoryCounts()
	if len(names) > 0 {
		buf.WriteString("Attributes by category:\n")
		for _, name := range names {
			fmt.Fprintf(buf, "  %-30s %d\n", name, counts[name])
		}
		buf.WriteString("\n")
	}
	if len(run.PerformedSteps) > 0 {
		fmt.Fprintf(buf, "Steps:      %s\n\n", strings.Join(run.PerformedSteps, ", "))
	}
}

// writeRows writes the rows as a table. The header row becomes the table
// header. Cell whitespace is kept so nested type lines stay indented.
func (w *TextWriter) writeRows(buf *bytes.Buffer, run *model.ReportRun) error {
	if len(run.Rows) == 0 {
		return nil
	}

	table := tablewriter.NewTable(buf,
		tablewriter.WithHeaderAutoFormat(tw.Off),
		tablewriter.WithTrimSpace(tw.Off),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
		tablewriter.WithHeaderAutoWrap(tw.WrapNone),
	)

	rows := run.Rows
	if rows[0].IsHeader() {
		table.Header([]string(rows[0]))
		rows = rows[1:]
	}
	for _, row := range rows {
		if err := table.Append([]string(row)); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}
