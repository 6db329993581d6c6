package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/dsreport/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(run *model.ReportRun) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeSummary(md, run)
	w.writeRows(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.ReportRun) {
	md.H1f("Datastandard Report: %s", escapeCell(run.CategoryID))
	md.PlainText("")

	rows := [][]string{
		{"Category", "`" + escapeCell(run.CategoryID) + "`"},
	}
	if run.Source != "" {
		rows = append(rows, []string{"Source", "`" + escapeCell(run.Source) + "`"})
	}
	if run.Digest != "" {
		rows = append(rows, []string{"Digest", "`" + escapeCell(run.Digest) + "`"})
	}
	rows = append(rows,
		[]string{"Generated", run.GeneratedAt.Format(timeLayout)},
		[]string{"Rows", strconv.Itoa(run.RowCount())},
		[]string{"Status", w.getStatusText(run)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// getStatusText returns the status text based on run state.
func (w *MarkdownWriter) getStatusText(run *model.ReportRun) string {
	switch {
	case run.Failed():
		return "❌ Error - " + escapeCell(errorMessage(run))
	case len(run.Rows) == 0:
		return "⚠️ Incomplete datastandard"
	default:
		return "✅ Complete"
	}
}

// writeSummary writes per-category attribute counts, a pie chart of them and
// an alert describing the outcome.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, run *model.ReportRun) {
	names, counts := run.CategoryCounts()

	if len(names) > 0 {
		md.H2("Attributes by Category")
		md.PlainText("")

		rows := make([][]string, 0, len(names)+1)
		for _, name := range names {
			rows = append(rows, []string{escapeCell(name), strconv.Itoa(counts[name])})
		}
		rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(run.RowCount()) + "**"})

		md.Table(markdown.TableSet{
			Header:    []string{"Category", "Attributes"},
			Rows:      rows,
			Alignment: []markdown.TableAlignment{markdown.AlignLeft, markdown.AlignRight},
		})
		md.PlainText("")

		w.writePieChart(md, names, counts)
	}

	w.writeAlert(md, run)
}

// writePieChart writes a mermaid pie chart of attributes per category.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, names []string, counts map[string]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Attributes by Category"),
		piechart.WithShowData(true),
	)

	for _, name := range names {
		chart.LabelAndIntValue(strings.ReplaceAll(name, `"`, "'"), uint64(counts[name])) //nolint:gosec // counts are positive
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.ReportRun) {
	switch {
	case run.Failed():
		md.Cautionf("The report could not be generated: %s", errorMessage(run))
	case len(run.Rows) == 0:
		md.Warning("The datastandard is missing categories, attributes or attribute groups. No rows were produced.")
	case run.RowCount() == 0:
		md.Note("No attributes apply to this category.")
	default:
		return
	}
	md.PlainText("")
}

// writeRows writes the rows table. Line breaks inside cells become <br>.
func (w *MarkdownWriter) writeRows(md *markdown.Markdown, run *model.ReportRun) {
	if len(run.Rows) == 0 {
		return
	}

	md.H2("Attributes")
	md.PlainText("")

	rows := make([][]string, 0, run.RowCount())
	for _, row := range run.DataRows() {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = escapeCell(cell)
		}
		rows = append(rows, cells)
	}

	md.Table(markdown.TableSet{
		Header: model.Header(),
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [dsreport](https://github.com/nao1215/dsreport)*")
}

// cellReplacer makes text safe inside a single table cell.
var cellReplacer = strings.NewReplacer(
	"\r\n", "<br>",
	"\n", "<br>",
	"|", `\|`,
)

// escapeCell renders line breaks as <br> and escapes pipes. Leading spaces
// of nested type lines are kept as non-breaking spaces.
func escapeCell(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if n := len(line) - len(trimmed); n > 0 && i > 0 {
			lines[i] = strings.Repeat("&nbsp;", n) + trimmed
		}
	}
	return cellReplacer.Replace(strings.Join(lines, "\n"))
}
