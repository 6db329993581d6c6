package report

import (
	"io"
	"strconv"

	"github.com/nao1215/dsreport/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlStyle keeps line breaks and indentation of multi-line cells.
const htmlStyle = `body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; vertical-align: top; }
td { white-space: pre; font-family: monospace; }
dt { font-weight: bold; }`

// HTMLWriter outputs a standalone HTML document holding the run summary and
// the rows as a table.
type HTMLWriter struct {
	baseWriter

	title string
}

// HTMLWriterOption configures an HTMLWriter.
type HTMLWriterOption func(*HTMLWriter)

// WithTitle sets the document title. The category id is appended.
func WithTitle(title string) HTMLWriterOption {
	return func(w *HTMLWriter) {
		w.title = title
	}
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer, opts ...HTMLWriterOption) *HTMLWriter {
	w := &HTMLWriter{
		baseWriter: newBaseWriter(output),
		title:      "Datastandard Report",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run as HTML.
func (w *HTMLWriter) Write(run *model.ReportRun) (int, error) {
	title := w.title + ": " + run.CategoryID

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html, html.Attribute{Key: "lang", Val: "en"})
	doc.AppendChild(root)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	head.AppendChild(withText(element(atom.Title), title))
	head.AppendChild(withText(element(atom.Style), htmlStyle))
	root.AppendChild(head)

	body := element(atom.Body)
	body.AppendChild(withText(element(atom.H1), title))
	body.AppendChild(summaryList(run))
	if len(run.Rows) > 0 {
		body.AppendChild(rowsTable(run))
	}
	root.AppendChild(body)

	cw := &countingWriter{w: w.output}
	if err := html.Render(cw, doc); err != nil {
		return cw.n, err
	}
	_, err := io.WriteString(cw, "\n")
	return cw.n, err
}

// summaryList describes the run as a definition list.
func summaryList(run *model.ReportRun) *html.Node {
	dl := element(atom.Dl)
	add := func(term, value string) {
		dl.AppendChild(withText(element(atom.Dt), term))
		dl.AppendChild(withText(element(atom.Dd), value))
	}

	add("Category", run.CategoryID)
	if run.Source != "" {
		add("Source", run.Source)
	}
	if run.Digest != "" {
		add("Digest", run.Digest)
	}
	add("Generated", run.GeneratedAt.Format(timeLayout))
	add("Rows", strconv.Itoa(run.RowCount()))
	add("Status", statusText(run))
	return dl
}

// rowsTable renders the rows, using the header row as the table head.
func rowsTable(run *model.ReportRun) *html.Node {
	table := element(atom.Table)

	thead := element(atom.Thead)
	tr := element(atom.Tr)
	for _, h := range model.Header() {
		tr.AppendChild(withText(element(atom.Th, html.Attribute{Key: "scope", Val: "col"}), h))
	}
	thead.AppendChild(tr)
	table.AppendChild(thead)

	tbody := element(atom.Tbody)
	for _, row := range run.DataRows() {
		tr := element(atom.Tr)
		for _, cell := range row {
			tr.AppendChild(withText(element(atom.Td), cell))
		}
		tbody.AppendChild(tr)
	}
	table.AppendChild(tbody)
	return table
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

// withText appends a text child to n. Rendering escapes the text.
func withText(n *html.Node, text string) *html.Node {
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return n
}
