package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/dsreport/internal/model"
)

// RowObject is one data row keyed by the header names.
type RowObject struct {
	CategoryName  string `json:"Category Name"`
	AttributeName string `json:"Attribute Name"`
	Description   string `json:"Description"`
	Type          string `json:"Type"`
	Groups        string `json:"Groups"`
}

// NewRowObject converts a data row.
func NewRowObject(row model.Row) RowObject {
	return RowObject{
		CategoryName:  row.Field(model.ColumnCategoryName),
		AttributeName: row.Field(model.ColumnAttributeName),
		Description:   row.Field(model.ColumnDescription),
		Type:          row.Field(model.ColumnType),
		Groups:        row.Field(model.ColumnGroups),
	}
}

// RowObjects converts the data rows of run. A run without a header (an
// incomplete datastandard) returns nil and encodes as null. A header-only run
// returns an empty slice and encodes as [].
func RowObjects(run *model.ReportRun) []RowObject {
	if len(run.Rows) == 0 {
		return nil
	}
	rows := run.DataRows()
	objects := make([]RowObject, 0, len(rows))
	for _, row := range rows {
		objects = append(objects, NewRowObject(row))
	}
	return objects
}

// JSONWriter outputs the data rows as a JSON array of objects.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the data rows of run.
func (w *JSONWriter) Write(run *model.ReportRun) (int, error) {
	return w.writeJSON(RowObjects(run))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport wraps the rows of a run with its metadata.
type JSONReport struct {
	// Version is the dsreport version that generated this report.
	Version string `json:"version"`

	CategoryID  string      `json:"category_id"`
	Source      string      `json:"source,omitempty"`
	Digest      string      `json:"digest,omitempty"`
	GeneratedAt time.Time   `json:"generated_at"`
	RowCount    int         `json:"row_count"`
	Error       string      `json:"error,omitempty"`
	Rows        []RowObject `json:"rows"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(run *model.ReportRun, version string) *JSONReport {
	return &JSONReport{
		Version:     version,
		CategoryID:  run.CategoryID,
		Source:      run.Source,
		Digest:      run.Digest,
		GeneratedAt: run.GeneratedAt,
		RowCount:    run.RowCount(),
		Error:       errorMessage(run),
		Rows:        RowObjects(run),
	}
}

// FullJSONWriter outputs runs with the metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the dsreport version string.
	version string
}

// NewFullJSONWriter creates a writer for complete runs with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the run wrapped with metadata.
func (w *FullJSONWriter) Write(run *model.ReportRun) (int, error) {
	return w.writeJSON(NewJSONReport(run, w.version))
}
