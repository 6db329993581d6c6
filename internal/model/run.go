package model

import "time"

// Snapshot is a Datastandard as loaded from one source at one point in time.
// A report run reads a single snapshot and never mutates it.
type Snapshot struct {
	// Datastandard is the decoded document.
	Datastandard *Datastandard `json:"-"`

	// Source is the file path or URL the document was read from.
	Source string `json:"source"`

	// Digest is the hex SHA3-256 of the raw document bytes.
	Digest string `json:"digest"`

	// LoadedAt is when the document was read.
	LoadedAt time.Time `json:"loaded_at"`
}

// ReportRun is the result of generating the report for one category.
type ReportRun struct {
	// CategoryID is the category the report was requested for.
	CategoryID string `json:"category_id"`

	// Source and Digest identify the snapshot that produced the rows.
	Source string `json:"source,omitempty"`
	Digest string `json:"digest,omitempty"`

	// GeneratedAt is when the run started.
	GeneratedAt time.Time `json:"generated_at"`

	// Rows holds the header followed by the data rows. It is empty when the
	// datastandard was incomplete.
	Rows []Row `json:"rows"`

	// PerformedSteps lists the pipeline steps that ran, in order, including
	// a failed one.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error is the failure of the run, if any.
	Error        error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`
}

// NewReportRun creates an empty run for the given category.
func NewReportRun(categoryID string) *ReportRun {
	return &ReportRun{
		CategoryID:  categoryID,
		GeneratedAt: time.Now(),
	}
}

// DataRows returns the rows after the header.
func (r *ReportRun) DataRows() []Row {
	if len(r.Rows) > 0 && r.Rows[0].IsHeader() {
		return r.Rows[1:]
	}
	return r.Rows
}

// RowCount returns the number of data rows.
func (r *ReportRun) RowCount() int {
	return len(r.DataRows())
}

// Failed reports whether the run recorded an error.
func (r *ReportRun) Failed() bool {
	return r.Error != nil || r.ErrorMessage != ""
}

// CategoryCounts returns the number of data rows per owning category name,
// in order of first appearance.
func (r *ReportRun) CategoryCounts() ([]string, map[string]int) {
	var names []string
	counts := make(map[string]int)
	for _, row := range r.DataRows() {
		name := row.Field(ColumnCategoryName)
		if _, ok := counts[name]; !ok {
			names = append(names, name)
		}
		counts[name]++
	}
	return names, counts
}
