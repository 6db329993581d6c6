package builder

import (
	"iter"
	"log/slog"

	"github.com/nao1215/dsreport/internal/model"
)

// Builder generates category attribute reports.
// The zero value is not usable; create one with New.
type Builder struct {
	logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for debug output.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// New creates a Builder with the given options.
func New(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Report returns the report rows for categoryID.
//
// The sequence is empty when ds is nil or lacks one of its collections.
// Otherwise it starts with model.Header() followed by one row per attribute
// link of the category and of each ancestor, nearest category first. An
// unknown categoryID produces the header only.
//
// Rows are produced lazily. If the data is inconsistent the sequence yields
// a single non-nil error and stops; rows yielded before it must be
// discarded. Lookup tables are rebuilt each time the sequence is iterated.
func (b *Builder) Report(ds *model.Datastandard, categoryID string) iter.Seq2[model.Row, error] {
	return func(yield func(model.Row, error) bool) {
		if !ds.IsComplete() {
			b.logger.Debug("datastandard incomplete, report is empty",
				"category", categoryID,
			)
			return
		}

		l, err := newLookup(ds)
		if err != nil {
			yield(nil, err)
			return
		}

		if !yield(model.Header(), nil) {
			return
		}

		chain, err := l.ancestry(categoryID)
		if err != nil {
			yield(nil, err)
			return
		}
		if len(chain) == 0 {
			b.logger.Debug("category not found", "category", categoryID)
			return
		}

		b.logger.Debug("building report",
			"category", categoryID,
			"depth", len(chain),
		)

		for _, category := range chain {
			for _, link := range category.AttributeLinks {
				row, err := l.row(category, link)
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(row, nil) {
					return
				}
			}
		}
	}
}

// Report builds the rows for categoryID with a default Builder.
func Report(ds *model.Datastandard, categoryID string) iter.Seq2[model.Row, error] {
	return New().Report(ds, categoryID)
}

// Collect drains seq into a slice. It returns nil and the error if the
// sequence fails, so callers never see a partial report.
func Collect(seq iter.Seq2[model.Row, error]) ([]model.Row, error) {
	var rows []model.Row
	for row, err := range seq {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
