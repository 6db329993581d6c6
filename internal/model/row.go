package model

// Column positions of a report row.
const (
	ColumnCategoryName = iota
	ColumnAttributeName
	ColumnDescription
	ColumnType
	ColumnGroups

	// ColumnCount is the number of fields in every row.
	ColumnCount
)

// headerFields are the literal column titles of the report.
var headerFields = [ColumnCount]string{
	"Category Name",
	"Attribute Name",
	"Description",
	"Type",
	"Groups",
}

// Row is one line of the report: an ordered sequence of ColumnCount fields.
type Row []string

// Header returns a fresh copy of the header row.
func Header() Row {
	return Row(headerFields[:]).Clone()
}

// IsHeader reports whether r is the header row.
func (r Row) IsHeader() bool {
	if len(r) != ColumnCount {
		return false
	}
	for i, f := range headerFields {
		if r[i] != f {
			return false
		}
	}
	return true
}

// Field returns the field at column i, or "" if the row is too short.
func (r Row) Field(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Clone returns a copy of the row that does not share storage with r.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	c := make(Row, len(r))
	copy(c, r)
	return c
}
