package builder

import (
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/dsreport/internal/model"
)

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

// exampleDatastandard returns the two-level datastandard used across tests:
// leaf -> root, each linking one attribute.
func exampleDatastandard() *model.Datastandard {
	return &model.Datastandard{
		Categories: []model.Category{
			{
				ID:             "root",
				Name:           "Root",
				AttributeLinks: []model.AttributeLink{{ID: "a1", Optional: boolPtr(true)}},
			},
			{
				ID:             "leaf",
				Name:           "Leaf",
				ParentID:       strPtr("root"),
				AttributeLinks: []model.AttributeLink{{ID: "a2", Optional: boolPtr(false)}},
			},
		},
		Attributes: []model.Attribute{
			{ID: "a1", Name: "Color", Type: model.AttributeType{ID: "string", MultiValue: boolPtr(false)}, GroupIDs: []string{}},
			{ID: "a2", Name: "Size", Type: model.AttributeType{ID: "int", MultiValue: boolPtr(true)}, GroupIDs: []string{}},
		},
		AttributeGroups: []model.AttributeGroup{},
	}
}

// collect is a test helper that drains a report and fails on error.
func collect(t *testing.T, ds *model.Datastandard, categoryID string) []model.Row {
	t.Helper()

	rows, err := Collect(Report(ds, categoryID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rows
}

// assertRows compares rows field by field.
func assertRows(t *testing.T, got []model.Row, want []model.Row) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Errorf("row %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

// TestReportExample tests the documented end-to-end example.
func TestReportExample(t *testing.T) {
	t.Parallel()

	rows := collect(t, exampleDatastandard(), "leaf")

	assertRows(t, rows, []model.Row{
		{"Category Name", "Attribute Name", "Description", "Type", "Groups"},
		{"Leaf", "Size*", "", "int[]", ""},
		{"Root", "Color", "", "string", ""},
	})
}

// TestReportIncompleteDatastandard tests the empty-result short circuit.
func TestReportIncompleteDatastandard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(ds *model.Datastandard) *model.Datastandard
	}{
		{
			name:   "nil datastandard",
			mutate: func(*model.Datastandard) *model.Datastandard { return nil },
		},
		{
			name: "nil categories",
			mutate: func(ds *model.Datastandard) *model.Datastandard {
				ds.Categories = nil
				return ds
			},
		},
		{
			name: "nil attributes",
			mutate: func(ds *model.Datastandard) *model.Datastandard {
				ds.Attributes = nil
				return ds
			},
		},
		{
			name: "nil attribute groups",
			mutate: func(ds *model.Datastandard) *model.Datastandard {
				ds.AttributeGroups = nil
				return ds
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rows := collect(t, tt.mutate(exampleDatastandard()), "leaf")
			if len(rows) != 0 {
				t.Errorf("expected no rows, got %q", rows)
			}
		})
	}
}

// TestReportUnknownCategory tests that an unknown category yields the header only.
func TestReportUnknownCategory(t *testing.T) {
	t.Parallel()

	rows := collect(t, exampleDatastandard(), "does-not-exist")

	assertRows(t, rows, []model.Row{model.Header()})
}

// TestReportAncestorOrder tests that rows are grouped leaf, mid, root.
func TestReportAncestorOrder(t *testing.T) {
	t.Parallel()

	ds := &model.Datastandard{
		Categories: []model.Category{
			{ID: "root", Name: "Root", AttributeLinks: []model.AttributeLink{{ID: "r1"}, {ID: "r2"}}},
			{ID: "mid", Name: "Mid", ParentID: strPtr("root"), AttributeLinks: []model.AttributeLink{{ID: "m1"}}},
			{ID: "leaf", Name: "Leaf", ParentID: strPtr("mid"), AttributeLinks: []model.AttributeLink{{ID: "l1"}, {ID: "l2"}}},
			{ID: "other", Name: "Other", AttributeLinks: []model.AttributeLink{{ID: "r1"}}},
		},
		Attributes: []model.Attribute{
			{ID: "r1", Name: "R1", Type: model.AttributeType{ID: "string"}},
			{ID: "r2", Name: "R2", Type: model.AttributeType{ID: "string"}},
			{ID: "m1", Name: "M1", Type: model.AttributeType{ID: "string"}},
			{ID: "l1", Name: "L1", Type: model.AttributeType{ID: "string"}},
			{ID: "l2", Name: "L2", Type: model.AttributeType{ID: "string"}},
		},
		AttributeGroups: []model.AttributeGroup{},
	}

	rows := collect(t, ds, "leaf")

	var got [][2]string
	for _, row := range rows[1:] {
		got = append(got, [2]string{row[model.ColumnCategoryName], row[model.ColumnAttributeName]})
	}
	want := [][2]string{
		{"Leaf", "L1*"},
		{"Leaf", "L2*"},
		{"Mid", "M1*"},
		{"Root", "R1*"},
		{"Root", "R2*"},
	}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	t.Run("starting at mid skips the leaf", func(t *testing.T) {
		t.Parallel()

		rows := collect(t, ds, "mid")
		if len(rows) != 4 {
			t.Fatalf("expected header and 3 rows, got %d", len(rows))
		}
		if rows[1][model.ColumnCategoryName] != "Mid" {
			t.Errorf("expected first data row from Mid, got %q", rows[1])
		}
	})
}

// TestReportUnresolvedParent tests that an unknown parent id ends the walk.
func TestReportUnresolvedParent(t *testing.T) {
	t.Parallel()

	ds := exampleDatastandard()
	ds.Categories[1].ParentID = strPtr("missing")

	rows := collect(t, ds, "leaf")

	assertRows(t, rows, []model.Row{
		model.Header(),
		{"Leaf", "Size*", "", "int[]", ""},
	})
}

// TestReportMandatoryMarker tests the per-link optional flag.
func TestReportMandatoryMarker(t *testing.T) {
	t.Parallel()

	ds := &model.Datastandard{
		Categories: []model.Category{{
			ID:   "c",
			Name: "C",
			AttributeLinks: []model.AttributeLink{
				{ID: "a", Optional: boolPtr(true)},
				{ID: "a", Optional: boolPtr(false)},
				{ID: "a"},
			},
		}},
		Attributes:      []model.Attribute{{ID: "a", Name: "Name", Type: model.AttributeType{ID: "string"}}},
		AttributeGroups: []model.AttributeGroup{},
	}

	rows := collect(t, ds, "c")

	want := []string{"Name", "Name*", "Name*"}
	for i, w := range want {
		if got := rows[i+1][model.ColumnAttributeName]; got != w {
			t.Errorf("link %d: got %q, want %q", i, got, w)
		}
	}
}

// TestReportDescription tests description blanking.
func TestReportDescription(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		desc *string
		want string
	}{
		{name: "absent", desc: nil, want: ""},
		{name: "empty", desc: strPtr(""), want: ""},
		{name: "whitespace", desc: strPtr("   \t"), want: ""},
		{name: "text passes through", desc: strPtr("Primary color"), want: "Primary color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ds := exampleDatastandard()
			ds.Attributes[1].Description = tt.desc

			rows := collect(t, ds, "leaf")
			if got := rows[1][model.ColumnDescription]; got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// TestReportGroups tests group name resolution.
func TestReportGroups(t *testing.T) {
	t.Parallel()

	t.Run("joins names in declared order", func(t *testing.T) {
		t.Parallel()

		ds := exampleDatastandard()
		ds.AttributeGroups = []model.AttributeGroup{
			{ID: "g1", Name: "Color"},
			{ID: "g2", Name: "Size"},
		}
		ds.Attributes[1].GroupIDs = []string{"g1", "g2"}
		ds.Attributes[0].GroupIDs = []string{"g2", "g1"}

		rows := collect(t, ds, "leaf")
		if got := rows[1][model.ColumnGroups]; got != "Color\nSize" {
			t.Errorf("got %q, want %q", got, "Color\nSize")
		}
		if got := rows[2][model.ColumnGroups]; got != "Size\nColor" {
			t.Errorf("got %q, want %q", got, "Size\nColor")
		}
	})

	t.Run("no groups", func(t *testing.T) {
		t.Parallel()

		ds := exampleDatastandard()
		ds.Attributes[1].GroupIDs = nil

		rows := collect(t, ds, "leaf")
		if got := rows[1][model.ColumnGroups]; got != "" {
			t.Errorf("expected empty groups, got %q", got)
		}
	})
}

// compositeDatastandard returns a category linking one composite attribute
// with two levels of nesting.
func compositeDatastandard() *model.Datastandard {
	return &model.Datastandard{
		Categories: []model.Category{{
			ID:             "c",
			Name:           "Shirts",
			AttributeLinks: []model.AttributeLink{{ID: "dims"}},
		}},
		Attributes: []model.Attribute{
			{
				ID:   "dims",
				Name: "Dimensions",
				Type: model.AttributeType{ID: "dimensions"},
				AttributeLinks: []model.AttributeLink{
					{ID: "width", Optional: boolPtr(true)},
					{ID: "weight"},
				},
			},
			{ID: "width", Name: "Width", Type: model.AttributeType{ID: "decimal"}},
			{
				ID:   "weight",
				Name: "Weight",
				Type: model.AttributeType{ID: "measure", MultiValue: boolPtr(true)},
				AttributeLinks: []model.AttributeLink{
					{ID: "amount"},
					{ID: "unit", Optional: boolPtr(true)},
				},
			},
			{ID: "amount", Name: "Amount", Type: model.AttributeType{ID: "decimal"}},
			{ID: "unit", Name: "Unit", Type: model.AttributeType{ID: "string"}},
		},
		AttributeGroups: []model.AttributeGroup{},
	}
}

// TestReportTypeString tests basic, multi-value and composite type rendering.
func TestReportTypeString(t *testing.T) {
	t.Parallel()

	t.Run("basic types", func(t *testing.T) {
		t.Parallel()

		rows := collect(t, exampleDatastandard(), "leaf")
		if got := rows[1][model.ColumnType]; got != "int[]" {
			t.Errorf("multi value: got %q", got)
		}
		if got := rows[2][model.ColumnType]; got != "string" {
			t.Errorf("single value: got %q", got)
		}
	})

	t.Run("two levels of nesting", func(t *testing.T) {
		t.Parallel()

		rows := collect(t, compositeDatastandard(), "c")

		want := "dimensions{\n" +
			"  Width: decimal\n" +
			"  Weight*: measure{\n" +
			"  Amount*: decimal\n" +
			"  Unit: string\n" +
			"}[]\n" +
			"}"
		if got := rows[1][model.ColumnType]; got != want {
			t.Errorf("got\n%s\nwant\n%s", got, want)
		}
		if got := rows[1][model.ColumnAttributeName]; got != "Dimensions*" {
			t.Errorf("got name %q", got)
		}
	})

	t.Run("multi value composite", func(t *testing.T) {
		t.Parallel()

		ds := compositeDatastandard()
		ds.Attributes[0].Type.MultiValue = boolPtr(true)

		rows := collect(t, ds, "c")
		got := rows[1][model.ColumnType]
		if got[len(got)-3:] != "}[]" {
			t.Errorf("expected composite to end with }[], got %q", got)
		}
	})

	t.Run("empty links are not composite", func(t *testing.T) {
		t.Parallel()

		ds := exampleDatastandard()
		ds.Attributes[1].AttributeLinks = []model.AttributeLink{}

		rows := collect(t, ds, "leaf")
		if got := rows[1][model.ColumnType]; got != "int[]" {
			t.Errorf("got %q, want %q", got, "int[]")
		}
	})

	t.Run("same attribute twice is not a cycle", func(t *testing.T) {
		t.Parallel()

		ds := compositeDatastandard()
		ds.Attributes[0].AttributeLinks = append(ds.Attributes[0].AttributeLinks, model.AttributeLink{ID: "width"})

		rows := collect(t, ds, "c")
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}
	})
}

// TestReportInvalidReference tests dangling references.
func TestReportInvalidReference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mutate     func(ds *model.Datastandard)
		ownerKind  string
		ownerID    string
		targetKind string
		targetID   string
	}{
		{
			name: "category links unknown attribute",
			mutate: func(ds *model.Datastandard) {
				ds.Categories[0].AttributeLinks = append(ds.Categories[0].AttributeLinks, model.AttributeLink{ID: "ghost"})
			},
			ownerKind:  KindCategory,
			ownerID:    "c",
			targetKind: KindAttribute,
			targetID:   "ghost",
		},
		{
			name: "composite links unknown attribute",
			mutate: func(ds *model.Datastandard) {
				ds.Attributes[2].AttributeLinks[1].ID = "ghost"
			},
			ownerKind:  KindAttribute,
			ownerID:    "weight",
			targetKind: KindAttribute,
			targetID:   "ghost",
		},
		{
			name: "attribute in unknown group",
			mutate: func(ds *model.Datastandard) {
				ds.Attributes[0].GroupIDs = []string{"ghost"}
			},
			ownerKind:  KindAttribute,
			ownerID:    "dims",
			targetKind: KindAttributeGroup,
			targetID:   "ghost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ds := compositeDatastandard()
			tt.mutate(ds)

			rows, err := Collect(Report(ds, "c"))
			if err == nil {
				t.Fatal("expected error")
			}
			if rows != nil {
				t.Errorf("expected no rows on error, got %q", rows)
			}
			if !errors.Is(err, ErrInvalidReference) {
				t.Errorf("expected ErrInvalidReference, got %v", err)
			}
			if !IsIntegrityError(err) {
				t.Error("expected integrity error")
			}

			var refErr *ReferenceError
			if !errors.As(err, &refErr) {
				t.Fatalf("expected *ReferenceError, got %T", err)
			}
			if refErr.OwnerKind != tt.ownerKind || refErr.OwnerID != tt.ownerID {
				t.Errorf("owner: got %s %q, want %s %q", refErr.OwnerKind, refErr.OwnerID, tt.ownerKind, tt.ownerID)
			}
			if refErr.TargetKind != tt.targetKind || refErr.TargetID != tt.targetID {
				t.Errorf("target: got %s %q, want %s %q", refErr.TargetKind, refErr.TargetID, tt.targetKind, tt.targetID)
			}
		})
	}
}

// TestReportCycles tests cycle detection.
func TestReportCycles(t *testing.T) {
	t.Parallel()

	t.Run("composite containing itself", func(t *testing.T) {
		t.Parallel()

		ds := compositeDatastandard()
		ds.Attributes[0].AttributeLinks = append(ds.Attributes[0].AttributeLinks, model.AttributeLink{ID: "dims"})

		_, err := Collect(Report(ds, "c"))
		if !errors.Is(err, ErrCyclicAttribute) {
			t.Fatalf("expected ErrCyclicAttribute, got %v", err)
		}
		var cycleErr *CycleError
		if !errors.As(err, &cycleErr) {
			t.Fatalf("expected *CycleError, got %T", err)
		}
		if !slices.Equal(cycleErr.Path, []string{"dims", "dims"}) {
			t.Errorf("unexpected path %v", cycleErr.Path)
		}
	})

	t.Run("indirect cycle", func(t *testing.T) {
		t.Parallel()

		ds := compositeDatastandard()
		ds.Attributes[2].AttributeLinks = append(ds.Attributes[2].AttributeLinks, model.AttributeLink{ID: "dims"})

		_, err := Collect(Report(ds, "c"))
		var cycleErr *CycleError
		if !errors.As(err, &cycleErr) {
			t.Fatalf("expected *CycleError, got %v", err)
		}
		if !slices.Equal(cycleErr.Path, []string{"dims", "weight", "dims"}) {
			t.Errorf("unexpected path %v", cycleErr.Path)
		}
		if cycleErr.Error() != "cyclic attribute definition: dims -> weight -> dims" {
			t.Errorf("unexpected message %q", cycleErr.Error())
		}
	})

	t.Run("category parent loop", func(t *testing.T) {
		t.Parallel()

		ds := exampleDatastandard()
		ds.Categories[0].ParentID = strPtr("leaf")

		_, err := Collect(Report(ds, "leaf"))
		if !errors.Is(err, ErrCyclicCategory) {
			t.Fatalf("expected ErrCyclicCategory, got %v", err)
		}
		var cycleErr *CycleError
		if errors.As(err, &cycleErr) && !slices.Equal(cycleErr.Path, []string{"leaf", "root", "leaf"}) {
			t.Errorf("unexpected path %v", cycleErr.Path)
		}
	})
}

// TestReportDuplicateID tests ambiguous identifiers.
func TestReportDuplicateID(t *testing.T) {
	t.Parallel()

	ds := exampleDatastandard()
	ds.Attributes = append(ds.Attributes, model.Attribute{ID: "a1", Name: "Other"})

	var rows []model.Row
	var reportErr error
	for row, err := range Report(ds, "leaf") {
		if err != nil {
			reportErr = err
			break
		}
		rows = append(rows, row)
	}

	if len(rows) != 0 {
		t.Errorf("expected the error before the header, got %q", rows)
	}
	if !errors.Is(reportErr, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", reportErr)
	}
	if reportErr.Error() != `duplicate identifier: attribute "a1"` {
		t.Errorf("unexpected message %q", reportErr.Error())
	}
}

// TestReportEarlyStop tests that consumers can stop iterating.
func TestReportEarlyStop(t *testing.T) {
	t.Parallel()

	count := 0
	for _, err := range Report(exampleDatastandard(), "leaf") {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("expected to stop after 2 rows, got %d", count)
	}
}

// TestReportReiteration tests that a sequence can be iterated again.
func TestReportReiteration(t *testing.T) {
	t.Parallel()

	seq := New().Report(exampleDatastandard(), "leaf")

	first, err := Collect(seq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Collect(seq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRows(t, second, first)
}

// TestReportDoesNotMutateInput tests that the builder leaves the input untouched.
func TestReportDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	ds := compositeDatastandard()
	before := len(ds.Attributes[0].AttributeLinks)

	_ = collect(t, ds, "c")

	if len(ds.Attributes[0].AttributeLinks) != before {
		t.Error("attribute links were modified")
	}
	if ds.Attributes[0].Type.ID != "dimensions" {
		t.Error("attribute type was modified")
	}
}
