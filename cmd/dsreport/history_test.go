package main

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/dsreport/internal/config"
	"github.com/nao1215/dsreport/internal/database"
	"github.com/nao1215/dsreport/internal/model"
)

// newRun creates a run of category leaf with the given data rows.
func newRun(digest string, at time.Time, rows ...model.Row) *model.ReportRun {
	run := model.NewReportRun("leaf")
	run.Source = "datastandard.json"
	run.Digest = digest
	run.GeneratedAt = at
	run.Rows = append([]model.Row{model.Header()}, rows...)
	return run
}

// seedHistory stores runs in a fresh history directory and returns the
// directory and the run ids in insertion order.
func seedHistory(t *testing.T, runs ...*model.ReportRun) (string, []int64) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	defer db.Close()

	ids := make([]int64, 0, len(runs))
	for _, run := range runs {
		id, err := db.SaveRun(t.Context(), run)
		if err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		ids = append(ids, id)
	}
	return dir, ids
}

var (
	sizeRow   = model.Row{"Leaf", "Size*", "", "int[]", ""}
	colorRow  = model.Row{"Root", "Color", "", "string", ""}
	weightRow = model.Row{"Leaf", "Weight*", "", "float", ""}
)

func TestCompareRuns(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		previous      *model.ReportRun
		current       *model.ReportRun
		wantAdded     int
		wantRemoved   int
		wantUnchanged int
		wantChanged   bool
	}{
		{
			name:          "identical runs",
			previous:      newRun("d1", base, sizeRow, colorRow),
			current:       newRun("d1", base.Add(time.Hour), sizeRow, colorRow),
			wantUnchanged: 2,
		},
		{
			name:          "row added",
			previous:      newRun("d1", base, sizeRow, colorRow),
			current:       newRun("d2", base.Add(time.Hour), sizeRow, weightRow, colorRow),
			wantAdded:     1,
			wantUnchanged: 2,
			wantChanged:   true,
		},
		{
			name:          "row removed",
			previous:      newRun("d1", base, sizeRow, colorRow),
			current:       newRun("d2", base.Add(time.Hour), colorRow),
			wantRemoved:   1,
			wantUnchanged: 1,
			wantChanged:   true,
		},
		{
			name:          "duplicate rows matched by count",
			previous:      newRun("d1", base, colorRow, colorRow),
			current:       newRun("d2", base.Add(time.Hour), colorRow),
			wantRemoved:   1,
			wantUnchanged: 1,
			wantChanged:   true,
		},
		{
			name:        "previous run failed",
			previous:    &model.ReportRun{CategoryID: "leaf", Digest: "d1", ErrorMessage: "broken"},
			current:     newRun("d2", base, sizeRow),
			wantAdded:   1,
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := compareRuns(tt.previous, tt.current)
			if len(got.Added) != tt.wantAdded {
				t.Errorf("added = %d, want %d", len(got.Added), tt.wantAdded)
			}
			if len(got.Removed) != tt.wantRemoved {
				t.Errorf("removed = %d, want %d", len(got.Removed), tt.wantRemoved)
			}
			if got.UnchangedCount != tt.wantUnchanged {
				t.Errorf("unchanged = %d, want %d", got.UnchangedCount, tt.wantUnchanged)
			}
			if got.DatastandardChanged != tt.wantChanged {
				t.Errorf("datastandard changed = %v, want %v", got.DatastandardChanged, tt.wantChanged)
			}
		})
	}
}

func TestHistoryCmdCompare(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	dir, ids := seedHistory(t,
		newRun("aaaaaaaaaaaaaaaa", base, sizeRow, colorRow),
		newRun("bbbbbbbbbbbbbbbb", base.Add(time.Hour), sizeRow, weightRow),
	)

	t.Run("text", func(t *testing.T) {
		t.Parallel()
		res := execute(t, "", "history", "--history-dir", dir, "leaf")
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		for _, want := range []string{
			"Report Comparison: leaf",
			"Datastandard: CHANGED",
			"Rows:         2 -> 2 (0)",
			"[+] Leaf / Weight*: float",
			"[-] Root / Color: string",
			"Unchanged: 1 rows",
		} {
			if !strings.Contains(res.stdout, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, res.stdout)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		res := execute(t, "", "history", "--history-dir", dir, "-f", "json", "leaf")
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		var got ComparisonResult
		if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if got.Previous.ID != ids[0] || got.Current.ID != ids[1] {
			t.Errorf("compared runs %d and %d, want %d and %d", got.Previous.ID, got.Current.ID, ids[0], ids[1])
		}
		if len(got.Added) != 1 || len(got.Removed) != 1 || got.UnchangedCount != 1 {
			t.Errorf("unexpected comparison: %+v", got)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		t.Parallel()
		res := execute(t, "", "history", "--history-dir", dir, "-f", "markdown", "leaf")
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		for _, want := range []string{"# Report Comparison: leaf", "## Added Rows (1)", "~~Root / Color: string~~"} {
			if !strings.Contains(res.stdout, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, res.stdout)
			}
		}
	})

	t.Run("with run id", func(t *testing.T) {
		t.Parallel()
		res := execute(t, "", "history", "--history-dir", dir, "-f", "json",
			"--with-run-id", strconv.FormatInt(ids[0], 10), "leaf")
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		var got ComparisonResult
		if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if got.Previous.ID != ids[0] || got.Current.ID != ids[1] {
			t.Errorf("compared runs %d and %d, want %d and %d", got.Previous.ID, got.Current.ID, ids[0], ids[1])
		}
	})

	t.Run("latest run id is rejected", func(t *testing.T) {
		t.Parallel()
		res := execute(t, "", "history", "--history-dir", dir,
			"--with-run-id", strconv.FormatInt(ids[1], 10), "leaf")
		if res.err == nil || !strings.Contains(res.err.Error(), "cannot be compared with itself") {
			t.Errorf("expected self comparison error, got %v", res.err)
		}
		if res.stdout != "" {
			t.Errorf("expected no output, got:\n%s", res.stdout)
		}
	})

	t.Run("unknown run id", func(t *testing.T) {
		t.Parallel()
		res := execute(t, "", "history", "--history-dir", dir, "--with-run-id", "999", "leaf")
		if res.err == nil || !strings.Contains(res.err.Error(), "run 999 not found") {
			t.Errorf("expected run not found error, got %v", res.err)
		}
	})
}

func TestHistoryCmdList(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	failed := newRun("cccccccccccccccc", base.Add(2*time.Hour))
	failed.Rows = nil
	failed.ErrorMessage = "invalid reference"
	dir, ids := seedHistory(t,
		newRun("aaaaaaaaaaaaaaaa", base, sizeRow),
		failed,
	)

	t.Run("runs of a category", func(t *testing.T) {
		t.Parallel()
		res := execute(t, "", "history", "--history-dir", dir, "--list", "leaf")
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		for _, want := range []string{
			"Report history for leaf (2 runs)",
			"aaaaaaaaaaaa",
			"error: invalid reference",
			strconv.FormatInt(ids[0], 10),
		} {
			if !strings.Contains(res.stdout, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, res.stdout)
			}
		}
	})

	t.Run("categories", func(t *testing.T) {
		t.Parallel()
		res := execute(t, "", "history", "--history-dir", dir, "--list-categories")
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		if !strings.Contains(res.stdout, "Reported categories (1)") || !strings.Contains(res.stdout, "• leaf") {
			t.Errorf("unexpected output:\n%s", res.stdout)
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		t.Parallel()
		res := execute(t, "", "history", "--history-dir", dir, "--list", "shoes")
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		if !strings.Contains(res.stdout, "No report history found for shoes") {
			t.Errorf("unexpected output:\n%s", res.stdout)
		}
	})
}

func TestHistoryCmdPrune(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	dir, _ := seedHistory(t,
		newRun("d1", base, sizeRow),
		newRun("d2", base.Add(time.Hour), sizeRow),
		newRun("d3", base.Add(2*time.Hour), sizeRow),
	)

	res := execute(t, "", "history", "--history-dir", dir, "--prune", "1", "leaf")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if !strings.Contains(res.stdout, "Deleted 2 runs of leaf") {
		t.Errorf("unexpected output:\n%s", res.stdout)
	}

	// A single remaining run cannot be compared.
	res = execute(t, "", "history", "--history-dir", dir, "leaf")
	if res.err == nil || !strings.Contains(res.err.Error(), "at least 2 runs") {
		t.Errorf("expected comparison to need two runs, got %v", res.err)
	}
}

func TestHistoryCmdErrors(t *testing.T) {
	t.Parallel()

	dir, _ := seedHistory(t)

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{
			name:    "missing category",
			args:    []string{"--history-dir", dir},
			wantMsg: "category id is required",
		},
		{
			name:    "unsupported format",
			args:    []string{"--history-dir", dir, "-f", "html", "leaf"},
			wantErr: config.ErrUnknownFormat,
		},
		{
			name:    "missing database",
			args:    []string{"--history-dir", t.TempDir(), "leaf"},
			wantErr: database.ErrNotFound,
		},
		{
			name:    "no runs",
			args:    []string{"--history-dir", dir, "leaf"},
			wantMsg: "no report history found for leaf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := execute(t, "", append([]string{"history"}, tt.args...)...)
			if res.err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(res.err, tt.wantErr) {
				t.Errorf("error = %v, want %v", res.err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(res.err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want message containing %q", res.err, tt.wantMsg)
			}
		})
	}
}

func TestHistoryCmdShow(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	dir, ids := seedHistory(t,
		newRun("d1", base, sizeRow, colorRow),
		newRun("d2", base.Add(time.Hour), sizeRow),
	)

	t.Run("latest run as csv", func(t *testing.T) {
		t.Parallel()
		res := execute(t, "", "history", "--history-dir", dir, "--show", "-f", "csv", "leaf")
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		want := "Category Name,Attribute Name,Description,Type,Groups\nLeaf,Size*,,int[],\n"
		if res.stdout != want {
			t.Errorf("output = %q, want %q", res.stdout, want)
		}
	})

	t.Run("run by id", func(t *testing.T) {
		t.Parallel()
		res := execute(t, "", "history", "--history-dir", dir, "--show", "-f", "csv",
			"--with-run-id", strconv.FormatInt(ids[0], 10), "leaf")
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		if !strings.Contains(res.stdout, "Root,Color,,string,") {
			t.Errorf("expected the older run, got %q", res.stdout)
		}
	})

	t.Run("run of another category", func(t *testing.T) {
		t.Parallel()
		res := execute(t, "", "history", "--history-dir", dir, "--show",
			"--with-run-id", strconv.FormatInt(ids[0], 10), "root")
		if res.err == nil || !strings.Contains(res.err.Error(), "belongs to leaf") {
			t.Errorf("expected category mismatch error, got %v", res.err)
		}
	})

	t.Run("no runs", func(t *testing.T) {
		t.Parallel()
		res := execute(t, "", "history", "--history-dir", dir, "--show", "shoes")
		if res.err == nil || !strings.Contains(res.err.Error(), "no report history found for shoes") {
			t.Errorf("expected missing history error, got %v", res.err)
		}
	})
}
