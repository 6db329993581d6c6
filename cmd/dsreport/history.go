package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/dsreport/internal/config"
	"github.com/nao1215/dsreport/internal/database"
	"github.com/nao1215/dsreport/internal/model"
	"github.com/nao1215/dsreport/internal/report"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
)

// historyTimeLayout is the timestamp layout of history listings.
const historyTimeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
// This command shows and compares report runs stored in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [category-id]",
		Short: "Compare report runs with historical data",
		Long: `History displays differences between the latest and a previous report run
of a category.

Every 'dsreport report' run is stored in the history database together with
the digest of the datastandard it was built from. The comparison shows:
- Rows that appeared since the previous run
- Rows that are no longer present
- Whether the datastandard itself changed

Examples:
  # Compare the latest two runs of a category
  dsreport history leaf

  # List all runs of a category
  dsreport history --list leaf

  # Compare with a specific run by ID
  dsreport history --with-run-id 5 leaf

  # Output the comparison as JSON
  dsreport history --format json leaf

  # Print the latest stored report as CSV
  dsreport history --show --format csv leaf

  # Keep only the 10 most recent runs
  dsreport history --prune 10 leaf

  # List all categories in the database
  dsreport history --list-categories`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List report runs of the specified category")
	cmd.Flags().BoolP("list-categories", "L", false,
		"List all categories in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare with a specific run by ID (use --list to see available IDs)")
	cmd.Flags().Bool("show", false,
		"Print the latest stored report, or the run given by --with-run-id")

	// Maintenance flags
	cmd.Flags().Int("prune", -1,
		"Delete all but the given number of most recent runs of the category")

	cmd.Flags().StringP("format", "f", string(config.FormatText),
		"Output format: text, json, markdown (csv and html with --show)")
	addHistoryDirFlag(cmd)

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listCategories, err := cmd.Flags().GetBool("list-categories")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var categoryID string
	if !listCategories {
		if len(args) == 0 {
			return errors.New("category id is required (use --list-categories to see available categories)")
		}
		categoryID = args[0]
	}

	name, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := config.ParseFormat(name)
	if err != nil {
		return err
	}
	show, err := cmd.Flags().GetBool("show")
	if err != nil {
		return err
	}
	switch format {
	case config.FormatText, config.FormatJSON, config.FormatMarkdown:
	default:
		if !show {
			return fmt.Errorf("%w: %q is not supported for comparisons", config.ErrUnknownFormat, name)
		}
	}

	dbDir, err := cmd.Flags().GetString("history-dir")
	if err != nil {
		return err
	}

	// Reading an absent history is an error, not a reason to create one.
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("%w (run 'dsreport report' first)", err)
		}
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if listCategories {
		return listHistoryCategories(ctx, out, db)
	}

	prune, err := cmd.Flags().GetInt("prune")
	if err != nil {
		return err
	}
	if prune >= 0 {
		deleted, err := db.Prune(ctx, categoryID, prune)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d runs of %s\n", deleted, categoryID)
		return nil
	}

	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if list {
		return listRunHistory(ctx, out, db, categoryID)
	}

	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}

	if show {
		return showRun(ctx, out, db, categoryID, withRunID, format)
	}
	return runComparison(ctx, out, db, categoryID, withRunID, format)
}

// showRun writes a stored run with the report writer of format: the run
// withRunID, or the latest run of the category when withRunID is zero.
func showRun(ctx context.Context, out io.Writer, db *database.HistoryDB, categoryID string, withRunID int64, format config.Format) error {
	var (
		run *model.ReportRun
		err error
	)
	if withRunID > 0 {
		run, err = loadRun(ctx, db, withRunID)
	} else {
		run, err = db.GetLatestRun(ctx, categoryID)
	}
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no report history found for %s", categoryID)
	}
	if run.CategoryID != categoryID {
		return fmt.Errorf("run %d belongs to %s, not %s", withRunID, run.CategoryID, categoryID)
	}

	writer, err := report.New(format, out)
	if err != nil {
		return err
	}
	_, err = writer.Write(run)
	return err
}

// listHistoryCategories lists all categories that have runs in the database.
func listHistoryCategories(ctx context.Context, out io.Writer, db *database.HistoryDB) error {
	categories, err := db.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}

	if len(categories) == 0 {
		fmt.Fprintln(out, "No report runs found in the database.")
		fmt.Fprintln(out, "\nUse 'dsreport report <category-id>' to generate a report.")
		return nil
	}

	fmt.Fprintf(out, "Reported categories (%d):\n\n", len(categories))
	for _, category := range categories {
		fmt.Fprintf(out, "  • %s\n", category)
	}
	fmt.Fprintln(out, "\nUse 'dsreport history --list <category-id>' to see the runs of a category.")

	return nil
}

// listRunHistory lists all runs of a category, newest first.
func listRunHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, categoryID string) error {
	runs, err := db.GetHistoryWithMetadata(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("failed to get report history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No report history found for %s\n", categoryID)
		return nil
	}

	fmt.Fprintf(out, "Report history for %s (%d runs):\n\n", categoryID, len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-6s  %-12s  %s\n", "ID", "Date", "Rows", "Digest", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 66))

	for _, meta := range runs {
		status := "ok"
		if meta.Error != "" {
			status = "error: " + meta.Error
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-6d  %-12s  %s\n",
			meta.ID,
			meta.Timestamp.Local().Format(historyTimeLayout),
			meta.RowCount,
			shortDigest(meta.Digest),
			status,
		)
	}

	fmt.Fprintln(out, "\nUse 'dsreport history <category-id>' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'dsreport history --with-run-id <id> <category-id>' to compare with a specific run.")

	return nil
}

// shortDigest abbreviates a digest for listings.
func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	if digest == "" {
		return "-"
	}
	return digest
}

// runComparison compares the latest run of a category with the previous one
// or with the run withRunID, and writes the result.
func runComparison(ctx context.Context, out io.Writer, db *database.HistoryDB, categoryID string, withRunID int64, format config.Format) error {
	runs, err := db.GetHistoryWithMetadata(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("failed to get report history: %w", err)
	}
	if len(runs) == 0 {
		return fmt.Errorf("no report history found for %s", categoryID)
	}
	if len(runs) < 2 && withRunID == 0 {
		return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	currentMeta := runs[0]
	var previousMeta database.RunMetadata
	if withRunID > 0 {
		if withRunID == currentMeta.ID {
			return fmt.Errorf("run %d is the latest run of %s and cannot be compared with itself", withRunID, categoryID)
		}
		found := false
		for _, meta := range runs {
			if meta.ID == withRunID {
				previousMeta, found = meta, true
				break
			}
		}
		if !found {
			return fmt.Errorf("run %d not found for %s", withRunID, categoryID)
		}
	} else {
		previousMeta = runs[1]
	}

	current, err := loadRun(ctx, db, currentMeta.ID)
	if err != nil {
		return err
	}
	previous, err := loadRun(ctx, db, previousMeta.ID)
	if err != nil {
		return err
	}

	result := compareRuns(previous, current)
	result.Previous.ID = previousMeta.ID
	result.Current.ID = currentMeta.ID

	switch format {
	case config.FormatJSON:
		return outputComparisonJSON(out, result)
	case config.FormatMarkdown:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

// loadRun reads one run from the history.
func loadRun(ctx context.Context, db *database.HistoryDB, id int64) (*model.ReportRun, error) {
	run, err := db.GetRunByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %d not found", id)
	}
	return run, nil
}

// ComparisonResult holds the result of comparing two report runs.
type ComparisonResult struct {
	// CategoryID is the category both runs were built for.
	CategoryID string `json:"category_id"`

	// Previous and Current describe the compared runs.
	Previous RunSummary `json:"previous_run"`
	Current  RunSummary `json:"current_run"`

	// DatastandardChanged reports whether the runs were built from
	// different documents.
	DatastandardChanged bool `json:"datastandard_changed"`

	// Added holds rows present only in the current run.
	Added []model.Row `json:"added,omitempty"`

	// Removed holds rows present only in the previous run.
	Removed []model.Row `json:"removed,omitempty"`

	// UnchangedCount is the number of rows present in both runs.
	UnchangedCount int `json:"unchanged_count"`
}

// RunSummary contains metadata about a run for comparison display.
type RunSummary struct {
	ID          int64     `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Digest      string    `json:"digest,omitempty"`
	RowCount    int       `json:"row_count"`
	Error       string    `json:"error,omitempty"`
}

// summarize builds the summary of a run.
func summarize(run *model.ReportRun) RunSummary {
	return RunSummary{
		GeneratedAt: run.GeneratedAt,
		Digest:      run.Digest,
		RowCount:    run.RowCount(),
		Error:       run.ErrorMessage,
	}
}

// compareRuns compares the data rows of two runs. Rows are compared as a
// whole; a row whose type or groups changed shows up as removed and added.
// Duplicate rows are matched by count.
func compareRuns(previous, current *model.ReportRun) *ComparisonResult {
	result := &ComparisonResult{
		CategoryID:          current.CategoryID,
		Previous:            summarize(previous),
		Current:             summarize(current),
		DatastandardChanged: previous.Digest != current.Digest,
	}

	remaining := make(map[string]int)
	for _, row := range previous.DataRows() {
		remaining[rowKey(row)]++
	}

	for _, row := range current.DataRows() {
		key := rowKey(row)
		if remaining[key] > 0 {
			remaining[key]--
			result.UnchangedCount++
			continue
		}
		result.Added = append(result.Added, row)
	}

	for _, row := range previous.DataRows() {
		key := rowKey(row)
		if remaining[key] > 0 {
			remaining[key]--
			result.Removed = append(result.Removed, row)
		}
	}

	return result
}

// rowKey identifies a row by all of its fields.
func rowKey(row model.Row) string {
	return strings.Join(row, "\x1f")
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

// describeRow renders a row on one line for listings.
func describeRow(row model.Row) string {
	typ := strings.Join(strings.Fields(row.Field(model.ColumnType)), " ")
	return fmt.Sprintf("%s / %s: %s", row.Field(model.ColumnCategoryName), row.Field(model.ColumnAttributeName), typ)
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1f("Report Comparison: %s", result.CategoryID)
	md.PlainText("")

	datastandard := "unchanged"
	if result.DatastandardChanged {
		datastandard = "**changed**"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run", strconv.FormatInt(result.Previous.ID, 10), strconv.FormatInt(result.Current.ID, 10), "-"},
			{"Date", result.Previous.GeneratedAt.Format(historyTimeLayout), result.Current.GeneratedAt.Format(historyTimeLayout), "-"},
			{"Digest", "`" + shortDigest(result.Previous.Digest) + "`", "`" + shortDigest(result.Current.Digest) + "`", datastandard},
			{"Rows", strconv.Itoa(result.Previous.RowCount), strconv.Itoa(result.Current.RowCount),
				formatDelta(result.Current.RowCount - result.Previous.RowCount)},
		},
	})
	md.PlainText("")

	if len(result.Added) > 0 {
		md.H2f("Added Rows (%d)", len(result.Added))
		md.PlainText("")
		items := make([]string, 0, len(result.Added))
		for _, row := range result.Added {
			items = append(items, "`"+describeRow(row)+"`")
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.Removed) > 0 {
		md.H2f("Removed Rows (%d)", len(result.Removed))
		md.PlainText("")
		items := make([]string, 0, len(result.Removed))
		for _, row := range result.Removed {
			items = append(items, markdown.Strikethrough(describeRow(row)))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d rows unchanged*", result.UnchangedCount)
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Report Comparison: %s\n", result.CategoryID)
	b.WriteString(strings.Repeat("=", 60) + "\n")

	fmt.Fprintf(&b, "\nPrevious run: #%d  %s  %s\n", result.Previous.ID,
		result.Previous.GeneratedAt.Format(historyTimeLayout), shortDigest(result.Previous.Digest))
	fmt.Fprintf(&b, "Current run:  #%d  %s  %s\n", result.Current.ID,
		result.Current.GeneratedAt.Format(historyTimeLayout), shortDigest(result.Current.Digest))

	if result.DatastandardChanged {
		b.WriteString("\nDatastandard: CHANGED\n")
	} else {
		b.WriteString("\nDatastandard: UNCHANGED\n")
	}
	fmt.Fprintf(&b, "Rows:         %d -> %d (%s)\n",
		result.Previous.RowCount, result.Current.RowCount,
		formatDelta(result.Current.RowCount-result.Previous.RowCount))

	if len(result.Added) > 0 {
		fmt.Fprintf(&b, "\nAdded Rows (%d):\n", len(result.Added))
		for _, row := range result.Added {
			fmt.Fprintf(&b, "  [+] %s\n", describeRow(row))
		}
	}

	if len(result.Removed) > 0 {
		fmt.Fprintf(&b, "\nRemoved Rows (%d):\n", len(result.Removed))
		for _, row := range result.Removed {
			fmt.Fprintf(&b, "  [-] %s\n", describeRow(row))
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(&b, "\nUnchanged: %d rows\n", result.UnchangedCount)
	}

	_, err := io.WriteString(out, b.String())
	return err
}
