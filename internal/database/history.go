package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/dsreport/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "dsreport.db"

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a database that must exist does not.
var ErrNotFound = errors.New("history database not found")

// HistoryDB provides SQLite-based storage for report runs.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, ErrNotFound is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS report_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category_id TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		digest TEXT NOT NULL DEFAULT '',
		timestamp DATETIME NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		rows_json TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_category ON report_runs(category_id);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON report_runs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_digest ON report_runs(digest);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores run and returns its id.
func (hdb *HistoryDB) SaveRun(ctx context.Context, run *model.ReportRun) (int64, error) {
	rows := run.Rows
	if rows == nil {
		rows = []model.Row{}
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize rows: %w", err)
	}

	errMsg := run.ErrorMessage
	if errMsg == "" && run.Error != nil {
		errMsg = run.Error.Error()
	}

	timestamp := run.GeneratedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	query := `
	INSERT INTO report_runs (category_id, source, digest, timestamp, row_count, rows_json, error)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := hdb.db.ExecContext(ctx, query,
		run.CategoryID,
		run.Source,
		run.Digest,
		timestamp.UTC().Format(timestampLayout),
		run.RowCount(),
		string(rowsJSON),
		errMsg,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save report run: %w", err)
	}

	return result.LastInsertId()
}

// runColumns is the column list scanned by scanRun.
const runColumns = `id, category_id, source, digest, timestamp, row_count, rows_json, error`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one report_runs row.
func scanRun(s rowScanner) (int64, *model.ReportRun, error) {
	var (
		id        int64
		run       model.ReportRun
		timestamp string
		rowCount  int
		rowsJSON  string
	)
	if err := s.Scan(
		&id,
		&run.CategoryID,
		&run.Source,
		&run.Digest,
		&timestamp,
		&rowCount,
		&rowsJSON,
		&run.ErrorMessage,
	); err != nil {
		return 0, nil, err
	}

	run.GeneratedAt = parseTimestamp(timestamp)
	if err := json.Unmarshal([]byte(rowsJSON), &run.Rows); err != nil {
		return id, nil, fmt.Errorf("failed to parse rows of run %d: %w", id, err)
	}
	return id, &run, nil
}

// GetLatestRun retrieves the most recent run for a category.
// Returns nil without error when the category has no runs.
func (hdb *HistoryDB) GetLatestRun(ctx context.Context, categoryID string) (*model.ReportRun, error) {
	query := `SELECT ` + runColumns + ` FROM report_runs
	WHERE category_id = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	_, run, err := scanRun(hdb.db.QueryRowContext(ctx, query, categoryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report run: %w", err)
	}
	return run, nil
}

// ListCategories returns every category that has at least one run.
func (hdb *HistoryDB) ListCategories(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT category_id FROM report_runs
	ORDER BY category_id
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

// GetHistory retrieves all runs for a category, newest first.
func (hdb *HistoryDB) GetHistory(ctx context.Context, categoryID string) ([]*model.ReportRun, error) {
	query := `SELECT ` + runColumns + ` FROM report_runs
	WHERE category_id = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get report history: %w", err)
	}
	defer rows.Close()

	var runs []*model.ReportRun
	for rows.Next() {
		_, run, err := scanRun(rows)
		if err != nil {
			continue // Skip malformed runs
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// RunMetadata contains summary information about a stored run.
// This is used for displaying history without loading the rows.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// CategoryID is the category the run was built for.
	CategoryID string

	// Source and Digest identify the datastandard snapshot.
	Source string
	Digest string

	// Timestamp is when the run was generated.
	Timestamp time.Time

	// RowCount is the number of data rows.
	RowCount int

	// Error is the failure message, empty for successful runs.
	Error string
}

// GetHistoryWithMetadata retrieves run metadata for a category, newest first.
// This is cheaper than GetHistory when only metadata is needed.
func (hdb *HistoryDB) GetHistoryWithMetadata(ctx context.Context, categoryID string) ([]RunMetadata, error) {
	query := `
	SELECT id, category_id, source, digest, timestamp, row_count, error
	FROM report_runs
	WHERE category_id = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get report history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp string

		if err := rows.Scan(
			&meta.ID,
			&meta.CategoryID,
			&meta.Source,
			&meta.Digest,
			&timestamp,
			&meta.RowCount,
			&meta.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRunByID retrieves a run by its database ID.
// Returns nil without error when no such run exists.
func (hdb *HistoryDB) GetRunByID(ctx context.Context, id int64) (*model.ReportRun, error) {
	query := `SELECT ` + runColumns + ` FROM report_runs WHERE id = ?`

	_, run, err := scanRun(hdb.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report run: %w", err)
	}
	return run, nil
}

// Prune deletes all but the keep most recent runs of a category and returns
// the number of deleted runs.
func (hdb *HistoryDB) Prune(ctx context.Context, categoryID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	query := `
	DELETE FROM report_runs
	WHERE category_id = ? AND id NOT IN (
		SELECT id FROM report_runs
		WHERE category_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	)
	`

	result, err := hdb.db.ExecContext(ctx, query, categoryID, categoryID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune report history: %w", err)
	}
	return result.RowsAffected()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,           // Format written by SaveRun
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
