package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/nao1215/dsreport/internal/config"
	"github.com/nao1215/dsreport/internal/database"
	dslog "github.com/nao1215/dsreport/internal/log"
	"github.com/nao1215/dsreport/internal/model"
	"github.com/nao1215/dsreport/internal/pipeline"
	"github.com/nao1215/dsreport/internal/report"
	"github.com/nao1215/dsreport/internal/source"
	"github.com/spf13/cobra"
)

// errReportsFailed is returned when at least one category report failed.
var errReportsFailed = errors.New("report generation failed")

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [category-id]...",
		Short: "Generate the attribute report of one or more categories",
		Long: `Report lists every attribute that applies to a category of a datastandard.

For each category the report contains one row per attribute link of the
category itself and of each of its ancestors, nearest first. Attribute names
of mandatory links carry a trailing '*', composite attributes are expanded
into their nested structure, and multi-value types end with '[]'.

The datastandard is read from a JSON or YAML file, an http(s) URL, or stdin.
Every run is stored in the report history unless --no-history is given.

Examples:
  # Text report of one category
  dsreport report -s datastandard.json leaf

  # CSV report of several categories, four at a time
  dsreport report -s datastandard.yaml -f csv -b 4 shoes boots sandals

  # Fetch the datastandard over HTTP and write Markdown to a file
  dsreport report -s https://example.com/datastandard.json -f markdown -o report.md leaf

  # Read from stdin
  cat datastandard.json | dsreport report -s - leaf

Configuration file (.dsreport) example:
  source: https://datastandard.example.com/api/datastandard
  defaults:
    timeout: 30s
  sources:
    datastandard.example.com:
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runReportCmd,
	}

	// Source flags
	cmd.Flags().StringP("source", "s", "",
		"Datastandard location: file path, http(s) URL, or - for stdin")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for upstream requests")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .dsreport in current or home directory)")

	// Generation flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of reports generated concurrently")
	cmd.Flags().Bool("no-history", false,
		"Do not store the runs in the report history")
	addHistoryDirFlag(cmd)

	// Output flags
	cmd.Flags().StringP("format", "f", string(config.DefaultFormat),
		"Report format: "+formatNames())
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("tee", false,
		"With --output, also print the text report to stdout")
	cmd.Flags().Bool("no-summary", false,
		"Omit the summary block of text reports")
	cmd.Flags().String("delimiter", ",",
		"Field delimiter of CSV reports")
	cmd.Flags().String("title", "",
		"Document title of HTML reports")
	cmd.Flags().Bool("full", false,
		"Wrap JSON reports in an object with run metadata")

	return cmd
}

// formatNames lists the supported report formats for flag help.
func formatNames() string {
	names := make([]string, 0, len(config.Formats()))
	for _, f := range config.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

// writerOptions holds the format-specific output settings.
type writerOptions struct {
	format    config.Format
	verbose   bool
	noSummary bool
	delimiter rune
	title     string
	full      bool
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	wopts, err := buildWriterOptions(cmd, cfg)
	if err != nil {
		return err
	}
	tee, err := cmd.Flags().GetBool("tee")
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, closeOut, err := openOutput(cmd.OutOrStdout(), cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeOut()

	writer, err := newWriter(out, wopts)
	if err != nil {
		return err
	}
	if tee && cfg.ReportFile != "" {
		writer = report.NewMultiWriter(writer, report.NewTextWriter(cmd.OutOrStdout(),
			report.WithSummary(!wopts.noSummary),
			report.WithVerbose(wopts.verbose),
		))
	}

	return runReport(ctx, cfg, cmd.InOrStdin(), writer, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// addHistoryDirFlag adds the --history-dir flag shared by the commands that
// use the report history.
func addHistoryDirFlag(cmd *cobra.Command) {
	cmd.Flags().String("history-dir", config.XDGDataDir(),
		"Directory of the report history database")
}

// newLogger creates the redacting structured logger of a command.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	return dslog.New(w, dslog.Options{Verbose: verbose})
}

// loadConfigFile loads the configuration file named by the --config flag,
// or the first one found in the default locations, into cfg.
// An explicitly named file that does not exist is an error; a missing
// default file is not.
func loadConfigFile(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	path := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case path != "":
		f, err := config.LoadConfigFile(path)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.ApplyFile(f)
	case cfg.ConfigFilePath != "":
		return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}
	return nil
}

// buildConfig creates a Config from cobra command flags and the
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.CategoryIDs = args
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.Source, err = cmd.Flags().GetString("source"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}

	if cfg.DBDir, err = cmd.Flags().GetString("history-dir"); err != nil {
		return nil, err
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory

	if err := loadConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	// The file's format applies only when the flag was left alone.
	name, err := cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}
	if !cmd.Flags().Changed("format") && cfg.File.Format != "" {
		name = cfg.File.Format
	}
	if cfg.Format, err = config.ParseFormat(name); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return cfg, nil
}

// buildWriterOptions reads the format-specific output flags.
func buildWriterOptions(cmd *cobra.Command, cfg *config.Config) (writerOptions, error) {
	opts := writerOptions{format: cfg.Format, verbose: cfg.Verbose}

	var err error
	if opts.noSummary, err = cmd.Flags().GetBool("no-summary"); err != nil {
		return opts, err
	}
	if opts.title, err = cmd.Flags().GetString("title"); err != nil {
		return opts, err
	}
	if opts.full, err = cmd.Flags().GetBool("full"); err != nil {
		return opts, err
	}

	delimiter, err := cmd.Flags().GetString("delimiter")
	if err != nil {
		return opts, err
	}
	if delimiter == `\t` {
		delimiter = "\t"
	}
	r, size := utf8.DecodeRuneInString(delimiter)
	if size == 0 || size != len(delimiter) || r == utf8.RuneError {
		return opts, fmt.Errorf("invalid CSV delimiter %q: must be a single character", delimiter)
	}
	opts.delimiter = r

	return opts, nil
}

// newWriter returns the report writer for the options.
func newWriter(out io.Writer, opts writerOptions) (report.Writer, error) {
	switch opts.format {
	case config.FormatText:
		return report.NewTextWriter(out,
			report.WithSummary(!opts.noSummary),
			report.WithVerbose(opts.verbose),
		), nil
	case config.FormatCSV:
		return report.NewCSVWriter(out, report.WithComma(opts.delimiter)), nil
	case config.FormatJSON:
		if opts.full {
			return report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint()), nil
		}
	case config.FormatHTML:
		if opts.title != "" {
			return report.NewHTMLWriter(out, report.WithTitle(opts.title)), nil
		}
	}
	return report.New(opts.format, out)
}

// openOutput returns the report destination: the file at path, or stdout
// when path is empty. The returned function closes the file.
func openOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// newSourceLoader creates the datastandard loader with the upstream
// settings of the configured source.
func newSourceLoader(cfg *config.Config, stdin io.Reader, logger *slog.Logger) *source.Loader {
	settings := cfg.SourceSettings()
	return source.NewLoader(
		source.WithHeaders(settings.Headers),
		source.WithTimeout(settings.Timeout),
		source.WithStdin(stdin),
		source.WithLogger(logger),
	)
}

// openRecorder opens the history database when history is enabled.
// The recorder is a nil interface when it is not, which makes the pipeline
// skip recording.
func openRecorder(cfg *config.Config, logger *slog.Logger) (pipeline.Recorder, func(), error) {
	if !cfg.SaveHistory {
		return nil, func() {}, nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history database: %w", err)
	}
	logger.Debug("history database opened", "path", db.Path())

	return db, func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close history database", "error", err)
		}
	}, nil
}

// runReport loads the datastandard once, generates the report of every
// requested category and writes the runs in the order they were requested.
func runReport(ctx context.Context, cfg *config.Config, stdin io.Reader, writer report.Writer, logger *slog.Logger) error {
	logger.Info("starting report",
		"categories", cfg.CategoryIDs,
		"source", dslog.RedactURL(cfg.Source),
		"format", cfg.Format,
		"batchSize", cfg.BatchSize,
		"saveHistory", cfg.SaveHistory,
	)

	snapshot, err := newSourceLoader(cfg, stdin, logger).Load(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to load datastandard: %w", err)
	}

	recorder, closeRecorder, err := openRecorder(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRecorder()

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return pipeline.DefaultPipeline(snapshot, recorder, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	runs, err := bp.ProcessBatch(ctx, cfg.CategoryIDs)
	if err != nil {
		return err
	}

	return writeRuns(writer, runs)
}

// writeRuns writes every run and reports the failed ones.
// A failed run is still written so the output shows its status.
func writeRuns(writer report.Writer, runs []*model.ReportRun) error {
	var failures []error
	for _, run := range runs {
		if _, err := writer.Write(run); err != nil {
			return fmt.Errorf("failed to write report for %s: %w", run.CategoryID, err)
		}
		if run.Failed() {
			failures = append(failures, fmt.Errorf("category %s: %w", run.CategoryID, runError(run)))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%w (%d of %d): %w", errReportsFailed, len(failures), len(runs), errors.Join(failures...))
	}
	return nil
}

// runError returns the error of a failed run, falling back to its message
// for runs read back from the history.
func runError(run *model.ReportRun) error {
	if run.Error != nil {
		return run.Error
	}
	return errors.New(run.ErrorMessage)
}
