package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/dsreport/internal/config"
	"github.com/nao1215/dsreport/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve category reports over HTTP",
		Long: `Serve starts an HTTP server that generates reports on request.

The datastandard is read from the source on every request, so the server
always reports on the current document. Upstream failures are passed
through: a 404 from the datastandard host is answered with 404 and the same
status text.

Endpoints:
  GET /report/{categoryID}?format=csv   report of one category
                                        (csv, json, markdown, html or text)
  GET /healthz                          liveness probe

Examples:
  # Serve a local file on the default address
  dsreport serve -s datastandard.json

  # Serve an upstream datastandard on all interfaces
  dsreport serve -s https://example.com/datastandard.json --addr :8080

  # Record every served report in the history
  dsreport serve -s datastandard.json --history`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("source", "s", "",
		"Datastandard location: file path or http(s) URL")
	cmd.Flags().StringP("addr", "a", config.DefaultServeAddr,
		"Listen address")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for upstream requests")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .dsreport in current or home directory)")
	cmd.Flags().Bool("history", false,
		"Store every served report in the report history")
	addHistoryDirFlag(cmd)

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.Source == "-" {
		return fmt.Errorf("configuration error: %w: stdin cannot be served", config.ErrNoSource)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []server.Option{server.WithLogger(logger)}

	recorder, closeRecorder, err := openRecorder(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRecorder()
	if recorder != nil {
		opts = append(opts, server.WithRecorder(recorder))
	}

	srv := server.New(newSourceLoader(cfg, nil, logger), cfg.Source, opts...)

	fmt.Fprintf(cmd.OutOrStdout(), "Serving reports on http://%s/report/{categoryID}\n", cfg.ServeAddr)
	return srv.ListenAndServe(ctx, cfg.ServeAddr)
}

// buildServeConfig creates a Config for the serve command.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.Source, err = cmd.Flags().GetString("source"); err != nil {
		return nil, err
	}
	if cfg.ServeAddr, err = cmd.Flags().GetString("addr"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = cmd.Flags().GetString("history-dir"); err != nil {
		return nil, err
	}
	if cfg.SaveHistory, err = cmd.Flags().GetBool("history"); err != nil {
		return nil, err
	}

	if err := loadConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	// ApplyFile only replaces the default address.
	if cmd.Flags().Changed("addr") {
		if cfg.ServeAddr, err = cmd.Flags().GetString("addr"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}
