package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nao1215/dsreport/internal/builder"
	"github.com/nao1215/dsreport/internal/config"
	"github.com/nao1215/dsreport/internal/model"
	"github.com/nao1215/dsreport/internal/pipeline"
	"github.com/nao1215/dsreport/internal/report"
	"github.com/nao1215/dsreport/internal/source"
)

// DefaultFormat is the format used when a request does not name one.
const DefaultFormat = config.FormatCSV

// Loader loads the datastandard for a request.
type Loader interface {
	Load(ctx context.Context, location string) (*model.Snapshot, error)
}

// Server serves reports over HTTP.
type Server struct {
	loader   Loader
	location string
	recorder pipeline.Recorder
	logger   *slog.Logger
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRecorder stores every served run in the report history.
func WithRecorder(recorder pipeline.Recorder) Option {
	return func(s *Server) {
		s.recorder = recorder
	}
}

// New creates a Server that reads the datastandard at location through
// loader on every request.
func New(loader Loader, location string, opts ...Option) *Server {
	s := &Server{
		loader:   loader,
		location: location,
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.mux.HandleFunc("GET /report/{categoryID}", s.logRequests(s.handleReport))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleReport builds and renders the report of one category.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	categoryID := r.PathValue("categoryID")

	format := DefaultFormat
	if name := r.URL.Query().Get("format"); name != "" {
		f, err := config.ParseFormat(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		format = f
	}

	snapshot, err := s.loader.Load(r.Context(), s.location)
	if err != nil {
		s.writeError(w, categoryID, err)
		return
	}

	run := model.NewReportRun(categoryID)
	p := pipeline.DefaultPipeline(snapshot, s.recorder, s.logger)
	if err := p.Execute(r.Context(), run); err != nil {
		s.writeError(w, categoryID, err)
		return
	}
	if run.Error != nil {
		s.writeError(w, categoryID, run.Error)
		return
	}

	var buf bytes.Buffer
	writer, err := report.New(format, &buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := writer.Write(run); err != nil {
		s.writeError(w, categoryID, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("X-Datastandard-Digest", run.Digest)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w) //nolint:errcheck // client went away
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n")) //nolint:errcheck // client went away
}

// writeError translates err into an HTTP error response.
func (s *Server) writeError(w http.ResponseWriter, categoryID string, err error) {
	status, text := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("report failed", "category", categoryID, "status", status, "error", err)
	} else {
		s.logger.Warn("report rejected", "category", categoryID, "status", status, "error", err)
	}
	http.Error(w, text, status)
}

// StatusFor maps a report failure to an HTTP status code and response text.
// Upstream errors are passed through with the upstream reason phrase.
func StatusFor(err error) (int, string) {
	var upstream *source.UpstreamError
	switch {
	case errors.As(err, &upstream):
		text := upstream.StatusText
		if text == "" {
			text = http.StatusText(upstream.StatusCode)
		}
		return upstream.StatusCode, text
	case builder.IsIntegrityError(err):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, source.ErrEmptyLocation),
		errors.Is(err, os.ErrNotExist),
		errors.Is(err, pipeline.ErrNoSnapshot):
		return http.StatusServiceUnavailable, "datastandard source unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, http.StatusText(http.StatusGatewayTimeout)
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs every request with its status and duration.
func (s *Server) logRequests(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	}
}

// ShutdownTimeout bounds the graceful shutdown in ListenAndServe.
const ShutdownTimeout = 10 * time.Second

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "source", s.location)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
