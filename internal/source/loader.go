package source

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/dsreport/internal/log"
	"github.com/nao1215/dsreport/internal/model"
	"golang.org/x/crypto/sha3"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultTimeout bounds upstream requests when no timeout is configured.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxSize is the largest document accepted, in bytes.
	DefaultMaxSize int64 = 64 << 20

	// StdinLocation reads the document from standard input.
	StdinLocation = "-"
)

// Loader reads datastandards from files, stdin or upstream services.
type Loader struct {
	client  *http.Client
	headers map[string]string
	timeout time.Duration
	maxSize int64
	stdin   io.Reader
	logger  *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for upstream requests.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) {
		l.client = client
	}
}

// WithHeaders adds headers to every upstream request.
func WithHeaders(headers map[string]string) Option {
	return func(l *Loader) {
		if l.headers == nil {
			l.headers = make(map[string]string, len(headers))
		}
		maps.Copy(l.headers, headers)
	}
}

// WithTimeout bounds each upstream request. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithMaxSize limits the document size in bytes. Non-positive values are ignored.
func WithMaxSize(n int64) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxSize = n
		}
	}
}

// WithStdin sets the reader used for the "-" location. A nil reader keeps
// os.Stdin.
func WithStdin(r io.Reader) Option {
	return func(l *Loader) {
		if r != nil {
			l.stdin = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader with the given options.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
		maxSize: DefaultMaxSize,
		stdin:   os.Stdin,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Load reads location with a Loader configured by opts.
func Load(ctx context.Context, location string, opts ...Option) (*model.Snapshot, error) {
	return NewLoader(opts...).Load(ctx, location)
}

// Load reads and decodes the datastandard at location.
func (l *Loader) Load(ctx context.Context, location string) (*model.Snapshot, error) {
	if strings.TrimSpace(location) == "" {
		return nil, ErrEmptyLocation
	}

	var (
		data []byte
		yml  bool
		err  error
	)
	switch {
	case isURL(location):
		data, yml, err = l.fetch(ctx, location)
	case location == StdinLocation:
		data, err = l.readAll(l.stdin)
	default:
		data, err = l.readFile(location)
		yml = isYAMLPath(location)
	}
	if err != nil {
		return nil, err
	}

	ds, err := decode(data, yml)
	if err != nil {
		return nil, err
	}

	digest := sha3.Sum256(data)
	snapshot := &model.Snapshot{
		Datastandard: ds,
		Source:       log.RedactURL(location),
		Digest:       hex.EncodeToString(digest[:]),
		LoadedAt:     time.Now(),
	}

	l.logger.Debug("datastandard loaded",
		"source", snapshot.Source,
		"bytes", len(data),
		"digest", snapshot.Digest,
	)
	return snapshot, nil
}

// fetch requests location from the upstream service.
func (l *Loader) fetch(ctx context.Context, location string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9")
	for k, v := range l.headers {
		req.Header.Set(k, v)
	}

	l.logger.Debug("fetching datastandard",
		"source", location,
		"headers", log.RedactHeaders(l.headers),
		"timeout", l.timeout,
	)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch datastandard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		return nil, false, &UpstreamError{
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
			URL:        log.RedactURL(location),
		}
	}

	data, err := l.readAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	yml := strings.Contains(resp.Header.Get("Content-Type"), "yaml") || isYAMLPath(req.URL.Path)
	return data, yml, nil
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided datastandard path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open datastandard: %w", err)
	}
	defer f.Close()
	return l.readAll(f)
}

func (l *Loader) readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read datastandard: %w", err)
	}
	if int64(len(data)) > l.maxSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrDocumentTooLarge, l.maxSize)
	}
	return data, nil
}

// decode parses data as YAML or JSON. A JSON null document yields a nil
// Datastandard, which the builder treats as incomplete.
func decode(data []byte, yml bool) (*model.Datastandard, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrInvalidDocument)
	}

	var ds *model.Datastandard
	var err error
	if yml {
		err = yaml.Unmarshal(trimmed, &ds)
	} else {
		err = json.Unmarshal(trimmed, &ds)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return ds, nil
}

func isURL(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// statusText returns the reason phrase of resp.
func statusText(resp *http.Response) string {
	if text, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
