package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultFormat is the report format written when none is requested.
	DefaultFormat = FormatText

	// DefaultTimeout bounds a single upstream datastandard request.
	// Datastandards of large product domains are several megabytes, so this
	// is generous.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of category reports generated at once.
	DefaultBatchSize = 4

	// DefaultServeAddr is the listen address of the HTTP server.
	DefaultServeAddr = "127.0.0.1:8080"

	// AppName is the application name used for XDG directory paths.
	AppName = "dsreport"
)

// Config holds all configuration options for dsreport.
// It is populated from CLI flags and the optional configuration file and
// passed down explicitly; there is no global configuration state.
type Config struct {
	// Source is the datastandard location: a file path, an http(s) URL or
	// "-" for stdin.
	Source string

	// CategoryIDs are the categories to report on.
	CategoryIDs []string

	// Format selects the report writer.
	Format Format

	// ReportFile is the output file path. Empty means stdout.
	ReportFile string

	// Timeout bounds upstream requests.
	Timeout time.Duration

	// BatchSize is the number of reports generated concurrently.
	BatchSize int

	// ConfigFilePath is the configuration file. If empty, .dsreport is
	// searched in the current and the home directory.
	ConfigFilePath string

	// File holds the loaded configuration file. Never nil after loading.
	File *File

	// SaveHistory stores every report run in the history database.
	SaveHistory bool

	// DBDir is the directory of the history database.
	DBDir string

	// Verbose enables debug logging.
	Verbose bool

	// ServeAddr is the listen address of the HTTP server.
	ServeAddr string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Format:      DefaultFormat,
		Timeout:     DefaultTimeout,
		BatchSize:   DefaultBatchSize,
		SaveHistory: true,
		DBDir:       XDGDataDir(),
		ServeAddr:   DefaultServeAddr,
		File:        NewFile(),
	}
}

// XDGDataDir returns the XDG data directory for dsreport.
// On Linux: ~/.local/share/dsreport
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for dsreport.
// On Linux: ~/.config/dsreport
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ApplyFile fills settings that were not given on the command line from
// the configuration file. Flags always win.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.File = f
	if c.Source == "" {
		c.Source = f.Source
	}
	if c.ServeAddr == "" || c.ServeAddr == DefaultServeAddr {
		if f.Serve.Addr != "" {
			c.ServeAddr = f.Serve.Addr
		}
	}
}

// SourceSettings returns the upstream settings for the configured source,
// with the global timeout used when the file sets none.
func (c *Config) SourceSettings() SourceConfig {
	var sc SourceConfig
	if c.File != nil {
		sc = c.File.GetSourceConfig(c.Source)
	}
	if sc.Timeout <= 0 {
		sc.Timeout = c.Timeout
	}
	return sc
}

// Validate checks the configuration of a report run.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.CategoryIDs) == 0 {
		return ErrNoCategory
	}
	return c.validateCommon()
}

// ValidateServe checks the configuration of the HTTP server.
func (c *Config) ValidateServe() error {
	if c.ServeAddr == "" {
		return ErrNoAddress
	}
	return c.validateCommon()
}

func (c *Config) validateCommon() error {
	if c.Source == "" {
		return ErrNoSource
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if _, err := ParseFormat(string(c.Format)); err != nil {
		return err
	}
	return nil
}
