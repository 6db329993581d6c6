package config

import (
	"maps"
	"net/url"
	"time"
)

// SourceConfig holds upstream settings for one datastandard source.
type SourceConfig struct {
	// Headers are sent with every upstream request, typically
	// Authorization.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Timeout overrides the global upstream timeout. Zero keeps it.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ServeConfig holds settings of the HTTP server.
type ServeConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:8080".
	Addr string `yaml:"addr,omitempty"`
}

// File represents the structure of the .dsreport configuration file.
type File struct {
	// Source is the default datastandard location.
	Source string `yaml:"source,omitempty"`

	// Format is the default report format.
	Format string `yaml:"format,omitempty"`

	// Sources maps a source location, or the host of a URL, to its
	// settings.
	Sources map[string]SourceConfig `yaml:"sources,omitempty"`

	// Defaults apply to every source unless overridden.
	Defaults SourceConfig `yaml:"defaults,omitempty"`

	// Serve configures the HTTP server.
	Serve ServeConfig `yaml:"serve,omitempty"`
}

// NewFile returns an empty configuration file.
func NewFile() *File {
	return &File{Sources: make(map[string]SourceConfig)}
}

// GetSourceConfig returns the settings for location merged over the
// defaults. An exact location entry is preferred over a host entry.
func (f *File) GetSourceConfig(location string) SourceConfig {
	result := SourceConfig{
		Headers: maps.Clone(f.Defaults.Headers),
		Timeout: f.Defaults.Timeout,
	}

	override, ok := f.Sources[location]
	if !ok {
		if u, err := url.Parse(location); err == nil && u.Host != "" {
			override, ok = f.Sources[u.Host]
		}
	}
	if !ok {
		return result
	}

	if len(override.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(override.Headers))
		}
		maps.Copy(result.Headers, override.Headers)
	}
	if override.Timeout > 0 {
		result.Timeout = override.Timeout
	}
	return result
}
