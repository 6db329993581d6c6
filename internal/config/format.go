package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Format is a report output format.
type Format string

// Supported report formats.
const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// formatAliases maps case-folded names to formats.
var formatAliases = map[string]Format{
	"text":     FormatText,
	"txt":      FormatText,
	"csv":      FormatCSV,
	"json":     FormatJSON,
	"markdown": FormatMarkdown,
	"md":       FormatMarkdown,
	"html":     FormatHTML,
	"htm":      FormatHTML,
}

// Formats returns all supported formats in display order.
func Formats() []Format {
	return []Format{FormatText, FormatCSV, FormatJSON, FormatMarkdown, FormatHTML}
}

// ParseFormat resolves a user supplied format name. Matching ignores case
// and surrounding whitespace and accepts the usual file extensions.
func ParseFormat(name string) (Format, error) {
	folded := cases.Fold().String(strings.TrimSpace(name))
	if f, ok := formatAliases[folded]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
