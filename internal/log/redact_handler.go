package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// MaskValue replaces redacted values.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys and query parameter names whose values
// are always masked. Matching is case-insensitive.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"api_key":             true,
	"apikey":              true,
	"api-key":             true,
	"access_token":        true,
	"refresh_token":       true,
	"client_secret":       true,
	"password":            true,
	"token":               true,
}

// sensitiveKeywords mask any key containing them.
var sensitiveKeywords = []string{"password", "secret", "token", "credential"}

// sensitivePatterns match credential-looking values regardless of key.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
}

// RedactHandler masks credentials in log records before passing them on.
type RedactHandler struct {
	handler slog.Handler
}

// NewRedactHandler wraps handler. A nil handler wraps slog.Default().Handler().
func NewRedactHandler(handler slog.Handler) *RedactHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle redacts the record's attributes and forwards it.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	redacted := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, redacted)
}

// WithAttrs returns a handler whose preset attributes are already redacted.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = redactAttr(a)
	}
	return &RedactHandler{handler: h.handler.WithAttrs(out)}
}

// WithGroup returns a handler that nests attributes under name.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{handler: h.handler.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		if isSensitiveKey(a.Key) || isSensitiveValue(a.Value.String()) {
			return slog.String(a.Key, MaskValue)
		}
		return slog.String(a.Key, RedactURL(a.Value.String()))
	case slog.KindAny:
		if headers, ok := a.Value.Any().(map[string]string); ok {
			return slog.Any(a.Key, RedactHeaders(headers))
		}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

// RedactHeaders returns a copy of headers with credential values masked.
func RedactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if isSensitiveKey(k) || isSensitiveValue(v) {
			out[k] = MaskValue
			continue
		}
		out[k] = v
	}
	return out
}

// RedactURL masks the password and secret query parameters of an absolute
// URL. Other strings are returned unchanged.
func RedactURL(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return s
	}

	q := u.Query()
	changed := false
	for key := range q {
		if isSensitiveKey(key) {
			q.Set(key, MaskValue)
			changed = true
		}
	}
	if changed {
		u.RawQuery = strings.ReplaceAll(q.Encode(), url.QueryEscape(MaskValue), MaskValue)
	}
	if !changed && u.User == nil {
		return s
	}
	return u.Redacted()
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if sensitiveKeys[k] {
		return true
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(k, kw) {
			return true
		}
	}
	return false
}

func isSensitiveValue(v string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(v) {
			return true
		}
	}
	return false
}

// Options configures New.
type Options struct {
	// Verbose lowers the level from Warn to Debug.
	Verbose bool

	// JSON selects the JSON handler instead of the text handler.
	JSON bool
}

// New creates a redacting logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(NewRedactHandler(handler))
}
