package log

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces a sensitive value as a whole.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"set-cookie":          true,
	"cookies":             true,
	"bot_token":           true,
	"api_key":             true,
	"session":             true,
	"session_id":          true,

	// Wildberries session cookies
	"x_wbaas_token": true,
	"_wbauid":       true,
}

// sensitiveKeywords mask any key that contains them. A bare "key" is not
// listed because it matches product_key, keyboard and the like.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth",
	"credential", "private", "cookie", "wbaas",
}

// sensitiveValues mask a string value as a whole, whatever its key.
var sensitiveValues = []*regexp.Regexp{
	// Telegram bot token ("123456789:AA...")
	regexp.MustCompile(`^\d{6,}:[A-Za-z0-9_-]{30,}$`),

	// Cookie header ("name=value; name2=value2")
	regexp.MustCompile(`^[^=;\s]+=[^;]*(;\s*[^=;\s]+=[^;]*)+$`),

	// JWT, the shape of x_wbaas_token
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Bearer and basic credentials
	regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`),

	// Long opaque strings such as API keys
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
}

// inlineSecret is a secret embedded in a longer string, such as a URL in an
// error message. Only the secret part is replaced.
type inlineSecret struct {
	pattern *regexp.Regexp
	replace string
}

var inlineSecrets = []inlineSecret{
	// Telegram API and file URLs carry the token in the path.
	{regexp.MustCompile(`/bot\d{6,}:[A-Za-z0-9_-]{30,}`), "/bot" + MaskValue},

	// Proxy URLs may carry a password (HTTP_PROXY_URL).
	{regexp.MustCompile(`(://[^:/@\s]+):[^@/\s]+@`), "${1}:" + MaskValue + "@"},
}

// SecureHandler wraps an slog.Handler and masks secrets before records
// reach it. Cookie values, the bot token and proxy passwords pass through
// scraper, bot and HTTP error messages, so masking happens here once.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler. A nil handler means slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's message and attributes and passes it on.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, redactInline(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

// WithAttrs masks attrs before handing them to the wrapped handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(clean)}
}

// WithGroup returns a handler that nests attributes under name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, ga := range group {
			clean[i] = sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if isSensitiveValue(s) {
			return slog.String(a.Key, MaskValue)
		}
		if r := redactInline(s); r != s {
			return slog.String(a.Key, r)
		}
	case slog.KindAny:
		// Errors from HTTP clients quote the request URL.
		if err, ok := a.Value.Any().(error); ok {
			msg := err.Error()
			if r := redactInline(msg); r != msg {
				return slog.String(a.Key, r)
			}
		}
	}

	return a
}

// isSensitiveKey reports whether values under key are always masked.
func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// isSensitiveValue reports whether value as a whole looks like a secret.
func isSensitiveValue(value string) bool {
	for _, p := range sensitiveValues {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

// redactInline masks secrets embedded in s and leaves the rest intact.
func redactInline(s string) string {
	for _, sec := range inlineSecrets {
		s = sec.pattern.ReplaceAllString(s, sec.replace)
	}
	return s
}
