package logging

import (
	"log/slog"
	"net/url"
	"sort"
	"strings"
)

// RedactedValue is the canonical placeholder used for sensitive fields in logs.
const RedactedValue = "[REDACTED]"

var redactionAllowlist = map[string]struct{}{
	"content-type": {},
	"user-agent":   {},
	"x-request-id": {},
}

// IsAllowlisted reports whether the header key may be logged verbatim.
func IsAllowlisted(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	_, ok := redactionAllowlist[normalized]
	return ok
}

// MaskField returns an attribute that redacts value unless key is
// allowlisted. Empty values pass through unchanged.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskHeaders groups headers under key with every non-allowlisted value
// redacted.
func MaskHeaders(key string, headers map[string]string) slog.Attr {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	attrs := make([]any, 0, len(names))
	for _, name := range names {
		attrs = append(attrs, MaskField(name, headers[name]))
	}
	return slog.Group(key, attrs...)
}

// MaskURL strips credentials, query strings and path segments that commonly
// carry provider API keys from an endpoint URL.
func MaskURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		if strings.TrimSpace(raw) == "" {
			return raw
		}
		return RedactedValue
	}
	if u.User != nil {
		u.User = url.User(RedactedValue)
	}
	if u.RawQuery != "" {
		u.RawQuery = RedactedValue
	}
	if u.Path != "" && u.Path != "/" {
		u.Path = "/" + RedactedValue
		u.RawPath = ""
	}
	return u.String()
}
