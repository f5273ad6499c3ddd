package httpclient

import (
	"net/http"
	"net/url"
	"strings"
)

// Redacted replaces sensitive values in logs.
const Redacted = "[REDACTED]"

// sensitiveParams contains query parameter names that should be redacted from logs.
// These are matched case-insensitively.
var sensitiveParams = []string{
	"api_key",
	"apikey",
	"token",
	"password",
	"auth",
	"secret",
	"key",
	"credential",
	"signature",
}

// sensitiveHeaders are always redacted, whatever their value.
var sensitiveHeaders = []string{
	"Authorization",
	"Proxy-Authorization",
	"Cookie",
	"Set-Cookie",
	"X-Api-Key",
	"X-Amz-Security-Token",
}

// SanitizeURL removes sensitive query parameters from URLs before logging.
func SanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	q := u.Query()
	for param := range q {
		if isSensitiveParam(param) {
			q.Set(param, Redacted)
		}
	}

	safe := *u
	safe.User = nil
	safe.RawQuery = q.Encode()
	return safe.String()
}

// RedactHeaders returns a copy of h with credential headers replaced.
// The scheme of an Authorization header is kept so logs still show which
// provider signed the request.
func RedactHeaders(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		return http.Header{}
	}
	for _, name := range sensitiveHeaders {
		values := out.Values(name)
		if len(values) == 0 {
			continue
		}
		redacted := make([]string, len(values))
		for i, v := range values {
			if scheme, _, ok := strings.Cut(v, " "); ok && (name == "Authorization" || name == "Proxy-Authorization") {
				redacted[i] = scheme + " " + Redacted
			} else {
				redacted[i] = Redacted
			}
		}
		out[http.CanonicalHeaderKey(name)] = redacted
	}
	return out
}

// isSensitiveParam checks if a parameter name matches the sensitive list.
// Comparison is case-insensitive to catch variants like "API_KEY", "Api_Key", etc.
func isSensitiveParam(param string) bool {
	lower := strings.ToLower(param)
	for _, sensitive := range sensitiveParams {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
