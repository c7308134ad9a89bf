package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy defines the CORS headers to emit for matching origins.
// AllowedMethods and AllowedHeaders accept "*" to mean "whatever the
// preflight asked for", which is what browser clients of this API rely on.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// WithCORS adds basic CORS handling. If AllowedOrigins is empty, it is a no-op.
func WithCORS(cfg CORSPolicy) Middleware {
	if len(cfg.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	allowedOrigins := normalizeList(cfg.AllowedOrigins)
	allowedMethods := joinOrWildcard(cfg.AllowedMethods)
	allowedHeaders := joinOrWildcard(cfg.AllowedHeaders)
	maxAge := int(cfg.MaxAge.Seconds())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowOrigin, ok := matchOrigin(origin, allowedOrigins, cfg.AllowCredentials)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			headers := w.Header()
			headers.Set("Access-Control-Allow-Origin", allowOrigin)
			if cfg.AllowCredentials {
				headers.Set("Access-Control-Allow-Credentials", "true")
			}
			if methods := reflectWildcard(allowedMethods, r.Header.Get("Access-Control-Request-Method")); methods != "" {
				headers.Set("Access-Control-Allow-Methods", methods)
			}
			if hdrs := reflectWildcard(allowedHeaders, r.Header.Get("Access-Control-Request-Headers")); hdrs != "" {
				headers.Set("Access-Control-Allow-Headers", hdrs)
			}
			if maxAge > 0 {
				headers.Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
			}
			headers.Add("Vary", "Origin")
			headers.Add("Vary", "Access-Control-Request-Method")
			headers.Add("Vary", "Access-Control-Request-Headers")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// joinOrWildcard collapses the list to "*" when any entry is a wildcard,
// otherwise joins the trimmed entries for the Allow-* response headers.
func joinOrWildcard(values []string) string {
	cleaned := normalizeList(values)
	for _, v := range cleaned {
		if v == "*" {
			return "*"
		}
	}
	return strings.Join(cleaned, ", ")
}

// reflectWildcard resolves "*" to the value the preflight requested, since a
// literal "*" is invalid when credentials are allowed.
func reflectWildcard(allowed, requested string) string {
	if allowed != "*" {
		return allowed
	}
	return requested
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func matchOrigin(origin string, allowed []string, allowCredentials bool) (string, bool) {
	for _, candidate := range allowed {
		if candidate == "*" {
			if allowCredentials {
				return origin, true
			}
			return "*", true
		}
		if strings.EqualFold(candidate, origin) {
			return origin, true
		}
	}
	return "", false
}
