package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	hstsHeader         = "max-age=31536000; includeSubDomains"
	apiCSP             = "default-src 'none'; frame-ancestors 'none'"
	uploadCSP          = "default-src 'none'; sandbox"
	defaultPublicCache = 24 * time.Hour
)

// securityHeaders are set on every response.
var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Cross-Origin-Opener-Policy", "same-origin"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
}

// SecurityConfig holds configuration for response security headers.
type SecurityConfig struct {
	// IsDevelopment disables HSTS.
	IsDevelopment bool
	// PublicPrefixes are path prefixes serving stored avatars and project
	// images. Their responses may be cached and embedded by other origins.
	PublicPrefixes []string
	// PublicMaxAge defaults to 24h.
	PublicMaxAge time.Duration
}

// Security sets security headers. API responses are never cached; uploaded
// images get a public cache policy and a cross-origin resource policy so the
// frontend can render them.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	maxAge := cfg.PublicMaxAge
	if maxAge <= 0 {
		maxAge = defaultPublicCache
	}
	publicCache := "public, max-age=" + strconv.Itoa(int(maxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range securityHeaders {
				h.Set(kv[0], kv[1])
			}
			if !cfg.IsDevelopment {
				h.Set("Strict-Transport-Security", hstsHeader)
			}

			if underPrefix(r.URL.Path, cfg.PublicPrefixes) {
				h.Set("Content-Security-Policy", uploadCSP)
				h.Set("Cross-Origin-Resource-Policy", "cross-origin")
				h.Set("Cache-Control", publicCache)
			} else {
				h.Set("Content-Security-Policy", apiCSP)
				h.Set("Cross-Origin-Resource-Policy", "same-origin")
				h.Set("Cache-Control", "no-store")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func underPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix != "" && (path == prefix || strings.HasPrefix(path, prefix+"/")) {
			return true
		}
	}
	return false
}

// MaxBodySize rejects bodies above maxBytes with 413 and caps streamed
// bodies that do not declare a length.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
