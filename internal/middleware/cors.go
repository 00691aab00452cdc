package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds CORS configuration options.
type CORSConfig struct {
	// AllowedOrigins lists exact origins or "*.example.com" subdomain patterns.
	// An empty list denies every cross-origin request.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	// ExposedHeaders are readable by browser scripts on the response.
	ExposedHeaders []string
	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int
}

// DefaultCORSConfig returns the methods and headers the API uses.
// Origins must be supplied by the caller.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{
			RequestIDHeader,
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
		},
		MaxAge: 600,
	}
}

// corsPolicy is a CORSConfig compiled for lookups.
type corsPolicy struct {
	exact    map[string]struct{}
	suffixes []string
	methods  map[string]struct{}

	allowMethods  string
	allowHeaders  string
	exposeHeaders string
	maxAge        string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		exact:         make(map[string]struct{}, len(cfg.AllowedOrigins)),
		methods:       make(map[string]struct{}, len(cfg.AllowedMethods)),
		allowMethods:  strings.Join(cfg.AllowedMethods, ", "),
		allowHeaders:  strings.Join(cfg.AllowedHeaders, ", "),
		exposeHeaders: strings.Join(cfg.ExposedHeaders, ", "),
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.ToLower(strings.TrimSpace(origin))
		if strings.HasPrefix(origin, "*.") {
			// "*.example.com" matches "https://app.example.com" but not "https://example.com".
			p.suffixes = append(p.suffixes, origin[1:])
			continue
		}
		if origin != "" {
			p.exact[origin] = struct{}{}
		}
	}
	for _, m := range cfg.AllowedMethods {
		p.methods[strings.ToUpper(m)] = struct{}{}
	}
	return p
}

func (p *corsPolicy) allowsOrigin(origin string) bool {
	origin = strings.ToLower(origin)
	if _, ok := p.exact[origin]; ok {
		return true
	}

	_, host, ok := strings.Cut(origin, "://")
	if !ok {
		return false
	}
	for _, suffix := range p.suffixes {
		if strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
			return true
		}
	}
	return false
}

func (p *corsPolicy) allowsMethod(method string) bool {
	_, ok := p.methods[strings.ToUpper(method)]
	return ok
}

// CORS answers preflight requests and adds CORS headers for allowed origins.
// Preflights from unknown origins, or for methods the API does not serve,
// get 403. Credentials are never allowed: the API authenticates with
// bearer tokens, not cookies.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if !policy.allowsOrigin(origin) {
				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				// The browser blocks the response without CORS headers.
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", origin)
			if policy.exposeHeaders != "" {
				h.Set("Access-Control-Expose-Headers", policy.exposeHeaders)
			}

			if !preflight {
				next.ServeHTTP(w, r)
				return
			}

			if !policy.allowsMethod(r.Header.Get("Access-Control-Request-Method")) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			h.Set("Access-Control-Allow-Methods", policy.allowMethods)
			h.Set("Access-Control-Allow-Headers", policy.allowHeaders)
			if policy.maxAge != "" {
				h.Set("Access-Control-Max-Age", policy.maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
