package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	// Origins allowed to call the API. Empty or containing "*" allows all.
	Origins []string
	// Headers clients may send. Preflight requests for other headers are
	// answered without CORS headers, so the browser blocks them.
	Headers []string
	// AllowCredentials echoes the specific origin instead of "*", since the
	// wildcard is invalid with credentials.
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int
}

// CORS handles cross-origin requests and preflights.
func CORS(cfg CORSConfig) Middleware {
	wildcard := len(cfg.Origins) == 0
	allowed := make(map[string]bool, len(cfg.Origins))
	for _, o := range cfg.Origins {
		if o == "*" {
			wildcard = true
		}
		allowed[strings.ToLower(o)] = true
	}
	if cfg.AllowCredentials {
		wildcard = false
	}
	headers := strings.Join(cfg.Headers, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")

			allow := ""
			switch {
			case wildcard:
				allow = "*"
			case allowed[strings.ToLower(origin)] || allowed["*"]:
				allow = origin
			}

			if allow != "" {
				w.Header().Set("Access-Control-Allow-Origin", allow)
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if allow != "" {
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					if headers != "" {
						w.Header().Set("Access-Control-Allow-Headers", headers)
					}
					if cfg.MaxAge > 0 {
						w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
