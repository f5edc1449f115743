package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures Cross-Origin Resource Sharing.
type CORSConfig struct {
	// AllowOrigins lists allowed origins. Empty or "*" allows any origin.
	AllowOrigins []string
	// AllowMethods defaults to GET, POST, OPTIONS.
	AllowMethods []string
	// AllowHeaders defaults to echoing Access-Control-Request-Headers.
	AllowHeaders  []string
	ExposeHeaders []string
	// AllowCredentials makes the middleware echo the origin instead of "*".
	AllowCredentials bool
	// MaxAge of preflight results in seconds. Zero omits the header.
	MaxAge int
}

// CORS answers preflight requests and sets the CORS headers on actual
// requests. Origins are matched case-insensitively.
func CORS(cfg CORSConfig) Middleware {
	anyOrigin := len(cfg.AllowOrigins) == 0
	allowed := make(map[string]string, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			anyOrigin = true
			continue
		}
		allowed[strings.ToLower(o)] = o
	}
	echo := cfg.AllowCredentials

	methods := "GET, POST, OPTIONS"
	if len(cfg.AllowMethods) > 0 {
		methods = strings.Join(cfg.AllowMethods, ", ")
	}
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")

	allowOrigin := func(origin string) string {
		switch {
		case anyOrigin && !echo:
			return "*"
		case anyOrigin:
			return origin
		default:
			return allowed[strings.ToLower(origin)]
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if !anyOrigin || echo {
				h.Add("Vary", "Origin")
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			ao := allowOrigin(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if ao != "" {
					h.Set("Access-Control-Allow-Origin", ao)
					h.Set("Access-Control-Allow-Methods", methods)
					if headers != "" {
						h.Set("Access-Control-Allow-Headers", headers)
					} else if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
						h.Set("Access-Control-Allow-Headers", req)
					}
					if cfg.AllowCredentials {
						h.Set("Access-Control-Allow-Credentials", "true")
					}
					if cfg.MaxAge > 0 {
						h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if ao != "" {
				h.Set("Access-Control-Allow-Origin", ao)
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if expose != "" {
					h.Set("Access-Control-Expose-Headers", expose)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
