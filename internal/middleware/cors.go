package middleware

import (
	"net/http"
	"slices"
	"strings"
)

const (
	corsAllowHeaders = "Content-Type, Authorization, " + requestIDHeader
	corsAllowMethods = "GET,POST,PUT,DELETE,OPTIONS"
)

// CORS adds Access-Control headers for allowed origins and short-circuits
// preflight requests. Credentials (the session cookie) are only allowed for
// explicitly listed origins, never for "*".
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	allowAll := slices.Contains(allowedOrigins, "*")
	normalized := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		normalized = append(normalized, strings.ToLower(strings.TrimRight(origin, "/")))
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		h := w.Header()
		switch {
		case origin == "":
		case slices.Contains(normalized, strings.ToLower(origin)):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		case allowAll:
			h.Set("Access-Control-Allow-Origin", "*")
		default:
			origin = ""
		}
		if origin != "" {
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Expose-Headers", requestIDHeader)
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
