package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/redo-ai/internal/metrics"
)

// RequestIDHeader carries the per-request ID on responses.
const RequestIDHeader = "X-Request-Id"

// withOriginVerify rejects requests lacking the x-origin-verify header
// CloudFront injects, so API Gateway cannot be called directly. An empty
// secret disables the check.
func withOriginVerify(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret == "" || r.URL.Path == "/api/health" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("x-origin-verify") != secret {
			log.Warn().Str("path", r.URL.Path).Msg("Blocked request: missing or invalid x-origin-verify header")
			httpError(w, http.StatusForbidden, CodeForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// withLogging assigns a request ID, logs every API request and emits the
// request metrics.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sr, r)

		elapsed := time.Since(start)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("requestId", id).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sr.statusCode).
				Dur("duration", elapsed).
				Msg("API request")
		}
		metrics.Request(r.Method, normalizeEndpoint(r.URL.Path), sr.statusCode, elapsed)
	})
}

// withCORS allows localhost origins plus any listed in allowed.
func withCORS(allowed []string, next http.Handler) http.Handler {
	allow := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		allow[strings.TrimRight(o, "/")] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allow[origin] || strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var knownEndpoints = map[string]bool{
	"/api/health":    true,
	"/api/filters":   true,
	"/api/credits":   true,
	"/api/history":   true,
	"/api/generate":  true,
	"/api/composite": true,
	"/api/share":     true,
	"/api/bundle":    true,
}

// normalizeEndpoint keeps the Path metric dimension low-cardinality.
func normalizeEndpoint(path string) string {
	if knownEndpoints[path] {
		return path
	}
	return "other"
}
