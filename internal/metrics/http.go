package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tattva/tattva/internal/pkg/middleware"
)

// HTTPMiddleware records count, duration and in-flight requests for next.
// Requests are labelled by the ServeMux pattern they matched when there is
// one, so next should be, or wrap, the router.
func HTTPMiddleware(m *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		rec := middleware.NewStatusRecorder(w)
		next.ServeHTTP(rec, r)

		m.recordHTTP(r.Method, routeOf(r), rec.Status, time.Since(start).Seconds())
	})
}

// routeOf returns the matched pattern without its method, or the
// normalized path when the request never reached the router.
func routeOf(r *http.Request) string {
	if r.Pattern == "" {
		return normalizePath(r.URL.Path)
	}
	_, path, ok := strings.Cut(r.Pattern, " ")
	if !ok {
		path = r.Pattern
	}
	if i := strings.IndexByte(path, '/'); i > 0 {
		path = path[i:] // host-qualified pattern
	}
	return strings.TrimSuffix(path, "{$}")
}

// knownPaths are the routes served by the API. Unmatched requests, such as
// those rejected by the rate limiter, are labelled by path only if it is one
// of these; anything else collapses into "other".
var knownPaths = map[string]bool{
	"/":               true,
	"/healthz":        true,
	"/metrics":        true,
	"/api/hypotheses": true,
	"/api/context":    true,
	"/api/species":    true,
}

// normalizePath normalizes HTTP paths to reduce cardinality for metrics.
func normalizePath(path string) string {
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if knownPaths[path] {
		return path
	}
	return "other"
}

// statusCode converts HTTP status code to string for metric label.
// Uncommon codes are grouped into categories to reduce cardinality.
func statusCode(code int) string {
	switch code {
	case 200, 201, 204, 400, 401, 403, 404, 405, 429, 500, 502, 503:
		return strconv.Itoa(code)
	}

	if code >= 100 && code < 600 {
		return strconv.Itoa(code/100) + "xx"
	}

	return strconv.Itoa(code)
}
