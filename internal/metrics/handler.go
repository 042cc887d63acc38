package metrics

import (
	"io"
	"net/http"
	"strconv"
)

const expositionContentType = "text/plain; version=0.0.4; charset=utf-8"

// Handler serves the text exposition. Runtime gauges are refreshed on every
// scrape so they are never older than the request.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(m.serveExposition)
}

func (m *Metrics) serveExposition(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
	default:
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m.collectOnce()
	body := m.PrometheusFormat()

	w.Header().Set("Content-Type", expositionContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.WriteString(w, body)
}
