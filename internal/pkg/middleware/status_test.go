package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusRecorder(t *testing.T) {
	tests := []struct {
		name  string
		write func(w http.ResponseWriter)
		want  int
	}{
		{"explicit status", func(w http.ResponseWriter) { w.WriteHeader(http.StatusCreated) }, http.StatusCreated},
		{"implicit 200 on write", func(w http.ResponseWriter) { w.Write([]byte("ok")) }, http.StatusOK},
		{"first status wins", func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.WriteHeader(http.StatusOK)
		}, http.StatusTooManyRequests},
		{"nothing written", func(http.ResponseWriter) {}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewStatusRecorder(httptest.NewRecorder())
			tt.write(rec)
			if rec.Status != tt.want {
				t.Errorf("Status = %d, want %d", rec.Status, tt.want)
			}
		})
	}
}

func TestStatusRecorder_Flush(t *testing.T) {
	inner := httptest.NewRecorder()
	rec := NewStatusRecorder(inner)
	if err := http.NewResponseController(rec).Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if !inner.Flushed {
		t.Error("flush did not reach the underlying writer")
	}
}
