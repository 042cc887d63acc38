package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
		want   string
	}{
		{"info text", "info", "text", "msg=hello"},
		{"info json", "info", "json", `"msg":"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&buf, tt.level, tt.format)
			log.Info("hello")

			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want it to contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestNewWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "text")

	log.Info("dropped")
	log.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info line should be filtered at warn level, got %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn line missing, got %q", out)
	}
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")

	// Context without request ID
	if l := log.WithContext(context.Background()); l != log {
		t.Error("WithContext() without request ID should return the same logger")
	}

	ctx := ContextWithRequestID(context.Background(), "req-123")
	log.WithContext(ctx).Info("handled")

	if !strings.Contains(buf.String(), `"request_id":"req-123"`) {
		t.Errorf("output should carry request_id, got %q", buf.String())
	}
}

func TestRequestID(t *testing.T) {
	if _, ok := RequestID(context.Background()); ok {
		t.Error("RequestID() on empty context should report false")
	}

	ctx := ContextWithRequestID(context.Background(), "abc")
	id, ok := RequestID(ctx)
	if !ok || id != "abc" {
		t.Errorf("RequestID() = %q, %v, want %q, true", id, ok, "abc")
	}

	if _, ok := RequestID(ContextWithRequestID(context.Background(), "")); ok {
		t.Error("empty request ID should report false")
	}
}

func TestLogger_WithComponentAndError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")

	log.WithComponent("finder").WithError(errors.New("boom")).Warn("cache read failed")

	out := buf.String()
	for _, want := range []string{`"component":"finder"`, `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output = %q, want it to contain %q", out, want)
		}
	}
}

func TestNewWithWriter_MasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "JSON")

	log.Info("connecting", "host", "db.local", "password", "hunter2", "Token", "abc")

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, `"abc"`) {
		t.Errorf("secret leaked into %q", out)
	}
	if !strings.Contains(out, `"host":"db.local"`) {
		t.Errorf("ordinary attribute missing from %q", out)
	}
}

func TestDefaultAndDiscard(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}
	if Discard() == nil {
		t.Fatal("Discard() returned nil")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{" Debug ", slog.LevelDebug},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // default
		{"", slog.LevelInfo},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
