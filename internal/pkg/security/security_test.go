package security

import (
	"strings"
	"testing"
)

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "lat=10&lon=20", "lat=10&lon=20"},
		{"newline injection", "lat=1\nlevel=ERROR msg=forged", "lat=1\\nlevel=ERROR msg=forged"},
		{"carriage return and tab", "a\rb\tc", "a\\rb\\tc"},
		{"control characters dropped", "a\x00b\x1bc", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForLog(tt.input); got != tt.want {
				t.Errorf("SanitizeForLog(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeForLogWithLength(t *testing.T) {
	got := SanitizeForLogWithLength(strings.Repeat("a", 50), 10)
	if got != strings.Repeat("a", 10)+"..." {
		t.Errorf("got %q", got)
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"redis with password", "redis://:s3cret@cache:6379/0", "redis://:xxxxx@cache:6379/0"},
		{"postgres url", "postgres://tattva:hunter2@db:5432/tattva?sslmode=disable", "postgres://tattva:xxxxx@db:5432/tattva?sslmode=disable"},
		{"password in query", "postgres://db/tattva?password=hunter2", "postgres://db/tattva?password=xxxxx"},
		{"user without password", "redis://reader@cache:6379", "redis://reader@cache:6379"},
		{"keyword dsn", "host=db user=tattva password=hunter2 dbname=tattva", "host=db user=tattva password=xxxxx dbname=tattva"},
		{"quoted keyword dsn", "host=db password='two words'", "host=db password=xxxxx"},
		{"sqlite file", "file:tattva.db?_foreign_keys=on&_busy_timeout=5000", "file:tattva.db?_foreign_keys=on&_busy_timeout=5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RedactURL(tt.input)
			if got != tt.want {
				t.Errorf("RedactURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if strings.Contains(got, "hunter2") || strings.Contains(got, "s3cret") {
				t.Errorf("RedactURL(%q) leaked a secret: %q", tt.input, got)
			}
		})
	}
}
