package obs

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"streammall/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		env  string
		raw  string
		want slog.Level
	}{
		{env: "dev", raw: "", want: slog.LevelDebug},
		{env: "prod", raw: "", want: slog.LevelInfo},
		{env: "dev", raw: "warn", want: slog.LevelWarn},
		{env: "prod", raw: "error", want: slog.LevelError},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.env, tc.raw); got != tc.want {
			t.Fatalf("ParseLevel(%q,%q)=%v, want %v", tc.env, tc.raw, got, tc.want)
		}
	}
}

func TestNewLogger_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "admin.log")
	l := NewLogger("prod", config.LogConfig{File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	l.Info("console started", "addr", ":8080")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(b) == 0 {
		t.Fatalf("expected log line in %s", path)
	}
}

func TestRecordBackendCall(t *testing.T) {
	before := Stats()
	RecordBackendCall(false)
	RecordBackendCall(true)
	after := Stats()
	if after.BackendRequests-before.BackendRequests != 2 {
		t.Fatalf("requests delta = %d", after.BackendRequests-before.BackendRequests)
	}
	if after.BackendFailures-before.BackendFailures != 1 {
		t.Fatalf("failures delta = %d", after.BackendFailures-before.BackendFailures)
	}
}
