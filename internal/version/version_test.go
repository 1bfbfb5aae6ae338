package version

import (
	"testing"
)

func TestInfo_VersionOverride(t *testing.T) {
	oldVersion := Version
	t.Cleanup(func() { Version = oldVersion })

	Version = " 9.9.9 "
	got := Info()
	if got.Version != "9.9.9" {
		t.Fatalf("Version mismatch: got=%q want=%q", got.Version, "9.9.9")
	}
}

func TestBuildInfo_String(t *testing.T) {
	b := BuildInfo{Version: "v1.0.0", Commit: "0123456789abcdef", Date: "2026-01-02"}
	if got, want := b.String(), "v1.0.0 (0123456, 2026-01-02)"; got != want {
		t.Fatalf("String()=%q want %q", got, want)
	}
}
