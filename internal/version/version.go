// Package version 提供构建信息，便于 healthz 与日志输出版本指纹。
package version

import "strings"

type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// 通过 -ldflags "-X streammall/internal/version.Version=..." 注入。
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func Info() BuildInfo {
	return BuildInfo{
		Version: strings.TrimSpace(Version),
		Commit:  strings.TrimSpace(Commit),
		Date:    strings.TrimSpace(Date),
	}
}

// String 形如 "v1.2.0 (abc1234, 2026-01-02)"。
func (b BuildInfo) String() string {
	commit := b.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return b.Version + " (" + commit + ", " + b.Date + ")"
}
