// Package obs 提供最小的可观测能力：结构化日志与必要字段，默认不记录敏感信息（token、密码）。
package obs

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"streammall/internal/config"
)

// NewLogger 输出 JSON 到 stdout；配置了 log.file 时同时写入滚动文件。
func NewLogger(env string, lc config.LogConfig) *slog.Logger {
	var w io.Writer = os.Stdout
	if rotating := newRotatingFile(lc); rotating != nil {
		w = io.MultiWriter(os.Stdout, rotating)
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(env, lc.Level)})
	return slog.New(handler)
}

// ParseLevel 显式配置优先；未配置时 dev 用 debug，其余用 info。
func ParseLevel(env string, raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if env == "dev" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func newRotatingFile(lc config.LogConfig) io.Writer {
	if lc.File == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(lc.File), 0o755); err != nil {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   lc.File,
		MaxSize:    lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAgeDays,
		Compress:   lc.Compress,
	}
}
