package router

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"streammall/internal/admin"
	"streammall/internal/console"
)

// LoginAPI 调用后端管理员登录并返回 bearer token。
type LoginAPI interface {
	Login(ctx context.Context, email string, password string) (string, error)
}

type Options struct {
	Admin    *admin.Server
	Registry *console.Registry
	Login    LoginAPI
	Logger   *slog.Logger

	// StaticFS 为 /static 下的资源根目录（通常是 admin.Assets 的 static 子目录）。
	StaticFS fs.FS

	MaxBodyBytes   int64
	RequestTimeout time.Duration

	// system
	Healthz http.HandlerFunc
}
