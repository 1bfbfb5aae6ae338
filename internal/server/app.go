// Package server 组装 HTTP 路由、依赖与中间件，使 main 保持简单可读。
package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"streammall/internal/admin"
	"streammall/internal/backend"
	"streammall/internal/config"
	"streammall/internal/console"
	"streammall/internal/obs"
	"streammall/internal/version"
	"streammall/router"
)

type AppOptions struct {
	Config  config.Config
	Version version.BuildInfo
	Logger  *slog.Logger

	// HTTPClient 非空时用于所有后端调用（测试注入）。
	HTTPClient *http.Client
}

type App struct {
	cfg      config.Config
	version  version.BuildInfo
	logger   *slog.Logger
	client   *backend.Client
	registry *console.Registry
	engine   *gin.Engine
}

func NewApp(opts AppOptions) (*App, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	secret := strings.TrimSpace(cfg.Security.SessionSecret)
	if secret == "" {
		logger.Warn("未配置 session_secret，使用随机密钥（重启后需重新登录）")
		secret = randomSecret(32)
	}
	store, err := newSessionStore(cfg, secret)
	if err != nil {
		return nil, err
	}

	bopts := backend.OptionsFromConfig(cfg.Backend, cfg.BackendHTTP)
	bopts.HTTPClient = opts.HTTPClient
	bopts.Logger = logger
	client := backend.New(cfg.Backend.BaseURL, bopts)

	settingsClient := client
	if cfg.Backend.SettingsBaseURL != "" && cfg.Backend.SettingsBaseURL != cfg.Backend.BaseURL {
		settingsClient = backend.New(cfg.Backend.SettingsBaseURL, bopts)
	}

	reg := console.NewRegistry(console.Deps{
		Orders:           client,
		Recharges:        client,
		Settings:         backend.NewSettingsAPI(settingsClient, cfg.Backend.SettingsPath),
		PageSize:         cfg.Backend.PageSize,
		RefreshAfter:     cfg.Admin.RefreshAfter(),
		ReconcileTimeout: cfg.Admin.ReconcileTimeout(),
		Location:         cfg.Admin.Location(),
		Logger:           logger,
	}, cfg.Admin.WorkspaceIdle())
	adm, err := admin.NewServer(reg, cfg.Admin.Location(), logger)
	if err != nil {
		return nil, err
	}
	staticFS, err := fs.Sub(admin.Assets, "static")
	if err != nil {
		return nil, err
	}

	if err := reg.StartJanitor(); err != nil {
		return nil, err
	}

	app := &App{
		cfg:      cfg,
		version:  opts.Version,
		logger:   logger,
		client:   client,
		registry: reg,
	}

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(sessions.Sessions(SessionCookieName, store))

	router.SetRouter(engine, router.Options{
		Admin:          adm,
		Registry:       reg,
		Login:          client,
		Logger:         logger,
		StaticFS:       staticFS,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: time.Duration(cfg.Backend.RequestTimeoutSeconds) * time.Second,
		Healthz:        app.handleHealthz,
	})
	app.engine = engine
	return app, nil
}

func randomSecret(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10) + "-streammall-session"
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func (a *App) Handler() http.Handler {
	return a.engine
}

// Close 停止工作区清理任务，并等待进行中的后台对账结束。
func (a *App) Close(ctx context.Context) error {
	if a == nil || a.registry == nil {
		return nil
	}
	a.registry.Close(ctx)
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	type resp struct {
		OK      bool   `json:"ok"`
		Env     string `json:"env"`
		Version string `json:"version"`
		Commit  string `json:"commit"`
		Date    string `json:"date"`

		Backend    string       `json:"backend"`
		Workspaces int          `json:"workspaces"`
		Stats      obs.Snapshot `json:"stats"`
	}

	out := resp{
		OK:         true,
		Env:        a.cfg.Env,
		Version:    a.version.Version,
		Commit:     a.version.Commit,
		Date:       a.version.Date,
		Backend:    a.client.BaseURL(),
		Workspaces: a.registry.Len(),
		Stats:      obs.Stats(),
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(out)
}
