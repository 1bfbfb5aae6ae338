package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"streammall/internal/config"
	"streammall/internal/version"
)

func newBackendServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/admin/admin-login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"success":false}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"token":"tok-main"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type settingsServer struct {
	*httptest.Server
	mu    sync.Mutex
	paths []string
	auth  []string
}

func newSettingsServer(t *testing.T) *settingsServer {
	t.Helper()
	s := &settingsServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.paths = append(s.paths, r.Method+" "+r.URL.Path)
		s.auth = append(s.auth, r.Header.Get("Authorization"))
		s.mu.Unlock()
		_, _ = io.WriteString(w, `{"settings":[{"key":"max_withdraw","value":500,"category":"limits"}]}`)
	}))
	t.Cleanup(s.Close)
	return s
}

func loadTestConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	t.Setenv("STREAMMALL_CONFIG", "")
	t.Setenv("STREAMMALL_SESSION_SECRET", "app-test-session-secret-0123456789")
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	app, err := NewApp(AppOptions{
		Config:  cfg,
		Version: version.BuildInfo{Version: "v1.0.0", Commit: "abc1234", Date: "2026-01-02"},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = app.Close(ctx)
	})
	return app
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatalf("missing %s cookie", SessionCookieName)
	return nil
}

func TestApp_Healthz(t *testing.T) {
	be := newBackendServer(t)
	app := newTestApp(t, loadTestConfig(t, map[string]string{
		"STREAMMALL_BACKEND_BASE_URL": be.URL + "/api/",
	}))

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got struct {
		OK      bool   `json:"ok"`
		Env     string `json:"env"`
		Version string `json:"version"`
		Commit  string `json:"commit"`
		Backend string `json:"backend"`
		Stats   struct {
			BackendRequests *int64 `json:"backend_requests_total"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.OK || got.Env != "dev" || got.Version != "v1.0.0" || got.Commit != "abc1234" {
		t.Fatalf("healthz = %+v", got)
	}
	if got.Backend != be.URL+"/api" {
		t.Fatalf("backend = %q", got.Backend)
	}
	if got.Stats.BackendRequests == nil {
		t.Fatalf("missing backend stats")
	}

	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("HEAD status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestApp_SettingsUseSeparateBackend(t *testing.T) {
	be := newBackendServer(t)
	ss := newSettingsServer(t)
	app := newTestApp(t, loadTestConfig(t, map[string]string{
		"STREAMMALL_BACKEND_BASE_URL":  be.URL + "/api",
		"STREAMMALL_SETTINGS_BASE_URL": ss.URL,
		"STREAMMALL_SETTINGS_PATH":     "settings/",
	}))
	h := app.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"admin@example.com","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("login = %s", rec.Body.String())
	}
	c := sessionCookie(t, rec)
	if !c.HttpOnly || c.Secure {
		t.Fatalf("dev cookie flags: HttpOnly=%v Secure=%v", c.HttpOnly, c.Secure)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/settings", nil)
	req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), `"max_withdraw"`) {
		t.Fatalf("settings = %s", rec.Body.String())
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	if len(ss.paths) != 1 || ss.paths[0] != "GET /settings" {
		t.Fatalf("settings backend paths = %v", ss.paths)
	}
	if ss.auth[0] != "Bearer tok-main" {
		t.Fatalf("Authorization = %q", ss.auth[0])
	}
}

func TestApp_SecureCookieOutsideDev(t *testing.T) {
	be := newBackendServer(t)
	app := newTestApp(t, loadTestConfig(t, map[string]string{
		"STREAMMALL_ENV":              "prod",
		"STREAMMALL_BACKEND_BASE_URL": be.URL + "/api",
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"admin@example.com","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if c := sessionCookie(t, rec); !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie Secure=%v SameSite=%v", c.Secure, c.SameSite)
	}
}

func TestNewApp_RejectsShortSessionSecret(t *testing.T) {
	be := newBackendServer(t)
	cfg := loadTestConfig(t, map[string]string{
		"STREAMMALL_BACKEND_BASE_URL": be.URL + "/api",
	})
	cfg.Security.SessionSecret = "short"

	gin.SetMode(gin.TestMode)
	if _, err := NewApp(AppOptions{Config: cfg, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}); err == nil {
		t.Fatalf("expected error for short session secret")
	}
}

func TestRandomSecret(t *testing.T) {
	a, b := randomSecret(32), randomSecret(32)
	if len(a) < 32 || a == b {
		t.Fatalf("randomSecret: %q %q", a, b)
	}
	if randomSecret(0) != "" {
		t.Fatalf("randomSecret(0) should be empty")
	}
}
