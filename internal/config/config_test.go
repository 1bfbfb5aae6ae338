package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeHTTPBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		in         string
		label      string
		want       string
		wantErrSub string
	}{
		{name: "empty ok", in: "", label: "backend.base_url", want: ""},
		{name: "trim ok", in: " https://example.com/ ", label: "backend.base_url", want: "https://example.com"},
		{name: "path ok", in: "https://example.com/api/", label: "backend.base_url", want: "https://example.com/api"},
		{name: "invalid scheme", in: "ftp://example.com", label: "backend.base_url", wantErrSub: "backend.base_url 仅支持 http/https"},
		{name: "missing host", in: "https://", label: "backend.base_url", wantErrSub: "backend.base_url host 不能为空"},
		{name: "parse error", in: "://bad", label: "backend.base_url", wantErrSub: "解析 backend.base_url 失败"},
		{name: "no label scheme", in: "ftp://example.com", label: "", wantErrSub: "base_url 仅支持 http/https"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeHTTPBaseURL(tc.in, tc.label)
			if tc.wantErrSub != "" {
				if err == nil {
					t.Fatalf("NormalizeHTTPBaseURL(%q, %q) expected error, got nil", tc.in, tc.label)
				}
				if !strings.Contains(err.Error(), tc.wantErrSub) {
					t.Fatalf("NormalizeHTTPBaseURL(%q, %q) error = %q, want contains %q", tc.in, tc.label, err.Error(), tc.wantErrSub)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeHTTPBaseURL(%q, %q) unexpected error: %v", tc.in, tc.label, err)
			}
			if got != tc.want {
				t.Fatalf("NormalizeHTTPBaseURL(%q, %q) = %q, want %q", tc.in, tc.label, got, tc.want)
			}
		})
	}
}

func TestNormalizeAndValidate_Defaults(t *testing.T) {
	cfg, err := normalizeAndValidate(defaultConfig())
	if err != nil {
		t.Fatalf("normalizeAndValidate: %v", err)
	}
	if cfg.Backend.SettingsBaseURL != cfg.Backend.BaseURL {
		t.Fatalf("settings base url = %q, want fallback to %q", cfg.Backend.SettingsBaseURL, cfg.Backend.BaseURL)
	}
	if cfg.Backend.SettingsPath != "/admin/settings" {
		t.Fatalf("settings path = %q", cfg.Backend.SettingsPath)
	}
	if cfg.Backend.PageSize != 20 {
		t.Fatalf("page size = %d, want 20", cfg.Backend.PageSize)
	}
}

func TestNormalizeAndValidate_SettingsPathSlashes(t *testing.T) {
	cfg := defaultConfig()
	cfg.Backend.SettingsPath = " settings/ "
	got, err := normalizeAndValidate(cfg)
	if err != nil {
		t.Fatalf("normalizeAndValidate: %v", err)
	}
	if got.Backend.SettingsPath != "/settings" {
		t.Fatalf("settings path = %q, want /settings", got.Backend.SettingsPath)
	}
}

func TestNormalizeAndValidate_Rejects(t *testing.T) {
	cases := []struct {
		name       string
		mutate     func(*Config)
		wantErrSub string
	}{
		{name: "empty base url", mutate: func(c *Config) { c.Backend.BaseURL = " " }, wantErrSub: "backend.base_url 不能为空"},
		{name: "bad time zone", mutate: func(c *Config) { c.Admin.TimeZone = "Mars/Base" }, wantErrSub: "admin.time_zone"},
		{name: "huge page", mutate: func(c *Config) { c.Backend.PageSize = 1000 }, wantErrSub: "backend.page_size"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErrSub: "log.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			_, err := normalizeAndValidate(cfg)
			if err == nil || !strings.Contains(err.Error(), tc.wantErrSub) {
				t.Fatalf("err = %v, want contains %q", err, tc.wantErrSub)
			}
		})
	}
}

func TestApplyEnvOverrides_Backend(t *testing.T) {
	t.Setenv("STREAMMALL_BACKEND_BASE_URL", "http://127.0.0.1:9000/api")
	t.Setenv("STREAMMALL_SETTINGS_PATH", "/settings")
	t.Setenv("STREAMMALL_PAGE_SIZE", "50")
	t.Setenv("STREAMMALL_BACKEND_TIMEOUT_SECONDS", "not-a-number")

	cfg := defaultConfig()
	applyEnvOverrides(&cfg)

	if cfg.Backend.BaseURL != "http://127.0.0.1:9000/api" {
		t.Fatalf("base url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.SettingsPath != "/settings" {
		t.Fatalf("settings path = %q", cfg.Backend.SettingsPath)
	}
	if cfg.Backend.PageSize != 50 {
		t.Fatalf("page size = %d", cfg.Backend.PageSize)
	}
	if cfg.Backend.RequestTimeoutSeconds != 30 {
		t.Fatalf("invalid int should keep default, got %d", cfg.Backend.RequestTimeoutSeconds)
	}
}

func TestApplyEnvOverrides_DisableSecureCookies(t *testing.T) {
	t.Setenv("STREAMMALL_DISABLE_SECURE_COOKIES", "true")

	cfg := defaultConfig()
	applyEnvOverrides(&cfg)

	if !cfg.Security.DisableSecureCookies {
		t.Fatalf("expected DisableSecureCookies=true")
	}
}

func TestLoadFromEnv_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "streammall.yaml")
	yml := "env: prod\nbackend:\n  base_url: https://mall.example.com/api/\n  page_size: 40\nadmin:\n  time_zone: Asia/Shanghai\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("STREAMMALL_CONFIG", path)
	t.Setenv("STREAMMALL_PAGE_SIZE", "25")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Env != "prod" {
		t.Fatalf("env = %q", cfg.Env)
	}
	if cfg.Backend.BaseURL != "https://mall.example.com/api" {
		t.Fatalf("base url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.PageSize != 25 {
		t.Fatalf("env should win over yaml, page size = %d", cfg.Backend.PageSize)
	}
	if cfg.Admin.Location().String() != "Asia/Shanghai" {
		t.Fatalf("location = %s", cfg.Admin.Location())
	}
}

func TestLoadFromEnv_MissingYAML(t *testing.T) {
	t.Setenv("STREAMMALL_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := LoadFromEnv(); err == nil || !strings.Contains(err.Error(), "读取配置文件失败") {
		t.Fatalf("err = %v", err)
	}
}
