// Package config 负责读取并合并控制台配置（默认值 → 可选 YAML 文件 → 环境变量），避免在业务代码里散落解析逻辑。
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env         string            `yaml:"env"`
	Server      ServerConfig      `yaml:"server"`
	Backend     BackendConfig     `yaml:"backend"`
	BackendHTTP BackendHTTPConfig `yaml:"backend_http"`
	Security    SecurityConfig    `yaml:"security"`
	Admin       AdminConfig       `yaml:"admin"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`

	// HTTP 连接硬化：直接映射到 net/http 的 http.Server。
	ReadHeaderTimeoutSeconds int `yaml:"read_header_timeout_seconds"`
	ReadTimeoutSeconds       int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds      int `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds       int `yaml:"idle_timeout_seconds"`
	MaxHeaderBytes           int `yaml:"max_header_bytes"`

	// 表单/JSON 请求体上限（<= 0 表示不限制）。
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

type BackendConfig struct {
	// BaseURL 是 StreamMall 主 API（订单/充值/登录），形如 https://host/api。
	BaseURL string `yaml:"base_url"`
	// SettingsBaseURL 为空时沿用 BaseURL；历史上设置接口部署在另一套后端上。
	SettingsBaseURL string `yaml:"settings_base_url"`
	// SettingsPath 是设置接口的路径前缀：/admin/settings 或 /settings。
	SettingsPath string `yaml:"settings_path"`

	PageSize              int `yaml:"page_size"`
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
	MaxResponseBytes      int64 `yaml:"max_response_bytes"`
}

type BackendHTTPConfig struct {
	// DialTimeoutSeconds/TLSHandshakeTimeoutSeconds 为连接阶段超时，设为 0 表示禁用（不建议）。
	DialTimeoutSeconds         int `yaml:"dial_timeout_seconds"`
	TLSHandshakeTimeoutSeconds int `yaml:"tls_handshake_timeout_seconds"`

	MaxIdleConns           int `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost    int `yaml:"max_idle_conns_per_host"`
	IdleConnTimeoutSeconds int `yaml:"idle_conn_timeout_seconds"`
}

type SecurityConfig struct {
	// SessionSecret 用于派生会话 cookie 的签名与加密密钥；为空时每次启动随机生成（重启后需重新登录）。
	SessionSecret        string `yaml:"session_secret"`
	DisableSecureCookies bool   `yaml:"disable_secure_cookies"`
	SessionMaxAgeSeconds int    `yaml:"session_max_age_seconds"`
}

type AdminConfig struct {
	TimeZone string `yaml:"time_zone"`

	// RefreshAfterSeconds：页面再次打开时，数据超过该时长才会重新拉取。
	RefreshAfterSeconds int `yaml:"refresh_after_seconds"`
	// WorkspaceIdleMinutes：管理员工作区闲置多久后被回收。
	WorkspaceIdleMinutes int `yaml:"workspace_idle_minutes"`
	// ReconcileTimeoutSeconds：乐观更新之后后台对账拉取的超时。
	ReconcileTimeoutSeconds int `yaml:"reconcile_timeout_seconds"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// File 非空时额外写入滚动日志文件。
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

func (c AdminConfig) RefreshAfter() time.Duration {
	return time.Duration(c.RefreshAfterSeconds) * time.Second
}

func (c AdminConfig) WorkspaceIdle() time.Duration {
	return time.Duration(c.WorkspaceIdleMinutes) * time.Minute
}

func (c AdminConfig) ReconcileTimeout() time.Duration {
	return time.Duration(c.ReconcileTimeoutSeconds) * time.Second
}

// Location 返回管理后台展示时间所用的时区；配置已在加载时校验过。
func (c AdminConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadFromEnv 仅从环境变量加载配置；若设置了 STREAMMALL_CONFIG 则先读取该 YAML 文件。
func LoadFromEnv() (Config, error) {
	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv("STREAMMALL_CONFIG")); path != "" {
		if err := loadYAMLFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnvOverrides(&cfg)
	return normalizeAndValidate(cfg)
}

func loadYAMLFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件失败（%s）: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("解析配置文件失败（%s）: %w", path, err)
	}
	return nil
}

func normalizeAndValidate(cfg Config) (Config, error) {
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return Config{}, errors.New("server.addr 不能为空")
	}

	baseURL, err := NormalizeHTTPBaseURL(cfg.Backend.BaseURL, "backend.base_url")
	if err != nil {
		return Config{}, err
	}
	if baseURL == "" {
		return Config{}, errors.New("backend.base_url 不能为空")
	}
	cfg.Backend.BaseURL = baseURL

	settingsBaseURL, err := NormalizeHTTPBaseURL(cfg.Backend.SettingsBaseURL, "backend.settings_base_url")
	if err != nil {
		return Config{}, err
	}
	if settingsBaseURL == "" {
		settingsBaseURL = baseURL
	}
	cfg.Backend.SettingsBaseURL = settingsBaseURL

	cfg.Backend.SettingsPath = "/" + strings.Trim(strings.TrimSpace(cfg.Backend.SettingsPath), "/")
	if cfg.Backend.SettingsPath == "/" {
		cfg.Backend.SettingsPath = "/admin/settings"
	}
	if cfg.Backend.PageSize <= 0 {
		cfg.Backend.PageSize = 20
	}
	if cfg.Backend.PageSize > 200 {
		return Config{}, fmt.Errorf("backend.page_size 过大：%d（最大 200）", cfg.Backend.PageSize)
	}

	cfg.Admin.TimeZone = strings.TrimSpace(cfg.Admin.TimeZone)
	if cfg.Admin.TimeZone == "" {
		cfg.Admin.TimeZone = "UTC"
	}
	if _, err := time.LoadLocation(cfg.Admin.TimeZone); err != nil {
		return Config{}, fmt.Errorf("admin.time_zone 不合法: %w", err)
	}
	if cfg.Admin.WorkspaceIdleMinutes <= 0 {
		cfg.Admin.WorkspaceIdleMinutes = 30
	}
	if cfg.Admin.ReconcileTimeoutSeconds <= 0 {
		cfg.Admin.ReconcileTimeoutSeconds = 15
	}
	if cfg.Admin.RefreshAfterSeconds < 0 {
		cfg.Admin.RefreshAfterSeconds = 0
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("log.level 不支持：%s", cfg.Log.Level)
	}
	cfg.Log.File = strings.TrimSpace(cfg.Log.File)

	return cfg, nil
}

func NormalizeHTTPBaseURL(raw string, label string) (string, error) {
	v := strings.TrimRight(strings.TrimSpace(raw), "/")
	if v == "" {
		return "", nil
	}
	u, err := url.Parse(v)
	if err != nil {
		if strings.TrimSpace(label) == "" {
			return "", fmt.Errorf("解析 base_url 失败: %w", err)
		}
		return "", fmt.Errorf("解析 %s 失败: %w", label, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		if strings.TrimSpace(label) == "" {
			return "", errors.New("base_url 仅支持 http/https")
		}
		return "", fmt.Errorf("%s 仅支持 http/https", label)
	}
	if u.Host == "" {
		if strings.TrimSpace(label) == "" {
			return "", errors.New("base_url host 不能为空")
		}
		return "", fmt.Errorf("%s host 不能为空", label)
	}
	return v, nil
}

func defaultConfig() Config {
	return Config{
		Env: "dev",
		Server: ServerConfig{
			Addr: ":8080",

			ReadHeaderTimeoutSeconds: 5,
			ReadTimeoutSeconds:       30,
			WriteTimeoutSeconds:      60,
			IdleTimeoutSeconds:       120,
			MaxHeaderBytes:           1 << 20,

			MaxBodyBytes: 1 << 20, // 1MB
		},
		Backend: BackendConfig{
			BaseURL:               "https://streammall-backend-73a4b072d5eb.herokuapp.com/api",
			SettingsPath:          "/admin/settings",
			PageSize:              20,
			RequestTimeoutSeconds: 30,
			MaxResponseBytes:      8 << 20,
		},
		BackendHTTP: BackendHTTPConfig{
			DialTimeoutSeconds:         10,
			TLSHandshakeTimeoutSeconds: 10,
			MaxIdleConns:               64,
			MaxIdleConnsPerHost:        16,
			IdleConnTimeoutSeconds:     90,
		},
		Security: SecurityConfig{
			SessionMaxAgeSeconds: 7 * 24 * 3600,
		},
		Admin: AdminConfig{
			TimeZone:                "UTC",
			RefreshAfterSeconds:     30,
			WorkspaceIdleMinutes:    30,
			ReconcileTimeoutSeconds: 15,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}
