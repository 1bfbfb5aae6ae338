package config

import (
	"os"
	"strconv"
	"strings"
)

func applyEnvOverrides(cfg *Config) {
	applyCoreEnvOverrides(cfg)
	applyServerEnvOverrides(cfg)
	applyBackendEnvOverrides(cfg)
	applySecurityEnvOverrides(cfg)
	applyAdminEnvOverrides(cfg)
	applyLogEnvOverrides(cfg)
}

func applyCoreEnvOverrides(cfg *Config) {
	if v := os.Getenv("STREAMMALL_ENV"); v != "" {
		cfg.Env = v
	}
}

func applyServerEnvOverrides(cfg *Config) {
	if v := os.Getenv("STREAMMALL_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	setIntFromEnv("STREAMMALL_SERVER_READ_HEADER_TIMEOUT_SECONDS", &cfg.Server.ReadHeaderTimeoutSeconds)
	setIntFromEnv("STREAMMALL_SERVER_READ_TIMEOUT_SECONDS", &cfg.Server.ReadTimeoutSeconds)
	setIntFromEnv("STREAMMALL_SERVER_WRITE_TIMEOUT_SECONDS", &cfg.Server.WriteTimeoutSeconds)
	setIntFromEnv("STREAMMALL_SERVER_IDLE_TIMEOUT_SECONDS", &cfg.Server.IdleTimeoutSeconds)
	if v := os.Getenv("STREAMMALL_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Server.MaxBodyBytes = n
		}
	}
}

func applyBackendEnvOverrides(cfg *Config) {
	if v := os.Getenv("STREAMMALL_BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("STREAMMALL_SETTINGS_BASE_URL"); v != "" {
		cfg.Backend.SettingsBaseURL = v
	}
	if v := os.Getenv("STREAMMALL_SETTINGS_PATH"); v != "" {
		cfg.Backend.SettingsPath = v
	}
	setIntFromEnv("STREAMMALL_PAGE_SIZE", &cfg.Backend.PageSize)
	setIntFromEnv("STREAMMALL_BACKEND_TIMEOUT_SECONDS", &cfg.Backend.RequestTimeoutSeconds)
	if v := os.Getenv("STREAMMALL_BACKEND_MAX_RESPONSE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Backend.MaxResponseBytes = n
		}
	}

	setIntFromEnv("STREAMMALL_BACKEND_DIAL_TIMEOUT_SECONDS", &cfg.BackendHTTP.DialTimeoutSeconds)
	setIntFromEnv("STREAMMALL_BACKEND_TLS_HANDSHAKE_TIMEOUT_SECONDS", &cfg.BackendHTTP.TLSHandshakeTimeoutSeconds)
	setIntFromEnv("STREAMMALL_BACKEND_MAX_IDLE_CONNS", &cfg.BackendHTTP.MaxIdleConns)
	setIntFromEnv("STREAMMALL_BACKEND_MAX_IDLE_CONNS_PER_HOST", &cfg.BackendHTTP.MaxIdleConnsPerHost)
	setIntFromEnv("STREAMMALL_BACKEND_IDLE_CONN_TIMEOUT_SECONDS", &cfg.BackendHTTP.IdleConnTimeoutSeconds)
}

func applySecurityEnvOverrides(cfg *Config) {
	if v := os.Getenv("STREAMMALL_SESSION_SECRET"); v != "" {
		cfg.Security.SessionSecret = v
	}
	if v := os.Getenv("STREAMMALL_DISABLE_SECURE_COOKIES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Security.DisableSecureCookies = b
		}
	}
	setIntFromEnv("STREAMMALL_SESSION_MAX_AGE_SECONDS", &cfg.Security.SessionMaxAgeSeconds)
}

func applyAdminEnvOverrides(cfg *Config) {
	if v := os.Getenv("STREAMMALL_ADMIN_TIME_ZONE"); v != "" {
		cfg.Admin.TimeZone = v
	}
	setIntFromEnv("STREAMMALL_REFRESH_AFTER_SECONDS", &cfg.Admin.RefreshAfterSeconds)
	setIntFromEnv("STREAMMALL_WORKSPACE_IDLE_MINUTES", &cfg.Admin.WorkspaceIdleMinutes)
	setIntFromEnv("STREAMMALL_RECONCILE_TIMEOUT_SECONDS", &cfg.Admin.ReconcileTimeoutSeconds)
}

func applyLogEnvOverrides(cfg *Config) {
	if v := os.Getenv("STREAMMALL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("STREAMMALL_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	setIntFromEnv("STREAMMALL_LOG_MAX_SIZE_MB", &cfg.Log.MaxSizeMB)
	setIntFromEnv("STREAMMALL_LOG_MAX_BACKUPS", &cfg.Log.MaxBackups)
	setIntFromEnv("STREAMMALL_LOG_MAX_AGE_DAYS", &cfg.Log.MaxAgeDays)
	if v := os.Getenv("STREAMMALL_LOG_COMPRESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Compress = b
		}
	}
}

// setIntFromEnv 解析失败时保留原值。
func setIntFromEnv(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
