package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Database
		Uploads
		Auth
		Global
	}

	HTTP struct {
		Port int32
		Host string
	}
	Database struct {
		Path string
	}
	Uploads struct {
		Dir          string // Directory for uploaded covers and book files
		DefaultCover string // Path served when a book has no cover image
		MaxSizeMB    int64  // Per-file upload limit
	}
	Auth struct {
		SessionSecret    string
		SessionLifetime  time.Duration
		RememberLifetime time.Duration // Lifetime when "remember me" is checked
		BcryptCost       int
		SecureCookies    bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Global struct {
		ShutdownTimeoutInSeconds int
		TemplatesPath            string
		StaticPath               string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	// Upload defaults
	v.SetDefault("uploads_dir", DefaultUploadsDir)
	v.SetDefault("uploads_default_cover", DefaultCoverImage)
	v.SetDefault("uploads_max_size_mb", 32)

	// Auth defaults
	v.SetDefault("auth_session_secret", "") // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")
	v.SetDefault("auth_remember_lifetime", "720h") // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Uploads: Uploads{
			Dir:          v.GetString("UPLOADS_DIR"),
			DefaultCover: v.GetString("UPLOADS_DEFAULT_COVER"),
			MaxSizeMB:    v.GetInt64("UPLOADS_MAX_SIZE_MB"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			RememberLifetime: v.GetDuration("AUTH_REMEMBER_LIFETIME"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
			TemplatesPath:            v.GetString("TEMPLATES_PATH"),
			StaticPath:               v.GetString("STATIC_PATH"),
		},
	}
}
