package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // Browsing only, favourites disabled
	AuthModeLocal AuthMode = "local" // Local user database with sessions (default)
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Jikan
		Covers
		Avatars
		Tasks
		Auth
		FavouritesSync
		Audit
		Plausible
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	UI struct {
		TemplatesPath string // Directory overriding the embedded templates
		StaticPath    string // Directory overriding the embedded static files
		DefaultView   string // "grid" or "list"
	}
	Jikan struct {
		BaseURL        string
		Timeout        time.Duration
		MinInterval    time.Duration // Minimum delay between two outbound calls
		PageSize       int
		CacheCapacity  int
		MaxRetries     uint64
		InitialBackoff time.Duration
		MaxBackoff     time.Duration
	}
	Covers struct {
		Dir          string   // Local poster cache, defaults to "<db dir>/posters"
		AllowedHosts []string // Poster CDNs favourites may reference and the server may fetch
	}
	Avatars struct {
		Dir      string // Uploaded profile images, defaults to "<db dir>/avatars"
		MaxBytes int64
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		DefaultProfileImage string

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	FavouritesSync struct {
		Enabled  bool
		Schedule string // Cron format: "0 */6 * * *" = every 6 hours
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 30)
	}
	Plausible struct {
		Domain     string // Enables the analytics script when set
		ScriptURL  string
		Extensions string // Comma-separated, e.g. "outbound-links,hash"
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "") // Empty serves the embedded templates
	v.SetDefault("static_path", "")
	v.SetDefault("default_view", "grid")
	v.SetDefault("covers_dir", "")
	v.SetDefault("covers_allowed_hosts", DefaultPosterHosts)
	v.SetDefault("avatars_dir", "")
	v.SetDefault("avatar_max_bytes", DefaultAvatarMaxBytes)

	// Jikan client defaults
	v.SetDefault("jikan_base_url", DefaultJikanBaseURL)
	v.SetDefault("jikan_timeout", "10s")
	v.SetDefault("jikan_min_interval", "350ms") // Jikan allows 3 requests per second
	v.SetDefault("jikan_page_size", DefaultPageSize)
	v.SetDefault("jikan_cache_capacity", 256)
	v.SetDefault("jikan_max_retries", 3)
	v.SetDefault("jikan_initial_backoff", "1s")
	v.SetDefault("jikan_max_backoff", "30s")

	// Auth defaults
	v.SetDefault("auth_mode", "local")
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "168h") // 7 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_default_profile_image", DefaultProfileImage)
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Favourites refresh defaults
	v.SetDefault("favourites_sync_enabled", false)
	v.SetDefault("favourites_sync_schedule", "0 */6 * * *")
	v.SetDefault("audit_retention_days", 30)

	// Analytics defaults
	v.SetDefault("plausible_domain", "")
	v.SetDefault("plausible_script_url", "https://plausible.io/js/script.js")
	v.SetDefault("plausible_extensions", "")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
			DefaultView:   v.GetString("DEFAULT_VIEW"),
		},
		Jikan: Jikan{
			BaseURL:        v.GetString("JIKAN_BASE_URL"),
			Timeout:        v.GetDuration("JIKAN_TIMEOUT"),
			MinInterval:    v.GetDuration("JIKAN_MIN_INTERVAL"),
			PageSize:       v.GetInt("JIKAN_PAGE_SIZE"),
			CacheCapacity:  v.GetInt("JIKAN_CACHE_CAPACITY"),
			MaxRetries:     v.GetUint64("JIKAN_MAX_RETRIES"),
			InitialBackoff: v.GetDuration("JIKAN_INITIAL_BACKOFF"),
			MaxBackoff:     v.GetDuration("JIKAN_MAX_BACKOFF"),
		},
		Covers: Covers{
			Dir:          v.GetString("COVERS_DIR"),
			AllowedHosts: splitList(v.GetString("COVERS_ALLOWED_HOSTS")),
		},
		Avatars: Avatars{
			Dir:      v.GetString("AVATARS_DIR"),
			MaxBytes: v.GetInt64("AVATAR_MAX_BYTES"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			Mode:                AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:       v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:     v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:          v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:       v.GetBool("AUTH_SECURE_COOKIES"),
			DefaultProfileImage: v.GetString("AUTH_DEFAULT_PROFILE_IMAGE"),
			MaxLoginAttempts:    v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:     v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:     v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		FavouritesSync: FavouritesSync{
			Enabled:  v.GetBool("FAVOURITES_SYNC_ENABLED"),
			Schedule: v.GetString("FAVOURITES_SYNC_SCHEDULE"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Plausible: Plausible{
			Domain:     v.GetString("PLAUSIBLE_DOMAIN"),
			ScriptURL:  v.GetString("PLAUSIBLE_SCRIPT_URL"),
			Extensions: v.GetString("PLAUSIBLE_EXTENSIONS"),
		},
	}
}

// splitList parses a comma-separated env value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
