package config

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Defaults applied by Validate when the corresponding key is unset.
const (
	DefaultIssuer         = "MemorialRegistry"
	DefaultTokenExpiry    = "24h"
	DefaultMaxPhotoBytes  = 5 << 20
	DefaultAITimeout      = "60s"
	DefaultAIMaxTokens    = 40000
	DefaultGeminiModel    = "gemini-2.0-flash"
	DefaultMetricsPath    = "/metrics"
	DefaultRateLimitIdle  = "10m"
	DefaultCacheTTL       = "5m"
	DefaultCacheCleanup   = "10m"
	minJWTSecretLength    = 32
	minReleaseSecretClass = 3
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	AI       AIConfig       `koanf:"ai"`
	Obituary ObituaryConfig `koanf:"obituary"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string          `koanf:"host"`
	Port      int             `koanf:"port"`
	Mode      string          `koanf:"mode"`
	Timeout   string          `koanf:"timeout"`
	CORS      CORSConfig      `koanf:"cors"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	// TrustRequestID reuses a well-formed X-Request-ID sent by the caller.
	TrustRequestID bool `koanf:"trust_request_id"`
	// SlowRequest logs successful requests slower than this at warn level.
	SlowRequest string `koanf:"slow_request"`
	// ShutdownTimeout bounds how long in-flight requests may take to finish.
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

// CORSConfig holds CORS middleware settings.
type CORSConfig struct {
	AllowOrigins     []string `koanf:"allow_origins"`
	AllowMethods     []string `koanf:"allow_methods"`
	AllowHeaders     []string `koanf:"allow_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           string   `koanf:"max_age"`
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
	// IdleTTL is how long an unused client limiter is kept.
	IdleTTL string `koanf:"idle_ttl"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// CacheConfig holds in-process cache settings.
type CacheConfig struct {
	Enabled         bool   `koanf:"enabled"`
	TTL             string `koanf:"ttl"`
	CleanupInterval string `koanf:"cleanup_interval"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver      string         `koanf:"driver"`
	SQLite      SQLiteConfig   `koanf:"sqlite"`
	Postgres    PostgresConfig `koanf:"postgres"`
	Pool        PoolConfig     `koanf:"pool"`
	AutoMigrate bool           `koanf:"auto_migrate"`
	// SlowQuery is the duration above which statements are logged at warn.
	SlowQuery string `koanf:"slow_query"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout string `koanf:"busy_timeout"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// AuthConfig holds token issuance settings.
type AuthConfig struct {
	JWTSecret   string `koanf:"jwt_secret"`
	Issuer      string `koanf:"issuer"`
	Audience    string `koanf:"audience"`
	TokenExpiry string `koanf:"token_expiry"`
}

// AIConfig selects and configures the biography generator.
// An empty provider disables generation.
type AIConfig struct {
	Provider       string  `koanf:"provider"`
	Endpoint       string  `koanf:"endpoint"`
	APIKey         string  `koanf:"api_key"`
	APIVersion     string  `koanf:"api_version"`
	Model          string  `koanf:"model"`
	MaxTokens      int     `koanf:"max_tokens"`
	Temperature    float64 `koanf:"temperature"`
	Timeout        string  `koanf:"timeout"`
	PromptTemplate string  `koanf:"prompt_template"`
}

// ObituaryConfig holds obituary module settings.
type ObituaryConfig struct {
	// EnforceOwnership restricts update and delete to the record's creator.
	EnforceOwnership bool        `koanf:"enforce_ownership"`
	MaxPhotoBytes    int         `koanf:"max_photo_bytes"`
	Cache            CacheConfig `koanf:"cache"`
}

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator. Single underscores are preserved as part of the key name.
// For example, APP__SERVER__PORT=9090 overrides server.port and
// APP__AI__API_KEY=... overrides ai.api_key.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	// APP__DATABASE__POOL__MAX_IDLE_CONNS -> database.pool.max_idle_conns
	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "__", ".")
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints and supported values, trims
// string settings and fills in defaults for optional keys.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateAI(); err != nil {
		return err
	}
	if err := c.validateObituary(); err != nil {
		return err
	}
	return c.validateLog()
}

func (c *Config) validateServer() error {
	mode := strings.TrimSpace(c.Server.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	host := strings.TrimSpace(c.Server.Host)
	if host == "" {
		return fmt.Errorf("server.host is required")
	}
	c.Server.Host = host

	// Whitespace-only durations mean unset.
	c.Server.Timeout = strings.TrimSpace(c.Server.Timeout)
	c.Server.SlowRequest = strings.TrimSpace(c.Server.SlowRequest)
	c.Server.ShutdownTimeout = strings.TrimSpace(c.Server.ShutdownTimeout)
	c.Server.CORS.MaxAge = strings.TrimSpace(c.Server.CORS.MaxAge)

	if err := validateOptionalDuration("server.timeout", c.Server.Timeout); err != nil {
		return err
	}
	if err := validateOptionalDuration("server.slow_request", c.Server.SlowRequest); err != nil {
		return err
	}
	if err := validateOptionalDuration("server.shutdown_timeout", c.Server.ShutdownTimeout); err != nil {
		return err
	}
	if ma := c.Server.CORS.MaxAge; ma != "" {
		d, err := time.ParseDuration(ma)
		if err != nil {
			return fmt.Errorf("invalid server.cors.max_age %q: must be a valid duration (e.g. \"24h\", \"3600s\"): %w", ma, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid server.cors.max_age %q: must be greater than 0", ma)
		}
	}

	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RPS <= 0 {
			return fmt.Errorf("invalid server.rate_limit.rps %v: must be positive when rate limiting is enabled", c.Server.RateLimit.RPS)
		}
		if c.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf("invalid server.rate_limit.burst %d: must be positive when rate limiting is enabled", c.Server.RateLimit.Burst)
		}
		idle, err := durationOrDefault("server.rate_limit.idle_ttl", c.Server.RateLimit.IdleTTL, DefaultRateLimitIdle)
		if err != nil {
			return err
		}
		c.Server.RateLimit.IdleTTL = idle
	}

	if c.Server.Metrics.Enabled {
		path := strings.TrimSpace(c.Server.Metrics.Path)
		if path == "" {
			path = DefaultMetricsPath
		}
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("invalid server.metrics.path %q: must start with '/'", c.Server.Metrics.Path)
		}
		if strings.HasPrefix(path, "/api/") {
			return fmt.Errorf("invalid server.metrics.path %q: must not be under /api", c.Server.Metrics.Path)
		}
		c.Server.Metrics.Path = path
	}

	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q", c.Database.Driver, "sqlite", "postgres")
	}

	if c.Database.Driver == "sqlite" {
		sqlitePath := strings.TrimSpace(c.Database.SQLite.Path)
		if sqlitePath == "" {
			return fmt.Errorf("database.sqlite.path is required when driver is sqlite")
		}
		c.Database.SQLite.Path = sqlitePath
	}

	if c.Database.Driver == "postgres" {
		pg := &c.Database.Postgres
		host := strings.TrimSpace(pg.Host)
		if host == "" {
			return fmt.Errorf("database.postgres.host is required when driver is postgres")
		}
		if pg.Port < 1 || pg.Port > 65535 {
			return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", pg.Port)
		}
		user := strings.TrimSpace(pg.User)
		if user == "" {
			return fmt.Errorf("database.postgres.user is required when driver is postgres")
		}
		dbName := strings.TrimSpace(pg.DBName)
		if dbName == "" {
			return fmt.Errorf("database.postgres.dbname is required when driver is postgres")
		}
		sslMode := strings.TrimSpace(pg.SSLMode)
		switch sslMode {
		case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		default:
			return fmt.Errorf("invalid database.postgres.sslmode %q: must be one of %q, %q, %q, %q, %q, %q", pg.SSLMode, "disable", "allow", "prefer", "require", "verify-ca", "verify-full")
		}
		if c.Server.Mode == gin.ReleaseMode {
			switch sslMode {
			case "require", "verify-ca", "verify-full":
			default:
				return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: must be one of %q, %q, %q", pg.SSLMode, gin.ReleaseMode, "require", "verify-ca", "verify-full")
			}
		}

		pg.Host = host
		pg.User = user
		pg.DBName = dbName
		pg.SSLMode = sslMode
	}

	durations := []struct {
		name  string
		value *string
	}{
		{"database.pool.conn_max_lifetime", &c.Database.Pool.ConnMaxLifetime},
		{"database.slow_query", &c.Database.SlowQuery},
		{"database.sqlite.busy_timeout", &c.Database.SQLite.BusyTimeout},
	}
	for _, d := range durations {
		*d.value = strings.TrimSpace(*d.value)
		if err := validateOptionalDuration(d.name, *d.value); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateAuth() error {
	secret := strings.TrimSpace(c.Auth.JWTSecret)
	if secret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(secret) < minJWTSecretLength {
		return fmt.Errorf("invalid auth.jwt_secret: must be at least %d characters", minJWTSecretLength)
	}
	if c.Server.Mode == gin.ReleaseMode && CountSecretClasses(secret) < minReleaseSecretClass {
		return fmt.Errorf("auth.jwt_secret must include at least 3 character classes (lowercase, uppercase, digit, symbol) in release mode")
	}
	c.Auth.JWTSecret = secret

	c.Auth.Issuer = strings.TrimSpace(c.Auth.Issuer)
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = DefaultIssuer
	}
	c.Auth.Audience = strings.TrimSpace(c.Auth.Audience)
	if c.Auth.Audience == "" {
		c.Auth.Audience = DefaultIssuer
	}

	expiry, err := durationOrDefault("auth.token_expiry", c.Auth.TokenExpiry, DefaultTokenExpiry)
	if err != nil {
		return err
	}
	c.Auth.TokenExpiry = expiry
	return nil
}

func (c *Config) validateAI() error {
	ai := &c.AI
	ai.Provider = strings.ToLower(strings.TrimSpace(ai.Provider))
	ai.Endpoint = strings.TrimSpace(ai.Endpoint)
	ai.APIKey = strings.TrimSpace(ai.APIKey)
	ai.APIVersion = strings.TrimSpace(ai.APIVersion)
	ai.Model = strings.TrimSpace(ai.Model)

	switch ai.Provider {
	case "":
		return nil
	case "openai":
		if ai.Endpoint == "" {
			return fmt.Errorf("ai.endpoint is required when ai.provider is %q", ai.Provider)
		}
		if !strings.HasPrefix(ai.Endpoint, "http://") && !strings.HasPrefix(ai.Endpoint, "https://") {
			return fmt.Errorf("invalid ai.endpoint %q: must be an http(s) URL", ai.Endpoint)
		}
	case "gemini":
		if ai.Model == "" {
			ai.Model = DefaultGeminiModel
		}
	default:
		return fmt.Errorf("invalid ai.provider %q: must be one of %q, %q or empty", ai.Provider, "openai", "gemini")
	}

	if ai.MaxTokens < 0 {
		return fmt.Errorf("invalid ai.max_tokens %d: must not be negative", ai.MaxTokens)
	}
	if ai.MaxTokens == 0 {
		ai.MaxTokens = DefaultAIMaxTokens
	}
	if ai.Temperature < 0 || ai.Temperature > 2 {
		return fmt.Errorf("invalid ai.temperature %v: must be between 0 and 2", ai.Temperature)
	}

	timeout, err := durationOrDefault("ai.timeout", ai.Timeout, DefaultAITimeout)
	if err != nil {
		return err
	}
	ai.Timeout = timeout
	return nil
}

func (c *Config) validateObituary() error {
	if c.Obituary.MaxPhotoBytes < 0 {
		return fmt.Errorf("invalid obituary.max_photo_bytes %d: must not be negative", c.Obituary.MaxPhotoBytes)
	}
	if c.Obituary.MaxPhotoBytes == 0 {
		c.Obituary.MaxPhotoBytes = DefaultMaxPhotoBytes
	}

	cache := &c.Obituary.Cache
	if cache.Enabled {
		ttl, err := durationOrDefault("obituary.cache.ttl", cache.TTL, DefaultCacheTTL)
		if err != nil {
			return err
		}
		cleanup, err := durationOrDefault("obituary.cache.cleanup_interval", cache.CleanupInterval, DefaultCacheCleanup)
		if err != nil {
			return err
		}
		cache.TTL = ttl
		cache.CleanupInterval = cleanup
	}
	return nil
}

func (c *Config) validateLog() error {
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}
	return nil
}

// validateOptionalDuration accepts an empty value or a positive Go duration.
func validateOptionalDuration(name, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be greater than 0", name, value)
	}
	return nil
}

// durationOrDefault trims value, substitutes def when empty and checks that
// the result is a positive Go duration.
func durationOrDefault(name, value, def string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		v = def
	}
	if err := validateOptionalDuration(name, v); err != nil {
		return "", err
	}
	return v, nil
}

// Duration parses a duration that Validate has already checked.
// It returns 0 for an empty value.
func Duration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

// CountSecretClasses counts how many character classes (lowercase, uppercase,
// digit, symbol) are present in the given secret string.
func CountSecretClasses(secret string) int {
	hasLower := false
	hasUpper := false
	hasDigit := false
	hasSymbol := false

	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	classes := 0
	for _, ok := range []bool{hasLower, hasUpper, hasDigit, hasSymbol} {
		if ok {
			classes++
		}
	}
	return classes
}
