package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "Memorial-Test-Secret-0123456789-abcdef"

var sectionOrder = []string{"server", "database", "log", "auth", "ai", "obituary"}

var baseSections = map[string]string{
	"server": `server:
  host: "127.0.0.1"
  port: 3000
  mode: "debug"
`,
	"database": `database:
  driver: "sqlite"
  sqlite:
    path: "data/test.db"
  pool:
    max_idle_conns: 1
    max_open_conns: 1
    conn_max_lifetime: "1m"
`,
	"log": `log:
  level: "info"
  format: "json"
`,
	"auth": `auth:
  jwt_secret: "` + testSecret + `"
`,
}

// configYAML renders a valid configuration, replacing or adding the given
// top-level sections. An empty override removes the section.
func configYAML(overrides map[string]string) string {
	var b strings.Builder
	for _, name := range sectionOrder {
		section, ok := overrides[name]
		if !ok {
			section = baseSections[name]
		}
		b.WriteString(section)
	}
	return b.String()
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_FullYAML(t *testing.T) {
	path := writeTestConfig(t, configYAML(map[string]string{
		"server": `server:
  host: "127.0.0.1"
  port: 3000
  mode: "release"
  timeout: "15s"
  trust_request_id: true
  slow_request: "750ms"
  shutdown_timeout: "3s"
  rate_limit:
    enabled: true
    rps: 5
    burst: 10
  metrics:
    enabled: true
`,
		"database": `database:
  driver: "postgres"
  auto_migrate: true
  postgres:
    host: "db.example.com"
    port: 5433
    user: "admin"
    password: "secret"
    dbname: "memorial"
    sslmode: "require"
  pool:
    max_idle_conns: 5
    max_open_conns: 50
    conn_max_lifetime: "30m"
`,
		"auth": `auth:
  jwt_secret: "` + testSecret + `"
  issuer: "memorial-test"
  audience: "memorial-clients"
  token_expiry: "2h"
`,
		"ai": `ai:
  provider: "OpenAI"
  endpoint: "https://example.openai.azure.com/openai/deployments/bio/chat/completions"
  api_key: "key"
  api_version: "2024-12-01-preview"
  max_tokens: 800
  timeout: "20s"
`,
		"obituary": `obituary:
  enforce_ownership: true
  max_photo_bytes: 1024
  cache:
    enabled: true
    ttl: "1m"
`,
	}))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Mode != "release" || cfg.Server.Timeout != "15s" || !cfg.Server.TrustRequestID || cfg.Server.SlowRequest != "750ms" || cfg.Server.ShutdownTimeout != "3s" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.RateLimit.IdleTTL != DefaultRateLimitIdle {
		t.Errorf("RateLimit.IdleTTL = %q, want %q", cfg.Server.RateLimit.IdleTTL, DefaultRateLimitIdle)
	}
	if cfg.Server.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Server.Metrics.Path, DefaultMetricsPath)
	}
	if cfg.Database.Driver != "postgres" || !cfg.Database.AutoMigrate {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Database.Postgres.Port != 5433 || cfg.Database.Postgres.DBName != "memorial" {
		t.Errorf("Postgres = %+v", cfg.Database.Postgres)
	}
	if cfg.Database.Pool.MaxOpenConns != 50 {
		t.Errorf("Pool.MaxOpenConns = %d, want 50", cfg.Database.Pool.MaxOpenConns)
	}
	if cfg.Auth.Issuer != "memorial-test" || cfg.Auth.Audience != "memorial-clients" || cfg.Auth.TokenExpiry != "2h" {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if cfg.AI.Provider != "openai" {
		t.Errorf("AI.Provider = %q, want normalized %q", cfg.AI.Provider, "openai")
	}
	if cfg.AI.MaxTokens != 800 || cfg.AI.Timeout != "20s" || cfg.AI.APIVersion != "2024-12-01-preview" {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if !cfg.Obituary.EnforceOwnership || cfg.Obituary.MaxPhotoBytes != 1024 {
		t.Errorf("Obituary = %+v", cfg.Obituary)
	}
	if cfg.Obituary.Cache.TTL != "1m" || cfg.Obituary.Cache.CleanupInterval != DefaultCacheCleanup {
		t.Errorf("Obituary.Cache = %+v", cfg.Obituary.Cache)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, configYAML(nil)))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Auth.Issuer != DefaultIssuer || cfg.Auth.Audience != DefaultIssuer {
		t.Errorf("Auth issuer/audience = %q/%q, want %q", cfg.Auth.Issuer, cfg.Auth.Audience, DefaultIssuer)
	}
	if cfg.Auth.TokenExpiry != DefaultTokenExpiry {
		t.Errorf("Auth.TokenExpiry = %q, want %q", cfg.Auth.TokenExpiry, DefaultTokenExpiry)
	}
	if cfg.AI.Provider != "" {
		t.Errorf("AI.Provider = %q, want disabled", cfg.AI.Provider)
	}
	if cfg.Obituary.MaxPhotoBytes != DefaultMaxPhotoBytes {
		t.Errorf("Obituary.MaxPhotoBytes = %d, want %d", cfg.Obituary.MaxPhotoBytes, DefaultMaxPhotoBytes)
	}
	if cfg.Obituary.EnforceOwnership {
		t.Error("Obituary.EnforceOwnership should default to false")
	}
	if cfg.Server.Metrics.Enabled || cfg.Server.RateLimit.Enabled {
		t.Error("metrics and rate limiting should default to disabled")
	}
}

func TestLoad_GeminiDefaults(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, configYAML(map[string]string{
		"ai": `ai:
  provider: "gemini"
`,
	})))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.AI.Model != DefaultGeminiModel {
		t.Errorf("AI.Model = %q, want %q", cfg.AI.Model, DefaultGeminiModel)
	}
	if cfg.AI.MaxTokens != DefaultAIMaxTokens {
		t.Errorf("AI.MaxTokens = %d, want %d", cfg.AI.MaxTokens, DefaultAIMaxTokens)
	}
	if cfg.AI.Timeout != DefaultAITimeout {
		t.Errorf("AI.Timeout = %q, want %q", cfg.AI.Timeout, DefaultAITimeout)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeTestConfig(t, configYAML(nil))

	t.Setenv("APP__SERVER__PORT", "9090")
	t.Setenv("APP__LOG__LEVEL", "error")
	t.Setenv("APP__DATABASE__POOL__MAX_IDLE_CONNS", "20")
	t.Setenv("APP__AI__PROVIDER", "gemini")
	t.Setenv("APP__AI__API_KEY", "env-key")
	t.Setenv("APP__OBITUARY__ENFORCE_OWNERSHIP", "true")
	t.Setenv("APP__OBITUARY__MAX_PHOTO_BYTES", "2048")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d (env override)", cfg.Server.Port, 9090)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want %q (env override)", cfg.Log.Level, "error")
	}
	if cfg.Database.Pool.MaxIdleConns != 20 {
		t.Errorf("Pool.MaxIdleConns = %d, want %d (env override)", cfg.Database.Pool.MaxIdleConns, 20)
	}
	if cfg.AI.Provider != "gemini" || cfg.AI.APIKey != "env-key" {
		t.Errorf("AI = %+v, want env overrides", cfg.AI)
	}
	if !cfg.Obituary.EnforceOwnership || cfg.Obituary.MaxPhotoBytes != 2048 {
		t.Errorf("Obituary = %+v, want env overrides", cfg.Obituary)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
}

func TestLoad_Invalid(t *testing.T) {
	releaseServer := `server:
  host: "127.0.0.1"
  port: 3000
  mode: "release"
`
	tests := []struct {
		name        string
		overrides   map[string]string
		wantContain string
	}{
		{
			name: "server mode",
			overrides: map[string]string{"server": `server:
  host: "127.0.0.1"
  port: 3000
  mode: "staging"
`},
			wantContain: "server.mode",
		},
		{
			name: "server port",
			overrides: map[string]string{"server": `server:
  host: "127.0.0.1"
  port: 70000
  mode: "debug"
`},
			wantContain: "server.port",
		},
		{
			name: "blank server host",
			overrides: map[string]string{"server": `server:
  host: "   "
  port: 3000
  mode: "debug"
`},
			wantContain: "server.host",
		},
		{
			name: "server timeout must be positive",
			overrides: map[string]string{"server": `server:
  host: "127.0.0.1"
  port: 3000
  mode: "debug"
  timeout: "0s"
`},
			wantContain: "server.timeout",
		},
		{
			name: "slow request must be a duration",
			overrides: map[string]string{"server": `server:
  host: "127.0.0.1"
  port: 3000
  mode: "debug"
  slow_request: "soon"
`},
			wantContain: "server.slow_request",
		},
		{
			name: "cors max age",
			overrides: map[string]string{"server": `server:
  host: "127.0.0.1"
  port: 3000
  mode: "debug"
  cors:
    max_age: "soon"
`},
			wantContain: "server.cors.max_age",
		},
		{
			name: "rate limit rps",
			overrides: map[string]string{"server": `server:
  host: "127.0.0.1"
  port: 3000
  mode: "debug"
  rate_limit:
    enabled: true
    rps: 0
    burst: 1
`},
			wantContain: "server.rate_limit.rps",
		},
		{
			name: "rate limit burst",
			overrides: map[string]string{"server": `server:
  host: "127.0.0.1"
  port: 3000
  mode: "debug"
  rate_limit:
    enabled: true
    rps: 1
    burst: 0
`},
			wantContain: "server.rate_limit.burst",
		},
		{
			name: "metrics path under api",
			overrides: map[string]string{"server": `server:
  host: "127.0.0.1"
  port: 3000
  mode: "debug"
  metrics:
    enabled: true
    path: "/api/metrics"
`},
			wantContain: "server.metrics.path",
		},
		{
			name: "database driver",
			overrides: map[string]string{"database": `database:
  driver: "mysql"
`},
			wantContain: "database.driver",
		},
		{
			name: "sqlite path",
			overrides: map[string]string{"database": `database:
  driver: "sqlite"
  sqlite:
    path: "  "
`},
			wantContain: "database.sqlite.path",
		},
		{
			name: "postgres host",
			overrides: map[string]string{"database": `database:
  driver: "postgres"
  postgres:
    port: 5432
    user: "u"
    dbname: "d"
    sslmode: "disable"
`},
			wantContain: "database.postgres.host",
		},
		{
			name: "postgres sslmode",
			overrides: map[string]string{"database": `database:
  driver: "postgres"
  postgres:
    host: "h"
    port: 5432
    user: "u"
    dbname: "d"
    sslmode: "sometimes"
`},
			wantContain: "database.postgres.sslmode",
		},
		{
			name: "postgres sslmode in release",
			overrides: map[string]string{
				"server": releaseServer,
				"database": `database:
  driver: "postgres"
  postgres:
    host: "h"
    port: 5432
    user: "u"
    dbname: "d"
    sslmode: "disable"
`},
			wantContain: "database.postgres.sslmode",
		},
		{
			name: "conn max lifetime",
			overrides: map[string]string{"database": `database:
  driver: "sqlite"
  sqlite:
    path: "data/test.db"
  pool:
    conn_max_lifetime: "-1m"
`},
			wantContain: "database.pool.conn_max_lifetime",
		},
		{
			name: "slow query",
			overrides: map[string]string{"database": `database:
  driver: "sqlite"
  slow_query: "fast"
  sqlite:
    path: "data/test.db"
`},
			wantContain: "database.slow_query",
		},
		{
			name: "sqlite busy timeout",
			overrides: map[string]string{"database": `database:
  driver: "sqlite"
  sqlite:
    path: "data/test.db"
    busy_timeout: "0s"
`},
			wantContain: "database.sqlite.busy_timeout",
		},
		{
			name:        "jwt secret missing",
			overrides:   map[string]string{"auth": ""},
			wantContain: "auth.jwt_secret",
		},
		{
			name: "jwt secret too short",
			overrides: map[string]string{"auth": `auth:
  jwt_secret: "short"
`},
			wantContain: "at least 32 characters",
		},
		{
			name: "jwt secret classes in release",
			overrides: map[string]string{
				"server": releaseServer,
				"auth": `auth:
  jwt_secret: "abcdefghijklmnopqrstuvwxyzabcdefgh"
`},
			wantContain: "character classes",
		},
		{
			name: "token expiry",
			overrides: map[string]string{"auth": `auth:
  jwt_secret: "` + testSecret + `"
  token_expiry: "1 day"
`},
			wantContain: "auth.token_expiry",
		},
		{
			name: "ai provider",
			overrides: map[string]string{"ai": `ai:
  provider: "claude"
`},
			wantContain: "ai.provider",
		},
		{
			name: "openai endpoint required",
			overrides: map[string]string{"ai": `ai:
  provider: "openai"
`},
			wantContain: "ai.endpoint",
		},
		{
			name: "openai endpoint must be url",
			overrides: map[string]string{"ai": `ai:
  provider: "openai"
  endpoint: "example.com/v1"
`},
			wantContain: "ai.endpoint",
		},
		{
			name: "ai temperature",
			overrides: map[string]string{"ai": `ai:
  provider: "gemini"
  temperature: 3
`},
			wantContain: "ai.temperature",
		},
		{
			name: "ai max tokens",
			overrides: map[string]string{"ai": `ai:
  provider: "gemini"
  max_tokens: -5
`},
			wantContain: "ai.max_tokens",
		},
		{
			name: "ai timeout",
			overrides: map[string]string{"ai": `ai:
  provider: "gemini"
  timeout: "0s"
`},
			wantContain: "ai.timeout",
		},
		{
			name: "photo size",
			overrides: map[string]string{"obituary": `obituary:
  max_photo_bytes: -1
`},
			wantContain: "obituary.max_photo_bytes",
		},
		{
			name: "cache ttl",
			overrides: map[string]string{"obituary": `obituary:
  cache:
    enabled: true
    ttl: "forever"
`},
			wantContain: "obituary.cache.ttl",
		},
		{
			name: "log level",
			overrides: map[string]string{"log": `log:
  level: "verbose"
  format: "json"
`},
			wantContain: "log.level",
		},
		{
			name: "log format",
			overrides: map[string]string{"log": `log:
  level: "info"
  format: "xml"
`},
			wantContain: "log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTestConfig(t, configYAML(tt.overrides)))
			if err == nil {
				t.Fatalf("Load() expected error containing %q, got nil", tt.wantContain)
			}
			if !strings.Contains(err.Error(), tt.wantContain) {
				t.Fatalf("Load() error = %v, want contains %q", err, tt.wantContain)
			}
		})
	}
}

func TestLoad_OptionalDurationWhitespace_NormalizedAsUnset(t *testing.T) {
	path := writeTestConfig(t, configYAML(map[string]string{
		"server": `server:
  host: "127.0.0.1"
  port: 3000
  mode: "debug"
  timeout: "   "
  cors:
    max_age: " "
`,
	}))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Timeout != "" {
		t.Errorf("Server.Timeout = %q, want empty", cfg.Server.Timeout)
	}
	if cfg.Server.CORS.MaxAge != "" {
		t.Errorf("CORS.MaxAge = %q, want empty", cfg.Server.CORS.MaxAge)
	}
}

func TestLoad_ProjectConfig(t *testing.T) {
	cfg, err := Load("../../configs/config.yaml")
	if err != nil {
		t.Fatalf("Load() error on project config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.Auth.Issuer != DefaultIssuer {
		t.Errorf("Auth.Issuer = %q, want %q", cfg.Auth.Issuer, DefaultIssuer)
	}
	if cfg.Obituary.EnforceOwnership {
		t.Error("project config should ship with ownership enforcement disabled")
	}
	if cfg.AI.Provider != "" {
		t.Errorf("project config should ship with AI disabled, got %q", cfg.AI.Provider)
	}
}

func TestCountSecretClasses(t *testing.T) {
	tests := []struct {
		secret string
		want   int
	}{
		{"", 0},
		{"abc", 1},
		{"abcABC", 2},
		{"abcABC123", 3},
		{"abcABC123!@#", 4},
		{"12345", 1},
		{"ABC-123", 3},
	}
	for _, tt := range tests {
		if got := CountSecretClasses(tt.secret); got != tt.want {
			t.Errorf("CountSecretClasses(%q) = %d, want %d", tt.secret, got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("90s"); got != 90*time.Second {
		t.Errorf("Duration(90s) = %v", got)
	}
	if got := Duration(""); got != 0 {
		t.Errorf("Duration(empty) = %v, want 0", got)
	}
	if got := Duration("bogus"); got != 0 {
		t.Errorf("Duration(bogus) = %v, want 0", got)
	}
}
