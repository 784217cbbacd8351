package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store defaults applied when the matching setting is empty or zero.
const (
	DefaultMaxIdleConns    = 10
	DefaultMaxOpenConns    = 100
	DefaultConnMaxLifetime = time.Hour
	DefaultSlowQuery       = 200 * time.Millisecond
	DefaultBusyTimeout     = 5 * time.Second
)

// SetupDatabase opens the obituary store described by cfg ("sqlite" or
// "postgres"), routes GORM's SQL logging through logger and applies the
// connection pool settings. When cfg.AutoMigrate is set the given models
// are migrated before returning.
func SetupDatabase(cfg *DatabaseConfig, logger *slog.Logger, models ...any) (*gorm.DB, error) {
	if cfg == nil {
		return nil, errors.New("database config is nil")
	}
	if logger == nil {
		return nil, errors.New("logger is nil")
	}

	pool, err := resolvePool(&cfg.Pool)
	if err != nil {
		return nil, err
	}
	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(logger, orDefault(cfg.SlowQuery, DefaultSlowQuery)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(pool.maxIdle)
	sqlDB.SetMaxOpenConns(pool.maxOpen)
	sqlDB.SetConnMaxLifetime(pool.lifetime)

	if cfg.AutoMigrate && len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
		logger.Info("database migrated", slog.Int("models", len(models)))
	}

	logger.Info("database connected",
		slog.String("driver", cfg.Driver),
		slog.Int("max_idle_conns", pool.maxIdle),
		slog.Int("max_open_conns", pool.maxOpen),
		slog.Duration("conn_max_lifetime", pool.lifetime),
	)
	return db, nil
}

func openDialector(cfg *DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory %q: %w", dir, err)
			}
		}
		return sqlite.Open(sqliteDSN(&cfg.SQLite)), nil
	case "postgres":
		return postgres.Open(buildPostgresDSN(&cfg.Postgres)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// sqliteDSN appends per-connection pragmas to the database path. Every
// pooled connection waits on locks and enforces foreign keys.
func sqliteDSN(cfg *SQLiteConfig) string {
	busy := orDefault(cfg.BusyTimeout, DefaultBusyTimeout)
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	sep := "?"
	if strings.Contains(cfg.Path, "?") {
		sep = "&"
	}
	return cfg.Path + sep + q.Encode()
}

func buildPostgresDSN(cfg *PostgresConfig) string {
	if cfg == nil {
		return ""
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   cfg.DBName,
	}
	if cfg.User != "" || cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}

	q := url.Values{}
	q.Set("application_name", "memorial")
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type poolSettings struct {
	maxIdle  int
	maxOpen  int
	lifetime time.Duration
}

func resolvePool(cfg *PoolConfig) (poolSettings, error) {
	p := poolSettings{
		maxIdle:  cfg.MaxIdleConns,
		maxOpen:  cfg.MaxOpenConns,
		lifetime: DefaultConnMaxLifetime,
	}
	if p.maxIdle <= 0 {
		p.maxIdle = DefaultMaxIdleConns
	}
	if p.maxOpen <= 0 {
		p.maxOpen = DefaultMaxOpenConns
	}
	if cfg.ConnMaxLifetime != "" {
		d, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			return p, fmt.Errorf("invalid pool.conn_max_lifetime %q: %w", cfg.ConnMaxLifetime, err)
		}
		if d <= 0 {
			return p, fmt.Errorf("invalid pool.conn_max_lifetime %q: must be greater than 0", cfg.ConnMaxLifetime)
		}
		p.lifetime = d
	}
	return p, nil
}

// newGormLogger logs every statement when debug is enabled and only slow
// queries and errors otherwise. Missing rows are not errors here; the
// repositories turn them into not-found results.
func newGormLogger(logger *slog.Logger, slow time.Duration) gormlogger.Interface {
	level := gormlogger.Warn
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		level = gormlogger.Info
	}
	return gormlogger.NewSlogLogger(logger, gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// orDefault parses an already validated duration, falling back to def when
// it is empty.
func orDefault(value string, def time.Duration) time.Duration {
	if d := Duration(value); d > 0 {
		return d
	}
	return def
}
