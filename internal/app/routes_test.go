package app

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/simp-lee/memorial/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Health check tests ---

func TestHealthHandler_OK(t *testing.T) {
	r := gin.New()
	r.GET("/health", healthHandler(openTestSQLiteDB(t), map[string]string{"biography": "gemini"}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	comps, ok := body["components"].(map[string]any)
	if !ok {
		t.Fatal("missing components")
	}
	if comps["database"] != "ok" || comps["biography"] != "gemini" {
		t.Errorf("components = %v", comps)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestHealthHandler_DBDown(t *testing.T) {
	tests := []struct {
		name string
		db   func(t *testing.T) *gorm.DB
	}{
		{"closed connection", func(t *testing.T) *gorm.DB {
			db := openTestSQLiteDB(t)
			sqlDB, _ := db.DB()
			sqlDB.Close()
			return db
		}},
		{"nil database", func(*testing.T) *gorm.DB { return nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", healthHandler(tt.db(t), nil))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != http.StatusServiceUnavailable {
				t.Fatalf("expected 503, got %d", w.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body["status"] != "degraded" {
				t.Errorf("expected status degraded, got %v", body["status"])
			}
			comps := body["components"].(map[string]any)
			if comps["database"] != "error" {
				t.Errorf("expected database error, got %v", comps["database"])
			}
		})
	}
}

func TestHealthHandler_UsesRequestContextTimeout(t *testing.T) {
	registerBlockingPingDriver()

	sqlDB, err := sql.Open(blockingPingDriverName, "")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}

	r := gin.New()
	r.GET("/health", healthHandler(db, nil))

	reqCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	t.Cleanup(cancel)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(reqCtx)

	start := time.Now()
	r.ServeHTTP(w, req)
	elapsed := time.Since(start)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if elapsed > 300*time.Millisecond {
		t.Fatalf("expected health response to honor request context timeout, elapsed=%v", elapsed)
	}
}

// --- RegisterRoutes tests ---

// mockModule implements Module for testing.
type mockModule struct {
	called bool
}

func (m *mockModule) RegisterRoutes(api *gin.RouterGroup) {
	m.called = true
	api.GET("/mock", func(c *gin.Context) { c.String(http.StatusOK, "mock") })
}

func TestRegisterRoutes_Validation(t *testing.T) {
	tests := []struct {
		name    string
		router  *gin.Engine
		deps    *RouteDeps
		wantErr string
	}{
		{"nil router", nil, &RouteDeps{}, "router is nil"},
		{"nil deps", gin.New(), nil, "route dependencies are nil"},
		{"no modules", gin.New(), &RouteDeps{}, "at least one module is required"},
		{"nil module entry", gin.New(), &RouteDeps{Modules: []Module{&mockModule{}, nil}}, "module at index 1 is nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RegisterRoutes(tt.router, tt.deps)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("RegisterRoutes() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterRoutes_ModulesMountUnderAPI(t *testing.T) {
	m := &mockModule{}
	r := gin.New()
	if err := RegisterRoutes(r, &RouteDeps{Modules: []Module{m}, DB: openTestSQLiteDB(t)}); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	if !m.called {
		t.Fatal("expected module RegisterRoutes to be called")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/mock", nil))
	if w.Code != http.StatusOK || w.Body.String() != "mock" {
		t.Errorf("GET /api/mock = %d %q", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_Metrics(t *testing.T) {
	tests := []struct {
		name     string
		metrics  *middleware.Metrics
		path     string
		probe    string
		wantCode int
	}{
		{"default path", middleware.NewMetrics(), "", "/metrics", http.StatusOK},
		{"custom path", middleware.NewMetrics(), "/internal/metrics", "/internal/metrics", http.StatusOK},
		{"disabled", nil, "/metrics", "/metrics", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			err := RegisterRoutes(r, &RouteDeps{
				Modules:     []Module{&mockModule{}},
				Metrics:     tt.metrics,
				MetricsPath: tt.path,
			})
			if err != nil {
				t.Fatalf("RegisterRoutes: %v", err)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.probe, nil))
			if w.Code != tt.wantCode {
				t.Fatalf("GET %s = %d, want %d", tt.probe, w.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK && !strings.Contains(w.Body.String(), "go_goroutines") {
				t.Error("metrics exposition missing runtime collectors")
			}
		})
	}
}

func TestRegisterRoutes_NotFoundAndMethodNotAllowed(t *testing.T) {
	r := gin.New()
	if err := RegisterRoutes(r, &RouteDeps{Modules: []Module{&mockModule{}}}); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}

	tests := []struct {
		method  string
		path    string
		want    int
		message string
	}{
		{http.MethodGet, "/api/nope", http.StatusNotFound, "not found"},
		{http.MethodGet, "/", http.StatusNotFound, "not found"},
		{http.MethodDelete, "/api/mock", http.StatusMethodNotAllowed, "method not allowed"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		if w.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.want)
			continue
		}
		var body struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s %s: body is not JSON: %q", tt.method, tt.path, w.Body.String())
		}
		if body.Code != tt.want || body.Message != tt.message {
			t.Errorf("%s %s body = %+v", tt.method, tt.path, body)
		}
	}
}

// --- helpers ---

func openTestSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return db
}

const blockingPingDriverName = "memorial_blocking_ping"

var registerBlockingPingDriverOnce sync.Once

func registerBlockingPingDriver() {
	registerBlockingPingDriverOnce.Do(func() {
		sql.Register(blockingPingDriverName, blockingPingDriver{})
	})
}

type blockingPingDriver struct{}

func (blockingPingDriver) Open(string) (driver.Conn, error) {
	return blockingPingConn{}, nil
}

type blockingPingConn struct{}

func (blockingPingConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (blockingPingConn) Close() error                        { return nil }
func (blockingPingConn) Begin() (driver.Tx, error)           { return blockingPingTx{}, nil }

func (blockingPingConn) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type blockingPingTx struct{}

func (blockingPingTx) Commit() error   { return nil }
func (blockingPingTx) Rollback() error { return nil }
