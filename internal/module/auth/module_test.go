package auth

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestModule_Routes(t *testing.T) {
	r := authRouter(&stubService{})

	var got []string
	for _, ri := range r.Routes() {
		got = append(got, ri.Method+" "+ri.Path)
	}
	slices.Sort(got)
	want := []string{"POST /api/auth/login", "POST /api/auth/register"}
	if !slices.Equal(got, want) {
		t.Errorf("routes = %v; want %v", got, want)
	}
}

func TestModule_GuardRunsFirst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubService{}
	r := gin.New()
	limited := func(c *gin.Context) { c.AbortWithStatus(http.StatusTooManyRequests) }
	NewModule(svc, limited).RegisterRoutes(r.Group("/api"))

	for _, path := range []string{"/api/auth/login", "/api/auth/register"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		if w.Code != http.StatusTooManyRequests {
			t.Errorf("%s: status = %d; want 429", path, w.Code)
		}
	}
	if len(svc.calls) != 0 {
		t.Errorf("service reached past the guard: %v", svc.calls)
	}
}

func TestNewModule_PanicsOnNilService(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewModule(nil)
}
