package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
	appmetrics "github.com/taoyao-code/camera-bridge/internal/metrics"
)

func serve(s *Server, path string) int {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr.Code
}

func TestHealthzReadyzMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := cfgpkg.HTTPConfig{Addr: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	reg := appmetrics.NewRegistry()
	srv := New(cfg,
		WithMetrics("/metrics", appmetrics.Handler(reg)),
		WithReady(func() bool { return true }),
		WithRoutes(func(r *gin.Engine) {
			r.GET("/api/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		}),
	)

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/api/ping"} {
		if code := serve(srv, path); code != http.StatusOK {
			t.Fatalf("%s code=%d", path, code)
		}
	}
}

func TestReadyzNotReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := New(cfgpkg.HTTPConfig{Addr: ":0"}, WithReady(func() bool { return false }))
	if code := serve(srv, "/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("/readyz not-ready code=%d", code)
	}
	if code := serve(srv, "/metrics"); code != http.StatusNotFound {
		t.Fatalf("/metrics without handler code=%d", code)
	}
}
