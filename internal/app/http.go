package app

import (
	"net/http"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
	"github.com/taoyao-code/camera-bridge/internal/httpserver"
)

// NewHTTPServer 根据配置创建 HTTP 服务器；metrics.enable 关闭时不暴露指标
func NewHTTPServer(cfg *cfgpkg.Config, metricsHandler http.Handler, readyFn func() bool, logger *zap.Logger, opts ...httpserver.Option) *httpserver.Server {
	base := []httpserver.Option{
		httpserver.WithReady(readyFn),
		httpserver.WithLogger(logger),
	}
	if cfg.Metrics.Enable {
		base = append(base, httpserver.WithMetrics(cfg.Metrics.Path, metricsHandler))
	}
	return httpserver.New(cfg.HTTP, append(base, opts...)...)
}
