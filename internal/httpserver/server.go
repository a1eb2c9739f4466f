package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
)

// Server HTTP 服务封装
type Server struct {
	srv    *http.Server
	engine *gin.Engine
	logger *zap.Logger
}

// Option 服务配置项
type Option func(*options)

type options struct {
	metricsPath    string
	metricsHandler http.Handler
	readyFn        func() bool
	routes         []func(r *gin.Engine)
	logger         *zap.Logger
}

// WithMetrics 暴露 Prometheus 指标
func WithMetrics(path string, h http.Handler) Option {
	return func(o *options) {
		o.metricsPath = path
		o.metricsHandler = h
	}
}

// WithReady /readyz 判定函数
func WithReady(fn func() bool) Option {
	return func(o *options) { o.readyFn = fn }
}

// WithRoutes 注册业务路由
func WithRoutes(fn func(r *gin.Engine)) Option {
	return func(o *options) { o.routes = append(o.routes, fn) }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New 创建 Gin + HTTP Server，注册探针、指标与业务路由
func New(cfg cfgpkg.HTTPConfig, opts ...Option) *Server {
	o := options{metricsPath: "/metrics", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	r := gin.New()
	r.Use(gin.Recovery(), accessLog(o.logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if o.readyFn == nil || o.readyFn() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	if o.metricsHandler != nil {
		if o.metricsPath == "" {
			o.metricsPath = "/metrics"
		}
		r.GET(o.metricsPath, gin.WrapH(o.metricsHandler))
	}
	for _, fn := range o.routes {
		fn(r)
	}

	return &Server{
		srv: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		engine: r,
		logger: o.logger,
	}
}

// accessLog 请求日志；探针与指标路径只记 debug
func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Warn("http request", fields...)
		case c.FullPath() == "/healthz" || c.FullPath() == "/readyz":
			logger.Debug("http request", fields...)
		default:
			logger.Info("http request", fields...)
		}
	}
}

// Handler 路由处理器（测试用）
func (s *Server) Handler() http.Handler { return s.engine }

// Start 启动 HTTP 服务（阻塞）；正常关闭返回 nil
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
