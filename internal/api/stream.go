package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/config"
	"github.com/taoyao-code/camera-bridge/internal/session"
	"github.com/taoyao-code/camera-bridge/internal/stream"
)

// StreamHandler GET /api/cameras/:id/stream，推送解码后的参数值
type StreamHandler struct {
	sessions session.Registry
	hub      *stream.Hub
	cfg      config.StreamConfig
	clients  prometheus.Gauge
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewStreamHandler clients 可为 nil
func NewStreamHandler(sessions session.Registry, hub *stream.Hub, cfg config.StreamConfig, clients prometheus.Gauge, logger *zap.Logger) *StreamHandler {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{
		sessions: sessions,
		hub:      hub,
		cfg:      cfg,
		clients:  clients,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *StreamHandler) Serve(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.sessions.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found", "camera": id})
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已写出错误响应
		h.logger.Debug("websocket upgrade failed", zap.String("camera", id), zap.Error(err))
		return
	}
	h.run(id, conn)
}

func (h *StreamHandler) run(camera string, conn *websocket.Conn) {
	sub := h.hub.Subscribe(camera)
	if h.clients != nil {
		h.clients.Inc()
	}
	logger := h.logger.With(
		zap.String("camera", camera),
		zap.String("subscriber", sub.ID()),
		zap.String("remote", conn.RemoteAddr().String()),
	)
	logger.Info("stream client connected")

	defer func() {
		sub.Close()
		conn.Close()
		if h.clients != nil {
			h.clients.Dec()
		}
		logger.Info("stream client disconnected")
	}()

	// 读循环只处理控制帧；对端关闭后结束写循环
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(h.cfg.PingInterval)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Debug("stream write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
