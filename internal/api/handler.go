// Package api 相机控制 HTTP 接口
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
	"github.com/taoyao-code/camera-bridge/internal/camera"
	"github.com/taoyao-code/camera-bridge/internal/scene"
	"github.com/taoyao-code/camera-bridge/internal/session"
	redisstorage "github.com/taoyao-code/camera-bridge/internal/storage/redis"
)

// StateReader 状态缓存查询
type StateReader interface {
	Load(ctx context.Context, camera string) (*redisstorage.State, error)
}

// CameraHandler 相机控制处理器
type CameraHandler struct {
	sessions session.Registry
	scenes   *scene.Library
	state    StateReader
	logger   *zap.Logger
	timeout  time.Duration
}

// NewCameraHandler state 为 nil 时 /state 返回 503
func NewCameraHandler(sessions session.Registry, scenes *scene.Library, state StateReader, logger *zap.Logger) *CameraHandler {
	if scenes == nil {
		scenes = scene.NewLibrary()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CameraHandler{
		sessions: sessions,
		scenes:   scenes,
		state:    state,
		logger:   logger,
		timeout:  5 * time.Second,
	}
}

type apertureReq struct {
	Normalized *float64 `json:"normalized" binding:"required"`
}

type shutterAngleReq struct {
	Degrees *float64 `json:"degrees" binding:"required"`
}

type shutterSpeedReq struct {
	Denominator int `json:"denominator" binding:"required,min=1"`
}

type gainReq struct {
	DB *int `json:"db" binding:"required"`
}

type whiteBalanceReq struct {
	Temperature int `json:"temperature" binding:"required"`
	Tint        int `json:"tint"`
}

type rgblReq struct {
	R *float64 `json:"r" binding:"required"`
	G *float64 `json:"g" binding:"required"`
	B *float64 `json:"b" binding:"required"`
	L *float64 `json:"l" binding:"required"`
}

type contrastReq struct {
	Pivot  *float64 `json:"pivot" binding:"required"`
	Adjust *float64 `json:"adjust" binding:"required"`
}

type colorReq struct {
	Hue        *float64 `json:"hue" binding:"required"`
	Saturation *float64 `json:"saturation" binding:"required"`
}

type colorBarsReq struct {
	Seconds *int `json:"seconds" binding:"required"`
}

// ListCameras 会话列表
func (h *CameraHandler) ListCameras(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cameras": h.sessions.Snapshot()})
}

// ListScenes 场景名列表
func (h *CameraHandler) ListScenes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"scenes": h.scenes.Names()})
}

// client 取路径中的相机；失败时已写响应
func (h *CameraHandler) client(c *gin.Context) (*camera.Client, bool) {
	id := c.Param("id")
	cl, ok := h.sessions.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found", "camera": id})
		return nil, false
	}
	return cl, true
}

// accepted 合并发送的设置项：链路断开时拒绝，否则 202
func (h *CameraHandler) accepted(c *gin.Context, cl *camera.Client, body interface{}, apply func()) {
	if err := c.ShouldBindJSON(body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !cl.Connected() {
		c.JSON(http.StatusConflict, gin.H{"error": camera.ErrDisconnected.Error()})
		return
	}
	apply()
	c.JSON(http.StatusAccepted, gin.H{"camera": cl.Name(), "pending": cl.PendingWrites()})
}

// awaited 直接写入并等待结果
func (h *CameraHandler) awaited(c *gin.Context, cl *camera.Client, op string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		h.logger.Warn("camera operation failed",
			zap.String("camera", cl.Name()), zap.String("op", op), zap.Error(err))
		status := http.StatusBadGateway
		if errors.Is(err, camera.ErrDisconnected) || errors.Is(err, camera.ErrClosed) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error(), "op": op})
		return
	}
	c.JSON(http.StatusOK, gin.H{"camera": cl.Name(), "op": op})
}

// Bond POST /api/cameras/:id/bond
func (h *CameraHandler) Bond(c *gin.Context) {
	if cl, ok := h.client(c); ok {
		h.awaited(c, cl, "bond", cl.Bond)
	}
}

// StartNotifications POST /api/cameras/:id/notifications/start
func (h *CameraHandler) StartNotifications(c *gin.Context) {
	if cl, ok := h.client(c); ok {
		h.awaited(c, cl, "notifications.start", cl.StartNotifications)
	}
}

// SetAperture PUT /api/cameras/:id/aperture
func (h *CameraHandler) SetAperture(c *gin.Context) {
	cl, ok := h.client(c)
	if !ok {
		return
	}
	var req apertureReq
	h.accepted(c, cl, &req, func() { cl.SetApertureNormalized(*req.Normalized) })
}

// SetShutterAngle PUT /api/cameras/:id/shutter/angle
func (h *CameraHandler) SetShutterAngle(c *gin.Context) {
	cl, ok := h.client(c)
	if !ok {
		return
	}
	var req shutterAngleReq
	h.accepted(c, cl, &req, func() { cl.SetShutterAngle(*req.Degrees) })
}

// SetShutterSpeed PUT /api/cameras/:id/shutter/speed
func (h *CameraHandler) SetShutterSpeed(c *gin.Context) {
	cl, ok := h.client(c)
	if !ok {
		return
	}
	var req shutterSpeedReq
	h.accepted(c, cl, &req, func() { cl.SetShutterSpeed(req.Denominator) })
}

// SetGain PUT /api/cameras/:id/gain
func (h *CameraHandler) SetGain(c *gin.Context) {
	cl, ok := h.client(c)
	if !ok {
		return
	}
	var req gainReq
	h.accepted(c, cl, &req, func() { cl.SetGain(*req.DB) })
}

// SetWhiteBalance PUT /api/cameras/:id/white-balance
func (h *CameraHandler) SetWhiteBalance(c *gin.Context) {
	cl, ok := h.client(c)
	if !ok {
		return
	}
	var req whiteBalanceReq
	h.accepted(c, cl, &req, func() { cl.SetWhiteBalance(req.Temperature, req.Tint) })
}

// AutoWhiteBalance POST /api/cameras/:id/white-balance/auto
func (h *CameraHandler) AutoWhiteBalance(c *gin.Context) {
	if cl, ok := h.client(c); ok {
		h.awaited(c, cl, "white-balance.auto", cl.SetAutoWhiteBalance)
	}
}

// SetColorCorrection PUT /api/cameras/:id/cc/{lift|gamma|gain|offset}
func (h *CameraHandler) SetColorCorrection(set func(*camera.Client, bcs.Rgbl)) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := h.client(c)
		if !ok {
			return
		}
		var req rgblReq
		h.accepted(c, cl, &req, func() { set(cl, bcs.Rgbl{*req.R, *req.G, *req.B, *req.L}) })
	}
}

// SetContrast PUT /api/cameras/:id/cc/contrast
func (h *CameraHandler) SetContrast(c *gin.Context) {
	cl, ok := h.client(c)
	if !ok {
		return
	}
	var req contrastReq
	h.accepted(c, cl, &req, func() { cl.SetContrast(*req.Pivot, *req.Adjust) })
}

// SetColor PUT /api/cameras/:id/cc/color
func (h *CameraHandler) SetColor(c *gin.Context) {
	cl, ok := h.client(c)
	if !ok {
		return
	}
	var req colorReq
	h.accepted(c, cl, &req, func() { cl.SetColorAdjust(*req.Hue, *req.Saturation) })
}

// ResetColorCorrection POST /api/cameras/:id/cc/reset
func (h *CameraHandler) ResetColorCorrection(c *gin.Context) {
	if cl, ok := h.client(c); ok {
		h.awaited(c, cl, "cc.reset", cl.ResetColorCorrection)
	}
}

// SetColorBars PUT /api/cameras/:id/color-bars
func (h *CameraHandler) SetColorBars(c *gin.Context) {
	cl, ok := h.client(c)
	if !ok {
		return
	}
	var req colorBarsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.awaited(c, cl, "color-bars", func(ctx context.Context) error {
		return cl.SetColorBars(ctx, *req.Seconds)
	})
}

// ApplyScene POST /api/cameras/:id/scenes/:name/apply
func (h *CameraHandler) ApplyScene(c *gin.Context) {
	cl, ok := h.client(c)
	if !ok {
		return
	}
	s, err := h.scenes.Get(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if !cl.Connected() {
		c.JSON(http.StatusConflict, gin.H{"error": camera.ErrDisconnected.Error()})
		return
	}
	scene.Apply(cl, s)
	h.logger.Info("scene applied", zap.String("camera", cl.Name()), zap.String("scene", s.Name))
	c.JSON(http.StatusAccepted, gin.H{"camera": cl.Name(), "scene": s.Name})
}

// GetState GET /api/cameras/:id/state
func (h *CameraHandler) GetState(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.sessions.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found", "camera": id})
		return
	}
	if h.state == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "state cache disabled"})
		return
	}
	st, err := h.state.Load(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("load state failed", zap.String("camera", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"camera":     st.Camera,
		"online":     h.sessions.IsOnline(id),
		"values":     st.Values,
		"updated_at": st.UpdatedAt,
	})
}
