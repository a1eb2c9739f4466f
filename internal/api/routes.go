package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/camera"
	"github.com/taoyao-code/camera-bridge/internal/config"
)

// RegisterRoutes 注册相机控制路由；stream 为 nil 时不提供 websocket 推送
func RegisterRoutes(r gin.IRouter, h *CameraHandler, stream *StreamHandler, authCfg config.AuthConfig, logger *zap.Logger) {
	if r == nil || h == nil {
		return
	}

	api := r.Group("/api")
	if authCfg.Enabled {
		api.Use(APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled")
	}

	api.GET("/cameras", h.ListCameras)
	api.GET("/scenes", h.ListScenes)

	cam := api.Group("/cameras/:id")
	cam.POST("/bond", h.Bond)
	cam.POST("/notifications/start", h.StartNotifications)

	cam.PUT("/aperture", h.SetAperture)
	cam.PUT("/shutter/angle", h.SetShutterAngle)
	cam.PUT("/shutter/speed", h.SetShutterSpeed)
	cam.PUT("/gain", h.SetGain)
	cam.PUT("/white-balance", h.SetWhiteBalance)
	cam.POST("/white-balance/auto", h.AutoWhiteBalance)

	cam.PUT("/cc/lift", h.SetColorCorrection((*camera.Client).SetLift))
	cam.PUT("/cc/gamma", h.SetColorCorrection((*camera.Client).SetGamma))
	cam.PUT("/cc/gain", h.SetColorCorrection((*camera.Client).SetCCGain))
	cam.PUT("/cc/offset", h.SetColorCorrection((*camera.Client).SetOffset))
	cam.PUT("/cc/contrast", h.SetContrast)
	cam.PUT("/cc/color", h.SetColor)
	cam.POST("/cc/reset", h.ResetColorCorrection)

	cam.PUT("/color-bars", h.SetColorBars)
	cam.POST("/scenes/:name/apply", h.ApplyScene)
	cam.GET("/state", h.GetState)
	if stream != nil {
		cam.GET("/stream", stream.Serve)
	}

	logger.Info("camera routes registered")
}
