package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
	"github.com/taoyao-code/camera-bridge/internal/metrics"
	"github.com/taoyao-code/camera-bridge/internal/session"
)

// NewSessionManager 构造会话管理器，并把在线数同步到指标
func NewSessionManager(cfg cfgpkg.BluetoothConfig, appm *metrics.AppMetrics, logger *zap.Logger) *session.Manager {
	mgr := session.New(cfg.ActiveWindow)
	if appm != nil {
		mgr.OnChange(func(bound int) { appm.SessionsConnected.Set(float64(bound)) })
	}
	logger.Info("session manager initialized", zap.Duration("active_window", cfg.ActiveWindow))
	return mgr
}
