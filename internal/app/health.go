package app

import (
	"github.com/gin-gonic/gin"

	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
	"github.com/taoyao-code/camera-bridge/internal/health"
)

// NewHealthAggregator 创建健康检查聚合器：相机在线 + 蓝牙适配器
func NewHealthAggregator(sessions health.CameraStatus, cameras []cfgpkg.CameraConfig, adapter health.AdapterStatus) *health.Aggregator {
	names := make([]string, 0, len(cameras))
	for _, c := range cameras {
		names = append(names, c.Name)
	}
	agg := health.NewAggregator(health.NewCameraChecker(sessions, names))
	if adapter != nil {
		agg.AddChecker(health.NewBluetoothChecker(adapter))
	}
	return agg
}

// RegisterHealthRoutes 注册健康检查HTTP路由
func RegisterHealthRoutes(r gin.IRouter, aggregator *health.Aggregator) {
	health.RegisterHTTPRoutes(r, aggregator)
}
