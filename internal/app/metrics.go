package app

import (
	"net/http"

	"github.com/taoyao-code/camera-bridge/internal/metrics"
)

// NewMetrics 独立注册表上的业务指标及其 /metrics 处理器
func NewMetrics() (*metrics.AppMetrics, http.Handler) {
	reg := metrics.NewRegistry()
	return metrics.NewAppMetrics(reg), metrics.Handler(reg)
}
