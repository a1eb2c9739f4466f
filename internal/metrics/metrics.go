package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册 Go/进程采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 相机桥业务指标
// 实现 camera.Observer，由每个相机客户端回调
type AppMetrics struct {
	FramesSubmitted   *prometheus.CounterVec // labels: address
	FramesCoalesced   prometheus.Counter     // 窗口内被覆盖的帧
	WritesTotal       *prometheus.CounterVec // labels: result=ok|error
	NotificationTotal *prometheus.CounterVec // labels: address, result
	ListenerPanics    prometheus.Counter
	SessionsConnected prometheus.Gauge
	PublishTotal      *prometheus.CounterVec // labels: sink=redis|mqtt|webhook, result
	StreamClients     prometheus.Gauge       // websocket 订阅数
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		FramesSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bcs_frames_submitted_total",
			Help: "Control frames submitted to the coalescer.",
		}, []string{"address"}),
		FramesCoalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bcs_frames_coalesced_total",
			Help: "Frames replaced by a newer frame with the same key before flush.",
		}),
		WritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bcs_writes_total",
			Help: "Coalesced control writes by result.",
		}, []string{"result"}),
		NotificationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bcs_notifications_total",
			Help: "Incoming notifications by address and handling result.",
		}, []string{"address", "result"}),
		ListenerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bcs_listener_panics_total",
			Help: "Listener callbacks that panicked.",
		}),
		SessionsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camera_sessions_connected",
			Help: "Cameras with a live control client.",
		}),
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camera_state_publish_total",
			Help: "Decoded values forwarded to sinks.",
		}, []string{"sink", "result"}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camera_stream_clients",
			Help: "Open websocket stream subscriptions.",
		}),
	}
	reg.MustRegister(m.FramesSubmitted, m.FramesCoalesced, m.WritesTotal, m.NotificationTotal,
		m.ListenerPanics, m.SessionsConnected, m.PublishTotal, m.StreamClients)
	return m
}

func (m *AppMetrics) FrameSubmitted(key bcs.Key, replaced bool) {
	m.FramesSubmitted.WithLabelValues(key.Address.String()).Inc()
	if replaced {
		m.FramesCoalesced.Inc()
	}
}

func (m *AppMetrics) FrameWritten(_ bcs.Key, err error) {
	m.WritesTotal.WithLabelValues(resultLabel(err)).Inc()
}

func (m *AppMetrics) NotificationHandled(addr bcs.Address, result string) {
	m.NotificationTotal.WithLabelValues(addr.String(), result).Inc()
}

func (m *AppMetrics) ListenerPanicked(bcs.Address) {
	m.ListenerPanics.Inc()
}

// Published 记录下游写入结果
func (m *AppMetrics) Published(sink string, err error) {
	m.PublishTotal.WithLabelValues(sink, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
