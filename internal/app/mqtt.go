package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
	"github.com/taoyao-code/camera-bridge/internal/health"
	"github.com/taoyao-code/camera-bridge/internal/publish"
)

// NewMQTTPublisher 连接 broker；未启用时返回 nil
func NewMQTTPublisher(cfg cfgpkg.MQTTConfig, logger *zap.Logger) (*publish.Publisher, error) {
	if !cfg.Enabled {
		logger.Info("mqtt is disabled, skipping initialization")
		return nil, nil
	}
	return publish.Connect(cfg, logger)
}

// NewMQTTSink 解码值发布到 MQTT；值未变化时不重复发布
func NewMQTTSink(p *publish.Publisher) Sink {
	return SinkFunc{
		SinkName: "mqtt",
		Fn: func(ctx context.Context, camera string, v bcs.Value) error {
			_, err := p.Publish(ctx, camera, v)
			return err
		},
	}
}

// AddMQTTChecker 添加MQTT检查器到聚合器
func AddMQTTChecker(aggregator *health.Aggregator, p *publish.Publisher) {
	if p != nil {
		aggregator.AddChecker(health.NewMQTTChecker(p))
	}
}

// NewWebhook 签名 HTTP 推送；未启用时返回 nil
func NewWebhook(cfg cfgpkg.WebhookConfig, logger *zap.Logger) (*publish.Webhook, error) {
	if !cfg.Enabled {
		logger.Info("webhook is disabled, skipping initialization")
		return nil, nil
	}
	return publish.NewWebhook(nil, cfg, logger)
}

// NewWebhookSink 每个解码值推送一次
func NewWebhookSink(w *publish.Webhook) Sink {
	return SinkFunc{SinkName: "webhook", Fn: w.Send}
}
