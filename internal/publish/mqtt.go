// Package publish 将相机解码值发布到 MQTT
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
)

var ErrNotConnected = errors.New("mqtt not connected")

// Event MQTT 消息体
type Event struct {
	Camera    string    `json:"camera"`
	Kind      bcs.Kind  `json:"kind"`
	Address   string    `json:"address"`
	Timestamp int64     `json:"timestamp"`
	Value     bcs.Value `json:"value"`
}

// Publisher 主题：<prefix>/<camera>/<kind>
// 同一主题值未变化时不重复发布
type Publisher struct {
	client   mqtt.Client
	prefix   string
	qos      byte
	retained bool
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	last map[string][]byte // topic -> 上次发布的 value JSON
}

// Connect 按配置连接 broker
func Connect(cfg cfgpkg.MQTTConfig, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info("mqtt connected", zap.String("broker", cfg.Broker))
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return New(client, cfg, logger), nil
}

// New 使用已有客户端
func New(client mqtt.Client, cfg cfgpkg.MQTTConfig, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Publisher{
		client:   client,
		prefix:   strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:      cfg.QoS,
		retained: cfg.Retained,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
		last:     make(map[string][]byte),
	}
}

// Topic 值对应的主题
func (p *Publisher) Topic(camera string, v bcs.Value) string {
	kind := string(v.Kind())
	if v.Kind() == bcs.KindUnparsed {
		kind += "/" + v.Address().String()
	}
	if p.prefix == "" {
		return camera + "/" + kind
	}
	return p.prefix + "/" + camera + "/" + kind
}

// Publish 发布一条解码值；与上次相同则跳过并返回 false
func (p *Publisher) Publish(ctx context.Context, camera string, v bcs.Value) (bool, error) {
	if !p.client.IsConnectionOpen() {
		return false, ErrNotConnected
	}
	topic := p.Topic(camera, v)
	value, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("marshal %s: %w", v.Kind(), err)
	}

	p.mu.Lock()
	unchanged := bytes.Equal(p.last[topic], value)
	p.mu.Unlock()
	if unchanged {
		return false, nil
	}

	body, err := json.Marshal(Event{
		Camera:    camera,
		Kind:      v.Kind(),
		Address:   v.Address().String(),
		Timestamp: p.now().UnixMilli(),
		Value:     v,
	})
	if err != nil {
		return false, fmt.Errorf("marshal event: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retained, body)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(p.timeout):
		return false, fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return false, fmt.Errorf("publish %s: %w", topic, err)
	}

	p.mu.Lock()
	p.last[topic] = value
	p.mu.Unlock()
	return true, nil
}

// Forget 清除相机的去重记录（重连后强制重新发布）
func (p *Publisher) Forget(camera string) {
	prefix := p.Topic(camera, bcs.Gain{})
	prefix = prefix[:strings.LastIndex(prefix, "/")+1]
	p.mu.Lock()
	for topic := range p.last {
		if strings.HasPrefix(topic, prefix) {
			delete(p.last, topic)
		}
	}
	p.mu.Unlock()
}

// Connected broker 连接是否可用
func (p *Publisher) Connected() bool {
	return p.client.IsConnectionOpen()
}

// Close 断开 broker
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
