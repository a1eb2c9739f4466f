package health

import (
	"context"
	"fmt"
	"time"
)

// CameraStatus 相机在线查询
type CameraStatus interface {
	IsOnline(name string) bool
}

// CameraChecker 配置的相机全部在线为健康；部分离线为降级；全部离线为不健康
type CameraChecker struct {
	sessions CameraStatus
	expected []string
}

func NewCameraChecker(sessions CameraStatus, expected []string) *CameraChecker {
	return &CameraChecker{sessions: sessions, expected: expected}
}

func (c *CameraChecker) Name() string { return "cameras" }

func (c *CameraChecker) Check(context.Context) CheckResult {
	start := time.Now()
	details := make(map[string]any, len(c.expected))
	online := 0
	for _, name := range c.expected {
		ok := c.sessions.IsOnline(name)
		details[name] = ok
		if ok {
			online++
		}
	}

	status, message := StatusHealthy, "ok"
	switch {
	case len(c.expected) == 0:
		message = "no cameras configured"
	case online == 0:
		status, message = StatusUnhealthy, "no camera connected"
	case online < len(c.expected):
		status = StatusDegraded
		message = fmt.Sprintf("%d/%d cameras connected", online, len(c.expected))
	}
	r := since(start, status, message)
	r.Details = details
	return r
}

// AdapterStatus 蓝牙适配器
type AdapterStatus interface {
	Powered(ctx context.Context) (bool, error)
}

// BluetoothChecker 适配器未上电时无法控制任何相机
type BluetoothChecker struct {
	adapter AdapterStatus
}

func NewBluetoothChecker(adapter AdapterStatus) *BluetoothChecker {
	return &BluetoothChecker{adapter: adapter}
}

func (c *BluetoothChecker) Name() string { return "bluetooth" }

func (c *BluetoothChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	powered, err := c.adapter.Powered(ctx)
	switch {
	case err != nil:
		return since(start, StatusUnhealthy, err.Error())
	case !powered:
		return since(start, StatusUnhealthy, "adapter powered off")
	}
	return since(start, StatusHealthy, "ok")
}

// BrokerStatus MQTT 连接
type BrokerStatus interface {
	Connected() bool
}

// MQTTChecker broker 断开只影响发布，记为降级
type MQTTChecker struct {
	broker BrokerStatus
}

func NewMQTTChecker(broker BrokerStatus) *MQTTChecker {
	return &MQTTChecker{broker: broker}
}

func (c *MQTTChecker) Name() string { return "mqtt" }

func (c *MQTTChecker) Check(context.Context) CheckResult {
	start := time.Now()
	if !c.broker.Connected() {
		return since(start, StatusDegraded, "broker disconnected")
	}
	return since(start, StatusHealthy, "ok")
}
