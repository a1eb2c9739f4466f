package camera

import (
	"context"
	"errors"
)

// Blackmagic 相机 GATT 服务与特征
const (
	ServiceUUID       = "291d567a-6d75-11e6-8b77-86f30ca893d3"
	ControlTxCharUUID = "5dd3465f-1aee-4299-8493-d2eca2f8e1bb" // 下行命令
	ControlRxCharUUID = "b864e140-76a0-416a-bf30-5876504537d9" // 上行通知
	TimecodeCharUUID  = "6d8f2110-86f1-41bf-9afb-451d87e976c8"
	CameraStatusUUID  = "7fe8691d-95dc-4fc5-8abd-ca74339b51b9"
)

// bondStatusPowerOn 写入状态特征以完成绑定
const bondStatusPowerOn = 0x01

var (
	ErrDisconnected           = errors.New("camera disconnected")
	ErrClosed                 = errors.New("camera client closed")
	ErrCharacteristicNotFound = errors.New("characteristic not found")
)

// Link 已建立连接的 GATT 会话（由配对层提供）
type Link interface {
	// Characteristic 按服务/特征 UUID 查找特征
	Characteristic(service, characteristic string) (Characteristic, error)
	// Connected 写入前查询链路是否仍然存活
	Connected() bool
}

// Characteristic 可写/可订阅的 GATT 特征
type Characteristic interface {
	Write(ctx context.Context, b []byte) error
	// StartNotify 打开通知
	StartNotify(ctx context.Context) error
	// Subscribe 安装通知回调，返回取消函数
	Subscribe(fn func([]byte)) (cancel func())
}
