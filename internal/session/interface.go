package session

import "github.com/taoyao-code/camera-bridge/internal/camera"

// Registry 控制面依赖的会话查询接口
type Registry interface {
	// Get 按相机名取控制客户端
	Get(name string) (*camera.Client, bool)

	// Snapshot 全部会话快照
	Snapshot() []Info

	// IsOnline 相机是否在线
	IsOnline(name string) bool
}

var _ Registry = (*Manager)(nil)
