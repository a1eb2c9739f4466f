package app

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/camera"
	"github.com/taoyao-code/camera-bridge/internal/camera/cameratest"
	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
	"github.com/taoyao-code/camera-bridge/internal/scene"
)

// TestExampleConfig 示例配置可加载，场景文件路径有效
func TestExampleConfig(t *testing.T) {
	cfg, err := cfgpkg.Load("../../configs/example.yaml")
	require.NoError(t, err, "配置文件加载失败")

	assert.Equal(t, 60*time.Second, cfg.Bluetooth.ActiveWindow)
	assert.Equal(t, 4*time.Millisecond, cfg.Outbound.Window)
	require.Len(t, cfg.Cameras, 2)
	assert.Equal(t, scene.DefaultName, cfg.Cameras[0].Scene)

	lib, err := scene.Load("../../configs/scenes.yaml")
	require.NoError(t, err, "场景文件加载失败")
	assert.Equal(t, []string{scene.DefaultName, "flat", "warm"}, lib.Names())
}

// TestNewSessionManager 绑定数同步到 camera_sessions_connected
func TestNewSessionManager(t *testing.T) {
	appm, _ := NewMetrics()
	mgr := NewSessionManager(cfgpkg.BluetoothConfig{ActiveWindow: time.Minute}, appm, zap.NewNop())
	defer mgr.CloseAll()

	for _, name := range []string{"A", "B"} {
		c, err := camera.New(cameratest.NewLink(), camera.WithName(name))
		require.NoError(t, err)
		mgr.Bind(name, c)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(appm.SessionsConnected))

	mgr.Unbind("A")
	assert.Equal(t, 1.0, testutil.ToFloat64(appm.SessionsConnected))
}
