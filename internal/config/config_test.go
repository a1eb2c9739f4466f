package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  env: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "camera-bridge", cfg.App.Name)
	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, 4*time.Millisecond, cfg.Outbound.Window)
	assert.Equal(t, 200, cfg.Outbound.RatePerSec)
	assert.Equal(t, "hci0", cfg.Bluetooth.Adapter)
	assert.Equal(t, "", cfg.Logging.File.Filename)
	assert.True(t, cfg.API.Stream.Enabled)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_CamerasAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
cameras:
  - name: A
    address: "AA:BB:CC:DD:EE:01"
    scene: daylight
  - name: B
    address: "AA:BB:CC:DD:EE:02"
outbound:
  window: 8ms
mqtt:
  enabled: true
  broker: tcp://broker:1883
  qos: 1
`)
	t.Setenv("CAM_HTTP_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Cameras, 2)
	assert.Equal(t, "daylight", cfg.Cameras[0].Scene)
	assert.Equal(t, "AA:BB:CC:DD:EE:02", cfg.Cameras[1].Address)
	assert.Equal(t, 8*time.Millisecond, cfg.Outbound.Window)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	t.Setenv("CAM_CONFIG", writeConfig(t, "app:\n  name: from-env\n"))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.App.Name)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"camera without name", "cameras:\n  - address: AA\n"},
		{"camera without address", "cameras:\n  - name: A\n"},
		{"duplicate camera", "cameras:\n  - {name: A, address: X}\n  - {name: A, address: Y}\n"},
		{"mqtt without broker", "mqtt:\n  enabled: true\n  broker: \"\"\n"},
		{"bad qos", "mqtt:\n  qos: 3\n"},
		{"auth without keys", "api:\n  auth:\n    enabled: true\n"},
		{"webhook without url", "webhook:\n  enabled: true\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}
