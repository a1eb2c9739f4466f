package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig 控制面 HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// LumberjackConfig 日志滚动配置；Filename 为空时只输出到控制台
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// RedisConfig 相机状态缓存
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"poolSize"`
	MinIdleConns int           `mapstructure:"minIdleConns"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	KeyPrefix    string        `mapstructure:"keyPrefix"`
	// StateTTL 状态 hash 过期时间，0 不过期
	StateTTL time.Duration `mapstructure:"stateTTL"`
}

// MQTTConfig 解码值发布
type MQTTConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"clientID"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	TopicPrefix    string        `mapstructure:"topicPrefix"`
	QoS            byte          `mapstructure:"qos"`
	Retained       bool          `mapstructure:"retained"`
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
	PublishTimeout time.Duration `mapstructure:"publishTimeout"`
}

// WebhookConfig 签名 HTTP 推送
type WebhookConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"apiKey"`
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// BluetoothConfig BlueZ 适配器
type BluetoothConfig struct {
	Adapter        string        `mapstructure:"adapter"`
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
	// BondOnConnect 连接后自动写入绑定字节
	BondOnConnect bool `mapstructure:"bondOnConnect"`
	// ReconnectInterval 断线检测与重连间隔
	ReconnectInterval time.Duration `mapstructure:"reconnectInterval"`
	// ActiveWindow 最近一次上报在该时长内视为活跃
	ActiveWindow time.Duration `mapstructure:"activeWindow"`
}

// CameraConfig 单台相机
type CameraConfig struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"` // BLE MAC
	// Scene 连接后应用的调色场景，空则不应用
	Scene string `mapstructure:"scene"`
}

// OutboundConfig 下行合并与节流
type OutboundConfig struct {
	Window       time.Duration `mapstructure:"window"`
	RatePerSec   int           `mapstructure:"ratePerSec"`
	Burst        int           `mapstructure:"burst"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

type ScenesConfig struct {
	Path string `mapstructure:"path"`
}

// StreamConfig websocket 推送
type StreamConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	PingInterval time.Duration `mapstructure:"pingInterval"`
	BufferSize   int           `mapstructure:"bufferSize"`
}

// AuthConfig 控制接口 API Key 认证
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"apiKeys"`
}

type APIConfig struct {
	Auth   AuthConfig   `mapstructure:"auth"`
	Stream StreamConfig `mapstructure:"stream"`
}

// Config 顶层配置结构
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Bluetooth BluetoothConfig `mapstructure:"bluetooth"`
	Cameras   []CameraConfig  `mapstructure:"cameras"`
	Outbound  OutboundConfig  `mapstructure:"outbound"`
	Scenes    ScenesConfig    `mapstructure:"scenes"`
	API       APIConfig       `mapstructure:"api"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// path 为空时读取环境变量 CAM_CONFIG；仍为空则查找 ./configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// 环境变量覆盖：前缀 CAM_，点号替换为下划线
	v.SetEnvPrefix("CAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		// 未指定文件时允许缺省，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 基本约束检查
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Cameras))
	for i, cam := range c.Cameras {
		if cam.Name == "" {
			return fmt.Errorf("cameras[%d]: name is required", i)
		}
		if cam.Address == "" {
			return fmt.Errorf("camera %s: address is required", cam.Name)
		}
		if seen[cam.Name] {
			return fmt.Errorf("camera %s: duplicate name", cam.Name)
		}
		seen[cam.Name] = true
	}
	if c.Outbound.Window <= 0 {
		return errors.New("outbound.window must be positive")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return errors.New("mqtt.broker is required when mqtt is enabled")
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return errors.New("webhook.url is required when webhook is enabled")
	}
	if c.Webhook.Retries < 0 {
		return errors.New("webhook.retries must not be negative")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos %d out of range", c.MQTT.QoS)
	}
	if c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api.auth.apiKeys is required when auth is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "camera-bridge")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 2)
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")
	v.SetDefault("redis.keyPrefix", "camera")
	v.SetDefault("redis.stateTTL", "0s")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientID", "camera-bridge")
	v.SetDefault("mqtt.topicPrefix", "cameras")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.retained", true)
	v.SetDefault("mqtt.connectTimeout", "10s")
	v.SetDefault("mqtt.publishTimeout", "2s")

	v.SetDefault("webhook.enabled", false)
	v.SetDefault("webhook.timeout", "5s")
	v.SetDefault("webhook.retries", 3)

	v.SetDefault("bluetooth.adapter", "hci0")
	v.SetDefault("bluetooth.connectTimeout", "30s")
	v.SetDefault("bluetooth.bondOnConnect", true)
	v.SetDefault("bluetooth.reconnectInterval", "10s")
	v.SetDefault("bluetooth.activeWindow", "60s")

	v.SetDefault("outbound.window", "4ms")
	v.SetDefault("outbound.ratePerSec", 200)
	v.SetDefault("outbound.burst", 16)
	v.SetDefault("outbound.writeTimeout", "2s")

	v.SetDefault("scenes.path", "")

	v.SetDefault("api.auth.enabled", false)
	v.SetDefault("api.stream.enabled", true)
	v.SetDefault("api.stream.writeTimeout", "5s")
	v.SetDefault("api.stream.pingInterval", "30s")
	v.SetDefault("api.stream.bufferSize", 64)
}
