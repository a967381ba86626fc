package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Pub/sub drivers understood by the room relay server.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// DefaultMaxMessageSize is the default websocket read limit in bytes.
const DefaultMaxMessageSize = 64 << 10

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	PubSub    PubSubConfig
	Log       LogConfig
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// WebSocketConfig tunes the room websocket connections.
type WebSocketConfig struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

// PubSubConfig selects how room events fan out between server instances.
type PubSubConfig struct {
	Driver string
	Redis  RedisConfig
}

// RedisConfig 描述 Redis 连接参数。
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load 从配置文件与环境变量加载配置。config.yaml 可选，环境变量优先。
func Load() (*Config, error) {
	return loadFrom(".", "./config")
}

func loadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	v.BindEnv("server.addr", "PORT")
	v.BindEnv("pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("pubsub.redis.password", "REDIS_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	addr, err := normalizeAddr(v.GetString("server.addr"))
	if err != nil {
		return nil, err
	}

	driver := strings.ToLower(strings.TrimSpace(v.GetString("pubsub.driver")))
	if driver != DriverMemory && driver != DriverRedis {
		return nil, fmt.Errorf("invalid pubsub.driver value: %q", driver)
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:            addr,
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		WebSocket: WebSocketConfig{
			PingInterval:   v.GetDuration("websocket.ping_interval"),
			PongWait:       v.GetDuration("websocket.pong_wait"),
			WriteWait:      v.GetDuration("websocket.write_wait"),
			MaxMessageSize: v.GetInt64("websocket.max_message_size"),
			SendBuffer:     v.GetInt("websocket.send_buffer"),
		},
		PubSub: PubSubConfig{
			Driver: driver,
			Redis: RedisConfig{
				Address:      v.GetString("pubsub.redis.address"),
				Password:     v.GetString("pubsub.redis.password"),
				DB:           v.GetInt("pubsub.redis.db"),
				PoolSize:     v.GetInt("pubsub.redis.pool_size"),
				ReadTimeout:  v.GetDuration("pubsub.redis.read_timeout"),
				WriteTimeout: v.GetDuration("pubsub.redis.write_timeout"),
			},
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Pretty: v.GetBool("log.pretty"),
		},
	}

	if cfg.WebSocket.PongWait <= cfg.WebSocket.PingInterval {
		return nil, fmt.Errorf("websocket.pong_wait (%s) must exceed websocket.ping_interval (%s)",
			cfg.WebSocket.PongWait, cfg.WebSocket.PingInterval)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", DefaultMaxMessageSize)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("pubsub.driver", DriverMemory)
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.redis.password", "")
	v.SetDefault("pubsub.redis.db", 0)
	v.SetDefault("pubsub.redis.pool_size", 10)
	v.SetDefault("pubsub.redis.read_timeout", "3s")
	v.SetDefault("pubsub.redis.write_timeout", "3s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// normalizeAddr 解析服务器监听地址。
func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}
