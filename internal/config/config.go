package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string          `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	WebRTC    WebRTCConfig    `yaml:"webrtc"`
}

type HTTPConfig struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	WSPath          string        `yaml:"ws_path" env:"HTTP_WS_PATH" env-default:""`
	AllowOrigins    []string      `yaml:"allow_origins" env:"HTTP_ALLOW_ORIGINS" env-separator:","`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT"`
}

type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" env:"WS_READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" env:"WS_WRITE_BUFFER_SIZE"`
	MaxMessageSize  int64         `yaml:"max_message_size" env:"WS_MAX_MESSAGE_SIZE"`
	WriteWait       time.Duration `yaml:"write_wait" env:"WS_WRITE_WAIT"`
	PongWait        time.Duration `yaml:"pong_wait" env:"WS_PONG_WAIT"`
	SendBuffer      int           `yaml:"send_buffer" env:"WS_SEND_BUFFER"`
}

type WebRTCConfig struct {
	STUNServers []string `yaml:"stun_servers" env:"WEBRTC_STUN_SERVERS" env-separator:","`
}

// PingPeriod is how often the server pings a peer. Must be less than PongWait.
func (c WebSocketConfig) PingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	cfg, err := LoadPath(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func LoadPath(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is present at all.
func Default() *Config {
	cfg := &Config{Env: "local"}
	cfg.setDefaults()
	return cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = "0.0.0.0:8765"
	}
	if c.HTTP.WSPath == "" {
		c.HTTP.WSPath = "/"
	}
	if len(c.HTTP.AllowOrigins) == 0 {
		c.HTTP.AllowOrigins = []string{"*"}
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.WebSocket.ReadBufferSize == 0 {
		c.WebSocket.ReadBufferSize = 64 * 1024
	}
	if c.WebSocket.WriteBufferSize == 0 {
		c.WebSocket.WriteBufferSize = 64 * 1024
	}
	if c.WebSocket.MaxMessageSize == 0 {
		c.WebSocket.MaxMessageSize = 64 * 1024
	}
	if c.WebSocket.WriteWait == 0 {
		c.WebSocket.WriteWait = 10 * time.Second
	}
	if c.WebSocket.PongWait == 0 {
		c.WebSocket.PongWait = 60 * time.Second
	}
	if c.WebSocket.SendBuffer == 0 {
		c.WebSocket.SendBuffer = 256
	}
	if len(c.WebRTC.STUNServers) == 0 {
		c.WebRTC.STUNServers = []string{"stun:stun.l.google.com:19302"}
	}
}

func (c *Config) validate() error {
	var errs []error

	if c.WebSocket.ReadBufferSize < 0 || c.WebSocket.WriteBufferSize < 0 {
		errs = append(errs, errors.New("websocket buffer sizes must be positive"))
	}
	if c.WebSocket.MaxMessageSize < 0 {
		errs = append(errs, errors.New("websocket.max_message_size must be positive"))
	}
	if c.WebSocket.SendBuffer < 0 {
		errs = append(errs, errors.New("websocket.send_buffer must be positive"))
	}
	if c.WebSocket.WriteWait < 0 || c.WebSocket.PongWait < 0 || c.HTTP.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}

	return errors.Join(errs...)
}
