package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Backend      BackendConfig      `mapstructure:"backend"`
	Server       ServerConfig       `mapstructure:"server"`
	Diagnostics  DiagnosticsConfig  `mapstructure:"diagnostics"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// BackendConfig describes the remote download backend
type BackendConfig struct {
	BaseURL                string        `mapstructure:"base_url"`
	StreamPath             string        `mapstructure:"stream_path"`
	HandshakeTimeout       time.Duration `mapstructure:"handshake_timeout"`
	RequestTimeout         time.Duration `mapstructure:"request_timeout"`    // 0 disables the timeout
	CommandRateLimit       int           `mapstructure:"command_rate_limit"` // requests per second, 0 = unlimited
	MirrorCommandsToStream bool          `mapstructure:"mirror_commands_to_stream"`
	ReconnectDelay         time.Duration `mapstructure:"reconnect_delay"` // 0 disables reconnecting
}

// ServerConfig contains the local agent API configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DiagnosticsConfig contains fault journal configuration
type DiagnosticsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
	RecentLimit  int    `mapstructure:"recent_limit"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // log, osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // category log files, empty disables them
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:                "http://localhost:8080",
			StreamPath:             "/ws",
			HandshakeTimeout:       10 * time.Second,
			RequestTimeout:         30 * time.Second,
			CommandRateLimit:       10,
			MirrorCommandsToStream: false,
			ReconnectDelay:         5 * time.Second,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 9090,
		},
		Diagnostics: DiagnosticsConfig{
			Enabled:      true,
			DatabasePath: "$HOME/.pulldown/diagnostics.db",
			RecentLimit:  50,
		},
		Notification: NotificationConfig{
			Enabled: true,
			Method:  "log",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "$HOME/.pulldown/logs",
		},
	}
}

// StreamURL returns the websocket URL of the backend event stream
func (b BackendConfig) StreamURL() (string, error) {
	u, err := url.Parse(b.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid backend url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported backend scheme: %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(b.StreamPath, "/")
	return u.String(), nil
}

// Address returns the listen address of the local API
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
