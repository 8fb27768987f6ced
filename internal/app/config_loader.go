package app

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/pulldown-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.pulldown")
		v.AddConfigPath("/etc/pulldown")
	}

	v.SetEnvPrefix("PULLDOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v, config)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindDefaults registers every key so AutomaticEnv can override keys
// that are absent from the config file.
func bindDefaults(v *viper.Viper, config *domain.Config) {
	for key, value := range configKeys(config) {
		v.SetDefault(key, value)
	}
}

func configKeys(config *domain.Config) map[string]interface{} {
	return map[string]interface{}{
		"backend.base_url":                  config.Backend.BaseURL,
		"backend.stream_path":               config.Backend.StreamPath,
		"backend.handshake_timeout":         config.Backend.HandshakeTimeout.String(),
		"backend.request_timeout":           config.Backend.RequestTimeout.String(),
		"backend.command_rate_limit":        config.Backend.CommandRateLimit,
		"backend.mirror_commands_to_stream": config.Backend.MirrorCommandsToStream,
		"backend.reconnect_delay":           config.Backend.ReconnectDelay.String(),
		"server.host":                       config.Server.Host,
		"server.port":                       config.Server.Port,
		"diagnostics.enabled":               config.Diagnostics.Enabled,
		"diagnostics.database_path":         config.Diagnostics.DatabasePath,
		"diagnostics.recent_limit":          config.Diagnostics.RecentLimit,
		"notification.enabled":              config.Notification.Enabled,
		"notification.method":               config.Notification.Method,
		"logging.level":                     config.Logging.Level,
		"logging.format":                    config.Logging.Format,
		"logging.output_path":               config.Logging.OutputPath,
		"logging.logs_dir":                  config.Logging.LogsDir,
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Diagnostics.DatabasePath = expandPath(config.Diagnostics.DatabasePath)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	u, err := url.Parse(config.Backend.BaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid backend base url: %q", config.Backend.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend base url must use http or https: %q", config.Backend.BaseURL)
	}

	if config.Backend.StreamPath == "" {
		return fmt.Errorf("backend stream path not configured")
	}

	if config.Backend.CommandRateLimit < 0 {
		return fmt.Errorf("command rate limit cannot be negative")
	}

	if config.Backend.HandshakeTimeout < 0 || config.Backend.RequestTimeout < 0 || config.Backend.ReconnectDelay < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}

	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Diagnostics.Enabled && config.Diagnostics.DatabasePath == "" {
		return fmt.Errorf("diagnostics database path not configured")
	}

	if config.Diagnostics.RecentLimit < 0 {
		return fmt.Errorf("diagnostics recent limit cannot be negative")
	}

	switch config.Notification.Method {
	case "", "log", "osascript", "notify-send":
	default:
		return fmt.Errorf("unknown notification method: %q", config.Notification.Method)
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range configKeys(config) {
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
