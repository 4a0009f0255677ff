// Package config loads uftp_server and uftp_client configuration from an
// optional YAML file, environment variables, and command-line overrides,
// in that increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcarmo/go-uftp/internal/codec"
)

// globalConfig stores the configuration loaded by main(), so packages
// deep in the call graph that don't receive a *Config directly can still
// reach it.
var (
	globalConfig *Config
	configMutex  sync.Mutex
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	RUDP    RUDPConfig    `yaml:"rudp" json:"rudp"`
	KFTP    KFTPConfig    `yaml:"kftp" json:"kftp"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LoadOptions holds command-line override values. A zero value field
// means "no override"; the loader falls through to the environment and
// then the built-in default.
type LoadOptions struct {
	ConfigFile string
	Host       string
	Port       string
	LogLevel   string
}

// ServerConfig holds server listener configuration.
type ServerConfig struct {
	Host string `yaml:"host" json:"host" env:"UFTP_SERVER_HOST" default:""`
	Port int    `yaml:"port" json:"port" env:"UFTP_SERVER_PORT" default:"9090"`
	Dir  string `yaml:"dir" json:"dir" env:"UFTP_SERVER_DIR" default:"."`
}

// RUDPConfig holds the reliable-datagram transport's tunable timings.
type RUDPConfig struct {
	MessageTimeout time.Duration `yaml:"messageTimeout" json:"messageTimeout" env:"UFTP_RUDP_MESSAGE_TIMEOUT" default:"200ms"`
	SenderTimeout  time.Duration `yaml:"senderTimeout" json:"senderTimeout" env:"UFTP_RUDP_SENDER_TIMEOUT" default:"5s"`
	AckWindow      int           `yaml:"ackWindow" json:"ackWindow" env:"UFTP_RUDP_ACK_WINDOW" default:"100"`
	MTU            int           `yaml:"mtu" json:"mtu" env:"UFTP_RUDP_MTU" default:"1024"`
}

// KFTPConfig holds file-transfer-layer behavior.
type KFTPConfig struct {
	ProgressReports bool `yaml:"progressReports" json:"progressReports" env:"UFTP_KFTP_PROGRESS_REPORTS" default:"true"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" env:"UFTP_LOG_LEVEL" default:"info"`
}

// Load loads configuration from the environment with no overrides.
func Load() (*Config, error) {
	return LoadWithOverrides(LoadOptions{})
}

// LoadWithOverrides loads configuration from, in increasing priority: the
// built-in defaults, an optional YAML file (opts.ConfigFile, or the
// UFTP_CONFIG_FILE environment variable if unset), environment variables,
// and finally opts.
func LoadWithOverrides(opts LoadOptions) (*Config, error) {
	config := defaultConfig()

	configFile := getOverrideOrEnv(opts.ConfigFile, "UFTP_CONFIG_FILE", "")
	if configFile != "" {
		if err := loadFile(configFile, config); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", configFile, err)
		}
	}

	config.Server.Host = getOverrideOrEnv(opts.Host, "UFTP_SERVER_HOST", config.Server.Host)
	if portOverride := getOverrideOrEnv(opts.Port, "UFTP_SERVER_PORT", ""); portOverride != "" {
		port, err := strconv.Atoi(portOverride)
		if err != nil {
			return nil, fmt.Errorf("config: invalid port %q: %w", portOverride, err)
		}
		config.Server.Port = port
	}
	config.Server.Dir = getEnvWithDefault("UFTP_SERVER_DIR", config.Server.Dir)

	config.RUDP.MessageTimeout = getDurationWithDefault("UFTP_RUDP_MESSAGE_TIMEOUT", config.RUDP.MessageTimeout)
	config.RUDP.SenderTimeout = getDurationWithDefault("UFTP_RUDP_SENDER_TIMEOUT", config.RUDP.SenderTimeout)
	config.RUDP.AckWindow = getIntWithDefault("UFTP_RUDP_ACK_WINDOW", config.RUDP.AckWindow)
	config.RUDP.MTU = getIntWithDefault("UFTP_RUDP_MTU", config.RUDP.MTU)

	config.KFTP.ProgressReports = getBoolWithDefault("UFTP_KFTP_PROGRESS_REPORTS", config.KFTP.ProgressReports)

	config.Logging.Level = getOverrideOrEnv(opts.LogLevel, "UFTP_LOG_LEVEL", config.Logging.Level)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	configMutex.Lock()
	globalConfig = config
	configMutex.Unlock()

	return config, nil
}

// defaultConfig returns a Config populated with the struct tag defaults
// above. LoadWithOverrides starts from it, and loadFile merges a YAML file
// over it.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 9090, Dir: "."},
		RUDP: RUDPConfig{
			MessageTimeout: 200 * time.Millisecond,
			SenderTimeout:  5 * time.Second,
			AckWindow:      100,
			MTU:            codec.MaxPayloadSize,
		},
		KFTP:    KFTPConfig{ProgressReports: true},
		Logging: LoggingConfig{Level: "info"},
	}
}

// loadFile merges a YAML config file's contents into config, leaving
// fields the file doesn't set at their current (default) values.
func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, config)
}

// GetGlobalConfig returns the configuration most recently loaded by
// LoadWithOverrides, for packages that don't have one threaded through.
func GetGlobalConfig() *Config {
	configMutex.Lock()
	defer configMutex.Unlock()
	return globalConfig
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.Dir == "" {
		return fmt.Errorf("server directory cannot be empty")
	}

	if c.RUDP.MessageTimeout <= 0 {
		return fmt.Errorf("rudp message timeout must be positive")
	}

	if c.RUDP.SenderTimeout <= 0 {
		return fmt.Errorf("rudp sender timeout must be positive")
	}

	if c.RUDP.SenderTimeout < c.RUDP.MessageTimeout {
		return fmt.Errorf("rudp sender timeout must be >= message timeout")
	}

	if c.RUDP.AckWindow <= 0 {
		return fmt.Errorf("rudp ack window must be positive")
	}

	// The codec's frame layout is a fixed compile-time constant; MTU is
	// validated rather than applied, flagging a config file that assumes
	// a different wire size than this build was compiled with.
	if c.RUDP.MTU != codec.MaxPayloadSize {
		return fmt.Errorf("rudp mtu must equal %d (the compiled frame size)", codec.MaxPayloadSize)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getOverrideOrEnv returns the command-line override value, the
// environment value, or the default, in that order of preference.
func getOverrideOrEnv(override, envKey, defaultValue string) string {
	if override != "" {
		return override
	}
	return getEnvWithDefault(envKey, defaultValue)
}
