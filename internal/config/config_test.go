package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/go-uftp/internal/codec"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		orig, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, orig)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

var allEnvKeys = []string{
	"UFTP_CONFIG_FILE", "UFTP_SERVER_HOST", "UFTP_SERVER_PORT", "UFTP_SERVER_DIR",
	"UFTP_RUDP_MESSAGE_TIMEOUT", "UFTP_RUDP_SENDER_TIMEOUT", "UFTP_RUDP_ACK_WINDOW",
	"UFTP_KFTP_PROGRESS_REPORTS", "UFTP_LOG_LEVEL",
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, allEnvKeys...)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ".", cfg.Server.Dir)
	assert.Equal(t, 200*time.Millisecond, cfg.RUDP.MessageTimeout)
	assert.Equal(t, 5*time.Second, cfg.RUDP.SenderTimeout)
	assert.Equal(t, 100, cfg.RUDP.AckWindow)
	assert.True(t, cfg.KFTP.ProgressReports)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t, allEnvKeys...)

	os.Setenv("UFTP_SERVER_HOST", "127.0.0.1")
	os.Setenv("UFTP_SERVER_PORT", "9191")
	os.Setenv("UFTP_RUDP_ACK_WINDOW", "50")
	os.Setenv("UFTP_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 50, cfg.RUDP.AckWindow)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadWithOverridesTakePriorityOverEnv(t *testing.T) {
	clearEnv(t, allEnvKeys...)
	os.Setenv("UFTP_SERVER_HOST", "127.0.0.1")
	os.Setenv("UFTP_LOG_LEVEL", "debug")

	cfg, err := LoadWithOverrides(LoadOptions{
		Host:     "192.168.1.100",
		Port:     "443",
		LogLevel: "warn",
	})
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.100", cfg.Server.Host)
	assert.Equal(t, 443, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadWithOverridesInvalidPort(t *testing.T) {
	clearEnv(t, allEnvKeys...)

	_, err := LoadWithOverrides(LoadOptions{Port: "not-a-port"})
	assert.Error(t, err)
}

func TestLoadFromYAMLFile(t *testing.T) {
	clearEnv(t, allEnvKeys...)

	path := filepath.Join(t.TempDir(), "uftp.yaml")
	contents := []byte("server:\n  host: 10.0.0.5\n  port: 7000\nrudp:\n  ackWindow: 250\nlogging:\n  level: warn\n")
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	cfg, err := LoadWithOverrides(LoadOptions{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.Server.Host)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 250, cfg.RUDP.AckWindow)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFromYAMLFileViaEnvVar(t *testing.T) {
	clearEnv(t, allEnvKeys...)

	path := filepath.Join(t.TempDir(), "uftp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7001\n"), 0o644))
	os.Setenv("UFTP_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)
}

func TestEnvOverridesFileAndCLIOverridesEnv(t *testing.T) {
	clearEnv(t, allEnvKeys...)

	path := filepath.Join(t.TempDir(), "uftp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7001\n"), 0o644))
	os.Setenv("UFTP_CONFIG_FILE", path)
	os.Setenv("UFTP_SERVER_PORT", "7002")

	cfg, err := LoadWithOverrides(LoadOptions{Port: "7003"})
	require.NoError(t, err)
	assert.Equal(t, 7003, cfg.Server.Port)
}

func TestLoadMissingFileErrors(t *testing.T) {
	clearEnv(t, allEnvKeys...)

	_, err := LoadWithOverrides(LoadOptions{ConfigFile: "/nonexistent/uftp.yaml"})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 9090, Dir: "."},
			RUDP:    RUDPConfig{MessageTimeout: 200 * time.Millisecond, SenderTimeout: 5 * time.Second, AckWindow: 100, MTU: codec.MaxPayloadSize},
			KFTP:    KFTPConfig{ProgressReports: true},
			Logging: LoggingConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid configuration", func(*Config) {}, ""},
		{"invalid port range", func(c *Config) { c.Server.Port = 99999 }, "invalid server port"},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"empty server dir", func(c *Config) { c.Server.Dir = "" }, "server directory cannot be empty"},
		{"non-positive message timeout", func(c *Config) { c.RUDP.MessageTimeout = 0 }, "message timeout must be positive"},
		{"non-positive sender timeout", func(c *Config) { c.RUDP.SenderTimeout = 0 }, "sender timeout must be positive"},
		{"sender timeout below message timeout", func(c *Config) {
			c.RUDP.MessageTimeout = time.Second
			c.RUDP.SenderTimeout = 500 * time.Millisecond
		}, "sender timeout must be >= message timeout"},
		{"non-positive ack window", func(c *Config) { c.RUDP.AckWindow = 0 }, "ack window must be positive"},
		{"wrong mtu", func(c *Config) { c.RUDP.MTU = 2048 }, "rudp mtu must equal"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGetEnvWithDefault(t *testing.T) {
	key := "UFTP_TEST_CONFIG_VAR"
	clearEnv(t, key)

	assert.Equal(t, "default", getEnvWithDefault(key, "default"))

	os.Setenv(key, "test_value")
	assert.Equal(t, "test_value", getEnvWithDefault(key, "default"))
}

func TestGetIntWithDefault(t *testing.T) {
	key := "UFTP_TEST_INT_VAR"
	clearEnv(t, key)

	assert.Equal(t, 42, getIntWithDefault(key, 42))

	os.Setenv(key, "100")
	assert.Equal(t, 100, getIntWithDefault(key, 42))

	os.Setenv(key, "not-an-int")
	assert.Equal(t, 42, getIntWithDefault(key, 42))
}

func TestGetBoolWithDefault(t *testing.T) {
	key := "UFTP_TEST_BOOL_VAR"
	clearEnv(t, key)

	assert.Equal(t, false, getBoolWithDefault(key, false))

	os.Setenv(key, "true")
	assert.Equal(t, true, getBoolWithDefault(key, false))

	os.Setenv(key, "invalid")
	assert.Equal(t, false, getBoolWithDefault(key, false))
}

func TestGetDurationWithDefault(t *testing.T) {
	key := "UFTP_TEST_DURATION_VAR"
	clearEnv(t, key)

	assert.Equal(t, 30*time.Second, getDurationWithDefault(key, 30*time.Second))

	os.Setenv(key, "60s")
	assert.Equal(t, 60*time.Second, getDurationWithDefault(key, 30*time.Second))

	os.Setenv(key, "invalid")
	assert.Equal(t, 30*time.Second, getDurationWithDefault(key, 30*time.Second))
}

func TestGetOverrideOrEnv(t *testing.T) {
	key := "UFTP_TEST_OVERRIDE_VAR"
	clearEnv(t, key)

	os.Setenv(key, "env_value")
	assert.Equal(t, "override_value", getOverrideOrEnv("override_value", key, "default_value"))
	assert.Equal(t, "env_value", getOverrideOrEnv("", key, "default_value"))

	os.Unsetenv(key)
	assert.Equal(t, "default_value", getOverrideOrEnv("", key, "default_value"))
}

func TestGetGlobalConfig(t *testing.T) {
	clearEnv(t, allEnvKeys...)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Same(t, cfg, GetGlobalConfig())
}
