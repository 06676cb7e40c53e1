package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  path: /tmp/ps.db
logging:
  level: debug
  format: text
schedule:
  timezone: Europe/London
  household_a: flat-1
  household_b: flat-2
generator:
  mode: http
  url: http://localhost:5000/resolve
  timeout: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "/tmp/ps.db", cfg.Database.Path)
	assert.Equal(t, "flat-1", cfg.Schedule.HouseholdA)
	assert.Equal(t, ModeHTTP, cfg.Generator.Mode)
	assert.Equal(t, 5*time.Second, cfg.Generator.Timeout)
	assert.Equal(t, 3, cfg.Generator.Burst)
	assert.Equal(t, 15, cfg.Schedule.Step)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", loc.String())
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("POWERSHARE_SERVER_PORT", "7070")
	t.Setenv("POWERSHARE_GENERATOR_MODE", "local")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadEnvGeneratorSettings(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("POWERSHARE_GENERATOR_MODE", "http")
	t.Setenv("POWERSHARE_GENERATOR_URL", "https://generation.example.net/v1/conflicts")
	t.Setenv("POWERSHARE_GENERATOR_API_KEY", "secret-token")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ModeHTTP, cfg.Generator.Mode)
	assert.Equal(t, "https://generation.example.net/v1/conflicts", cfg.Generator.URL)
	assert.Equal(t, "secret-token", cfg.Generator.APIKey)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "http mode needs url", body: "generator:\n  mode: http\n", wantErr: "generator.url"},
		{name: "unknown mode", body: "generator:\n  mode: oracle\n", wantErr: "unknown generator mode"},
		{name: "same households", body: "schedule:\n  household_a: x\n  household_b: x\n", wantErr: "must differ"},
		{name: "bad timezone", body: "schedule:\n  timezone: Mars/Olympus\n", wantErr: "schedule.timezone"},
		{name: "bad day start", body: "schedule:\n  day_start: '6am'\n", wantErr: "schedule.day_start"},
		{name: "bad log level", body: "logging:\n  level: chatty\n", wantErr: "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(LoggingConfig{Level: "warn", Format: "json"})
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = NewLogger(LoggingConfig{Level: "nonsense", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
