package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/awaistahir/powershare/internal/engine"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Generator modes
const (
	ModeLocal = "local"
	ModeHTTP  = "http"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Generator GeneratorConfig `mapstructure:"generator"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScheduleConfig names the two households and the building's local time zone
type ScheduleConfig struct {
	Timezone   string `mapstructure:"timezone"`
	HouseholdA string `mapstructure:"household_a"`
	HouseholdB string `mapstructure:"household_b"`
	DayStart   string `mapstructure:"day_start"`
	DayEnd     string `mapstructure:"day_end"`
	Step       int    `mapstructure:"step_minutes"`
}

type GeneratorConfig struct {
	Mode      string        `mapstructure:"mode"`
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

// Load reads configuration from an optional file and POWERSHARE_* environment
// variables. An empty path searches $HOME/.powershare and the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.powershare")
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("powershare")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	home, _ := os.UserHomeDir()
	v.SetDefault("database.path", home+"/.powershare/powershare.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("schedule.timezone", "Local")
	v.SetDefault("schedule.household_a", "household-a")
	v.SetDefault("schedule.household_b", "household-b")
	v.SetDefault("schedule.day_start", "00:00")
	v.SetDefault("schedule.day_end", "23:59")
	v.SetDefault("schedule.step_minutes", 15)

	v.SetDefault("generator.mode", ModeLocal)
	v.SetDefault("generator.url", "")
	v.SetDefault("generator.api_key", "")
	v.SetDefault("generator.timeout", 30*time.Second)
	v.SetDefault("generator.rate_limit", 1.0)
	v.SetDefault("generator.burst", 3)
}

// Validate checks values viper cannot check by type alone
func (c *Config) Validate() error {
	switch c.Generator.Mode {
	case ModeLocal:
	case ModeHTTP:
		if c.Generator.URL == "" {
			return fmt.Errorf("generator.url is required in %s mode", ModeHTTP)
		}
	default:
		return fmt.Errorf("unknown generator mode: %q", c.Generator.Mode)
	}

	if c.Schedule.HouseholdA == "" || c.Schedule.HouseholdB == "" {
		return fmt.Errorf("schedule.household_a and schedule.household_b are required")
	}
	if c.Schedule.HouseholdA == c.Schedule.HouseholdB {
		return fmt.Errorf("schedule households must differ")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := engine.ParseClock(c.Schedule.DayStart); err != nil {
		return fmt.Errorf("schedule.day_start: %w", err)
	}
	if _, err := engine.ParseClock(c.Schedule.DayEnd); err != nil {
		return fmt.Errorf("schedule.day_end: %w", err)
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// Location resolves the configured time zone used for the "today" policy
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone: %w", err)
	}
	return loc, nil
}

// WindowOptions converts the schedule section into search options
func (c *Config) WindowOptions() engine.WindowOptions {
	return engine.WindowOptions{
		DayStart:    c.Schedule.DayStart,
		DayEnd:      c.Schedule.DayEnd,
		StepMinutes: c.Schedule.Step,
	}
}

// NewLogger builds the process logger from the logging section
func NewLogger(cfg LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
