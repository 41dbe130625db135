// Package config loads console settings from .env, an optional YAML file and the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// MediLink API
	APIBaseURL  string
	APITimeout  time.Duration
	CallTimeout time.Duration

	// Session behaviour
	ToastTTL      time.Duration
	SettleDelay   time.Duration
	PacingScale   float64
	DemoPatientID string

	// Headless server
	ServeAddr string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig mirrors Config for YAML files. Durations are strings ("15s", "3000ms").
type fileConfig struct {
	API struct {
		URL         string `yaml:"url"`
		Timeout     string `yaml:"timeout"`
		CallTimeout string `yaml:"call_timeout"`
	} `yaml:"api"`
	Session struct {
		ToastTTL      string   `yaml:"toast_ttl"`
		SettleDelay   string   `yaml:"settle_delay"`
		PacingScale   *float64 `yaml:"pacing_scale"`
		DemoPatientID string   `yaml:"demo_patient_id"`
	} `yaml:"session"`
	Serve struct {
		Addr string `yaml:"addr"`
	} `yaml:"serve"`
	Log struct {
		File  string `yaml:"file"`
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		APIBaseURL:    "http://localhost:8000",
		APITimeout:    30 * time.Second,
		CallTimeout:   15 * time.Second,
		ToastTTL:      3000 * time.Millisecond,
		SettleDelay:   time.Second,
		PacingScale:   1,
		DemoPatientID: "5",
		ServeAddr:     "127.0.0.1:8585",
		LogFile:       "/tmp/medilink.log",
		LogLevel:      slog.LevelInfo,
	}
}

// Load reads configuration in increasing priority: defaults, .env, the YAML file
// named by MEDILINK_CONFIG, then environment variables.
func Load() (Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("MEDILINK_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.APIBaseURL = strings.TrimRight(getEnv("MEDILINK_API_URL", cfg.APIBaseURL), "/")
	cfg.APITimeout = getDuration("MEDILINK_API_TIMEOUT", cfg.APITimeout)
	cfg.CallTimeout = getDuration("MEDILINK_CALL_TIMEOUT", cfg.CallTimeout)
	cfg.ToastTTL = getDuration("MEDILINK_TOAST_TTL", cfg.ToastTTL)
	cfg.SettleDelay = getDuration("MEDILINK_SETTLE_DELAY", cfg.SettleDelay)
	cfg.PacingScale = getFloat("MEDILINK_PACING_SCALE", cfg.PacingScale)
	cfg.DemoPatientID = getEnv("MEDILINK_DEMO_PATIENT", cfg.DemoPatientID)
	cfg.ServeAddr = getEnv("MEDILINK_SERVE_ADDR", cfg.ServeAddr)
	cfg.LogFile = getEnv("MEDILINK_LOG_FILE", cfg.LogFile)
	if lvl := os.Getenv("MEDILINK_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = parseLogLevel(lvl)
	}

	if cfg.PacingScale < 0 {
		return Config{}, fmt.Errorf("pacing scale must not be negative: %v", cfg.PacingScale)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.API.URL != "" {
		c.APIBaseURL = fc.API.URL
	}
	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{fc.API.Timeout, &c.APITimeout},
		{fc.API.CallTimeout, &c.CallTimeout},
		{fc.Session.ToastTTL, &c.ToastTTL},
		{fc.Session.SettleDelay, &c.SettleDelay},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		*d.dst = parsed
	}
	if fc.Session.PacingScale != nil {
		c.PacingScale = *fc.Session.PacingScale
	}
	if fc.Session.DemoPatientID != "" {
		c.DemoPatientID = fc.Session.DemoPatientID
	}
	if fc.Serve.Addr != "" {
		c.ServeAddr = fc.Serve.Addr
	}
	if fc.Log.File != "" {
		c.LogFile = fc.Log.File
	}
	if fc.Log.Level != "" {
		c.LogLevel = parseLogLevel(fc.Log.Level)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	// Bare numbers are milliseconds.
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	slog.Warn("ignoring invalid duration", "key", key, "value", val)
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		slog.Warn("ignoring invalid number", "key", key, "value", val)
		return defaultVal
	}
	return f
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
