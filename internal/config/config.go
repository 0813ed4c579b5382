package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Config struct {
	AppEnv       string     `koanf:"app_env"`
	LogLevelName string     `koanf:"log_level"`
	LogLevel     slog.Level `koanf:"-"`

	HTTPAddr         string        `koanf:"http_addr" validate:"required"`
	HTTPReadTimeout  time.Duration `koanf:"http_read_timeout" validate:"gte=0s"`
	HTTPWriteTimeout time.Duration `koanf:"http_write_timeout" validate:"gte=0s"`

	Driver          string        `koanf:"db_driver" validate:"oneof=sqlite3 sqlite"`
	DSN             string        `koanf:"db_dsn"`
	Path            string        `koanf:"sqlite_path" validate:"required_without=DSN"`
	MaxOpenConns    int           `koanf:"db_max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `koanf:"db_max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"db_conn_max_lifetime" validate:"gte=0s"`
	AutoMigrate     bool          `koanf:"db_auto_migrate"`
	LogSQL          bool          `koanf:"db_log_sql"`

	// CORSOrigins lists allowed browser origins. Empty disables CORS headers.
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0s"`
	MetricsEnabled    bool          `koanf:"metrics_enabled"`

	// MQTTBroker enables dataset announcements when set.
	MQTTBroker   string `koanf:"mqtt_broker"`
	MQTTPort     int    `koanf:"mqtt_port" validate:"gte=1,lte=65535"`
	MQTTClientID string `koanf:"mqtt_client_id" validate:"required"`
	MQTTTopic    string `koanf:"mqtt_topic" validate:"required"`
}

func defaultConfig() Config {
	return Config{
		AppEnv:            "dev",
		LogLevelName:      "info",
		HTTPAddr:          ":8080",
		HTTPReadTimeout:   15 * time.Second,
		HTTPWriteTimeout:  30 * time.Second,
		Driver:            "sqlite3",
		Path:              "Resources/hawaii.sqlite",
		MaxOpenConns:      4,
		MaxIdleConns:      4,
		ConnMaxLifetime:   0,
		RateLimitRequests: 0,
		RateLimitWindow:   time.Minute,
		MetricsEnabled:    true,
		MQTTPort:          1883,
		MQTTClientID:      "climate-server",
		MQTTTopic:         "climate",
	}
}

// MQTTEnabled reports whether a broker has been configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

func LoadFromEnv() (Config, error) {
	cfg, err := load()
	if err != nil {
		return Config{}, err
	}

	cfg.AppEnv = strings.TrimSpace(cfg.AppEnv)
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	level, err := parseLogLevel(cfg.LogLevelName)
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
