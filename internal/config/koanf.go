package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are probed in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// envKeys maps environment variables onto koanf keys. Anything else in the
// environment is ignored.
var envKeys = map[string]string{
	"APP_ENV":              "app_env",
	"LOG_LEVEL":            "log_level",
	"HTTP_ADDR":            "http_addr",
	"HTTP_READ_TIMEOUT":    "http_read_timeout",
	"HTTP_WRITE_TIMEOUT":   "http_write_timeout",
	"DB_DRIVER":            "db_driver",
	"DB_DSN":               "db_dsn",
	"SQLITE_PATH":          "sqlite_path",
	"DB_MAX_OPEN_CONNS":    "db_max_open_conns",
	"DB_MAX_IDLE_CONNS":    "db_max_idle_conns",
	"DB_CONN_MAX_LIFETIME": "db_conn_max_lifetime",
	"DB_AUTO_MIGRATE":      "db_auto_migrate",
	"DB_LOG_SQL":           "db_log_sql",
	"CORS_ORIGINS":         "cors_origins",
	"RATE_LIMIT_REQUESTS":  "rate_limit_requests",
	"RATE_LIMIT_WINDOW":    "rate_limit_window",
	"METRICS_ENABLED":      "metrics_enabled",
	"MQTT_BROKER":          "mqtt_broker",
	"MQTT_PORT":            "mqtt_port",
	"MQTT_CLIENT_ID":       "mqtt_client_id",
	"MQTT_TOPIC":           "mqtt_topic",
}

var sliceKeys = []string{"cors_origins"}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// load layers struct defaults, an optional YAML file and the environment.
// Blank environment values fall back to the lower layers.
func load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		mapped, ok := envKeys[key]
		if !ok {
			return "", nil
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return "", nil
		}
		return mapped, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := strings.TrimSpace(os.Getenv(ConfigPathEnvVar)); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// splitSliceFields turns comma separated strings from the environment into
// string slices.
func splitSliceFields(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		s, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(key, out); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func validateConfig(cfg Config) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
