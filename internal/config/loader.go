package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "dispatchd.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "DISPATCHD_PORT")
	setString(&cfg.Server.CORSOrigin, "DISPATCHD_CORS_ORIGIN")

	setString(&cfg.Registry.Provider, "DISPATCHD_REGISTRY_PROVIDER")
	if cfg.Registry.Settings == nil {
		cfg.Registry.Settings = map[string]string{}
	}
	setMapKey(cfg.Registry.Settings, "base_url", "DISPATCHD_REGISTRY_BASE_URL")
	setMapKey(cfg.Registry.Settings, "database_id", "DISPATCHD_REGISTRY_DATABASE_ID")
	setMapKey(cfg.Registry.Settings, "status_type", "DISPATCHD_REGISTRY_STATUS_TYPE")

	setString(&cfg.Mailbox.Base, "DISPATCHD_MAILBOX_BASE")

	setDuration(&cfg.Dispatch.Interval, "DISPATCHD_INTERVAL")
	setInt(&cfg.Dispatch.MaxIdleCycles, "DISPATCHD_MAX_IDLE_CYCLES")
	setInt(&cfg.Dispatch.SelectLimit, "DISPATCHD_SELECT_LIMIT")
	setString(&cfg.Dispatch.DispatchedStatus, "DISPATCHD_DISPATCHED_STATUS")
	setString(&cfg.Dispatch.Instructions, "DISPATCHD_INSTRUCTIONS")
	setBool(&cfg.Dispatch.ArchiveAfter, "DISPATCHD_ARCHIVE_AFTER")
	setString(&cfg.DefaultAgent, "DISPATCHD_DEFAULT_AGENT")

	setString(&cfg.Logging.Level, "DISPATCHD_LOG_LEVEL")
	setString(&cfg.Logging.Service, "DISPATCHD_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "DISPATCHD_LOG_ASYNC")
	setInt(&cfg.Logging.BufferSize, "DISPATCHD_LOG_BUFFER")
	setInt(&cfg.Logging.Workers, "DISPATCHD_LOG_WORKERS")

	setInt(&cfg.Breaker.MaxFailures, "DISPATCHD_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "DISPATCHD_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "DISPATCHD_RATE_RPS")
	setInt(&cfg.Rate.Burst, "DISPATCHD_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "DISPATCHD_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "DISPATCHD_RATE_MAX_IDLE_TIME")

	setBool(&cfg.Cache.Enabled, "DISPATCHD_CACHE_ENABLED")
	setInt64(&cfg.Cache.MaxSizeMB, "DISPATCHD_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "DISPATCHD_CACHE_TTL")

	setBool(&cfg.Telemetry.Enabled, "DISPATCHD_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "DISPATCHD_OTEL_ENDPOINT")
	setString(&cfg.Telemetry.ServiceName, "DISPATCHD_OTEL_SERVICE")
	setFloat64(&cfg.Telemetry.SampleRatio, "DISPATCHD_OTEL_SAMPLE_RATIO")
	setBool(&cfg.Telemetry.Insecure, "DISPATCHD_OTEL_INSECURE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Registry.Provider == "" {
		return errors.New("registry.provider is required")
	}
	if cfg.Mailbox.Base == "" {
		return errors.New("mailbox.base is required")
	}
	if cfg.Dispatch.Interval < time.Second {
		return errors.New("dispatch.interval must be >= 1s")
	}
	if cfg.Dispatch.SelectLimit < 1 {
		return errors.New("dispatch.select_limit must be >= 1")
	}
	if cfg.Dispatch.MaxIdleCycles < 0 {
		return errors.New("dispatch.max_idle_cycles must be >= 0")
	}
	if len(cfg.Agents) == 0 {
		return errors.New("at least one agent must be configured")
	}
	for i, a := range cfg.Agents {
		if a.Name == "" {
			return fmt.Errorf("agents[%d].name is required", i)
		}
		switch a.Mode {
		case "", "primary", "alternate":
		default:
			return fmt.Errorf("agents[%d].mode %q must be primary or alternate", i, a.Mode)
		}
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Logging.Async {
		if cfg.Logging.BufferSize < 1 {
			return errors.New("logging.buffer_size must be >= 1 when async")
		}
		if cfg.Logging.Workers < 1 {
			return errors.New("logging.workers must be >= 1 when async")
		}
	}
	if cfg.Cache.Enabled && cfg.Cache.MaxSizeMB < 1 {
		return errors.New("cache.max_size_mb must be >= 1 when enabled")
	}
	for i, n := range cfg.Notifiers {
		if n.Type == "" {
			return fmt.Errorf("notifiers[%d].type is required", i)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setMapKey(dst map[string]string, mapKey, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		dst[mapKey] = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
