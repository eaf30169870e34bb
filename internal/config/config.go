// Package config provides hierarchical configuration loading for the
// dispatcher. Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the dispatch service.
type Config struct {
	Server       Server     `yaml:"server"`
	Registry     Registry   `yaml:"registry"`
	Mailbox      Mailbox    `yaml:"mailbox"`
	Dispatch     Dispatch   `yaml:"dispatch"`
	Agents       []Agent    `yaml:"agents"`
	DefaultAgent string     `yaml:"default_agent"`
	Logging      Logging    `yaml:"logging"`
	Breaker      Breaker    `yaml:"breaker"`
	Rate         Rate       `yaml:"rate"`
	Cache        Cache      `yaml:"cache"`
	Notifiers    []Notifier `yaml:"notifiers"`
	Telemetry    Telemetry  `yaml:"telemetry"`
}

// Server holds the status API configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Registry selects and configures the external task registry provider.
// Settings are provider-specific; the registry token itself is supplied via
// the secrets vault, never through this file.
type Registry struct {
	Provider string            `yaml:"provider"`
	Settings map[string]string `yaml:"settings"`
}

// Mailbox locates the worker mailbox tree.
type Mailbox struct {
	Base string `yaml:"base"`
}

// Dispatch tunes the orchestrator loop.
type Dispatch struct {
	Interval time.Duration `yaml:"interval"`
	// MaxIdleCycles stops continuous mode after this many consecutive cycles
	// without a dispatch; 0 runs until interrupted.
	MaxIdleCycles      int      `yaml:"max_idle_cycles"`
	SelectLimit        int      `yaml:"select_limit"`
	ActionableStatuses []string `yaml:"actionable_statuses"`
	// DispatchedStatus is written back to the registry after a handoff lands.
	DispatchedStatus string `yaml:"dispatched_status"`
	Instructions     string `yaml:"instructions"`
	ArchiveAfter     bool   `yaml:"archive_after"`
}

// Agent declares one statically configured worker.
type Agent struct {
	Name     string   `yaml:"name"`
	ID       string   `yaml:"id"`
	Mode     string   `yaml:"mode"`
	Keywords []string `yaml:"keywords"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level      string `yaml:"level"`
	Service    string `yaml:"service"`
	Async      bool   `yaml:"async"`
	BufferSize int    `yaml:"buffer_size"`
	Workers    int    `yaml:"workers"`
}

// Breaker holds circuit breaker configuration for registry calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds rate limiter configuration for the status API.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// Cache tunes the selector's read-through task cache.
type Cache struct {
	Enabled   bool          `yaml:"enabled"`
	MaxSizeMB int64         `yaml:"max_size_mb"`
	TTL       time.Duration `yaml:"ttl"`
}

// Notifier configures one outbound notification channel.
type Notifier struct {
	Type     string            `yaml:"type"`
	Settings map[string]string `yaml:"settings"`
	// Events filters which dispatch events reach this channel; empty means all.
	Events []string `yaml:"events"`
}

// Telemetry holds OpenTelemetry export configuration.
type Telemetry struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
	Insecure    bool    `yaml:"insecure"`
}

// Defaults returns a Config with sensible default values for local use.
// Agents have no default; every deployment declares its own workers.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Registry: Registry{
			Provider: "notion",
			Settings: map[string]string{},
		},
		Mailbox: Mailbox{
			Base: "./mailboxes",
		},
		Dispatch: Dispatch{
			Interval:           30 * time.Second,
			MaxIdleCycles:      0,
			SelectLimit:        10,
			ActionableStatuses: []string{"To Do", "Ready"},
			DispatchedStatus:   "In Progress",
			Instructions:       "Process the attached task and mark the handoff file when finished.",
			ArchiveAfter:       false,
		},
		Logging: Logging{
			Level:      "info",
			Service:    "dispatchd",
			Async:      false,
			BufferSize: 1024,
			Workers:    2,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 10,
			Burst:             100,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		Cache: Cache{
			Enabled:   true,
			MaxSizeMB: 64,
			TTL:       30 * time.Second,
		},
		Telemetry: Telemetry{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "dispatchd",
			SampleRatio: 1.0,
			Insecure:    true,
		},
	}
}
