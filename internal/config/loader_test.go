package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validConfig returns defaults plus the one worker validate requires.
func validConfig() Config {
	cfg := Defaults()
	cfg.Agents = []Agent{{Name: "Media Processing Agent", ID: "agent-media-001"}}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Registry.Provider != "notion" {
		t.Errorf("expected provider notion, got %s", cfg.Registry.Provider)
	}
	if cfg.Dispatch.Interval != 30*time.Second {
		t.Errorf("expected interval 30s, got %v", cfg.Dispatch.Interval)
	}
	if cfg.Dispatch.SelectLimit != 10 {
		t.Errorf("expected select_limit 10, got %d", cfg.Dispatch.SelectLimit)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if len(cfg.Agents) != 0 {
		t.Errorf("expected no default agents, got %d", len(cfg.Agents))
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
registry:
  settings:
    database_id: "db-123"
dispatch:
  interval: 2m
  select_limit: 5
agents:
  - name: "Research Agent"
    id: "agent-research"
    keywords: ["research", "analysis"]
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Registry.Settings["database_id"] != "db-123" {
		t.Errorf("expected database_id db-123, got %s", cfg.Registry.Settings["database_id"])
	}
	if cfg.Dispatch.Interval != 2*time.Minute {
		t.Errorf("expected interval 2m, got %v", cfg.Dispatch.Interval)
	}
	if cfg.Dispatch.SelectLimit != 5 {
		t.Errorf("expected select_limit 5, got %d", cfg.Dispatch.SelectLimit)
	}
	if len(cfg.Agents) != 1 || cfg.Agents[0].Name != "Research Agent" {
		t.Fatalf("expected one agent 'Research Agent', got %+v", cfg.Agents)
	}
	if len(cfg.Agents[0].Keywords) != 2 {
		t.Errorf("expected 2 keywords, got %v", cfg.Agents[0].Keywords)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.Dispatch.DispatchedStatus != "In Progress" {
		t.Errorf("expected default dispatched status, got %s", cfg.Dispatch.DispatchedStatus)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("DISPATCHD_PORT", "7070")
	t.Setenv("DISPATCHD_REGISTRY_DATABASE_ID", "db-from-env")
	t.Setenv("DISPATCHD_MAILBOX_BASE", "/var/lib/dispatchd/mailboxes")
	t.Setenv("DISPATCHD_INTERVAL", "45s")
	t.Setenv("DISPATCHD_MAX_IDLE_CYCLES", "12")
	t.Setenv("DISPATCHD_LOG_LEVEL", "warn")
	t.Setenv("DISPATCHD_BREAKER_TIMEOUT", "1m")
	t.Setenv("DISPATCHD_CACHE_ENABLED", "false")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Registry.Settings["database_id"] != "db-from-env" {
		t.Errorf("expected database_id db-from-env, got %s", cfg.Registry.Settings["database_id"])
	}
	if cfg.Mailbox.Base != "/var/lib/dispatchd/mailboxes" {
		t.Errorf("expected env mailbox base, got %s", cfg.Mailbox.Base)
	}
	if cfg.Dispatch.Interval != 45*time.Second {
		t.Errorf("expected interval 45s, got %v", cfg.Dispatch.Interval)
	}
	if cfg.Dispatch.MaxIdleCycles != 12 {
		t.Errorf("expected max_idle_cycles 12, got %d", cfg.Dispatch.MaxIdleCycles)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Cache.Enabled {
		t.Error("expected cache disabled via env")
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")
	content := `
server:
  port: "9090"
agents:
  - name: "Research Agent"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DISPATCHD_PORT", "7070")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected ENV port 7070 to override YAML 9090, got %s", cfg.Server.Port)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "empty provider",
			modify: func(c *Config) { c.Registry.Provider = "" },
			errMsg: "registry.provider is required",
		},
		{
			name:   "empty mailbox base",
			modify: func(c *Config) { c.Mailbox.Base = "" },
			errMsg: "mailbox.base is required",
		},
		{
			name:   "sub-second interval",
			modify: func(c *Config) { c.Dispatch.Interval = 500 * time.Millisecond },
			errMsg: "dispatch.interval must be >= 1s",
		},
		{
			name:   "zero select limit",
			modify: func(c *Config) { c.Dispatch.SelectLimit = 0 },
			errMsg: "dispatch.select_limit must be >= 1",
		},
		{
			name:   "negative idle cycles",
			modify: func(c *Config) { c.Dispatch.MaxIdleCycles = -1 },
			errMsg: "dispatch.max_idle_cycles must be >= 0",
		},
		{
			name:   "no agents",
			modify: func(c *Config) { c.Agents = nil },
			errMsg: "at least one agent must be configured",
		},
		{
			name:   "agent missing name",
			modify: func(c *Config) { c.Agents[0].Name = "" },
			errMsg: "agents[0].name is required",
		},
		{
			name:   "bad agent mode",
			modify: func(c *Config) { c.Agents[0].Mode = "backup" },
			errMsg: `agents[0].mode "backup" must be primary or alternate`,
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
		{
			name:   "zero rate burst",
			modify: func(c *Config) { c.Rate.Burst = 0 },
			errMsg: "rate.burst must be >= 1",
		},
		{
			name:   "notifier missing type",
			modify: func(c *Config) { c.Notifiers = []Notifier{{}} },
			errMsg: "notifiers[0].type is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateWithAgent(t *testing.T) {
	cfg := validConfig()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults plus one agent should validate, got %v", err)
	}
}

func TestValidateDefaultsNeedAgents(t *testing.T) {
	cfg := Defaults()
	err := validate(&cfg)
	if err == nil {
		t.Fatal("expected error for config without agents, got nil")
	}
	if err.Error() != "at least one agent must be configured" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateAgentModes(t *testing.T) {
	for _, mode := range []string{"", "primary", "alternate"} {
		cfg := validConfig()
		cfg.Agents[0].Mode = mode
		if err := validate(&cfg); err != nil {
			t.Errorf("mode %q should be accepted, got %v", mode, err)
		}
	}
}
