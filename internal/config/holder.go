package config

import "sync"

// Holder hands out the current Config to concurrent readers and supports
// reloading it from the original YAML path at runtime, typically on SIGHUP.
// A reload that fails to load or validate leaves the previous config in place.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewHolder wraps an already-loaded config together with the path it
// was loaded from.
func NewHolder(cfg *Config, path string) *Holder {
	return &Holder{cfg: cfg, path: path}
}

// Get returns the current config. Callers must not mutate it.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Reload re-runs the full load pipeline (defaults, YAML, environment,
// validation) and swaps in the result.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.path)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
	return nil
}
