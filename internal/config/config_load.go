package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Endpoint:   "http://127.0.0.1:18790/v1/reply",
			TimeoutSec: 120,
			DefaultID:  "default",
		},
		Store: StoreConfig{
			Path: "~/.heyclaw/heyclaw.db",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error — defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	// HEYCHAT_APP_TOKEN is read at account resolution time so it also
	// reaches named accounts; setting it here keeps single-account setups
	// working without a config file.
	envStr("HEYCHAT_APP_TOKEN", &c.Channels.Heychat.Token)
	envStr("HEYCLAW_AGENT_ENDPOINT", &c.Agent.Endpoint)
	envStr("HEYCLAW_AGENT_TOKEN", &c.Agent.Token)
	envStr("HEYCLAW_AGENT_ID", &c.Agent.DefaultID)
	envStr("HEYCLAW_STORE_PATH", &c.Store.Path)

	if v := os.Getenv("HEYCLAW_AGENT_TIMEOUT_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			c.Agent.TimeoutSec = sec
		}
	}

	// Auto-enable the channel if a token arrived via env.
	if c.Channels.Heychat.Token != "" && c.Channels.Heychat.Enabled == nil {
		enabled := true
		c.Channels.Heychat.Enabled = &enabled
	}
}

// Save writes the config to a JSON file.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Hash returns a SHA-256 hash of the config for change detection on reload.
func (c *Config) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, _ := json.Marshal(c)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

const secretMask = "***"

// MaskedCopy returns a deep copy of the config with all secret fields masked.
func (c *Config) MaskedCopy() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := json.Marshal(c)
	if err != nil {
		return &Config{}
	}
	cp := Default()
	if err := json.Unmarshal(data, cp); err != nil {
		return &Config{}
	}

	maskNonEmpty(&cp.Channels.Heychat.Token)
	maskNonEmpty(&cp.Agent.Token)
	for id, account := range cp.Channels.Heychat.Accounts {
		maskNonEmpty(&account.Token)
		cp.Channels.Heychat.Accounts[id] = account
	}

	return cp
}

func maskNonEmpty(s *string) {
	if *s != "" {
		*s = secretMask
	}
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
