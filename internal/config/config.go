package config

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for the Heyclaw gateway.
type Config struct {
	Channels ChannelsConfig `json:"channels"`
	Agent    AgentConfig    `json:"agent"`
	Store    StoreConfig    `json:"store,omitempty"`
	Bindings []AgentBinding `json:"bindings,omitempty"`
	mu       sync.RWMutex
}

// AgentConfig points at the agent runtime that answers inbound messages.
// The bridge posts normalized inbound contexts to Endpoint and relays the reply.
type AgentConfig struct {
	Endpoint   string `json:"endpoint"`              // agent bridge URL (e.g. "http://127.0.0.1:18790/v1/reply")
	Token      string `json:"token,omitempty"`       // bearer token for the bridge
	TimeoutSec int    `json:"timeout_sec,omitempty"` // per-dispatch timeout in seconds (default 120)
	DefaultID  string `json:"default_id,omitempty"`  // default agent id (default "default")
}

// StoreConfig configures local persistence (pairing approvals).
type StoreConfig struct {
	Path string `json:"path,omitempty"` // sqlite file (default "~/.heyclaw/heyclaw.db")
}

// AgentBinding maps a channel/peer pattern to a specific agent.
type AgentBinding struct {
	AgentID string       `json:"agentId"`
	Match   BindingMatch `json:"match"`
}

// BindingMatch specifies what messages this binding applies to.
type BindingMatch struct {
	Channel   string       `json:"channel"`             // "heychat"
	AccountID string       `json:"accountId,omitempty"` // bot account ID
	Peer      *BindingPeer `json:"peer,omitempty"`      // specific DM/group
}

// BindingPeer specifies a specific chat target.
type BindingPeer struct {
	Kind string `json:"kind"` // "direct" or "group"
	ID   string `json:"id"`
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Channels = src.Channels
	c.Agent = src.Agent
	c.Store = src.Store
	c.Bindings = src.Bindings
}

// DefaultAgentID returns the configured default agent id, or "default".
func (c *Config) DefaultAgentID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Agent.DefaultID != "" {
		return c.Agent.DefaultID
	}
	return "default"
}

// AgentTimeout returns the per-dispatch timeout (default 120s).
func (c *Config) AgentTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Agent.TimeoutSec > 0 {
		return time.Duration(c.Agent.TimeoutSec) * time.Second
	}
	return 120 * time.Second
}

// ResolveAgentRoute determines which agent should handle a message based on
// config bindings. Priority: peer match → channel match → default.
func (c *Config) ResolveAgentRoute(channel, accountID, peerKind, peerID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, binding := range c.Bindings {
		match := binding.Match
		if match.Channel != channel {
			continue
		}
		if match.AccountID != "" && match.AccountID != accountID {
			continue
		}
		if match.Peer != nil {
			if match.Peer.Kind == peerKind && match.Peer.ID == peerID {
				return binding.AgentID
			}
			continue // has peer constraint but doesn't match — skip
		}
		return binding.AgentID
	}

	if c.Agent.DefaultID != "" {
		return c.Agent.DefaultID
	}
	return "default"
}
