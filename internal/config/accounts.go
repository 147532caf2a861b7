package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// DefaultAccountID is the implicit account when no accounts map is configured.
const DefaultAccountID = "default"

// TokenSource records where a resolved token came from.
type TokenSource string

const (
	TokenSourceEnv    TokenSource = "env"
	TokenSourceConfig TokenSource = "config"
	TokenSourceFile   TokenSource = "file"
	TokenSourceNone   TokenSource = "none"
)

// ResolvedAccount is the merged, ready-to-run view of one Heychat bot account.
type ResolvedAccount struct {
	AccountID   string
	Enabled     bool
	Configured  bool
	Name        string
	Token       string
	TokenSource TokenSource
	Config      ResolvedAccountConfig
}

// ResolvedAccountConfig carries the merged policy knobs for one account.
type ResolvedAccountConfig struct {
	DMPolicy       string
	GroupPolicy    string
	AllowFrom      []string
	Groups         map[string]HeychatGroupConfig
	RequireMention bool
	ReactionLevel  string
}

// NormalizeAccountID maps empty/blank ids to the default account.
func NormalizeAccountID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultAccountID
	}
	return id
}

// ListHeychatAccountIDs returns all configured account ids, sorted.
// When no accounts map is configured the default account is returned, so a
// plain top-level config keeps working.
func (c *Config) ListHeychatAccountIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	accounts := c.Channels.Heychat.Accounts
	if len(accounts) == 0 {
		return []string{DefaultAccountID}
	}
	ids := make([]string, 0, len(accounts))
	for id := range accounts {
		if id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ResolveHeychatAccount merges the top-level Heychat config with the named
// account's overrides and resolves the token.
// Enabled requires both the top-level and the account-level flag (nil = true).
func (c *Config) ResolveHeychatAccount(accountID string) ResolvedAccount {
	c.mu.RLock()
	defer c.mu.RUnlock()

	accountID = NormalizeAccountID(accountID)
	base := c.Channels.Heychat

	merged := HeychatAccountConfig{
		Token:          base.Token,
		TokenFile:      base.TokenFile,
		Name:           base.Name,
		AllowFrom:      base.AllowFrom,
		DMPolicy:       base.DMPolicy,
		GroupPolicy:    base.GroupPolicy,
		RequireMention: base.RequireMention,
		ReactionLevel:  base.ReactionLevel,
		Groups:         base.Groups,
	}
	baseEnabled := base.Enabled == nil || *base.Enabled
	accountEnabled := true

	if account, ok := base.Accounts[accountID]; ok {
		accountEnabled = account.Enabled == nil || *account.Enabled
		if account.Token != "" {
			merged.Token = account.Token
		}
		if account.TokenFile != "" {
			merged.TokenFile = account.TokenFile
		}
		if account.Name != "" {
			merged.Name = account.Name
		}
		if account.AllowFrom != nil {
			merged.AllowFrom = account.AllowFrom
		}
		if account.DMPolicy != "" {
			merged.DMPolicy = account.DMPolicy
		}
		if account.GroupPolicy != "" {
			merged.GroupPolicy = account.GroupPolicy
		}
		if account.RequireMention != nil {
			merged.RequireMention = account.RequireMention
		}
		if account.ReactionLevel != "" {
			merged.ReactionLevel = account.ReactionLevel
		}
		if account.Groups != nil {
			merged.Groups = account.Groups
		}
	}

	token, source := resolveHeychatToken(merged.Token, merged.TokenFile)

	name := strings.TrimSpace(merged.Name)
	if name == "" {
		name = fmt.Sprintf("heychat:%s", accountID)
	}

	dmPolicy := merged.DMPolicy
	if dmPolicy == "" {
		dmPolicy = "pairing"
	}
	groupPolicy := merged.GroupPolicy
	if groupPolicy == "" {
		groupPolicy = "open"
	}
	requireMention := merged.RequireMention == nil || *merged.RequireMention

	return ResolvedAccount{
		AccountID:   accountID,
		Enabled:     baseEnabled && accountEnabled,
		Configured:  token != "",
		Name:        name,
		Token:       token,
		TokenSource: source,
		Config: ResolvedAccountConfig{
			DMPolicy:       dmPolicy,
			GroupPolicy:    groupPolicy,
			AllowFrom:      merged.AllowFrom,
			Groups:         merged.Groups,
			RequireMention: requireMention,
			ReactionLevel:  merged.ReactionLevel,
		},
	}
}

// ListEnabledHeychatAccounts returns resolved accounts that are both enabled
// and configured with a token.
func (c *Config) ListEnabledHeychatAccounts() []ResolvedAccount {
	var out []ResolvedAccount
	for _, id := range c.ListHeychatAccountIDs() {
		account := c.ResolveHeychatAccount(id)
		if account.Enabled && account.Configured {
			out = append(out, account)
		}
	}
	return out
}

// resolveHeychatToken resolves the bot token.
// Priority: env HEYCHAT_APP_TOKEN > config token > token file contents.
func resolveHeychatToken(configToken, tokenFile string) (string, TokenSource) {
	if env := strings.TrimSpace(os.Getenv("HEYCHAT_APP_TOKEN")); env != "" {
		return env, TokenSourceEnv
	}
	if t := strings.TrimSpace(configToken); t != "" {
		return t, TokenSourceConfig
	}
	if f := strings.TrimSpace(tokenFile); f != "" {
		data, err := os.ReadFile(ExpandHome(f))
		if err == nil {
			if t := strings.TrimSpace(string(data)); t != "" {
				return t, TokenSourceFile
			}
		}
		return "", TokenSourceFile
	}
	return "", TokenSourceNone
}
