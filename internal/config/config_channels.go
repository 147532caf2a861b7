package config

// ChannelsConfig contains per-channel configuration.
type ChannelsConfig struct {
	Heychat HeychatConfig `json:"heychat"`
}

// HeychatConfig configures the Heychat (黑盒语音) channel.
// Top-level fields act as the default account; entries under Accounts
// override them per bot account.
type HeychatConfig struct {
	Enabled        *bool                           `json:"enabled,omitempty"`         // default true when configured
	Token          string                          `json:"token,omitempty"`           // bot token (env HEYCHAT_APP_TOKEN takes precedence)
	TokenFile      string                          `json:"token_file,omitempty"`      // file containing the token
	Name           string                          `json:"name,omitempty"`            // display name
	AllowFrom      FlexibleStringSlice             `json:"allow_from,omitempty"`      // sender/group allowlist, "*" = any
	DMPolicy       string                          `json:"dm_policy,omitempty"`       // "pairing" (default), "open", "allowlist", "disabled"
	GroupPolicy    string                          `json:"group_policy,omitempty"`    // "open" (default), "allowlist", "disabled"
	RequireMention *bool                           `json:"require_mention,omitempty"` // require @bot in groups (default true)
	ReactionLevel  string                          `json:"reaction_level,omitempty"`  // "off" (default), "minimal" processing-indicator reactions
	Groups         map[string]HeychatGroupConfig   `json:"groups,omitempty"`          // per-group overrides keyed by channel id
	Accounts       map[string]HeychatAccountConfig `json:"accounts,omitempty"`        // named bot accounts
}

// HeychatGroupConfig restricts behavior inside one admitted group.
type HeychatGroupConfig struct {
	AllowFrom      FlexibleStringSlice `json:"allow_from,omitempty"`      // per-group sender allowlist
	RequireMention *bool               `json:"require_mention,omitempty"` // default true
}

// HeychatAccountConfig overrides the top-level Heychat config for one account.
type HeychatAccountConfig struct {
	Enabled        *bool                         `json:"enabled,omitempty"`
	Token          string                        `json:"token,omitempty"`
	TokenFile      string                        `json:"token_file,omitempty"`
	Name           string                        `json:"name,omitempty"`
	AllowFrom      FlexibleStringSlice           `json:"allow_from,omitempty"`
	DMPolicy       string                        `json:"dm_policy,omitempty"`
	GroupPolicy    string                        `json:"group_policy,omitempty"`
	RequireMention *bool                         `json:"require_mention,omitempty"`
	ReactionLevel  string                        `json:"reaction_level,omitempty"`
	Groups         map[string]HeychatGroupConfig `json:"groups,omitempty"`
}
