package heychat

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/nextlevelbuilder/heyclaw/internal/channels"
	"github.com/nextlevelbuilder/heyclaw/internal/config"
	"github.com/nextlevelbuilder/heyclaw/internal/store"
)

var allowPrefixRe = regexp.MustCompile(`(?i)^(heychat|hc):`)

// NormalizeAllowEntry canonicalizes one allowlist entry: trims, strips an
// optional "heychat:"/"hc:" prefix, and lowercases. "*" passes through.
func NormalizeAllowEntry(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "*" {
		return trimmed
	}
	return strings.ToLower(strings.TrimSpace(allowPrefixRe.ReplaceAllString(trimmed, "")))
}

// MatchesAllowFrom reports whether any candidate id matches the allowlist.
// An empty allowlist matches nothing; "*" matches anything.
func MatchesAllowFrom(allowFrom []string, candidates ...string) bool {
	normalized := make(map[string]struct{}, len(allowFrom))
	wildcard := false
	for _, entry := range allowFrom {
		n := NormalizeAllowEntry(entry)
		if n == "" {
			continue
		}
		if n == "*" {
			wildcard = true
			continue
		}
		normalized[n] = struct{}{}
	}
	if len(normalized) == 0 && !wildcard {
		return false
	}
	if wildcard {
		return true
	}
	for _, cand := range candidates {
		n := NormalizeAllowEntry(cand)
		if n == "" {
			continue
		}
		if _, ok := normalized[n]; ok {
			return true
		}
	}
	return false
}

// GroupConfigFor finds the per-group override for a group id. Keys match
// exactly first, then case-insensitively.
func GroupConfigFor(groups map[string]config.HeychatGroupConfig, groupID string) (config.HeychatGroupConfig, bool) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" || len(groups) == 0 {
		return config.HeychatGroupConfig{}, false
	}
	if g, ok := groups[groupID]; ok {
		return g, true
	}
	lowered := strings.ToLower(groupID)
	for key, g := range groups {
		if strings.ToLower(key) == lowered {
			return g, true
		}
	}
	return config.HeychatGroupConfig{}, false
}

// IsGroupAllowed applies the group admission policy to a group id.
func IsGroupAllowed(policy channels.GroupPolicy, allowFrom []string, groupID string) bool {
	switch policy {
	case channels.GroupPolicyDisabled:
		return false
	case channels.GroupPolicyOpen:
		return true
	default:
		return MatchesAllowFrom(allowFrom, groupID)
	}
}

// pairingPromptInterval throttles how often an unpaired sender is told
// their pairing code.
const pairingPromptInterval = 60 * time.Second

// Gate evaluates inbound messages against the account's DM and group
// policies. One gate serves one resolved account.
type Gate struct {
	account config.ResolvedAccount
	pairing store.PairingStore
	agentID string

	mu         sync.Mutex
	lastPrompt map[string]time.Time
}

// NewGate creates a policy gate. pairing may be nil, in which case the
// "pairing" DM policy rejects without issuing codes.
func NewGate(account config.ResolvedAccount, pairing store.PairingStore, agentID string) *Gate {
	return &Gate{
		account:    account,
		pairing:    pairing,
		agentID:    agentID,
		lastPrompt: make(map[string]time.Time),
	}
}

// Verdict is the outcome of a policy check.
type Verdict struct {
	Allow  bool
	Reason string
	// Prompt, when set on a denial, should be sent back to the sender
	// (pairing instructions).
	Prompt string
}

// CheckGroup admits or rejects a group message: first the group itself
// against the group policy, then the sender against the per-group
// allowlist when one is configured.
func (g *Gate) CheckGroup(msg *Message) Verdict {
	cfg := g.account.Config

	if !IsGroupAllowed(channels.GroupPolicy(cfg.GroupPolicy), cfg.AllowFrom, msg.ChannelID) {
		return Verdict{Reason: fmt.Sprintf("group %s not allowed by policy %q", msg.ChannelID, cfg.GroupPolicy)}
	}

	if groupCfg, ok := GroupConfigFor(cfg.Groups, msg.ChannelID); ok && len(groupCfg.AllowFrom) > 0 {
		if !MatchesAllowFrom(groupCfg.AllowFrom, msg.UserID, msg.SenderName) {
			return Verdict{Reason: fmt.Sprintf("sender %s not in group %s allowlist", msg.UserID, msg.ChannelID)}
		}
	}

	return Verdict{Allow: true}
}

// CheckDM admits or rejects a direct message according to the DM policy.
// chatID is where a pairing prompt should be delivered.
func (g *Gate) CheckDM(msg *Message, chatID string) Verdict {
	cfg := g.account.Config

	switch channels.DMPolicy(cfg.DMPolicy) {
	case channels.DMPolicyOpen:
		return Verdict{Allow: true}

	case channels.DMPolicyDisabled:
		return Verdict{Reason: "dms disabled"}

	case channels.DMPolicyAllowlist:
		if MatchesAllowFrom(cfg.AllowFrom, msg.UserID, msg.SenderName) {
			return Verdict{Allow: true}
		}
		return Verdict{Reason: fmt.Sprintf("sender %s not in allowlist", msg.UserID)}

	default: // pairing
		if MatchesAllowFrom(cfg.AllowFrom, msg.UserID, msg.SenderName) {
			return Verdict{Allow: true}
		}
		if g.pairing == nil {
			return Verdict{Reason: "pairing store unavailable"}
		}
		if g.pairing.IsPaired(msg.UserID, "heychat") {
			return Verdict{Allow: true}
		}

		code, err := g.pairing.RequestPairing(msg.UserID, "heychat", chatID, g.agentID)
		if err != nil {
			return Verdict{Reason: fmt.Sprintf("pairing request failed: %v", err)}
		}

		v := Verdict{Reason: "sender not paired"}
		if g.shouldPrompt(msg.UserID) {
			v.Prompt = fmt.Sprintf(
				"Pairing required. Ask the bot owner to approve your code: %s", code)
		}
		return v
	}
}

// RequireMention reports whether group messages in groupID need an explicit
// bot mention. The per-group override wins; otherwise the account default.
func (g *Gate) RequireMention(groupID string) bool {
	if groupCfg, ok := GroupConfigFor(g.account.Config.Groups, groupID); ok && groupCfg.RequireMention != nil {
		return *groupCfg.RequireMention
	}
	return g.account.Config.RequireMention
}

// shouldPrompt rate-limits pairing prompts to one per sender per interval.
func (g *Gate) shouldPrompt(senderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if last, ok := g.lastPrompt[senderID]; ok && now.Sub(last) < pairingPromptInterval {
		return false
	}
	g.lastPrompt[senderID] = now
	return true
}

// mentionRe matches an @-mention token at any position.
var mentionRe = regexp.MustCompile(`@(\S+)`)

// StripMention removes a leading/embedded mention of the bot from text and
// reports whether one was present. Matching is case-insensitive on the
// bot's display name; a bare "@all"-style mention does not count.
func StripMention(text, botName string) (string, bool) {
	if botName == "" {
		return text, false
	}
	found := false
	out := mentionRe.ReplaceAllStringFunc(text, func(m string) string {
		name := strings.TrimPrefix(m, "@")
		if strings.EqualFold(name, botName) {
			found = true
			return ""
		}
		return m
	})
	if !found {
		return text, false
	}
	return strings.TrimSpace(strings.Join(strings.Fields(out), " ")), true
}
