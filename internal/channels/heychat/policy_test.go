package heychat

import (
	"testing"
	"time"

	"github.com/nextlevelbuilder/heyclaw/internal/channels"
	"github.com/nextlevelbuilder/heyclaw/internal/config"
	"github.com/nextlevelbuilder/heyclaw/internal/store"
)

func TestNormalizeAllowEntry(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"HC:200", "200"},
		{"heychat:Alice", "alice"},
		{"HeYcHaT:42", "42"},
		{"  u1  ", "u1"},
		{"*", "*"},
		{"", ""},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := NormalizeAllowEntry(tt.in); got != tt.want {
			t.Errorf("NormalizeAllowEntry(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchesAllowFrom(t *testing.T) {
	if MatchesAllowFrom(nil, "u1") {
		t.Error("empty allowlist should match nothing")
	}
	if !MatchesAllowFrom([]string{"*"}, "anyone") {
		t.Error("wildcard should match")
	}
	if !MatchesAllowFrom([]string{"hc:U1"}, "u1") {
		t.Error("prefixed entry should match case-insensitively")
	}
	if MatchesAllowFrom([]string{"u1"}, "u2") {
		t.Error("non-member should not match")
	}
	if !MatchesAllowFrom([]string{"alice"}, "u9", "Alice") {
		t.Error("any candidate should be tried")
	}
}

func TestIsGroupAllowed(t *testing.T) {
	if IsGroupAllowed(channels.GroupPolicyDisabled, []string{"*"}, "200") {
		t.Error("disabled policy should reject")
	}
	if !IsGroupAllowed(channels.GroupPolicyOpen, nil, "200") {
		t.Error("open policy should accept")
	}
	if !IsGroupAllowed(channels.GroupPolicyAllowlist, []string{"HC:200"}, "200") {
		t.Error("allowlisted group should be accepted")
	}
	if IsGroupAllowed(channels.GroupPolicyAllowlist, []string{"300"}, "200") {
		t.Error("unlisted group should be rejected")
	}
}

func TestGroupConfigFor(t *testing.T) {
	yes := true
	groups := map[string]config.HeychatGroupConfig{
		"Team-A": {RequireMention: &yes},
	}

	if _, ok := GroupConfigFor(groups, "Team-A"); !ok {
		t.Error("exact key should match")
	}
	if _, ok := GroupConfigFor(groups, "team-a"); !ok {
		t.Error("key match should be case-insensitive")
	}
	if _, ok := GroupConfigFor(groups, "other"); ok {
		t.Error("unknown group should not match")
	}
}

// fakePairing is an in-memory PairingStore for gate tests.
type fakePairing struct {
	paired   map[string]bool
	requests int
}

func (f *fakePairing) IsPaired(senderID, channel string) bool { return f.paired[senderID] }
func (f *fakePairing) RequestPairing(senderID, channel, chatID, agentID string) (string, error) {
	f.requests++
	return "ABCD1234", nil
}
func (f *fakePairing) Approve(code string) (*store.PairingRequest, error) { return nil, nil }
func (f *fakePairing) ListPending() ([]store.PairingRequest, error)       { return nil, nil }
func (f *fakePairing) Close() error                                       { return nil }

func gateWith(cfg config.ResolvedAccountConfig, pairing store.PairingStore) *Gate {
	return NewGate(config.ResolvedAccount{
		AccountID: "default",
		Name:      "heybot",
		Config:    cfg,
	}, pairing, "default")
}

func TestCheckDMPolicies(t *testing.T) {
	msg := &Message{UserID: "u1", SenderName: "Alice", RoomID: "100", ChannelID: "100"}

	t.Run("open", func(t *testing.T) {
		g := gateWith(config.ResolvedAccountConfig{DMPolicy: "open"}, nil)
		if v := g.CheckDM(msg, "100:100"); !v.Allow {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		g := gateWith(config.ResolvedAccountConfig{DMPolicy: "disabled"}, nil)
		if v := g.CheckDM(msg, "100:100"); v.Allow {
			t.Error("disabled policy should reject")
		}
	})

	t.Run("allowlist", func(t *testing.T) {
		g := gateWith(config.ResolvedAccountConfig{DMPolicy: "allowlist", AllowFrom: []string{"u1"}}, nil)
		if v := g.CheckDM(msg, "100:100"); !v.Allow {
			t.Errorf("verdict = %+v", v)
		}
		other := &Message{UserID: "u2"}
		if v := g.CheckDM(other, "100:100"); v.Allow {
			t.Error("unlisted sender should be rejected")
		}
	})

	t.Run("pairing unpaired", func(t *testing.T) {
		fp := &fakePairing{paired: map[string]bool{}}
		g := gateWith(config.ResolvedAccountConfig{DMPolicy: "pairing"}, fp)

		v := g.CheckDM(msg, "100:100")
		if v.Allow {
			t.Error("unpaired sender should be rejected")
		}
		if v.Prompt == "" {
			t.Error("first rejection should carry a pairing prompt")
		}

		// Prompt is debounced for the same sender.
		if v2 := g.CheckDM(msg, "100:100"); v2.Prompt != "" {
			t.Error("second prompt within the interval should be suppressed")
		}
	})

	t.Run("pairing paired", func(t *testing.T) {
		fp := &fakePairing{paired: map[string]bool{"u1": true}}
		g := gateWith(config.ResolvedAccountConfig{DMPolicy: "pairing"}, fp)
		if v := g.CheckDM(msg, "100:100"); !v.Allow {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("pairing allowlist bypass", func(t *testing.T) {
		fp := &fakePairing{paired: map[string]bool{}}
		g := gateWith(config.ResolvedAccountConfig{DMPolicy: "pairing", AllowFrom: []string{"u1"}}, fp)
		if v := g.CheckDM(msg, "100:100"); !v.Allow {
			t.Error("allowlisted sender should skip pairing")
		}
	})
}

func TestCheckGroup(t *testing.T) {
	msg := &Message{UserID: "u1", SenderName: "Alice", RoomID: "100", ChannelID: "200"}

	t.Run("open", func(t *testing.T) {
		g := gateWith(config.ResolvedAccountConfig{GroupPolicy: "open"}, nil)
		if v := g.CheckGroup(msg); !v.Allow {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		g := gateWith(config.ResolvedAccountConfig{GroupPolicy: "disabled"}, nil)
		if v := g.CheckGroup(msg); v.Allow {
			t.Error("disabled policy should reject")
		}
	})

	t.Run("allowlist", func(t *testing.T) {
		g := gateWith(config.ResolvedAccountConfig{
			GroupPolicy: "allowlist",
			AllowFrom:   []string{"HC:200"},
		}, nil)
		if v := g.CheckGroup(msg); !v.Allow {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("per-group sender allowlist", func(t *testing.T) {
		g := gateWith(config.ResolvedAccountConfig{
			GroupPolicy: "open",
			Groups: map[string]config.HeychatGroupConfig{
				"200": {AllowFrom: []string{"u1"}},
			},
		}, nil)
		if v := g.CheckGroup(msg); !v.Allow {
			t.Errorf("listed sender rejected: %+v", v)
		}
		outsider := &Message{UserID: "u9", ChannelID: "200"}
		if v := g.CheckGroup(outsider); v.Allow {
			t.Error("unlisted sender should be rejected")
		}
	})
}

func TestRequireMention(t *testing.T) {
	no := false
	g := gateWith(config.ResolvedAccountConfig{
		RequireMention: true,
		Groups: map[string]config.HeychatGroupConfig{
			"200": {RequireMention: &no},
		},
	}, nil)

	if g.RequireMention("200") {
		t.Error("group override should win")
	}
	if !g.RequireMention("300") {
		t.Error("account default should apply")
	}
}

func TestStripMention(t *testing.T) {
	got, ok := StripMention("@heybot what time is it", "heybot")
	if !ok || got != "what time is it" {
		t.Errorf("StripMention = %q, %v", got, ok)
	}

	got, ok = StripMention("hello @HeyBot there", "heybot")
	if !ok || got != "hello there" {
		t.Errorf("StripMention = %q, %v", got, ok)
	}

	if _, ok := StripMention("no mention here", "heybot"); ok {
		t.Error("should not report a mention")
	}
	if _, ok := StripMention("@someoneelse hi", "heybot"); ok {
		t.Error("other mentions should not count")
	}
}

func TestPromptDebounceExpires(t *testing.T) {
	g := gateWith(config.ResolvedAccountConfig{DMPolicy: "pairing"}, &fakePairing{paired: map[string]bool{}})

	if !g.shouldPrompt("u1") {
		t.Fatal("first prompt allowed")
	}
	if g.shouldPrompt("u1") {
		t.Fatal("second prompt suppressed")
	}
	g.lastPrompt["u1"] = time.Now().Add(-2 * pairingPromptInterval)
	if !g.shouldPrompt("u1") {
		t.Error("prompt should be allowed after the interval")
	}
}
