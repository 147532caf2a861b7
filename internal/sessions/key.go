// Package sessions — session key builder and parser.
//
// Session keys follow the canonical host-platform format:
//
//	agent:{agentId}:{channel}:{direct|group}:{peerId}
//
// Examples:
//
//	agent:default:heychat:direct:10086
//	agent:default:heychat:group:200
package sessions

import (
	"fmt"
	"strings"
)

// PeerKind distinguishes DM from group conversations.
type PeerKind string

const (
	PeerDirect PeerKind = "direct"
	PeerGroup  PeerKind = "group"
)

// BuildSessionKey builds the canonical agent session key for a channel conversation.
//
//	DM:    agent:{agentId}:{channel}:direct:{peerID}
//	Group: agent:{agentId}:{channel}:group:{chatID}
func BuildSessionKey(agentID, channel string, kind PeerKind, peerID string) string {
	return fmt.Sprintf("agent:%s:%s:%s:%s", agentID, channel, kind, peerID)
}

// BuildAccountSessionKey scopes the session key by bot account, for processes
// running more than one account of the same channel.
//
//	agent:{agentId}:{channel}:{accountId}:{direct|group}:{peerID}
func BuildAccountSessionKey(agentID, channel, accountID string, kind PeerKind, peerID string) string {
	if accountID == "" || accountID == "default" {
		return BuildSessionKey(agentID, channel, kind, peerID)
	}
	return fmt.Sprintf("agent:%s:%s:%s:%s:%s", agentID, channel, accountID, kind, peerID)
}

// ParseSessionKey extracts the agentID and rest from a canonical session key.
// Returns ("", "") if the key is not in the expected format.
func ParseSessionKey(key string) (agentID, rest string) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 3 || parts[0] != "agent" {
		return "", ""
	}
	return parts[1], parts[2]
}

// PeerKindFromGroup returns PeerGroup if isGroup is true, PeerDirect otherwise.
func PeerKindFromGroup(isGroup bool) PeerKind {
	if isGroup {
		return PeerGroup
	}
	return PeerDirect
}
