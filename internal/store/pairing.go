package store

import "time"

// PairingRequest is a pending DM pairing awaiting operator approval.
type PairingRequest struct {
	Code      string
	SenderID  string
	Channel   string
	ChatID    string
	AgentID   string
	CreatedAt time.Time
}

// PairingStore persists DM pairing requests and approvals.
// Channels use it to gate DMs under dm_policy="pairing": unknown senders get
// a pairing code, and the operator approves it from the CLI.
type PairingStore interface {
	// IsPaired reports whether the sender has an approved pairing for the channel.
	IsPaired(senderID, channel string) bool

	// RequestPairing records a pending request and returns its code.
	// Repeated requests from the same sender reuse the existing pending code.
	RequestPairing(senderID, channel, chatID, agentID string) (string, error)

	// Approve promotes a pending request to an approved pairing.
	// Returns the approved request so the caller can notify the peer.
	Approve(code string) (*PairingRequest, error)

	// ListPending returns all pending requests, oldest first.
	ListPending() ([]PairingRequest, error)

	Close() error
}
