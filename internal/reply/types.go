// Package reply turns normalized inbound messages into agent turns and
// relays the agent's output back through a channel-supplied deliver hook.
package reply

import "time"

// ChatType is the conversation surface of an inbound message.
type ChatType string

const (
	ChatTypeDirect ChatType = "direct"
	ChatTypeGroup  ChatType = "group"
)

// InboundContext carries everything the dispatcher needs for one turn.
type InboundContext struct {
	// Body is the enveloped text shown to the agent (header + message).
	Body string
	// BodyForAgent is the bare user message.
	BodyForAgent string

	From         string // sender label; "channelID:userID" in groups
	To           string // conversation id ("roomID:channelID")
	SessionKey   string
	AccountID    string
	ChatType     ChatType
	GroupSubject string // group id when ChatType is group
	SenderName   string
	SenderID     string
	Channel      string
	MessageID    string
	Timestamp    time.Time
}
