// Package heychat implements the Heychat (黑盒语音) channel: a WebSocket
// listener for inbound room messages and bot commands, and an HTTP client
// for sending replies and reactions.
package heychat

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// flexString decodes JSON values that may arrive as strings or numbers.
// Heychat ids show up both ways depending on the event shape.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	// Numeric id; keep the literal digits.
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return string(f) }

// frame is the outer envelope of every JSON event on the socket.
type frame struct {
	Type flexString      `json:"type"`
	Data json.RawMessage `json:"data"`
}

// commandOption is one argument of a slash command invocation.
type commandOption struct {
	Name  string     `json:"name"`
	Value flexString `json:"value"`
}

// commandInfo describes a bot command carried in a type-50 event or in a
// message's addition payload.
type commandInfo struct {
	ID      flexString      `json:"id"`
	Name    string          `json:"name"`
	Options []commandOption `json:"options"`
}

// firstOptionValue returns the value of the first command option, the
// conventional slot for the user's free-form text.
func (c *commandInfo) firstOptionValue() string {
	if c == nil || len(c.Options) == 0 {
		return ""
	}
	return c.Options[0].Value.String()
}

type roomInfo struct {
	RoomID   flexString `json:"room_id"`
	RoomName string     `json:"room_name"`
}

type channelInfo struct {
	ChannelID   flexString `json:"channel_id"`
	ChannelName string     `json:"channel_name"`
}

type userInfo struct {
	UserID   flexString `json:"user_id"`
	Nickname string     `json:"nickname"`
	Name     string     `json:"name"`
	Bot      bool       `json:"bot"`
}

// displayName picks the sender's visible name with a generic fallback.
func (u *userInfo) displayName() string {
	if u == nil {
		return "User"
	}
	if u.Nickname != "" {
		return u.Nickname
	}
	if u.Name != "" {
		return u.Name
	}
	return "User"
}

// addition is the string-encoded JSON blob attached to regular messages.
// A command triggered inside a channel arrives as a plain message whose
// addition carries the parsed command.
type addition struct {
	BotCommand struct {
		CommandInfo *commandInfo `json:"command_info"`
	} `json:"bot_command"`
}

// messagePayload is the superset of fields seen across message-bearing
// event shapes. Events of different types populate different subsets.
type messagePayload struct {
	MsgID    flexString `json:"msg_id"`
	Msg      string     `json:"msg"`
	Addition string     `json:"addition"`

	CommandInfo *commandInfo `json:"command_info"`

	RoomBaseInfo *roomInfo `json:"room_base_info"`
	RoomInfo     *roomInfo `json:"room_info"`

	ChannelBaseInfo *channelInfo `json:"channel_base_info"`
	ChannelInfo     *channelInfo `json:"channel_info"`

	SenderInfo   *userInfo `json:"sender_info"`
	UserBaseInfo *userInfo `json:"user_base_info"`
	UserInfo     *userInfo `json:"user_info"`
}

// pushPayload is the body of a PUSH envelope. Event 80 notify pushes are
// server heartbeats that carry no message content.
type pushPayload struct {
	Event  flexString `json:"event"`
	Type   string     `json:"type"`
	UserID flexString `json:"userid"`
}

// Message is a normalized inbound message extracted from a wire event.
type Message struct {
	MsgID      string
	RoomID     string
	ChannelID  string
	UserID     string
	SenderName string
	Text       string

	// IsCommand marks messages that arrived as bot command invocations,
	// either a native command event or a command embedded in addition.
	IsCommand   bool
	CommandName string
}

// IsGroup reports whether the message came from a group conversation.
// DMs carry identical room and channel ids; a missing id also means DM.
func (m *Message) IsGroup() bool {
	return IsGroupChat(m.RoomID, m.ChannelID)
}

// EventKind classifies a decoded wire event.
type EventKind int

const (
	// KindIgnore is an event with nothing to process.
	KindIgnore EventKind = iota
	// KindNotice is a server heartbeat/notification push.
	KindNotice
	// KindMessage is a message-bearing event with a populated Message.
	KindMessage
)

// Event is the result of classifying one wire frame.
type Event struct {
	Kind    EventKind
	Type    string // raw discriminator, for logging
	Message *Message
	UserID  string // notice sender, when present
}

// Wire message types used by the send API.
const (
	msgTypeText       = 1
	msgTypeImage      = 3
	msgTypeMarkdown   = 4
	msgTypeAtMarkdown = 10
)

// MsgTypeFromName maps a metadata msg_type override to its wire value.
func MsgTypeFromName(name string) (int, bool) {
	switch name {
	case "text":
		return msgTypeText, true
	case "image":
		return msgTypeImage, true
	case "markdown":
		return msgTypeMarkdown, true
	case "at_markdown":
		return msgTypeAtMarkdown, true
	}
	// Accept a raw numeric value too.
	if n, err := strconv.Atoi(name); err == nil {
		return n, true
	}
	return 0, false
}
