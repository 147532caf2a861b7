package heychat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Classify decodes one JSON frame from the socket and determines what it is.
// The wire protocol is only partially documented, so classification works as
// a priority cascade: known discriminators first ("50" command, "5"/"1"
// message, "PUSH" notify), then a structural fallback for any event that
// carries msg_id plus message content.
func Classify(raw []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Event{}, fmt.Errorf("heychat: decode frame: %w", err)
	}

	typeStr := f.Type.String()

	// Some shapes put the payload at the top level instead of under data.
	inner := []byte(f.Data)
	if len(inner) == 0 || string(inner) == "null" {
		inner = raw
	}

	if strings.EqualFold(typeStr, "PUSH") {
		var push pushPayload
		if err := json.Unmarshal(inner, &push); err == nil {
			if push.Event.String() == "80" && push.Type == "notify" {
				return Event{Kind: KindNotice, Type: typeStr, UserID: push.UserID.String()}, nil
			}
		}
	}

	var p messagePayload
	if err := json.Unmarshal(inner, &p); err != nil {
		return Event{Kind: KindIgnore, Type: typeStr}, nil
	}

	isMessageEvent := typeStr == "50" || typeStr == "5" || typeStr == "1" ||
		(p.MsgID != "" && (p.Msg != "" || p.CommandInfo != nil))
	if !isMessageEvent {
		return Event{Kind: KindIgnore, Type: typeStr}, nil
	}

	var (
		cmd     *commandInfo
		room    *roomInfo
		channel *channelInfo
		sender  *userInfo
		text    = p.Msg
	)

	switch {
	case typeStr == "50" && p.CommandInfo != nil:
		// Native command event.
		cmd = p.CommandInfo
		room = p.RoomBaseInfo
		channel = p.ChannelBaseInfo
		sender = p.SenderInfo
		text = cmd.firstOptionValue()

	case typeStr == "5" || typeStr == "1":
		room = p.RoomBaseInfo
		channel = p.ChannelBaseInfo
		sender = firstUser(p.UserBaseInfo, p.SenderInfo, p.UserInfo)

		// A command triggered in-channel arrives as a message whose
		// addition blob carries the command. Malformed addition falls
		// back to the plain text.
		if p.Addition != "" {
			var add addition
			if err := json.Unmarshal([]byte(p.Addition), &add); err == nil && add.BotCommand.CommandInfo != nil {
				cmd = add.BotCommand.CommandInfo
				text = cmd.firstOptionValue()
			}
		}

	default:
		// Unrecognized discriminator that still looks message-bearing.
		room = firstRoom(p.RoomBaseInfo, p.RoomInfo)
		channel = firstChannel(p.ChannelBaseInfo, p.ChannelInfo)
		sender = firstUser(p.UserBaseInfo, p.SenderInfo, p.UserInfo)
	}

	if p.MsgID == "" {
		return Event{Kind: KindIgnore, Type: typeStr}, nil
	}

	msg := &Message{
		MsgID:      p.MsgID.String(),
		Text:       text,
		SenderName: sender.displayName(),
	}
	if room != nil {
		msg.RoomID = room.RoomID.String()
	}
	if channel != nil {
		msg.ChannelID = channel.ChannelID.String()
	}
	if sender != nil {
		msg.UserID = sender.UserID.String()
	}
	if cmd != nil {
		msg.IsCommand = true
		msg.CommandName = cmd.Name
	}

	return Event{Kind: KindMessage, Type: typeStr, Message: msg}, nil
}

func firstUser(candidates ...*userInfo) *userInfo {
	for _, u := range candidates {
		if u != nil {
			return u
		}
	}
	return nil
}

func firstRoom(candidates ...*roomInfo) *roomInfo {
	for _, r := range candidates {
		if r != nil {
			return r
		}
	}
	return nil
}

func firstChannel(candidates ...*channelInfo) *channelInfo {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}
