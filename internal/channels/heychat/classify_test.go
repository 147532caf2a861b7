package heychat

import "testing"

func classifyMessage(t *testing.T, raw string) *Message {
	t.Helper()
	ev, err := Classify([]byte(raw))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if ev.Kind != KindMessage {
		t.Fatalf("kind = %v, want message", ev.Kind)
	}
	return ev.Message
}

func TestClassifyCommandEvent(t *testing.T) {
	msg := classifyMessage(t, `{
		"type": "50",
		"data": {
			"msg_id": "m1",
			"command_info": {"id": "1", "name": "ask", "options": [{"name": "q", "value": "what time is it"}]},
			"room_base_info": {"room_id": "100"},
			"channel_base_info": {"channel_id": "200"},
			"sender_info": {"user_id": "u1", "nickname": "Alice"}
		}
	}`)

	if !msg.IsCommand || msg.CommandName != "ask" {
		t.Errorf("command = %v %q", msg.IsCommand, msg.CommandName)
	}
	if msg.Text != "what time is it" {
		t.Errorf("text = %q", msg.Text)
	}
	if msg.RoomID != "100" || msg.ChannelID != "200" || msg.UserID != "u1" {
		t.Errorf("ids = %q %q %q", msg.RoomID, msg.ChannelID, msg.UserID)
	}
	if msg.SenderName != "Alice" {
		t.Errorf("sender = %q", msg.SenderName)
	}
	if !msg.IsGroup() {
		t.Error("distinct room/channel ids should be a group")
	}
}

func TestClassifyPlainMessage(t *testing.T) {
	msg := classifyMessage(t, `{
		"type": "5",
		"data": {
			"msg_id": "m2",
			"msg": "hello",
			"room_base_info": {"room_id": "100"},
			"channel_base_info": {"channel_id": "100"},
			"user_base_info": {"user_id": "u2", "nickname": "Bob"}
		}
	}`)

	if msg.IsCommand {
		t.Error("plain message marked as command")
	}
	if msg.Text != "hello" || msg.SenderName != "Bob" {
		t.Errorf("msg = %+v", msg)
	}
	if msg.IsGroup() {
		t.Error("identical room/channel ids should be a DM")
	}
}

func TestClassifyAdditionCommand(t *testing.T) {
	msg := classifyMessage(t, `{
		"type": "1",
		"data": {
			"msg_id": "m3",
			"msg": "@bot ask something",
			"addition": "{\"bot_command\":{\"command_info\":{\"name\":\"ask\",\"options\":[{\"value\":\"something\"}]}}}",
			"sender_info": {"user_id": "u3"}
		}
	}`)

	if !msg.IsCommand || msg.Text != "something" {
		t.Errorf("msg = %+v", msg)
	}
}

func TestClassifyMalformedAddition(t *testing.T) {
	msg := classifyMessage(t, `{
		"type": "5",
		"data": {
			"msg_id": "m4",
			"msg": "plain text",
			"addition": "{not json",
			"user_info": {"user_id": "u4"}
		}
	}`)

	if msg.IsCommand || msg.Text != "plain text" {
		t.Errorf("msg = %+v", msg)
	}
}

func TestClassifyFallbackShape(t *testing.T) {
	// Unrecognized discriminator, but carries msg_id + msg with the
	// alternate info field names.
	msg := classifyMessage(t, `{
		"type": "99",
		"data": {
			"msg_id": "m5",
			"msg": "dm text",
			"room_info": {"room_id": "300"},
			"channel_info": {"channel_id": "301"},
			"user_info": {"user_id": "u5", "name": "Carol"}
		}
	}`)

	if msg.RoomID != "300" || msg.ChannelID != "301" || msg.SenderName != "Carol" {
		t.Errorf("msg = %+v", msg)
	}
}

func TestClassifyNumericIDs(t *testing.T) {
	msg := classifyMessage(t, `{
		"type": "5",
		"data": {
			"msg_id": 12345,
			"msg": "hi",
			"room_base_info": {"room_id": 100},
			"channel_base_info": {"channel_id": 200},
			"sender_info": {"user_id": 42}
		}
	}`)

	if msg.MsgID != "12345" || msg.RoomID != "100" || msg.UserID != "42" {
		t.Errorf("msg = %+v", msg)
	}
}

func TestClassifyPushNotify(t *testing.T) {
	ev, err := Classify([]byte(`{"type": "PUSH", "data": {"event": "80", "type": "notify", "userid": 7}}`))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if ev.Kind != KindNotice {
		t.Errorf("kind = %v, want notice", ev.Kind)
	}
	if ev.UserID != "7" {
		t.Errorf("userid = %q", ev.UserID)
	}
}

func TestClassifyIgnored(t *testing.T) {
	for name, raw := range map[string]string{
		"unknown type":   `{"type": "42", "data": {"foo": "bar"}}`,
		"missing msg_id": `{"type": "5", "data": {"msg": "no id"}}`,
		"no content":     `{"type": "77", "data": {"msg_id": "m9"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			ev, err := Classify([]byte(raw))
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if ev.Kind != KindIgnore {
				t.Errorf("kind = %v, want ignore", ev.Kind)
			}
		})
	}
}

func TestClassifyBadJSON(t *testing.T) {
	if _, err := Classify([]byte("not json")); err == nil {
		t.Error("expected error for invalid frame")
	}
}

func TestClassifySenderNameFallback(t *testing.T) {
	msg := classifyMessage(t, `{
		"type": "5",
		"data": {"msg_id": "m6", "msg": "x", "sender_info": {"user_id": "u6"}}
	}`)
	if msg.SenderName != "User" {
		t.Errorf("sender = %q, want fallback", msg.SenderName)
	}
}
