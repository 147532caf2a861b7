package heychat

import (
	"context"
	"fmt"
	"time"

	"github.com/nextlevelbuilder/heyclaw/internal/bus"
	"github.com/nextlevelbuilder/heyclaw/internal/reply"
	"github.com/nextlevelbuilder/heyclaw/internal/sessions"
)

// handleFrame classifies one wire frame and admits message events for
// processing. Runs on the listener's read goroutine, so anything slow is
// pushed onto a per-message goroutine.
func (c *Channel) handleFrame(ctx context.Context, raw []byte) {
	ev, err := Classify(raw)
	if err != nil {
		c.log.Debug("undecodable frame", "error", err)
		return
	}

	switch ev.Kind {
	case KindNotice:
		c.log.Debug("server notice", "userid", ev.UserID)
		return
	case KindIgnore:
		c.log.Debug("ignoring event", "type", ev.Type)
		return
	}

	msg := ev.Message
	if !c.cache.Admit(msg.MsgID) {
		c.log.Debug("duplicate message ignored", "msg_id", msg.MsgID)
		return
	}

	if msg.IsCommand {
		c.log.Info("received command",
			"command", msg.CommandName, "sender", msg.SenderName, "msg_id", msg.MsgID)
	} else {
		c.log.Info("received message", "sender", msg.SenderName, "msg_id", msg.MsgID)
	}

	go c.process(ctx, msg)
}

// process runs policy checks and dispatches one admitted message to the
// agent. The message id is released from the in-flight set on return so a
// redelivery after a crash-free failure still cannot race a live run.
func (c *Channel) process(ctx context.Context, msg *Message) {
	defer c.cache.Release(msg.MsgID)

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("message processing panicked", "msg_id", msg.MsgID, "panic", r)
		}
	}()

	// An admitted message runs to completion: its id is already recorded in
	// the processed set, so aborting on a socket close or shutdown would
	// lose it for good. The agent timeout below bounds the run instead.
	ctx = context.WithoutCancel(ctx)

	c.topo.Observe(msg.RoomID, msg.ChannelID)

	if msg.UserID != "" && !c.limiter.Allow(msg.UserID) {
		c.log.Warn("sender rate limited", "sender", msg.UserID, "msg_id", msg.MsgID)
		return
	}

	isGroup := msg.IsGroup()
	conversationID := fmt.Sprintf("%s:%s", msg.RoomID, msg.ChannelID)

	text := msg.Text
	if isGroup {
		v := c.gate.CheckGroup(msg)
		if !v.Allow {
			c.log.Info("group message rejected", "reason", v.Reason, "msg_id", msg.MsgID)
			return
		}

		// Commands address the bot by construction; plain chatter needs
		// an explicit mention unless the group opts out.
		if !msg.IsCommand && c.gate.RequireMention(msg.ChannelID) {
			stripped, mentioned := StripMention(text, c.account.Name)
			if !mentioned {
				c.log.Debug("group message without mention ignored", "msg_id", msg.MsgID)
				return
			}
			text = stripped
		}
	} else {
		v := c.gate.CheckDM(msg, conversationID)
		if !v.Allow {
			c.log.Info("dm rejected", "reason", v.Reason, "sender", msg.UserID)
			if v.Prompt != "" {
				c.publishReply(msg, v.Prompt)
			}
			return
		}
	}

	c.activity.Record("heychat", c.account.AccountID, "inbound")

	chatType := reply.ChatTypeDirect
	peerKind := sessions.PeerDirect
	peerID := msg.UserID
	if isGroup {
		chatType = reply.ChatTypeGroup
		peerKind = sessions.PeerGroup
		peerID = msg.ChannelID
	}

	agentID := c.AgentID()
	if agentID == "" {
		agentID = c.cfg.ResolveAgentRoute("heychat", c.account.AccountID, string(peerKind), peerID)
	}
	sessionKey := sessions.BuildAccountSessionKey(agentID, "heychat", c.account.AccountID, peerKind, peerID)

	fromLabel := msg.UserID
	if isGroup {
		fromLabel = fmt.Sprintf("%s:%s", msg.ChannelID, msg.UserID)
	}

	now := time.Now()
	in := reply.InboundContext{
		Body:         reply.FormatInboundEnvelope("Heychat", fromLabel, chatType, msg.SenderName, msg.UserID, text, now),
		BodyForAgent: text,
		From:         fromLabel,
		To:           conversationID,
		SessionKey:   sessionKey,
		AccountID:    c.account.AccountID,
		ChatType:     chatType,
		SenderName:   msg.SenderName,
		SenderID:     msg.UserID,
		Channel:      "heychat",
		MessageID:    msg.MsgID,
		Timestamp:    now,
	}
	if isGroup {
		in.GroupSubject = msg.ChannelID
	}

	label := fmt.Sprintf("Heychat[%s] DM from %s", c.account.AccountID, msg.SenderName)
	if isGroup {
		label = fmt.Sprintf("Heychat[%s] message in group %s", c.account.AccountID, msg.ChannelID)
	}
	c.events.Enqueue(
		fmt.Sprintf("%s: %s", label, reply.Preview(text, 160)),
		sessionKey,
		fmt.Sprintf("heychat:message:%s:%s", conversationID, msg.MsgID),
	)

	dispatchCtx, cancel := context.WithTimeout(ctx, c.cfg.AgentTimeout())
	defer cancel()

	// Optional typing indicator while the agent works.
	if c.account.Config.ReactionLevel == "minimal" {
		if err := c.client.AddReaction(dispatchCtx, msg.RoomID, msg.ChannelID, msg.MsgID, EmojiTyping); err != nil {
			c.log.Debug("typing reaction failed", "error", err)
		} else {
			defer func() {
				if err := c.client.RemoveReaction(context.Background(), msg.RoomID, msg.ChannelID, msg.MsgID, EmojiTyping); err != nil {
					c.log.Debug("remove typing reaction failed", "error", err)
				}
			}()
		}
	}

	res, err := c.dispatcher.Dispatch(dispatchCtx, in, func(ctx context.Context, replyText string) error {
		c.publishReply(msg, replyText)
		return nil
	})
	if err != nil {
		c.log.Error("dispatch failed", "msg_id", msg.MsgID, "error", err)
		return
	}
	if res.QueuedFinal {
		c.log.Info("agent reply queued", "msg_id", msg.MsgID, "replies", res.FinalCount)
	}
}

// publishReply queues a plain-text reply into the message's conversation.
// The manager's outbound dispatch loop delivers it through Send.
func (c *Channel) publishReply(msg *Message, text string) {
	c.Bus().PublishOutbound(bus.OutboundMessage{
		Channel:  c.Name(),
		ChatID:   fmt.Sprintf("%s:%s", msg.RoomID, msg.ChannelID),
		Content:  text,
		Metadata: map[string]string{"msg_type": "text"},
	})
}
