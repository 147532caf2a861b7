package heychat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/heyclaw/internal/bus"
	"github.com/nextlevelbuilder/heyclaw/internal/channels"
	"github.com/nextlevelbuilder/heyclaw/internal/config"
	"github.com/nextlevelbuilder/heyclaw/internal/reply"
	"github.com/nextlevelbuilder/heyclaw/internal/store"
)

// ChannelName returns the registered channel name for a bot account.
// The default account keeps the bare "heychat" name.
func ChannelName(accountID string) string {
	accountID = config.NormalizeAccountID(accountID)
	if accountID == config.DefaultAccountID {
		return "heychat"
	}
	return "heychat:" + accountID
}

// Channel connects one Heychat bot account: a WebSocket listener for
// inbound events and an HTTP client for replies and reactions.
type Channel struct {
	*channels.BaseChannel

	cfg     *config.Config
	account config.ResolvedAccount
	client  *Client
	gate    *Gate
	cache   *MsgCache
	topo    *Topology
	limiter *channels.SenderRateLimiter

	dispatcher reply.Dispatcher
	events     *reply.SystemEvents
	activity   *reply.ActivityRecorder

	log *slog.Logger

	mu       sync.Mutex
	listener *wsListener
	cancel   context.CancelFunc
}

// New creates a Heychat channel for a resolved account.
// pairing may be nil when no store is available.
func New(
	cfg *config.Config,
	account config.ResolvedAccount,
	msgBus *bus.MessageBus,
	pairing store.PairingStore,
	dispatcher reply.Dispatcher,
	events *reply.SystemEvents,
	activity *reply.ActivityRecorder,
) *Channel {
	name := ChannelName(account.AccountID)
	return &Channel{
		BaseChannel: channels.NewBaseChannel(name, msgBus),
		cfg:         cfg,
		account:     account,
		client:      NewClient(account.Token),
		gate:        NewGate(account, pairing, cfg.DefaultAgentID()),
		cache:       NewMsgCache(0),
		topo:        NewTopology(),
		limiter:     channels.NewSenderRateLimiter(),
		dispatcher:  dispatcher,
		events:      events,
		activity:    activity,
		log:         slog.Default().With("channel", name, "account", account.AccountID),
	}
}

// Account returns the resolved account this channel runs.
func (c *Channel) Account() config.ResolvedAccount { return c.account }

// Start validates the token and begins listening. Non-blocking after the
// listener goroutine is up; connection failures are retried internally.
func (c *Channel) Start(ctx context.Context) error {
	token := strings.TrimSpace(c.account.Token)
	if token == "" {
		return fmt.Errorf("heychat: token not configured for account %s", c.account.AccountID)
	}
	if probe := Probe(token); !probe.OK {
		return fmt.Errorf("heychat: token rejected: %s", probe.Error)
	}

	if c.account.Config.GroupPolicy == string(channels.GroupPolicyOpen) {
		c.log.Warn(`group_policy "open" lets any group member trigger the bot; set group_policy "allowlist" to restrict senders`)
	}

	runCtx, cancel := context.WithCancel(ctx)
	listener := newWSListener(wsConnectURL(token), c.log, c.handleFrame)

	c.mu.Lock()
	c.listener = listener
	c.cancel = cancel
	c.mu.Unlock()

	go listener.Run(runCtx)

	c.SetRunning(true)
	c.log.Info("heychat channel started", "name", c.account.Name, "token_source", c.account.TokenSource)
	return nil
}

// Stop shuts down the listener. In-flight message processing is allowed to
// run to completion, bounded by the agent timeout.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	listener := c.listener
	cancel := c.cancel
	c.listener = nil
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if listener != nil {
		listener.Stop()
	}

	c.SetRunning(false)
	c.log.Info("heychat channel stopped")
	return nil
}

// Send delivers an outbound message. ChatID accepts "room:channel", a bare
// channel id with an observed room, or a DM peer id. Metadata keys:
// "msg_type" overrides the wire type, "reply_to" sets the replied message.
func (c *Channel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	roomID, channelID := c.topo.ResolveTarget(msg.ChatID)

	// Operator-initiated sends default to the richer markdown type;
	// agent replies come through the pipeline with plain text.
	msgType := msgTypeAtMarkdown
	if name, ok := msg.Metadata["msg_type"]; ok {
		if t, valid := MsgTypeFromName(name); valid {
			msgType = t
		}
	}

	_, err := c.client.SendMessage(ctx, SendOptions{
		RoomID:    roomID,
		ChannelID: channelID,
		Text:      msg.Content,
		ReplyID:   msg.Metadata["reply_to"],
		MsgType:   msgType,
	})
	if err != nil {
		return err
	}

	c.activity.Record("heychat", c.account.AccountID, "outbound")
	return nil
}

// AddReaction attaches an emoji to a message. chatID resolves like Send targets.
func (c *Channel) AddReaction(ctx context.Context, chatID, messageID, emoji string) error {
	roomID, channelID := c.topo.ResolveTarget(chatID)
	return c.client.AddReaction(ctx, roomID, channelID, messageID, emoji)
}

// RemoveReaction removes an emoji from a message. Failures are logged and
// swallowed; a stale reaction is cosmetic.
func (c *Channel) RemoveReaction(ctx context.Context, chatID, messageID, emoji string) error {
	roomID, channelID := c.topo.ResolveTarget(chatID)
	if err := c.client.RemoveReaction(ctx, roomID, channelID, messageID, emoji); err != nil {
		c.log.Debug("remove reaction failed", "message_id", messageID, "error", err)
	}
	return nil
}

var _ channels.ReactionChannel = (*Channel)(nil)
