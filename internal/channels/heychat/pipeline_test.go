package heychat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nextlevelbuilder/heyclaw/internal/bus"
	"github.com/nextlevelbuilder/heyclaw/internal/config"
	"github.com/nextlevelbuilder/heyclaw/internal/reply"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	calls    []reply.InboundContext
	response string
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, in reply.InboundContext, deliver reply.DeliverFunc) (reply.Result, error) {
	d.mu.Lock()
	d.calls = append(d.calls, in)
	d.mu.Unlock()

	if d.response == "" {
		return reply.Result{}, nil
	}
	if err := deliver(ctx, d.response); err != nil {
		return reply.Result{}, err
	}
	return reply.Result{QueuedFinal: true, FinalCount: 1}, nil
}

func (d *fakeDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type sentMessage struct {
	Msg       string `json:"msg"`
	MsgType   int    `json:"msg_type"`
	RoomID    string `json:"room_id"`
	ChannelID string `json:"channel_id"`
}

func testChannel(t *testing.T, accountCfg config.ResolvedAccountConfig, dispatcher reply.Dispatcher) (*Channel, *[]sentMessage) {
	t.Helper()

	var (
		mu   sync.Mutex
		sent []sentMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m sentMessage
		json.NewDecoder(r.Body).Decode(&m)
		mu.Lock()
		sent = append(sent, m)
		mu.Unlock()
		w.Write([]byte(`{"status":"ok","result":{"msg_id":"out1"}}`))
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	msgBus := bus.New()
	account := config.ResolvedAccount{
		AccountID: "default",
		Name:      "heybot",
		Token:     "long-enough-token",
		Config:    accountCfg,
	}

	c := New(cfg, account, msgBus, &fakePairing{paired: map[string]bool{}}, dispatcher,
		reply.NewSystemEvents(msgBus), reply.NewActivityRecorder())
	c.client.baseURL = srv.URL
	return c, &sent
}

// waitReply pops the next queued outbound message off the channel's bus.
func waitReply(t *testing.T, c *Channel) bus.OutboundMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, ok := c.Bus().SubscribeOutbound(ctx)
	if !ok {
		t.Fatal("no outbound message queued")
	}
	return msg
}

func TestProcessDirectMessage(t *testing.T) {
	d := &fakeDispatcher{response: "agent answer"}
	c, _ := testChannel(t, config.ResolvedAccountConfig{DMPolicy: "open"}, d)

	c.process(context.Background(), &Message{
		MsgID:      "m1",
		RoomID:     "100",
		ChannelID:  "100",
		UserID:     "u1",
		SenderName: "Alice",
		Text:       "hello",
	})

	if d.callCount() != 1 {
		t.Fatalf("dispatch calls = %d", d.callCount())
	}
	in := d.calls[0]
	if in.SessionKey != "agent:default:heychat:direct:u1" {
		t.Errorf("session key = %q", in.SessionKey)
	}
	if in.ChatType != reply.ChatTypeDirect || in.From != "u1" || in.To != "100:100" {
		t.Errorf("context = %+v", in)
	}

	got := waitReply(t, c)
	if got.Channel != "heychat" || got.ChatID != "100:100" || got.Content != "agent answer" {
		t.Errorf("queued reply = %+v", got)
	}
	if got.Metadata["msg_type"] != "text" {
		t.Errorf("msg_type = %q, want text", got.Metadata["msg_type"])
	}
}

func TestProcessCompletesAfterSocketClose(t *testing.T) {
	d := &fakeDispatcher{response: "late but delivered"}
	c, _ := testChannel(t, config.ResolvedAccountConfig{DMPolicy: "open"}, d)

	// The listener's context dies when the socket drops; an already-admitted
	// message must still run to completion.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.process(ctx, &Message{
		MsgID:     "m1",
		RoomID:    "100",
		ChannelID: "100",
		UserID:    "u1",
		Text:      "hello",
	})

	if d.callCount() != 1 {
		t.Fatalf("dispatch calls = %d, want 1", d.callCount())
	}
	if got := waitReply(t, c); got.Content != "late but delivered" {
		t.Errorf("queued reply = %+v", got)
	}
}

func TestProcessGroupMentionGate(t *testing.T) {
	d := &fakeDispatcher{response: "ok"}
	c, _ := testChannel(t, config.ResolvedAccountConfig{
		GroupPolicy:    "open",
		RequireMention: true,
	}, d)

	base := Message{
		RoomID:     "100",
		ChannelID:  "200",
		UserID:     "u1",
		SenderName: "Alice",
	}

	// No mention: dropped.
	msg := base
	msg.MsgID = "m1"
	msg.Text = "just chatting"
	c.process(context.Background(), &msg)
	if d.callCount() != 0 {
		t.Fatal("unmentioned group message should be ignored")
	}

	// Mention: dispatched with the mention stripped.
	msg = base
	msg.MsgID = "m2"
	msg.Text = "@heybot what is up"
	c.process(context.Background(), &msg)
	if d.callCount() != 1 {
		t.Fatal("mentioned group message should dispatch")
	}
	if got := d.calls[0].BodyForAgent; got != "what is up" {
		t.Errorf("body = %q", got)
	}
	if d.calls[0].SessionKey != "agent:default:heychat:group:200" {
		t.Errorf("session key = %q", d.calls[0].SessionKey)
	}

	// Commands address the bot implicitly.
	msg = base
	msg.MsgID = "m3"
	msg.Text = "do something"
	msg.IsCommand = true
	msg.CommandName = "ask"
	c.process(context.Background(), &msg)
	if d.callCount() != 2 {
		t.Error("command should bypass the mention requirement")
	}
}

func TestProcessDMPairingPrompt(t *testing.T) {
	d := &fakeDispatcher{response: "should not be sent"}
	c, _ := testChannel(t, config.ResolvedAccountConfig{DMPolicy: "pairing"}, d)

	c.process(context.Background(), &Message{
		MsgID:     "m1",
		RoomID:    "100",
		ChannelID: "100",
		UserID:    "u1",
		Text:      "hi",
	})

	if d.callCount() != 0 {
		t.Fatal("unpaired DM should not dispatch")
	}
	if got := waitReply(t, c).Content; got == "" || got == "should not be sent" {
		t.Errorf("prompt = %q", got)
	}
}

func TestHandleFrameDedup(t *testing.T) {
	d := &fakeDispatcher{}
	c, _ := testChannel(t, config.ResolvedAccountConfig{DMPolicy: "open"}, d)

	frame := []byte(`{
		"type": "5",
		"data": {
			"msg_id": "dup1",
			"msg": "hello",
			"room_base_info": {"room_id": "100"},
			"channel_base_info": {"channel_id": "100"},
			"sender_info": {"user_id": "u1"}
		}
	}`)

	ctx := context.Background()
	c.handleFrame(ctx, frame)
	c.handleFrame(ctx, frame)

	deadline := time.After(2 * time.Second)
	for d.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("dispatch never happened")
		case <-time.After(10 * time.Millisecond):
		}
	}
	// Give the (wrong) second dispatch a chance to show up.
	time.Sleep(50 * time.Millisecond)
	if d.callCount() != 1 {
		t.Errorf("dispatch calls = %d, want 1", d.callCount())
	}
}

func TestSendResolvesTarget(t *testing.T) {
	d := &fakeDispatcher{}
	c, sent := testChannel(t, config.ResolvedAccountConfig{}, d)
	c.topo.Observe("100", "200")

	err := c.Send(context.Background(), bus.OutboundMessage{
		Channel: "heychat",
		ChatID:  "200",
		Content: "broadcast",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	got := (*sent)[0]
	if got.RoomID != "100" || got.ChannelID != "200" {
		t.Errorf("target = %+v", got)
	}
	if got.MsgType != msgTypeAtMarkdown {
		t.Errorf("msg_type = %d, want at_markdown default", got.MsgType)
	}
}
