package heychat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	httpHost = "https://chat.xiaoheihe.cn"
	wssURL   = "wss://chat.xiaoheihe.cn/chatroom/ws/connect"

	// commonParams must accompany every chatroom request. The duplicated
	// chat_version key is what the platform expects; do not dedupe it.
	commonParams = "chat_os_type=bot&client_type=heybox_chat&chat_version=999.0.0&chat_version=1.24.5"

	// reactionParams is the query string for the emoji reply endpoint,
	// which uses a different client identification set.
	reactionParams = "client_type=heybox_chat&x_client_type=web&os_type=web&x_os_type=bot&x_app=heybox_chat&chat_os_type=bot&chat_version=1.30.0"
)

// Client is the Heychat HTTP API client for one bot token.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client for the given bot token.
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: httpHost,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		// The platform tolerates modest burst traffic; stay under it.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// apiResponse is the common envelope of chatroom API responses.
type apiResponse struct {
	Status string          `json:"status"`
	Msg    string          `json:"msg"`
	Result json.RawMessage `json:"result"`
}

// SendOptions describes one outbound message.
type SendOptions struct {
	RoomID    string
	ChannelID string
	Text      string
	ReplyID   string
	MsgType   int // zero means text
}

// SendResult carries the platform acknowledgment ids for a sent message.
type SendResult struct {
	MessageID string
	AckID     string
	MsgID     string
}

// SendMessage posts a message to a room channel.
func (c *Client) SendMessage(ctx context.Context, opts SendOptions) (*SendResult, error) {
	msgType := opts.MsgType
	if msgType == 0 {
		msgType = msgTypeText
	}

	body := map[string]interface{}{
		"heychat_ack_id": "0",
		"msg_type":       msgType,
		"msg":            opts.Text,
		"channel_id":     opts.ChannelID,
		"room_id":        opts.RoomID,
		"reply_id":       opts.ReplyID,
	}

	var result struct {
		ChatmobileAckID string `json:"chatmobile_ack_id"`
		HeychatAckID    string `json:"heychat_ack_id"`
		MsgID           string `json:"msg_id"`
	}
	endpoint := fmt.Sprintf("%s/chatroom/v2/channel_msg/send?%s", c.baseURL, commonParams)
	if err := c.doJSON(ctx, endpoint, body, &result); err != nil {
		return nil, fmt.Errorf("heychat: send message: %w", err)
	}

	return &SendResult{
		MessageID: result.ChatmobileAckID,
		AckID:     result.HeychatAckID,
		MsgID:     result.MsgID,
	}, nil
}

// AddReaction attaches an emoji reaction to a message.
func (c *Client) AddReaction(ctx context.Context, roomID, channelID, msgID, emoji string) error {
	if err := c.sendReaction(ctx, roomID, channelID, msgID, emoji, true); err != nil {
		return fmt.Errorf("heychat: add reaction: %w", err)
	}
	return nil
}

// RemoveReaction removes an emoji reaction from a message.
func (c *Client) RemoveReaction(ctx context.Context, roomID, channelID, msgID, emoji string) error {
	if err := c.sendReaction(ctx, roomID, channelID, msgID, emoji, false); err != nil {
		return fmt.Errorf("heychat: remove reaction: %w", err)
	}
	return nil
}

func (c *Client) sendReaction(ctx context.Context, roomID, channelID, msgID, emoji string, add bool) error {
	isAdd := 0
	if add {
		isAdd = 1
	}
	body := map[string]interface{}{
		"msg_id":     msgID,
		"emoji":      emoji,
		"is_add":     isAdd,
		"channel_id": channelID,
		"room_id":    roomID,
	}
	endpoint := fmt.Sprintf("%s/chatroom/v2/channel_msg/emoji/reply?%s", c.baseURL, reactionParams)
	return c.doJSON(ctx, endpoint, body, nil)
}

// doJSON posts a JSON body and decodes the response envelope. A non-"ok"
// status is an error; result (when non-nil) receives the result payload.
func (c *Client) doJSON(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decode response (http %d): %w", resp.StatusCode, err)
	}
	if envelope.Status != "ok" {
		if envelope.Msg != "" {
			return fmt.Errorf("api error: %s", envelope.Msg)
		}
		return fmt.Errorf("api status %q", envelope.Status)
	}

	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// ProbeResult reports an offline token sanity check.
type ProbeResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Probe validates the token shape without hitting the network; the platform
// has no cheap auth-check endpoint.
func Probe(token string) ProbeResult {
	token = strings.TrimSpace(token)
	if token == "" {
		return ProbeResult{Error: "token is empty"}
	}
	if len(token) < 10 {
		return ProbeResult{Error: "token format invalid"}
	}
	return ProbeResult{OK: true}
}

// wsConnectURL builds the WebSocket URL for a token.
func wsConnectURL(token string) string {
	return fmt.Sprintf("%s?%s&token=%s", wssURL, commonParams, url.QueryEscape(token))
}
