// Package agent defines the boundary to the agent runtime that produces
// replies for inbound chat messages. The bridge does not run models itself;
// it posts normalized requests to a configured endpoint and relays the output.
package agent

import "context"

// Request is one inbound turn handed to the agent runtime.
type Request struct {
	SessionKey string `json:"session_key"`
	Message    string `json:"message"`
	Channel    string `json:"channel"`
	ChatID     string `json:"chat_id"`
	PeerKind   string `json:"peer_kind"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name,omitempty"`
	RunID      string `json:"run_id"`
}

// Response is the agent's reply for one request.
type Response struct {
	Content string `json:"content"`
	Silent  bool   `json:"silent,omitempty"` // agent chose not to reply
}

// Runner executes one agent turn. Implementations must honor ctx cancellation.
type Runner interface {
	Run(ctx context.Context, req Request) (*Response, error)
}
