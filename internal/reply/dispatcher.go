package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/heyclaw/internal/agent"
)

// DeliverFunc sends one final reply back to the originating conversation.
type DeliverFunc func(ctx context.Context, text string) error

// Result summarizes what a dispatch produced.
type Result struct {
	QueuedFinal bool
	FinalCount  int
}

// Dispatcher runs an agent turn for an inbound context and delivers the output.
type Dispatcher interface {
	Dispatch(ctx context.Context, in InboundContext, deliver DeliverFunc) (Result, error)
}

// AgentDispatcher dispatches turns to an agent.Runner.
type AgentDispatcher struct {
	runner agent.Runner
}

// NewAgentDispatcher creates a dispatcher backed by the given runner.
func NewAgentDispatcher(runner agent.Runner) *AgentDispatcher {
	return &AgentDispatcher{runner: runner}
}

// Dispatch runs one turn. An empty or silent agent response produces no
// delivery and an empty Result; that is not an error.
func (d *AgentDispatcher) Dispatch(ctx context.Context, in InboundContext, deliver DeliverFunc) (Result, error) {
	req := agent.Request{
		SessionKey: in.SessionKey,
		Message:    in.Body,
		Channel:    in.Channel,
		ChatID:     in.To,
		PeerKind:   string(in.ChatType),
		SenderID:   in.SenderID,
		SenderName: in.SenderName,
		RunID:      uuid.NewString(),
	}

	resp, err := d.runner.Run(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("reply: agent run: %w", err)
	}

	text := strings.TrimSpace(resp.Content)
	if resp.Silent || text == "" {
		slog.Debug("agent produced no reply",
			"session", in.SessionKey,
			"message_id", in.MessageID,
		)
		return Result{}, nil
	}

	if err := deliver(ctx, text); err != nil {
		return Result{}, fmt.Errorf("reply: deliver: %w", err)
	}
	return Result{QueuedFinal: true, FinalCount: 1}, nil
}
