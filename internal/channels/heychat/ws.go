package heychat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	pingInterval   = 30 * time.Second
	reconnectDelay = 5 * time.Second
	dialTimeout    = 15 * time.Second
)

// FrameHandler receives each JSON frame read from the socket.
type FrameHandler func(ctx context.Context, raw []byte)

// wsListener maintains the Heychat WebSocket connection: it dials, sends
// the application-level "PING" heartbeat, filters "PONG" acks, and hands
// every other text frame to the handler. A dropped connection is redialed
// after a fixed delay until the context is cancelled or Stop is called.
type wsListener struct {
	url        string
	log        *slog.Logger
	onFrame    FrameHandler
	retryDelay time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func newWSListener(url string, log *slog.Logger, onFrame FrameHandler) *wsListener {
	return &wsListener{url: url, log: log, onFrame: onFrame, retryDelay: reconnectDelay}
}

// Run drives the connect/read/reconnect loop. Blocks until ctx is cancelled
// or Stop is called.
func (l *wsListener) Run(ctx context.Context) {
	for {
		if l.isClosed() || ctx.Err() != nil {
			return
		}

		if err := l.session(ctx); err != nil && ctx.Err() == nil && !l.isClosed() {
			l.log.Warn("websocket session ended", "error", err)
		}

		if l.isClosed() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.retryDelay):
		}
	}
}

// session dials once and reads frames until the connection fails.
func (l *wsListener) session(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, l.url, nil)
	cancel()
	if err != nil {
		return err
	}
	conn.SetReadLimit(1 << 20) // 1MB

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "listener stopped")
		return nil
	}
	l.conn = conn
	l.mu.Unlock()

	l.log.Info("websocket connected")

	sessionCtx, stopSession := context.WithCancel(ctx)
	defer stopSession()

	// Application-level heartbeat; the server answers with "PONG".
	go l.pingLoop(sessionCtx)

	defer func() {
		l.mu.Lock()
		if l.conn == conn {
			l.conn = nil
		}
		l.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "session ended")
	}()

	for {
		_, data, err := conn.Read(sessionCtx)
		if err != nil {
			return err
		}

		text := string(data)
		if text == "pong" || strings.HasPrefix(text, "PONG") {
			continue
		}

		// Frames get the listener's long-lived context, not the session's:
		// a reconnect must not abort processing already under way.
		l.onFrame(ctx, data)
	}
}

func (l *wsListener) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.write(ctx, []byte("PING")); err != nil {
				l.log.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

// write sends a text frame. Thread-safe.
func (l *wsListener) write(ctx context.Context, data []byte) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return context.Canceled
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// Stop permanently shuts the listener down; Run returns and no reconnect
// is attempted.
func (l *wsListener) Stop() {
	l.mu.Lock()
	l.closed = true
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "listener stopped")
	}
}

func (l *wsListener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
