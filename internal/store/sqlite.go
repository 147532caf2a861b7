package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements PairingStore on a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

const pairingSchema = `
CREATE TABLE IF NOT EXISTS pairings (
	code       TEXT PRIMARY KEY,
	sender_id  TEXT NOT NULL,
	channel    TEXT NOT NULL,
	chat_id    TEXT NOT NULL,
	agent_id   TEXT NOT NULL,
	approved   INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_pairings_sender ON pairings(sender_id, channel);
`

// OpenSQLite opens (creating if needed) the sqlite store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// sqlite handles one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(pairingSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// IsPaired reports whether the sender has an approved pairing for the channel.
func (s *SQLiteStore) IsPaired(senderID, channel string) bool {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(1) FROM pairings WHERE sender_id = ? AND channel = ? AND approved = 1`,
		senderID, channel,
	).Scan(&n)
	return err == nil && n > 0
}

// RequestPairing records a pending request and returns its code.
// A sender with an existing pending request gets the same code back.
func (s *SQLiteStore) RequestPairing(senderID, channel, chatID, agentID string) (string, error) {
	var existing string
	err := s.db.QueryRow(
		`SELECT code FROM pairings WHERE sender_id = ? AND channel = ? AND approved = 0`,
		senderID, channel,
	).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("store: lookup pairing: %w", err)
	}

	code := newPairingCode()
	_, err = s.db.Exec(
		`INSERT INTO pairings (code, sender_id, channel, chat_id, agent_id, approved, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		code, senderID, channel, chatID, agentID, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("store: insert pairing: %w", err)
	}
	return code, nil
}

// Approve promotes a pending request to an approved pairing.
func (s *SQLiteStore) Approve(code string) (*PairingRequest, error) {
	code = strings.TrimSpace(strings.ToUpper(code))

	var req PairingRequest
	err := s.db.QueryRow(
		`SELECT code, sender_id, channel, chat_id, agent_id, created_at
		 FROM pairings WHERE code = ? AND approved = 0`,
		code,
	).Scan(&req.Code, &req.SenderID, &req.Channel, &req.ChatID, &req.AgentID, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: no pending pairing with code %s", code)
	}
	if err != nil {
		return nil, fmt.Errorf("store: lookup pairing: %w", err)
	}

	if _, err := s.db.Exec(`UPDATE pairings SET approved = 1 WHERE code = ?`, code); err != nil {
		return nil, fmt.Errorf("store: approve pairing: %w", err)
	}
	return &req, nil
}

// ListPending returns all pending requests, oldest first.
func (s *SQLiteStore) ListPending() ([]PairingRequest, error) {
	rows, err := s.db.Query(
		`SELECT code, sender_id, channel, chat_id, agent_id, created_at
		 FROM pairings WHERE approved = 0 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list pending: %w", err)
	}
	defer rows.Close()

	var out []PairingRequest
	for rows.Next() {
		var req PairingRequest
		if err := rows.Scan(&req.Code, &req.SenderID, &req.Channel, &req.ChatID, &req.AgentID, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan pairing: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// newPairingCode returns a short, human-relayable approval code.
func newPairingCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
