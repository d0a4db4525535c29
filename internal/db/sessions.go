package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionRecord is a row in the sessions table.
type SessionRecord struct {
	SessionID string
	UserID    string
	ExpiresAt int64
	CreatedAt int64
}

// UpsertSession stores a session, replacing any existing row with the
// same id.
func (s *Store) UpsertSession(ctx context.Context, sess SessionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (session_id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		sess.SessionID, sess.UserID, sess.ExpiresAt, sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// GetValidSession fetches a session that has not expired yet.
func (s *Store) GetValidSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	var sess SessionRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, expires_at, created_at FROM sessions WHERE session_id = ? AND expires_at > ?`,
		sessionID, time.Now().Unix(),
	).Scan(&sess.SessionID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes a session (logout).
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all sessions past their expiry.
func (s *Store) DeleteExpiredSessions(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now().Unix()); err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	return nil
}
