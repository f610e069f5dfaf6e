package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/heartlink/internal/domain"
)

// CallHistoryRepository keeps terminated call sessions.
type CallHistoryRepository struct {
	db *DB
}

func NewCallHistoryRepository(db *DB) *CallHistoryRepository {
	return &CallHistoryRepository{db: db}
}

// Record stores a terminated session. Recording the same call twice keeps the latest state.
func (r *CallHistoryRepository) Record(ctx context.Context, s domain.CallSession) error {
	var duration int64
	if s.AcceptedAt != nil && s.EndedAt != nil {
		duration = int64(s.EndedAt.Sub(*s.AcceptedAt) / time.Second)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO call_history (call_id, caller_id, receiver_id, call_type, status, started_at, accepted_at, ended_at, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(call_id) DO UPDATE SET
			status = excluded.status,
			accepted_at = excluded.accepted_at,
			ended_at = excluded.ended_at,
			duration_seconds = excluded.duration_seconds
	`, string(s.ID), string(s.CallerID), string(s.ReceiverID), string(s.Type), string(s.Status),
		s.StartedAt, s.AcceptedAt, s.EndedAt, duration)
	if err != nil {
		return fmt.Errorf("inserting call history: %w", err)
	}
	return nil
}

// ListForUser returns the most recent calls uid took part in, newest first.
func (r *CallHistoryRepository) ListForUser(ctx context.Context, uid domain.UserID, limit int) ([]domain.CallSession, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT call_id, caller_id, receiver_id, call_type, status, started_at, accepted_at, ended_at
		FROM call_history
		WHERE caller_id = ? OR receiver_id = ?
		ORDER BY started_at DESC LIMIT ?
	`, string(uid), string(uid), limit)
	if err != nil {
		return nil, fmt.Errorf("querying call history: %w", err)
	}
	defer rows.Close()

	var out []domain.CallSession
	for rows.Next() {
		var s domain.CallSession
		if err := rows.Scan(&s.ID, &s.CallerID, &s.ReceiverID, &s.Type, &s.Status, &s.StartedAt, &s.AcceptedAt, &s.EndedAt); err != nil {
			return nil, fmt.Errorf("scanning call history: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
