package storage

import (
	"context"
	"fmt"

	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/domain"
)

type MessageRepository struct {
	db *DB
}

func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateMessage stores a message and returns it with the sender's name.
func (r *MessageRepository) CreateMessage(ctx context.Context, matchID string, sender domain.UserID, content, messageType string) (*core.ChatMessage, error) {
	created := now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (match_id, sender_id, content, message_type, created_at) VALUES (?, ?, ?, ?, ?)
	`, matchID, string(sender), content, messageType, created)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}

	m := &core.ChatMessage{}
	err = r.db.QueryRowContext(ctx, `
		SELECT m.id, m.match_id, m.sender_id, m.content, m.message_type, m.created_at, COALESCE(u.name, '')
		FROM messages m LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.id = ?
	`, id).Scan(&m.ID, &m.MatchID, &m.SenderID, &m.Content, &m.MessageType, &m.CreatedAt, &m.SenderName)
	if err != nil {
		return nil, fmt.Errorf("querying message: %w", err)
	}
	return m, nil
}

// ListMessages returns up to limit messages of a match, oldest first.
func (r *MessageRepository) ListMessages(ctx context.Context, matchID string, limit int) ([]core.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT * FROM (
			SELECT m.id, m.match_id, m.sender_id, m.content, m.message_type, m.created_at, COALESCE(u.name, '')
			FROM messages m LEFT JOIN users u ON u.id = m.sender_id
			WHERE m.match_id = ?
			ORDER BY m.id DESC LIMIT ?
		) ORDER BY id ASC
	`, matchID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var out []core.ChatMessage
	for rows.Next() {
		var m core.ChatMessage
		if err := rows.Scan(&m.ID, &m.MatchID, &m.SenderID, &m.Content, &m.MessageType, &m.CreatedAt, &m.SenderName); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
