package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkeye/heartlink/internal/domain"
)

// MatchRepository answers which users may talk to each other.
type MatchRepository struct {
	db *DB
}

func NewMatchRepository(db *DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func orderedPair(a, b domain.UserID) (domain.UserID, domain.UserID) {
	if b < a {
		return b, a
	}
	return a, b
}

// Create records an active match between a and b and returns its id.
// Matching an already matched pair reactivates it.
func (r *MatchRepository) Create(ctx context.Context, a, b domain.UserID) (int64, error) {
	if a == b {
		return 0, fmt.Errorf("%w: cannot match a user with itself", domain.ErrInvalidInput)
	}
	u1, u2 := orderedPair(a, b)
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO matches (user1_id, user2_id, is_active, created_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(user1_id, user2_id) DO UPDATE SET is_active = 1
		RETURNING id
	`, string(u1), string(u2), now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting match: %w", err)
	}
	return id, nil
}

// Deactivate unmatches the pair; later chat and calls are refused.
func (r *MatchRepository) Deactivate(ctx context.Context, matchID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE matches SET is_active = 0 WHERE id = ? AND is_active = 1`, matchID)
	if err != nil {
		return fmt.Errorf("deactivating match: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: match %s", domain.ErrNotFound, matchID)
	}
	return nil
}

func (r *MatchRepository) IsAuthorizedPair(ctx context.Context, a, b domain.UserID) (bool, error) {
	u1, u2 := orderedPair(a, b)
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matches WHERE user1_id = ? AND user2_id = ? AND is_active = 1
	`, string(u1), string(u2)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying match: %w", err)
	}
	return n > 0, nil
}

func (r *MatchRepository) PartnerOf(ctx context.Context, matchID string, uid domain.UserID) (domain.UserID, error) {
	var u1, u2 string
	err := r.db.QueryRowContext(ctx, `
		SELECT user1_id, user2_id FROM matches WHERE id = ? AND is_active = 1
	`, matchID).Scan(&u1, &u2)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: match %s", domain.ErrNotFound, matchID)
	}
	if err != nil {
		return "", fmt.Errorf("querying match: %w", err)
	}
	switch uid {
	case domain.UserID(u1):
		return domain.UserID(u2), nil
	case domain.UserID(u2):
		return domain.UserID(u1), nil
	}
	return "", fmt.Errorf("%w: %s is not part of match %s", domain.ErrNotFound, uid, matchID)
}
