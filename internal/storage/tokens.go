package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/heartlink/internal/domain"
)

// TokenRepository issues and validates opaque access tokens. Only a hash of
// each token is stored.
type TokenRepository struct {
	db *DB
}

func NewTokenRepository(db *DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *TokenRepository) Issue(ctx context.Context, uid domain.UserID, ttl time.Duration) (string, error) {
	token := rand.Text()
	created := now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_tokens (token_hash, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)
	`, hashToken(token), string(uid), created.Add(ttl), created)
	if err != nil {
		return "", fmt.Errorf("inserting token: %w", err)
	}
	return token, nil
}

// Authenticate resolves a token to its user. Unknown and expired tokens fail
// with domain.ErrNotAuthorized.
func (r *TokenRepository) Authenticate(ctx context.Context, token string) (domain.UserID, error) {
	if token == "" {
		return "", fmt.Errorf("%w: missing token", domain.ErrNotAuthorized)
	}
	var (
		uid     string
		expires time.Time
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, expires_at FROM access_tokens WHERE token_hash = ?
	`, hashToken(token)).Scan(&uid, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: unknown token", domain.ErrNotAuthorized)
	}
	if err != nil {
		return "", fmt.Errorf("querying token: %w", err)
	}
	if !expires.After(now()) {
		return "", fmt.Errorf("%w: token expired", domain.ErrNotAuthorized)
	}
	return domain.UserID(uid), nil
}

func (r *TokenRepository) Revoke(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE token_hash = ?`, hashToken(token)); err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired tokens and returns how many were removed.
func (r *TokenRepository) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE expires_at <= ?`, now())
	if err != nil {
		return 0, fmt.Errorf("purging tokens: %w", err)
	}
	return res.RowsAffected()
}
