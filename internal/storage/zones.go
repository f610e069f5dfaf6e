package storage

import (
	"context"
	"fmt"

	"github.com/dkeye/heartlink/internal/domain"
)

type ZoneRole string

const (
	ZoneMember ZoneRole = "member"
	ZoneAdmin  ZoneRole = "admin"
)

// ZoneRepository holds game zones and who belongs to them.
type ZoneRepository struct {
	db *DB
}

func NewZoneRepository(db *DB) *ZoneRepository {
	return &ZoneRepository{db: db}
}

func (r *ZoneRepository) Create(ctx context.Context, id domain.RoomID, name string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO zones (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, string(id), name, now())
	if err != nil {
		return fmt.Errorf("inserting zone: %w", err)
	}
	return nil
}

// AddMember adds uid to the zone or changes its role.
func (r *ZoneRepository) AddMember(ctx context.Context, zone domain.RoomID, uid domain.UserID, role ZoneRole) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO zone_members (zone_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(zone_id, user_id) DO UPDATE SET role = excluded.role
	`, string(zone), string(uid), string(role), now())
	if err != nil {
		return fmt.Errorf("inserting zone member: %w", err)
	}
	return nil
}

func (r *ZoneRepository) IsMember(ctx context.Context, zone domain.RoomID, uid domain.UserID) (bool, error) {
	return r.hasRole(ctx, zone, uid, "")
}

func (r *ZoneRepository) IsAdmin(ctx context.Context, zone domain.RoomID, uid domain.UserID) (bool, error) {
	return r.hasRole(ctx, zone, uid, ZoneAdmin)
}

// hasRole matches any role when role is empty.
func (r *ZoneRepository) hasRole(ctx context.Context, zone domain.RoomID, uid domain.UserID, role ZoneRole) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM zone_members WHERE zone_id = ? AND user_id = ? AND (? = '' OR role = ?)
	`, string(zone), string(uid), string(role), string(role)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying zone member: %w", err)
	}
	return n > 0, nil
}
