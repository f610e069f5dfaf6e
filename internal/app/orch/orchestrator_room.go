package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/domain"
	"github.com/dkeye/heartlink/internal/protocol"
	"github.com/rs/zerolog/log"
)

// JoinRoom puts uid's connection into the room and announces them to the
// others. Membership is checked beforehand with AuthorizeMember.
func (o *Orchestrator) JoinRoom(ctx context.Context, room domain.RoomID, uid domain.UserID, conn core.SignalConnection) domain.User {
	u := o.Profile(ctx, uid)
	o.Rooms.Join(room, u, conn)
	o.Rooms.Broadcast(room, protocol.MemberJoined(u), uid)
	return u
}

// LeaveRoom handles a closed room connection. A connection that was already
// replaced by a newer one leaves no trace.
func (o *Orchestrator) LeaveRoom(room domain.RoomID, uid domain.UserID, conn core.SignalConnection) {
	u, removed := o.Rooms.LeaveConn(room, uid, conn)
	if !removed {
		return
	}
	o.Rooms.Broadcast(room, protocol.MemberLeft(u), "")
}

func (o *Orchestrator) StartGame(ctx context.Context, room domain.RoomID, uid domain.UserID) (domain.GameSession, error) {
	if err := o.requireAdmin(ctx, room, uid); err != nil {
		return domain.GameSession{}, err
	}
	return o.Rooms.StartGame(room)
}

func (o *Orchestrator) SpinBottle(ctx context.Context, room domain.RoomID, uid domain.UserID) (domain.SpinResult, error) {
	if err := o.AuthorizeMember(ctx, room, uid); err != nil {
		return domain.SpinResult{}, err
	}
	return o.Rooms.Spin(room)
}

func (o *Orchestrator) AskQuestion(ctx context.Context, room domain.RoomID, uid domain.UserID, question, kind string) (core.PublishResult, error) {
	if err := o.AuthorizeMember(ctx, room, uid); err != nil {
		return core.PublishResult{}, err
	}
	if question == "" {
		return core.PublishResult{}, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if kind == "" {
		kind = "truth"
	}
	return o.Rooms.AskQuestion(room, o.Profile(ctx, uid), question, kind), nil
}

// KickMember disconnects target from the room and tells the rest. Admins only.
func (o *Orchestrator) KickMember(ctx context.Context, room domain.RoomID, uid, target domain.UserID) error {
	if err := o.requireAdmin(ctx, room, uid); err != nil {
		return err
	}
	u, removed := o.Rooms.Leave(room, target)
	if !removed {
		return fmt.Errorf("%w: %s is not connected to zone %s", domain.ErrNotFound, target, room)
	}
	o.Rooms.Broadcast(room, protocol.MemberLeft(u), "")
	log.Info().Str("module", "orch").Str("room", string(room)).Str("by", string(uid)).Str("user", string(target)).Msg("member kicked")
	return nil
}

// EvictRoom disconnects everyone from the room. Admins only.
func (o *Orchestrator) EvictRoom(ctx context.Context, room domain.RoomID, uid domain.UserID) (int, error) {
	if err := o.requireAdmin(ctx, room, uid); err != nil {
		return 0, err
	}
	n := o.Rooms.EvictRoom(room)
	log.Info().Str("module", "orch").Str("room", string(room)).Str("by", string(uid)).Int("evicted", n).Msg("room evicted")
	return n, nil
}

// AuthorizeMember fails with domain.ErrNotAuthorized unless uid belongs to the zone.
func (o *Orchestrator) AuthorizeMember(ctx context.Context, room domain.RoomID, uid domain.UserID) error {
	if o.Zones == nil {
		return nil
	}
	ok, err := o.Zones.IsMember(ctx, room, uid)
	if err != nil {
		return fmt.Errorf("check zone membership: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s is not a member of zone %s", domain.ErrNotAuthorized, uid, room)
	}
	return nil
}

func (o *Orchestrator) requireAdmin(ctx context.Context, room domain.RoomID, uid domain.UserID) error {
	if o.Zones == nil {
		return nil
	}
	ok, err := o.Zones.IsAdmin(ctx, room, uid)
	if err != nil {
		return fmt.Errorf("check zone admin: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s is not an admin of zone %s", domain.ErrNotAuthorized, uid, room)
	}
	return nil
}
