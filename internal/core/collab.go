package core

import (
	"context"
	"time"

	"github.com/dkeye/heartlink/internal/domain"
)

// Collaborators consulted around the hubs. The hubs never call these while holding a lock.

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.UserID, error)
}

type TokenIssuer interface {
	Issue(ctx context.Context, uid domain.UserID, ttl time.Duration) (string, error)
}

// MatchDirectory answers who may talk to whom.
type MatchDirectory interface {
	IsAuthorizedPair(ctx context.Context, a, b domain.UserID) (bool, error)
	// PartnerOf returns the other participant of a match, or domain.ErrNotFound
	// if uid is not part of it.
	PartnerOf(ctx context.Context, matchID string, uid domain.UserID) (domain.UserID, error)
}

// MatchCloser ends a match. Later chat and calls between the pair are refused.
type MatchCloser interface {
	Deactivate(ctx context.Context, matchID string) error
}

type UserDirectory interface {
	User(ctx context.Context, uid domain.UserID) (*domain.User, error)
}

// ChatMessage is a persisted chat message as delivered to clients.
type ChatMessage struct {
	ID          int64         `json:"id"`
	MatchID     string        `json:"match_id"`
	SenderID    domain.UserID `json:"sender_id"`
	Content     string        `json:"content"`
	MessageType string        `json:"message_type"`
	SenderName  string        `json:"sender_name"`
	CreatedAt   time.Time     `json:"created_at"`
}

type MessageStore interface {
	CreateMessage(ctx context.Context, matchID string, sender domain.UserID, content, messageType string) (*ChatMessage, error)
}

// PushNotification is the offline fallback payload.
type PushNotification struct {
	Kind  string            `json:"kind"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type PushNotifier interface {
	Notify(ctx context.Context, uid domain.UserID, n PushNotification) error
}

type MediaResolver interface {
	ResolveMediaURL(ref string) (string, error)
}

// CallHistory receives every terminated call session.
type CallHistory interface {
	Record(ctx context.Context, s domain.CallSession) error
}

type ZoneDirectory interface {
	IsMember(ctx context.Context, room domain.RoomID, uid domain.UserID) (bool, error)
	IsAdmin(ctx context.Context, room domain.RoomID, uid domain.UserID) (bool, error)
}
