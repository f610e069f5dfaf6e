// Package notify delivers the offline fallback for events a hub could not
// hand to a live connection.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Job is the queued form of a push notification, consumed by the push worker.
type Job struct {
	UserID       domain.UserID         `json:"user_id"`
	Notification core.PushNotification `json:"notification"`
	QueuedAt     time.Time             `json:"queued_at"`
}

// queue is the part of a redis client the notifier needs.
type queue interface {
	RPush(ctx context.Context, key string, values ...any) *redis.IntCmd
}

// RedisNotifier appends push jobs to a redis list.
type RedisNotifier struct {
	rdb queue
	key string
}

func NewRedisNotifier(rdb queue, key string) *RedisNotifier {
	if key == "" {
		key = "heartlink:push"
	}
	return &RedisNotifier{rdb: rdb, key: key}
}

func (n *RedisNotifier) Notify(ctx context.Context, uid domain.UserID, p core.PushNotification) error {
	b, err := json.Marshal(Job{UserID: uid, Notification: p, QueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode push job: %w", err)
	}
	if err := n.rdb.RPush(ctx, n.key, b).Err(); err != nil {
		return fmt.Errorf("queue push job: %w", err)
	}
	log.Debug().Str("module", "notify").Str("user", string(uid)).Str("kind", p.Kind).Msg("push queued")
	return nil
}

// LogNotifier only logs. Used when no redis is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, uid domain.UserID, p core.PushNotification) error {
	log.Info().Str("module", "notify").Str("user", string(uid)).Str("kind", p.Kind).Str("title", p.Title).Msg("push notification")
	return nil
}
