// Package orch wires the hubs to the collaborators around them: match
// authorization, persistence, push fallback and room membership.
package orch

import (
	"context"

	"github.com/dkeye/heartlink/internal/app"
	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/domain"
	"github.com/rs/zerolog/log"
)

type Orchestrator struct {
	Chat  *app.ChatHub
	Calls *app.CallHub
	Rooms *app.RoomHub

	Matches   core.MatchDirectory
	Unmatcher core.MatchCloser
	Users     core.UserDirectory
	Messages  core.MessageStore
	Push      core.PushNotifier
	Media     core.MediaResolver
	Zones     core.ZoneDirectory
}

// Stats is a point-in-time view of the hubs.
type Stats struct {
	ChatOnline  int            `json:"chat_online"`
	CallOnline  int            `json:"call_online"`
	ActiveCalls int            `json:"active_calls"`
	Rooms       []app.RoomInfo `json:"rooms"`
}

func (o *Orchestrator) Stats() Stats {
	return Stats{
		ChatOnline:  o.Chat.Registry.Len(),
		CallOnline:  o.Calls.Registry.Len(),
		ActiveCalls: o.Calls.ActiveCount(),
		Rooms:       o.Rooms.List(),
	}
}

// Profile returns the directory record of uid, or a bare identity when there is none.
func (o *Orchestrator) Profile(ctx context.Context, uid domain.UserID) domain.User {
	if o.Users != nil {
		u, err := o.Users.User(ctx, uid)
		if err == nil {
			return *u
		}
		log.Debug().Err(err).Str("module", "orch").Str("user", string(uid)).Msg("user lookup failed")
	}
	return domain.User{ID: uid, Username: string(uid)}
}

// push delivers the offline fallback. Failures are logged only.
func (o *Orchestrator) push(ctx context.Context, uid domain.UserID, n core.PushNotification) {
	if o.Push == nil {
		return
	}
	if err := o.Push.Notify(ctx, uid, n); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("user", string(uid)).Str("kind", n.Kind).Msg("push notification failed")
	}
}
