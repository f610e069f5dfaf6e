package signal

import (
	"context"

	"github.com/dkeye/heartlink/internal/app"
	"github.com/dkeye/heartlink/internal/domain"
	"github.com/dkeye/heartlink/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// HandleRoom upgrades the request into uid's connection to a game room.
// Zone membership must already be authorized.
func (ctl *SignalWSController) HandleRoom(ctx context.Context, c *gin.Context, roomID domain.RoomID, uid domain.UserID) {
	logger := log.With().Str("module", "signal").Str("hub", "rooms").Str("room", string(roomID)).Str("user", string(uid)).Logger()

	conn, err := ctl.upgrade(c)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		return
	}
	logger.Info().Msg("new WS connection")

	key := app.MemberKey{Room: roomID, User: uid}.String()
	ctl.Orch.JoinRoom(ctx, roomID, uid, conn)
	ctl.serve(ctx, session{
		conn:   conn,
		logger: logger,
		handle: func(data []byte) error {
			ev, err := protocol.Decode(data)
			if err != nil {
				return err
			}
			if _, relay := ev.(protocol.RoomRelay); relay && !ctl.Limiter.Allow(key) {
				logger.Debug().Str("type", string(ev.Tag())).Msg("relay rate limited")
				sendJSON(conn, protocol.Error("rate_limited"))
				return nil
			}
			ctl.Orch.Rooms.HandleEvent(roomID, uid, conn, ev)
			return nil
		},
		leave: func() {
			ctl.Limiter.Forget(key)
			ctl.Orch.LeaveRoom(roomID, uid, conn)
		},
	})
}
