package signal

import (
	"context"

	"github.com/dkeye/heartlink/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// HandleChat upgrades the request into uid's chat connection.
func (ctl *SignalWSController) HandleChat(ctx context.Context, c *gin.Context, uid domain.UserID) {
	logger := log.With().Str("module", "signal").Str("hub", "chat").Str("user", string(uid)).Logger()

	conn, err := ctl.upgrade(c)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		return
	}
	logger.Info().Msg("new WS connection")

	ctl.Orch.Chat.Connect(uid, conn)
	ctl.serve(ctx, session{
		conn:   conn,
		logger: logger,
		handle: func(data []byte) error {
			return ctl.Orch.Chat.HandleInbound(ctx, uid, conn, data)
		},
		leave: func() { ctl.Orch.Chat.Disconnect(uid, conn) },
	})
}
