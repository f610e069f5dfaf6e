package signal

import (
	"context"

	"github.com/dkeye/heartlink/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// HandleCallSignal upgrades the request into uid's call signaling
// connection. Losing it ends uid's calls unless a newer connection took over.
func (ctl *SignalWSController) HandleCallSignal(ctx context.Context, c *gin.Context, uid domain.UserID) {
	logger := log.With().Str("module", "signal").Str("hub", "calls").Str("user", string(uid)).Logger()

	conn, err := ctl.upgrade(c)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		return
	}
	logger.Info().Msg("new WS connection")

	ctl.Orch.Calls.Connect(uid, conn)
	ctl.serve(ctx, session{
		conn:   conn,
		logger: logger,
		handle: func(data []byte) error {
			return ctl.Orch.Calls.HandleInbound(uid, conn, data)
		},
		leave: func() { ctl.Orch.Calls.Disconnect(uid, conn) },
	})
}
