package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/heartlink/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// session is one upgraded connection plus the callbacks binding it to a hub.
type session struct {
	conn   *WsSignalConn
	logger zerolog.Logger
	handle func(data []byte) error
	leave  func()
}

func (ctl *SignalWSController) upgrade(c *gin.Context) (*WsSignalConn, error) {
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return nil, err
	}
	return newWsSignalConn(ws, ctl.opts.SendBuffer), nil
}

// serve runs the pumps until the connection drops or ctx is cancelled.
func (ctl *SignalWSController) serve(ctx context.Context, s session) {
	go ctl.writePump(ctx, s)
	go ctl.readPump(s)
}

func (ctl *SignalWSController) writePump(ctx context.Context, s session) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("writePump ctx done")
			return
		case data, ok := <-s.conn.send:
			if !ok {
				s.logger.Debug().Msg("writePump channel closed")
				return
			}
			if err := s.conn.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				s.logger.Error().Err(err).Msg("writePump set deadline")
				return
			}
			if err := s.conn.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn().Err(err).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := s.conn.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				s.logger.Warn().Err(err).Msg("writePump ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(s session) {
	defer func() {
		s.logger.Info().Msg("readPump closing")
		s.leave()
		s.conn.Close()
	}()

	ws := s.conn.conn
	ws.SetReadLimit(ctl.opts.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("readPump read error")
			}
			return
		}
		if err := s.handle(data); err != nil {
			if errors.Is(err, protocol.ErrBadPayload) {
				s.logger.Debug().Err(err).Msg("bad payload")
				sendJSON(s.conn, protocol.Error("bad_payload"))
				continue
			}
			s.logger.Error().Err(err).Msg("handle frame")
		}
	}
}

func sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
