package app

import (
	"context"

	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/domain"
	"github.com/dkeye/heartlink/internal/protocol"
	"github.com/rs/zerolog/log"
)

// ChatHub is the last mile for chat messages and typing indicators.
// Delivery is best-effort; offline recipients are covered by push elsewhere.
type ChatHub struct {
	Registry *Registry[domain.UserID]
	matches  core.MatchDirectory
}

func NewChatHub(matches core.MatchDirectory) *ChatHub {
	return &ChatHub{
		Registry: NewRegistry[domain.UserID]("app.chat"),
		matches:  matches,
	}
}

func (h *ChatHub) Connect(uid domain.UserID, conn core.SignalConnection) {
	h.Registry.Register(uid, conn)
}

func (h *ChatHub) Disconnect(uid domain.UserID, conn core.SignalConnection) {
	h.Registry.Release(uid, conn)
}

func (h *ChatHub) NotifyNewMessage(recipient domain.UserID, msg core.ChatMessage) bool {
	return h.Registry.SendEvent(recipient, protocol.NewMessage(msg))
}

func (h *ChatHub) NotifyTyping(recipient, sender domain.UserID, isTyping bool) bool {
	return h.Registry.SendEvent(recipient, protocol.TypingOf(sender, isTyping))
}

// HandleInbound processes one frame read from uid's chat connection.
// Only malformed frames are reported; unknown tags are ignored.
func (h *ChatHub) HandleInbound(ctx context.Context, uid domain.UserID, conn core.SignalConnection, data []byte) error {
	ev, err := protocol.Decode(data)
	if err != nil {
		return err
	}
	switch e := ev.(type) {
	case protocol.Ping:
		if f, err := protocol.Encode(protocol.Pong()); err == nil {
			_ = conn.TrySend(f)
		}
	case protocol.Typing:
		partner, err := h.matches.PartnerOf(ctx, e.ConversationID, uid)
		if err != nil {
			log.Debug().Err(err).Str("module", "app.chat").Str("user", string(uid)).Str("match", e.ConversationID).Msg("typing: no partner")
			return nil
		}
		h.NotifyTyping(partner, uid, e.IsTyping)
	default:
		log.Debug().Str("module", "app.chat").Str("type", string(ev.Tag())).Msg("ignored event")
	}
	return nil
}
