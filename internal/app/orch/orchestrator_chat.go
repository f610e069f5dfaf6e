package orch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/domain"
	"github.com/rs/zerolog/log"
)

const maxMessageLen = 4000

var mediaMessageTypes = map[string]bool{"image": true, "voice": true, "video": true}

// SendChatMessage persists a message and pushes it to the partner's live
// connection. An offline partner gets a push notification instead.
func (o *Orchestrator) SendChatMessage(ctx context.Context, sender domain.UserID, matchID, content, messageType string) (*core.ChatMessage, bool, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxMessageLen {
		return nil, false, fmt.Errorf("%w: message content must be 1..%d bytes", domain.ErrInvalidInput, maxMessageLen)
	}
	if messageType == "" {
		messageType = "text"
	}
	if messageType != "text" && !mediaMessageTypes[messageType] {
		return nil, false, fmt.Errorf("%w: message type %q", domain.ErrInvalidInput, messageType)
	}

	partner, err := o.Matches.PartnerOf(ctx, matchID, sender)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("%w: %s is not part of match %s", domain.ErrNotAuthorized, sender, matchID)
	}
	if err != nil {
		return nil, false, fmt.Errorf("resolve match partner: %w", err)
	}

	mediaURL := ""
	if mediaMessageTypes[messageType] && o.Media != nil {
		url, err := o.Media.ResolveMediaURL(content)
		if err != nil {
			return nil, false, fmt.Errorf("%w: media reference: %v", domain.ErrInvalidInput, err)
		}
		mediaURL = url
	}

	msg, err := o.Messages.CreateMessage(ctx, matchID, sender, content, messageType)
	if err != nil {
		return nil, false, fmt.Errorf("store message: %w", err)
	}
	if msg.SenderName == "" {
		msg.SenderName = o.Profile(ctx, sender).Username
	}

	out := *msg
	if mediaURL != "" {
		out.Content = mediaURL
	}

	delivered := o.Chat.NotifyNewMessage(partner, out)
	if !delivered {
		o.push(ctx, partner, core.PushNotification{
			Kind:  "new_message",
			Title: out.SenderName,
			Body:  previewOf(out),
			Data:  map[string]string{"match_id": matchID, "message_id": fmt.Sprint(msg.ID)},
		})
	}
	log.Info().Str("module", "orch").Str("match", matchID).Int64("message", msg.ID).Bool("delivered", delivered).Msg("chat message sent")
	return &out, delivered, nil
}

func previewOf(m core.ChatMessage) string {
	if m.MessageType != "text" {
		return "sent you a " + m.MessageType
	}
	const max = 80
	if utf8.RuneCountInString(m.Content) > max {
		return string([]rune(m.Content)[:max]) + "..."
	}
	return m.Content
}
