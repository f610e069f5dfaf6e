package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/heartlink/internal/domain"
)

var ErrBadPayload = errors.New("bad payload")

// Event is a decoded inbound event.
type Event interface {
	Tag() Tag
}

type Ping struct{}

func (Ping) Tag() Tag { return TagPing }

// Typing is a typing indicator for a conversation (match or room).
type Typing struct {
	ConversationID string
	IsTyping       bool
}

func (Typing) Tag() Tag { return TagTyping }

// Signal is an opaque WebRTC negotiation blob addressed to one participant.
type Signal struct {
	To      domain.UserID
	Payload json.RawMessage
}

func (Signal) Tag() Tag { return TagWebRTCSignal }

// RoomRelay is a room event forwarded as received.
type RoomRelay struct {
	Kind Tag
	Raw  json.RawMessage
}

func (r RoomRelay) Tag() Tag { return r.Kind }

// Unknown carries an unrecognised tag; receivers ignore it.
type Unknown struct {
	Kind Tag
}

func (u Unknown) Tag() Tag { return u.Kind }

type envelope struct {
	Type     Tag             `json:"type"`
	MatchID  json.RawMessage `json:"match_id"`
	RoomID   json.RawMessage `json:"room_id"`
	IsTyping bool            `json:"is_typing"`
	ToUserID json.RawMessage `json:"to_user_id"`
	Signal   json.RawMessage `json:"signal"`
}

// Decode parses one inbound frame. It fails only for malformed JSON or a
// known tag missing its required fields.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	switch env.Type {
	case TagPing:
		return Ping{}, nil
	case TagTyping:
		raw := env.MatchID
		if isEmpty(raw) {
			raw = env.RoomID
		}
		if isEmpty(raw) {
			return nil, fmt.Errorf("%w: typing without match_id", ErrBadPayload)
		}
		id, err := domain.ParseFlexibleID(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: match_id: %v", ErrBadPayload, err)
		}
		return Typing{ConversationID: id, IsTyping: env.IsTyping}, nil
	case TagWebRTCSignal:
		if isEmpty(env.ToUserID) || isEmpty(env.Signal) {
			return nil, fmt.Errorf("%w: webrtc_signal needs to_user_id and signal", ErrBadPayload)
		}
		to, err := domain.ParseFlexibleID(env.ToUserID)
		if err != nil {
			return nil, fmt.Errorf("%w: to_user_id: %v", ErrBadPayload, err)
		}
		return Signal{To: domain.UserID(to), Payload: env.Signal}, nil
	}

	if env.Type.IsRoomRelay() {
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return RoomRelay{Kind: env.Type, Raw: raw}, nil
	}
	return Unknown{Kind: env.Type}, nil
}

func isEmpty(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
