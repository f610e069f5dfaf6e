package protocol

import (
	"encoding/json"

	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/domain"
)

// Encode serialises an outbound event.
func Encode(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}

type Bare struct {
	Type Tag `json:"type"`
}

func Pong() Bare { return Bare{Type: TagPong} }

type ErrorEvent struct {
	Type  Tag    `json:"type"`
	Error string `json:"error"`
}

func Error(code string) ErrorEvent { return ErrorEvent{Type: TagError, Error: code} }

type NewMessageEvent struct {
	Type    Tag              `json:"type"`
	Message core.ChatMessage `json:"message"`
}

func NewMessage(m core.ChatMessage) NewMessageEvent {
	return NewMessageEvent{Type: TagNewMessage, Message: m}
}

type TypingEvent struct {
	Type     Tag           `json:"type"`
	UserID   domain.UserID `json:"user_id"`
	IsTyping bool          `json:"is_typing"`
}

func TypingOf(uid domain.UserID, isTyping bool) TypingEvent {
	return TypingEvent{Type: TagTyping, UserID: uid, IsTyping: isTyping}
}

type SignalEvent struct {
	Type       Tag             `json:"type"`
	FromUserID domain.UserID   `json:"from_user_id"`
	Signal     json.RawMessage `json:"signal"`
}

func SignalFrom(from domain.UserID, payload json.RawMessage) SignalEvent {
	return SignalEvent{Type: TagWebRTCSignal, FromUserID: from, Signal: payload}
}

type IncomingCallEvent struct {
	Type     Tag             `json:"type"`
	CallID   domain.CallID   `json:"call_id"`
	CallerID domain.UserID   `json:"caller_id"`
	CallType domain.CallType `json:"call_type"`
}

func IncomingCall(s domain.CallSession) IncomingCallEvent {
	return IncomingCallEvent{Type: TagIncomingCall, CallID: s.ID, CallerID: s.CallerID, CallType: s.Type}
}

type CallEvent struct {
	Type   Tag           `json:"type"`
	CallID domain.CallID `json:"call_id"`
}

func CallAccepted(id domain.CallID) CallEvent { return CallEvent{Type: TagCallAccepted, CallID: id} }
func CallRejected(id domain.CallID) CallEvent { return CallEvent{Type: TagCallRejected, CallID: id} }
func CallEnded(id domain.CallID) CallEvent    { return CallEvent{Type: TagCallEnded, CallID: id} }

type MemberEvent struct {
	Type Tag         `json:"type"`
	User domain.User `json:"user"`
}

func MemberJoined(u domain.User) MemberEvent { return MemberEvent{Type: TagMemberJoined, User: u} }
func MemberLeft(u domain.User) MemberEvent   { return MemberEvent{Type: TagMemberLeft, User: u} }

type GameStartedEvent struct {
	Type      Tag           `json:"type"`
	SessionID string        `json:"session_id"`
	Players   []domain.User `json:"players"`
}

func GameStarted(g domain.GameSession) GameStartedEvent {
	return GameStartedEvent{Type: TagGameStarted, SessionID: g.ID, Players: g.Players}
}

type BottleSpunEvent struct {
	Type   Tag               `json:"type"`
	Result domain.SpinResult `json:"result"`
}

func BottleSpun(r domain.SpinResult) BottleSpunEvent {
	return BottleSpunEvent{Type: TagBottleSpun, Result: r}
}

// Question is a custom question asked in a room.
type Question struct {
	Asker    domain.User `json:"asker"`
	Question string      `json:"question"`
	Kind     string      `json:"question_type"`
}

type QuestionAskedEvent struct {
	Type   Tag      `json:"type"`
	Result Question `json:"result"`
}

func QuestionAsked(q Question) QuestionAskedEvent {
	return QuestionAskedEvent{Type: TagQuestionAsked, Result: q}
}
