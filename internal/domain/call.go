package domain

import "time"

type CallID string

type CallType string

const (
	CallVideo CallType = "video"
	CallAudio CallType = "audio"
)

func (t CallType) Valid() bool {
	return t == CallVideo || t == CallAudio
}

type CallStatus string

const (
	CallRinging  CallStatus = "ringing"
	CallActive   CallStatus = "active"
	CallEnded    CallStatus = "ended"
	CallRejected CallStatus = "rejected"
	CallMissed   CallStatus = "missed"
)

// CallSession is one call attempt from initiation to termination.
type CallSession struct {
	ID         CallID     `json:"call_id"`
	CallerID   UserID     `json:"caller_id"`
	ReceiverID UserID     `json:"receiver_id"`
	Type       CallType   `json:"call_type"`
	Status     CallStatus `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// Involves reports whether uid is the caller or the receiver.
func (s *CallSession) Involves(uid UserID) bool {
	return s.CallerID == uid || s.ReceiverID == uid
}

// Peer returns the other party of the call.
func (s *CallSession) Peer(uid UserID) UserID {
	if uid == s.CallerID {
		return s.ReceiverID
	}
	return s.CallerID
}
