// Package protocol defines the tagged JSON events exchanged over signaling connections.
package protocol

// Tag identifies the kind of an event.
type Tag string

const (
	// Keepalive
	TagPing Tag = "ping"
	TagPong Tag = "pong"

	// Chat
	TagTyping     Tag = "typing"
	TagNewMessage Tag = "new_message"

	// Calls
	TagWebRTCSignal Tag = "webrtc_signal"
	TagIncomingCall Tag = "incoming_call"
	TagCallAccepted Tag = "call_accepted"
	TagCallRejected Tag = "call_rejected"
	TagCallEnded    Tag = "call_ended"

	// Rooms, relayed verbatim
	TagChatMessage Tag = "chat_message"
	TagAnswerGiven Tag = "answer_given"
	TagVoiceStart  Tag = "voice_start"
	TagVoiceStop   Tag = "voice_stop"
	TagChoiceMade  Tag = "choice_made"

	// Rooms, server generated
	TagMemberJoined  Tag = "member_joined"
	TagMemberLeft    Tag = "member_left"
	TagGameStarted   Tag = "game_started"
	TagBottleSpun    Tag = "bottle_spun"
	TagQuestionAsked Tag = "question_asked"

	TagError Tag = "error"
)

// IsRoomRelay reports whether events of this tag are forwarded verbatim to a room.
func (t Tag) IsRoomRelay() bool {
	switch t {
	case TagChatMessage, TagAnswerGiven, TagVoiceStart, TagVoiceStop, TagChoiceMade:
		return true
	}
	return false
}
