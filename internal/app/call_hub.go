package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/domain"
	"github.com/dkeye/heartlink/internal/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const historyWriteTimeout = 5 * time.Second

type tombstone struct {
	session domain.CallSession
	at      time.Time
}

// CallHub routes WebRTC call setup between two participants and owns the
// call state machine: ringing -> active -> ended, or ringing -> rejected.
type CallHub struct {
	Registry *Registry[domain.UserID]

	history core.CallHistory
	now     func() time.Time
	newID   func() domain.CallID

	mu     sync.Mutex
	active map[domain.CallID]*domain.CallSession
	ended  map[domain.CallID]tombstone
}

type CallHubOption func(*CallHub)

// WithClock replaces the time source.
func WithClock(now func() time.Time) CallHubOption {
	return func(h *CallHub) { h.now = now }
}

func WithCallIDs(gen func() domain.CallID) CallHubOption {
	return func(h *CallHub) { h.newID = gen }
}

func NewCallHub(history core.CallHistory, opts ...CallHubOption) *CallHub {
	h := &CallHub{
		Registry: NewRegistry[domain.UserID]("app.calls"),
		history:  history,
		now:      time.Now,
		newID:    newCallID,
		active:   make(map[domain.CallID]*domain.CallSession),
		ended:    make(map[domain.CallID]tombstone),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// newCallID returns a time-ordered unique id.
func newCallID() domain.CallID {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.CallID(uuid.NewString())
	}
	return domain.CallID(id.String())
}

func (h *CallHub) Connect(uid domain.UserID, conn core.SignalConnection) {
	h.Registry.Register(uid, conn)
}

// Disconnect is the connection-loss handler. Once uid has no live connection
// left, every session referencing it is ended and the peer notified.
func (h *CallHub) Disconnect(uid domain.UserID, conn core.SignalConnection) {
	h.Registry.Release(uid, conn)
	if h.Registry.IsOnline(uid) {
		return
	}

	h.mu.Lock()
	var doomed []domain.CallSession
	for id, s := range h.active {
		if s.Involves(uid) {
			doomed = append(doomed, h.finishLocked(id, domain.CallEnded))
		}
	}
	h.mu.Unlock()

	for _, s := range doomed {
		log.Info().Str("module", "app.calls").Str("call_id", string(s.ID)).Str("user", string(uid)).Msg("ending call on disconnect")
		h.Registry.SendEvent(s.Peer(uid), protocol.CallEnded(s.ID))
		h.record(s)
	}
}

// Initiate starts ringing receiver. Both parties must be connected.
func (h *CallHub) Initiate(caller, receiver domain.UserID, callType domain.CallType) (domain.CallID, error) {
	if !callType.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidCallType, callType)
	}
	if !h.Registry.IsOnline(receiver) {
		return "", fmt.Errorf("%w: receiver %s", domain.ErrPeerOffline, receiver)
	}
	if !h.Registry.IsOnline(caller) {
		return "", fmt.Errorf("%w: caller %s has no signaling connection", domain.ErrPeerOffline, caller)
	}

	s := &domain.CallSession{
		ID:         h.newID(),
		CallerID:   caller,
		ReceiverID: receiver,
		Type:       callType,
		Status:     domain.CallRinging,
		StartedAt:  h.now(),
	}
	h.mu.Lock()
	h.active[s.ID] = s
	snap := *s
	h.mu.Unlock()

	if !h.Registry.SendEvent(receiver, protocol.IncomingCall(snap)) {
		h.mu.Lock()
		delete(h.active, s.ID)
		h.mu.Unlock()
		return "", fmt.Errorf("%w: receiver %s unreachable", domain.ErrPeerOffline, receiver)
	}
	log.Info().Str("module", "app.calls").Str("call_id", string(s.ID)).Str("caller", string(caller)).Str("receiver", string(receiver)).Str("call_type", string(callType)).Msg("call ringing")
	return s.ID, nil
}

// Accept moves a ringing call to active. The transition happens even if the
// caller cannot be notified; the returned bool reports delivery.
func (h *CallHub) Accept(id domain.CallID, receiver domain.UserID) (bool, error) {
	h.mu.Lock()
	s, ok := h.active[id]
	if !ok {
		_, wasEnded := h.ended[id]
		h.mu.Unlock()
		if wasEnded {
			return false, fmt.Errorf("%w: call %s already terminated", domain.ErrInvalidCallState, id)
		}
		return false, fmt.Errorf("%w: call %s", domain.ErrNotFound, id)
	}
	if s.Status != domain.CallRinging {
		status := s.Status
		h.mu.Unlock()
		return false, fmt.Errorf("%w: call %s is %s", domain.ErrInvalidCallState, id, status)
	}
	if s.ReceiverID != receiver {
		h.mu.Unlock()
		return false, fmt.Errorf("%w: %s is not the receiver of %s", domain.ErrNotAuthorized, receiver, id)
	}
	now := h.now()
	s.Status = domain.CallActive
	s.AcceptedAt = &now
	caller := s.CallerID
	h.mu.Unlock()

	delivered := h.Registry.SendEvent(caller, protocol.CallAccepted(id))
	log.Info().Str("module", "app.calls").Str("call_id", string(id)).Bool("caller_notified", delivered).Msg("call accepted")
	return delivered, nil
}

// Reject ends a ringing call on behalf of its receiver.
func (h *CallHub) Reject(id domain.CallID, receiver domain.UserID) error {
	h.mu.Lock()
	s, ok := h.active[id]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: call %s", domain.ErrNotFound, id)
	}
	if s.Status != domain.CallRinging {
		status := s.Status
		h.mu.Unlock()
		return fmt.Errorf("%w: call %s is %s", domain.ErrInvalidCallState, id, status)
	}
	if s.ReceiverID != receiver {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s is not the receiver of %s", domain.ErrNotAuthorized, receiver, id)
	}
	snap := h.finishLocked(id, domain.CallRejected)
	h.mu.Unlock()

	h.Registry.SendEvent(snap.CallerID, protocol.CallRejected(id))
	h.record(snap)
	log.Info().Str("module", "app.calls").Str("call_id", string(id)).Msg("call rejected")
	return nil
}

// End terminates a call from either side. Ending an unknown or already ended
// call succeeds without notifying anyone.
func (h *CallHub) End(id domain.CallID, uid domain.UserID) error {
	h.mu.Lock()
	s, ok := h.active[id]
	if !ok {
		h.mu.Unlock()
		log.Debug().Str("module", "app.calls").Str("call_id", string(id)).Msg("end: call already gone")
		return nil
	}
	if !s.Involves(uid) {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s is not a party of %s", domain.ErrNotAuthorized, uid, id)
	}
	snap := h.finishLocked(id, domain.CallEnded)
	h.mu.Unlock()

	h.Registry.SendEvent(snap.Peer(uid), protocol.CallEnded(id))
	h.record(snap)
	log.Info().Str("module", "app.calls").Str("call_id", string(id)).Str("by", string(uid)).Msg("call ended")
	return nil
}

// ForwardSignal relays an opaque negotiation payload. Non-delivery does not
// affect any call session.
func (h *CallHub) ForwardSignal(from, to domain.UserID, payload json.RawMessage) bool {
	delivered := h.Registry.SendEvent(to, protocol.SignalFrom(from, payload))
	if !delivered {
		log.Debug().Str("module", "app.calls").Str("from", string(from)).Str("to", string(to)).Msg("signal not delivered")
	}
	return delivered
}

// HandleInbound processes one frame read from uid's call signaling connection.
func (h *CallHub) HandleInbound(uid domain.UserID, conn core.SignalConnection, data []byte) error {
	ev, err := protocol.Decode(data)
	if err != nil {
		return err
	}
	switch e := ev.(type) {
	case protocol.Ping:
		if f, err := protocol.Encode(protocol.Pong()); err == nil {
			_ = conn.TrySend(f)
		}
	case protocol.Signal:
		h.ForwardSignal(uid, e.To, e.Payload)
	default:
		log.Debug().Str("module", "app.calls").Str("type", string(ev.Tag())).Msg("ignored event")
	}
	return nil
}

// ActiveCalls lists the live sessions uid takes part in.
func (h *CallHub) ActiveCalls(uid domain.UserID) []domain.CallSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.CallSession
	for _, s := range h.active {
		if s.Involves(uid) {
			out = append(out, *s)
		}
	}
	return out
}

func (h *CallHub) Get(id domain.CallID) (domain.CallSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.active[id]
	if !ok {
		return domain.CallSession{}, false
	}
	return *s, true
}

func (h *CallHub) ActiveCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.active)
}

// ExpireRinging ends calls left ringing for longer than timeout. Both parties
// are told the call ended.
func (h *CallHub) ExpireRinging(timeout time.Duration) int {
	cutoff := h.now().Add(-timeout)

	h.mu.Lock()
	var expired []domain.CallSession
	for id, s := range h.active {
		if s.Status == domain.CallRinging && s.StartedAt.Before(cutoff) {
			expired = append(expired, h.finishLocked(id, domain.CallMissed))
		}
	}
	h.mu.Unlock()

	for _, s := range expired {
		h.Registry.SendEvent(s.CallerID, protocol.CallEnded(s.ID))
		h.Registry.SendEvent(s.ReceiverID, protocol.CallEnded(s.ID))
		h.record(s)
		log.Info().Str("module", "app.calls").Str("call_id", string(s.ID)).Msg("unanswered call expired")
	}
	return len(expired)
}

// PruneTombstones forgets terminated call ids older than ttl.
func (h *CallHub) PruneTombstones(ttl time.Duration) int {
	cutoff := h.now().Add(-ttl)
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for id, t := range h.ended {
		if t.at.Before(cutoff) {
			delete(h.ended, id)
			n++
		}
	}
	return n
}

// finishLocked moves a session out of the active set. h.mu must be held.
func (h *CallHub) finishLocked(id domain.CallID, status domain.CallStatus) domain.CallSession {
	s := h.active[id]
	now := h.now()
	s.Status = status
	s.EndedAt = &now
	delete(h.active, id)
	snap := *s
	h.ended[id] = tombstone{session: snap, at: now}
	return snap
}

func (h *CallHub) record(s domain.CallSession) {
	if h.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	if err := h.history.Record(ctx, s); err != nil {
		log.Warn().Err(err).Str("module", "app.calls").Str("call_id", string(s.ID)).Msg("call history write failed")
	}
}
