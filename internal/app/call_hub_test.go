package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/heartlink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedHistory struct {
	mu       sync.Mutex
	sessions []domain.CallSession
}

func (r *recordedHistory) Record(_ context.Context, s domain.CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
	return nil
}

func (r *recordedHistory) all() []domain.CallSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.CallSession(nil), r.sessions...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCallHub() (*CallHub, *recordedHistory, *fakeClock) {
	hist := &recordedHistory{}
	clock := &fakeClock{now: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	n := 0
	h := NewCallHub(hist,
		WithClock(clock.Now),
		WithCallIDs(func() domain.CallID {
			n++
			return domain.CallID(fmt.Sprintf("call-%d", n))
		}),
	)
	return h, hist, clock
}

func TestCallHub_FullCallLifecycle(t *testing.T) {
	h, hist, _ := newTestCallHub()
	alice, bob := &mockConn{}, &mockConn{}
	h.Connect("alice", alice)
	h.Connect("bob", bob)

	id, err := h.Initiate("alice", "bob", domain.CallVideo)
	require.NoError(t, err)

	ev := bob.last()
	require.NotNil(t, ev)
	assert.Equal(t, "incoming_call", ev["type"])
	assert.Equal(t, string(id), ev["call_id"])
	assert.Equal(t, "alice", ev["caller_id"])
	assert.Equal(t, "video", ev["call_type"])

	notified, err := h.Accept(id, "bob")
	require.NoError(t, err)
	assert.True(t, notified)
	assert.Equal(t, "call_accepted", alice.last()["type"])

	s, ok := h.Get(id)
	require.True(t, ok)
	assert.Equal(t, domain.CallActive, s.Status)
	assert.NotNil(t, s.AcceptedAt)

	require.NoError(t, h.End(id, "alice"))
	assert.Equal(t, "call_ended", bob.last()["type"])
	assert.Equal(t, 0, h.ActiveCount())

	require.Len(t, hist.all(), 1)
	assert.Equal(t, domain.CallEnded, hist.all()[0].Status)
}

func TestCallHub_InitiateRequiresOnlineParties(t *testing.T) {
	h, _, _ := newTestCallHub()
	h.Connect("alice", &mockConn{})

	_, err := h.Initiate("alice", "bob", domain.CallAudio)
	assert.ErrorIs(t, err, domain.ErrPeerOffline)

	_, err = h.Initiate("carol", "alice", domain.CallAudio)
	assert.ErrorIs(t, err, domain.ErrPeerOffline)

	assert.Equal(t, 0, h.ActiveCount())
}

func TestCallHub_InitiateRejectsUnknownType(t *testing.T) {
	h, _, _ := newTestCallHub()
	h.Connect("alice", &mockConn{})
	h.Connect("bob", &mockConn{})

	_, err := h.Initiate("alice", "bob", domain.CallType("hologram"))
	assert.ErrorIs(t, err, domain.ErrInvalidCallType)
}

func TestCallHub_InitiateToDeadConnectionCreatesNothing(t *testing.T) {
	h, _, _ := newTestCallHub()
	h.Connect("alice", &mockConn{})
	h.Connect("bob", &mockConn{sendErr: domain.ErrBackpressure})

	_, err := h.Initiate("alice", "bob", domain.CallVideo)
	assert.ErrorIs(t, err, domain.ErrPeerOffline)
	assert.Equal(t, 0, h.ActiveCount())
	assert.False(t, h.Registry.IsOnline("bob"))
}

func TestCallHub_EndTwiceNotifiesOnce(t *testing.T) {
	h, hist, _ := newTestCallHub()
	alice, bob := &mockConn{}, &mockConn{}
	h.Connect("alice", alice)
	h.Connect("bob", bob)

	id, err := h.Initiate("alice", "bob", domain.CallAudio)
	require.NoError(t, err)
	_, err = h.Accept(id, "bob")
	require.NoError(t, err)

	require.NoError(t, h.End(id, "bob"))
	require.NoError(t, h.End(id, "bob"))
	require.NoError(t, h.End(id, "alice"))

	ended := 0
	for _, typ := range alice.types() {
		if typ == "call_ended" {
			ended++
		}
	}
	assert.Equal(t, 1, ended)
	assert.Len(t, hist.all(), 1)
}

func TestCallHub_StateGating(t *testing.T) {
	h, _, _ := newTestCallHub()
	h.Connect("alice", &mockConn{})
	h.Connect("bob", &mockConn{})

	id, err := h.Initiate("alice", "bob", domain.CallVideo)
	require.NoError(t, err)

	_, err = h.Accept(id, "alice")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	assert.ErrorIs(t, h.Reject(id, "alice"), domain.ErrNotAuthorized)

	_, err = h.Accept(id, "bob")
	require.NoError(t, err)

	_, err = h.Accept(id, "bob")
	assert.ErrorIs(t, err, domain.ErrInvalidCallState)
	assert.ErrorIs(t, h.Reject(id, "bob"), domain.ErrInvalidCallState)

	require.NoError(t, h.End(id, "bob"))

	_, err = h.Accept(id, "bob")
	assert.ErrorIs(t, err, domain.ErrInvalidCallState)
	assert.ErrorIs(t, h.Reject(id, "bob"), domain.ErrNotFound)

	_, err = h.Accept("never-existed", "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, h.Reject("never-existed", "bob"), domain.ErrNotFound)
}

func TestCallHub_EndByOutsider(t *testing.T) {
	h, _, _ := newTestCallHub()
	h.Connect("alice", &mockConn{})
	h.Connect("bob", &mockConn{})
	id, err := h.Initiate("alice", "bob", domain.CallVideo)
	require.NoError(t, err)

	assert.ErrorIs(t, h.End(id, "mallory"), domain.ErrNotAuthorized)
	assert.Equal(t, 1, h.ActiveCount())
}

func TestCallHub_Reject(t *testing.T) {
	h, hist, _ := newTestCallHub()
	alice := &mockConn{}
	h.Connect("alice", alice)
	h.Connect("bob", &mockConn{})

	id, err := h.Initiate("alice", "bob", domain.CallVideo)
	require.NoError(t, err)
	require.NoError(t, h.Reject(id, "bob"))

	assert.Equal(t, "call_rejected", alice.last()["type"])
	assert.Equal(t, 0, h.ActiveCount())
	require.Len(t, hist.all(), 1)
	assert.Equal(t, domain.CallRejected, hist.all()[0].Status)
}

func TestCallHub_AcceptReportsUndeliveredNotification(t *testing.T) {
	h, _, _ := newTestCallHub()
	alice := &mockConn{}
	h.Connect("alice", alice)
	h.Connect("bob", &mockConn{})
	id, err := h.Initiate("alice", "bob", domain.CallVideo)
	require.NoError(t, err)

	alice.sendErr = domain.ErrBackpressure
	notified, err := h.Accept(id, "bob")
	require.NoError(t, err)
	assert.False(t, notified)

	s, ok := h.Get(id)
	require.True(t, ok)
	assert.Equal(t, domain.CallActive, s.Status)
}

func TestCallHub_DisconnectEndsCalls(t *testing.T) {
	h, hist, _ := newTestCallHub()
	alice, bob := &mockConn{}, &mockConn{}
	h.Connect("alice", alice)
	h.Connect("bob", bob)
	id, err := h.Initiate("alice", "bob", domain.CallVideo)
	require.NoError(t, err)
	_, err = h.Accept(id, "bob")
	require.NoError(t, err)

	h.Disconnect("alice", alice)

	assert.Equal(t, 0, h.ActiveCount())
	assert.Equal(t, "call_ended", bob.last()["type"])
	assert.Empty(t, h.ActiveCalls("bob"))
	require.Len(t, hist.all(), 1)
}

func TestCallHub_StaleDisconnectKeepsCall(t *testing.T) {
	h, _, _ := newTestCallHub()
	old, cur := &mockConn{}, &mockConn{}
	h.Connect("alice", old)
	h.Connect("bob", &mockConn{})
	id, err := h.Initiate("alice", "bob", domain.CallVideo)
	require.NoError(t, err)

	h.Connect("alice", cur)
	h.Disconnect("alice", old)

	_, ok := h.Get(id)
	assert.True(t, ok)
	assert.True(t, h.Registry.IsOnline("alice"))
}

func TestCallHub_SignalLossDoesNotEndCall(t *testing.T) {
	h, _, _ := newTestCallHub()
	alice, bob := &mockConn{}, &mockConn{}
	h.Connect("alice", alice)
	h.Connect("bob", bob)
	id, err := h.Initiate("alice", "bob", domain.CallVideo)
	require.NoError(t, err)
	_, err = h.Accept(id, "bob")
	require.NoError(t, err)

	bob.sendErr = domain.ErrBackpressure
	assert.False(t, h.ForwardSignal("alice", "bob", []byte(`{"sdp":"x"}`)))

	s, ok := h.Get(id)
	require.True(t, ok)
	assert.Equal(t, domain.CallActive, s.Status)
}

func TestCallHub_ForwardsSignalFromInbound(t *testing.T) {
	h, _, _ := newTestCallHub()
	alice, bob := &mockConn{}, &mockConn{}
	h.Connect("alice", alice)
	h.Connect("bob", bob)

	require.NoError(t, h.HandleInbound("alice", alice, []byte(`{"type":"webrtc_signal","to_user_id":"bob","signal":{"type":"offer","sdp":"v=0"}}`)))

	ev := bob.last()
	require.NotNil(t, ev)
	assert.Equal(t, "webrtc_signal", ev["type"])
	assert.Equal(t, "alice", ev["from_user_id"])
	assert.Equal(t, "offer", ev["signal"].(map[string]any)["type"])
}

func TestCallHub_ExpireRinging(t *testing.T) {
	h, hist, clock := newTestCallHub()
	alice, bob := &mockConn{}, &mockConn{}
	h.Connect("alice", alice)
	h.Connect("bob", bob)

	stale, err := h.Initiate("alice", "bob", domain.CallVideo)
	require.NoError(t, err)
	clock.Advance(45 * time.Second)
	fresh, err := h.Initiate("bob", "alice", domain.CallAudio)
	require.NoError(t, err)
	clock.Advance(20 * time.Second)

	assert.Equal(t, 1, h.ExpireRinging(time.Minute))

	_, ok := h.Get(stale)
	assert.False(t, ok)
	_, ok = h.Get(fresh)
	assert.True(t, ok)
	require.Len(t, hist.all(), 1)
	assert.Equal(t, domain.CallMissed, hist.all()[0].Status)

	_, err = h.Accept(stale, "bob")
	assert.ErrorIs(t, err, domain.ErrInvalidCallState)

	clock.Advance(time.Hour)
	assert.Equal(t, 1, h.PruneTombstones(10*time.Minute))
	_, err = h.Accept(stale, "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
