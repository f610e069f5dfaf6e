package orch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/dkeye/heartlink/internal/app"
	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/domain"
	"github.com/dkeye/heartlink/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (m *mockConn) TrySend(f core.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, f)
	return nil
}

func (m *mockConn) Close() {}

func (m *mockConn) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, f := range m.frames {
		var ev struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(f, &ev)
		out = append(out, ev.Type)
	}
	return out
}

type fakeMatches struct{}

// Match "1" pairs alice and bob.
func (fakeMatches) IsAuthorizedPair(_ context.Context, a, b domain.UserID) (bool, error) {
	return (a == "alice" && b == "bob") || (a == "bob" && b == "alice"), nil
}

func (fakeMatches) PartnerOf(_ context.Context, matchID string, uid domain.UserID) (domain.UserID, error) {
	if matchID == "1" {
		switch uid {
		case "alice":
			return "bob", nil
		case "bob":
			return "alice", nil
		}
	}
	return "", domain.ErrNotFound
}

type fakeUsers struct{}

func (fakeUsers) User(_ context.Context, uid domain.UserID) (*domain.User, error) {
	if uid == "alice" {
		return &domain.User{ID: uid, Username: "Alice"}, nil
	}
	return nil, domain.ErrNotFound
}

type fakeMessages struct{ next int64 }

func (f *fakeMessages) CreateMessage(_ context.Context, matchID string, sender domain.UserID, content, messageType string) (*core.ChatMessage, error) {
	f.next++
	return &core.ChatMessage{ID: f.next, MatchID: matchID, SenderID: sender, Content: content, MessageType: messageType, CreatedAt: time.Now()}, nil
}

type pushed struct {
	uid domain.UserID
	n   core.PushNotification
}

type fakePush struct {
	mu   sync.Mutex
	sent []pushed
}

func (f *fakePush) Notify(_ context.Context, uid domain.UserID, n core.PushNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, pushed{uid, n})
	return nil
}

type prefixResolver struct{}

func (prefixResolver) ResolveMediaURL(ref string) (string, error) {
	return "https://cdn.test/" + ref, nil
}

type fakeZones struct{}

// Everyone but mallory is a member of zone z1; only alice administers it.
func (fakeZones) IsMember(_ context.Context, room domain.RoomID, uid domain.UserID) (bool, error) {
	return room == "z1" && uid != "mallory", nil
}

func (fakeZones) IsAdmin(_ context.Context, room domain.RoomID, uid domain.UserID) (bool, error) {
	return room == "z1" && uid == "alice", nil
}

func newTestOrchestrator() (*Orchestrator, *fakePush) {
	push := &fakePush{}
	return &Orchestrator{
		Chat:     app.NewChatHub(fakeMatches{}),
		Calls:    app.NewCallHub(nil),
		Rooms:    app.NewRoomHub(),
		Matches:  fakeMatches{},
		Users:    fakeUsers{},
		Messages: &fakeMessages{},
		Push:     push,
		Media:    prefixResolver{},
		Zones:    fakeZones{},
	}, push
}

func TestSendChatMessage_DeliveredLive(t *testing.T) {
	o, push := newTestOrchestrator()
	bob := &mockConn{}
	o.Chat.Connect("bob", bob)

	msg, delivered, err := o.SendChatMessage(context.Background(), "alice", "1", "hello", "")
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, "text", msg.MessageType)
	assert.Equal(t, "Alice", msg.SenderName)
	assert.Equal(t, []string{"new_message"}, bob.types())
	assert.Empty(t, push.sent)
}

func TestSendChatMessage_OfflineFallsBackToPush(t *testing.T) {
	o, push := newTestOrchestrator()

	_, delivered, err := o.SendChatMessage(context.Background(), "alice", "1", "hello", "text")
	require.NoError(t, err)
	assert.False(t, delivered)
	require.Len(t, push.sent, 1)
	assert.Equal(t, domain.UserID("bob"), push.sent[0].uid)
	assert.Equal(t, "new_message", push.sent[0].n.Kind)
	assert.Equal(t, "hello", push.sent[0].n.Body)
}

func TestSendChatMessage_ResolvesMedia(t *testing.T) {
	o, _ := newTestOrchestrator()

	msg, _, err := o.SendChatMessage(context.Background(), "alice", "1", "img/42.jpg", "image")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/img/42.jpg", msg.Content)
}

func TestSendChatMessage_Rejections(t *testing.T) {
	o, _ := newTestOrchestrator()
	ctx := context.Background()

	_, _, err := o.SendChatMessage(ctx, "carol", "1", "hi", "text")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, _, err = o.SendChatMessage(ctx, "alice", "1", "   ", "text")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = o.SendChatMessage(ctx, "alice", "1", "hi", "sticker")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStartCall(t *testing.T) {
	o, push := newTestOrchestrator()
	ctx := context.Background()
	o.Calls.Connect("alice", &mockConn{})
	o.Calls.Connect("carol", &mockConn{})

	_, err := o.StartCall(ctx, "alice", "carol", domain.CallVideo)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, err = o.StartCall(ctx, "alice", "bob", domain.CallVideo)
	assert.ErrorIs(t, err, domain.ErrPeerOffline)
	require.Len(t, push.sent, 1)
	assert.Equal(t, "missed_call", push.sent[0].n.Kind)
	assert.Equal(t, "Alice", push.sent[0].n.Title)

	bob := &mockConn{}
	o.Calls.Connect("bob", bob)
	id, err := o.StartCall(ctx, "alice", "bob", domain.CallAudio)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, []string{"incoming_call"}, bob.types())
}

func TestRoomFlow(t *testing.T) {
	o, _ := newTestOrchestrator()
	ctx := context.Background()

	assert.ErrorIs(t, o.AuthorizeMember(ctx, "z1", "mallory"), domain.ErrNotAuthorized)
	require.NoError(t, o.AuthorizeMember(ctx, "z1", "bob"))

	alice, bob := &mockConn{}, &mockConn{}
	o.JoinRoom(ctx, "z1", "alice", alice)
	u := o.JoinRoom(ctx, "z1", "bob", bob)
	assert.Equal(t, domain.UserID("bob"), u.ID)
	assert.Equal(t, []string{"member_joined"}, alice.types())
	assert.Empty(t, bob.types())

	_, err := o.StartGame(ctx, "z1", "bob")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	_, err = o.StartGame(ctx, "z1", "alice")
	require.NoError(t, err)

	_, err = o.SpinBottle(ctx, "z1", "bob")
	require.NoError(t, err)
	_, err = o.SpinBottle(ctx, "z1", "mallory")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, err = o.AskQuestion(ctx, "z1", "bob", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	o.LeaveRoom("z1", "bob", bob)
	assert.Equal(t, "member_left", alice.types()[len(alice.types())-1])

	_, err = o.EvictRoom(ctx, "z1", "bob")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	n, err := o.EvictRoom(ctx, "z1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStats(t *testing.T) {
	o, _ := newTestOrchestrator()
	o.Chat.Connect("alice", &mockConn{})
	o.Calls.Connect("alice", &mockConn{})
	o.Rooms.Join("z1", domain.User{ID: "alice", Username: "Alice"}, &mockConn{})

	s := o.Stats()
	assert.Equal(t, 1, s.ChatOnline)
	assert.Equal(t, 1, s.CallOnline)
	assert.Equal(t, 0, s.ActiveCalls)
	require.Len(t, s.Rooms, 1)
	assert.Equal(t, 1, s.Rooms[0].MemberCount)
	assert.Equal(t, "z1", fmt.Sprint(s.Rooms[0].ID))
}

func TestSendChatMessage_UnresolvableMediaIsRejected(t *testing.T) {
	o, push := newTestOrchestrator()
	resolver, err := media.NewBaseURLResolver("https://cdn.test/")
	require.NoError(t, err)
	o.Media = resolver
	store := &fakeMessages{}
	o.Messages = store
	bob := &mockConn{}
	o.Chat.Connect("bob", bob)

	_, delivered, err := o.SendChatMessage(context.Background(), "alice", "1", "javascript:alert(1)", "image")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.False(t, delivered)
	assert.Zero(t, store.next, "nothing stored")
	assert.Empty(t, bob.types())
	assert.Empty(t, push.sent)

	msg, delivered, err := o.SendChatMessage(context.Background(), "alice", "1", "img/7.png", "image")
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, "https://cdn.test/img/7.png", msg.Content)
}

func TestSendChatMessage_PreviewKeepsRunesWhole(t *testing.T) {
	o, push := newTestOrchestrator()

	_, _, err := o.SendChatMessage(context.Background(), "alice", "1", strings.Repeat("ж", 100), "text")
	require.NoError(t, err)
	require.Len(t, push.sent, 1)
	body := push.sent[0].n.Body
	assert.True(t, utf8.ValidString(body))
	assert.Equal(t, strings.Repeat("ж", 80)+"...", body)
}

type fakeUnmatcher struct{ closed []string }

func (f *fakeUnmatcher) Deactivate(_ context.Context, matchID string) error {
	f.closed = append(f.closed, matchID)
	return nil
}

func TestUnmatch_EndsRunningCall(t *testing.T) {
	o, _ := newTestOrchestrator()
	closer := &fakeUnmatcher{}
	o.Unmatcher = closer
	ctx := context.Background()
	alice, bob := &mockConn{}, &mockConn{}
	o.Calls.Connect("alice", alice)
	o.Calls.Connect("bob", bob)
	_, err := o.StartCall(ctx, "alice", "bob", domain.CallAudio)
	require.NoError(t, err)

	assert.ErrorIs(t, o.Unmatch(ctx, "carol", "1"), domain.ErrNotFound)
	assert.Empty(t, closer.closed)

	require.NoError(t, o.Unmatch(ctx, "alice", "1"))
	assert.Equal(t, []string{"1"}, closer.closed)
	assert.Zero(t, o.Calls.ActiveCount())
	assert.Equal(t, []string{"incoming_call", "call_ended"}, bob.types())
}

func TestKickMember(t *testing.T) {
	o, _ := newTestOrchestrator()
	ctx := context.Background()
	alice, bob := &mockConn{}, &mockConn{}
	o.JoinRoom(ctx, "z1", "alice", alice)
	o.JoinRoom(ctx, "z1", "bob", bob)

	assert.ErrorIs(t, o.KickMember(ctx, "z1", "bob", "alice"), domain.ErrNotAuthorized)
	require.NoError(t, o.KickMember(ctx, "z1", "alice", "bob"))
	assert.Equal(t, "member_left", alice.types()[len(alice.types())-1])
	assert.Len(t, o.Rooms.Members("z1"), 1)
	assert.ErrorIs(t, o.KickMember(ctx, "z1", "alice", "bob"), domain.ErrNotFound)
}
