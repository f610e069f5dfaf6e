package app

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/domain"
	"github.com/dkeye/heartlink/internal/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MemberKey addresses one participant's connection inside one room.
type MemberKey struct {
	Room domain.RoomID
	User domain.UserID
}

func (k MemberKey) String() string { return string(k.Room) + "/" + string(k.User) }

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
	GameActive  bool          `json:"game_active"`
}

// room holds the currently connected members in join order.
type room struct {
	members []domain.User
}

func (r *room) index(uid domain.UserID) int {
	return slices.IndexFunc(r.members, func(u domain.User) bool { return u.ID == uid })
}

// RoomHub fans events out to room members and runs each room's bottle game.
type RoomHub struct {
	Registry *Registry[MemberKey]

	prompts Prompts
	rng     RandSource

	mu    sync.Mutex
	rooms map[domain.RoomID]*room
	games map[domain.RoomID]*domain.GameSession
}

type RoomHubOption func(*RoomHub)

func WithPrompts(p Prompts) RoomHubOption {
	return func(h *RoomHub) {
		if len(p.Truths) > 0 && len(p.Dares) > 0 {
			h.prompts = p
		}
	}
}

func WithRand(r RandSource) RoomHubOption {
	return func(h *RoomHub) { h.rng = r }
}

func NewRoomHub(opts ...RoomHubOption) *RoomHub {
	h := &RoomHub{
		Registry: NewRegistry[MemberKey]("app.rooms"),
		prompts:  DefaultPrompts(),
		rng:      globalRand{},
		rooms:    make(map[domain.RoomID]*room),
		games:    make(map[domain.RoomID]*domain.GameSession),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Join connects user to the room. Joining again replaces the previous
// connection and keeps the member's position.
func (h *RoomHub) Join(roomID domain.RoomID, user domain.User, conn core.SignalConnection) {
	h.Registry.Register(MemberKey{Room: roomID, User: user.ID}, conn)

	h.mu.Lock()
	r, ok := h.rooms[roomID]
	if !ok {
		r = &room{}
		h.rooms[roomID] = r
	}
	if i := r.index(user.ID); i >= 0 {
		r.members[i] = user
	} else {
		r.members = append(r.members, user)
	}
	count := len(r.members)
	h.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("user", string(user.ID)).Int("members", count).Msg("member joined")
}

// Leave removes uid from the room and closes its connection. No-op if absent.
func (h *RoomHub) Leave(roomID domain.RoomID, uid domain.UserID) (domain.User, bool) {
	key := MemberKey{Room: roomID, User: uid}
	conn, online := h.Registry.Lookup(key)
	h.Registry.Unregister(key)
	if online {
		conn.Close()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeMemberLocked(roomID, uid)
}

// LeaveConn is the connection-loss handler: it removes uid only if conn is
// still its registered connection or nothing replaced it.
func (h *RoomHub) LeaveConn(roomID domain.RoomID, uid domain.UserID, conn core.SignalConnection) (domain.User, bool) {
	h.Registry.Release(MemberKey{Room: roomID, User: uid}, conn)
	return h.dropOffline(roomID, uid)
}

// dropOffline removes uid unless a connection is registered for it. The
// registry is consulted under h.mu, so a Join that registered first keeps
// its membership and one that registers later re-adds it.
func (h *RoomHub) dropOffline(roomID domain.RoomID, uid domain.UserID) (domain.User, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Registry.IsOnline(MemberKey{Room: roomID, User: uid}) {
		return domain.User{}, false
	}
	return h.removeMemberLocked(roomID, uid)
}

func (h *RoomHub) removeMemberLocked(roomID domain.RoomID, uid domain.UserID) (domain.User, bool) {
	r, ok := h.rooms[roomID]
	if !ok {
		return domain.User{}, false
	}
	i := r.index(uid)
	if i < 0 {
		return domain.User{}, false
	}
	u := r.members[i]
	r.members = slices.Delete(r.members, i, i+1)
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("user", string(uid)).Int("members", len(r.members)).Msg("member removed")
	return u, true
}

// Members returns the connected members in join order.
func (h *RoomHub) Members(roomID domain.RoomID) []domain.User {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	return slices.Clone(r.members)
}

func (h *RoomHub) List() []RoomInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]RoomInfo, 0, len(h.rooms))
	for id, r := range h.rooms {
		_, game := h.games[id]
		out = append(out, RoomInfo{ID: id, MemberCount: len(r.members), GameActive: game})
	}
	return out
}

// Broadcast encodes v and sends it to every connected member except exclude
// (empty for none). Each recipient is independent; failed ones are dropped.
func (h *RoomHub) Broadcast(roomID domain.RoomID, v any, exclude domain.UserID) core.PublishResult {
	f, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.rooms").Msg("encode broadcast")
		return core.PublishResult{}
	}
	return h.BroadcastFrame(roomID, f, exclude)
}

func (h *RoomHub) BroadcastFrame(roomID domain.RoomID, f core.Frame, exclude domain.UserID) core.PublishResult {
	res := core.PublishResult{}
	for _, m := range h.Members(roomID) {
		if m.ID == exclude {
			continue
		}
		key := MemberKey{Room: roomID, User: m.ID}
		if h.Registry.Send(key, f) {
			res.SentTo++
			continue
		}
		res.Dropped = append(res.Dropped, m.ID)
		h.dropOffline(roomID, m.ID)
	}
	log.Debug().Str("module", "app.rooms").Str("room", string(roomID)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// StartGame snapshots the connected members as players and announces the
// game. A running game is replaced.
func (h *RoomHub) StartGame(roomID domain.RoomID) (domain.GameSession, error) {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	if !ok || len(r.members) == 0 {
		h.mu.Unlock()
		return domain.GameSession{}, fmt.Errorf("%w: room %s has no connected members", domain.ErrNotFound, roomID)
	}
	g := &domain.GameSession{
		ID:      uuid.NewString(),
		Players: slices.Clone(r.members),
		Status:  domain.GameIdle,
	}
	_, replaced := h.games[roomID]
	h.games[roomID] = g
	snap := *g
	h.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("session", g.ID).Int("players", len(g.Players)).Bool("replaced", replaced).Msg("game started")
	h.Broadcast(roomID, protocol.GameStarted(snap), "")
	return snap, nil
}

// Spin draws a bottle angle, selects the player it points at and offers one
// truth and one dare. The result is broadcast to the room.
func (h *RoomHub) Spin(roomID domain.RoomID) (domain.SpinResult, error) {
	h.mu.Lock()
	g, ok := h.games[roomID]
	if !ok {
		h.mu.Unlock()
		return domain.SpinResult{}, fmt.Errorf("%w: room %s", domain.ErrNoActiveGame, roomID)
	}
	g.Status = domain.GameSpinning
	angle := h.rng.Float64() * 360
	idx := playerIndex(angle, len(g.Players))
	g.BottleAngle = angle
	g.CurrentTurn = idx
	g.Status = domain.GameAwaitingChoice
	res := domain.SpinResult{
		SessionID:      g.ID,
		Angle:          angle,
		SelectedPlayer: g.Players[idx],
		TruthQuestion:  pick(h.rng, h.prompts.Truths),
		DareChallenge:  pick(h.rng, h.prompts.Dares),
	}
	h.mu.Unlock()

	h.Broadcast(roomID, protocol.BottleSpun(res), "")
	return res, nil
}

// Game returns the room's current game.
func (h *RoomHub) Game(roomID domain.RoomID) (domain.GameSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.games[roomID]
	if !ok {
		return domain.GameSession{}, false
	}
	snap := *g
	snap.Players = slices.Clone(g.Players)
	return snap, true
}

// AskQuestion broadcasts a custom question to the whole room.
func (h *RoomHub) AskQuestion(roomID domain.RoomID, asker domain.User, question, kind string) core.PublishResult {
	return h.Broadcast(roomID, protocol.QuestionAsked(protocol.Question{Asker: asker, Question: question, Kind: kind}), "")
}

// Relay forwards a free-form room event to every member. choice_made also
// hands the turn back to the bottle.
func (h *RoomHub) Relay(roomID domain.RoomID, ev protocol.RoomRelay) core.PublishResult {
	if ev.Kind == protocol.TagChoiceMade {
		h.mu.Lock()
		if g, ok := h.games[roomID]; ok && g.Status == domain.GameAwaitingChoice {
			g.Status = domain.GameIdle
		}
		h.mu.Unlock()
	}
	return h.BroadcastFrame(roomID, core.Frame(ev.Raw), "")
}

// HandleInbound processes one frame read from uid's room connection.
func (h *RoomHub) HandleInbound(roomID domain.RoomID, uid domain.UserID, conn core.SignalConnection, data []byte) error {
	ev, err := protocol.Decode(data)
	if err != nil {
		return err
	}
	h.HandleEvent(roomID, uid, conn, ev)
	return nil
}

// HandleEvent is HandleInbound for an already decoded event.
func (h *RoomHub) HandleEvent(roomID domain.RoomID, uid domain.UserID, conn core.SignalConnection, ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.Ping:
		if f, err := protocol.Encode(protocol.Pong()); err == nil {
			_ = conn.TrySend(f)
		}
	case protocol.Typing:
		h.Broadcast(roomID, protocol.TypingOf(uid, e.IsTyping), uid)
	case protocol.RoomRelay:
		h.Relay(roomID, e)
	default:
		log.Debug().Str("module", "app.rooms").Str("type", string(ev.Tag())).Msg("ignored event")
	}
}

// EvictRoom disconnects every member and forgets the room and its game.
func (h *RoomHub) EvictRoom(roomID domain.RoomID) int {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	delete(h.rooms, roomID)
	delete(h.games, roomID)
	h.mu.Unlock()
	if !ok {
		return 0
	}
	for _, m := range r.members {
		key := MemberKey{Room: roomID, User: m.ID}
		if conn, ok := h.Registry.Lookup(key); ok {
			h.Registry.Unregister(key)
			conn.Close()
		}
	}
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Int("evicted", len(r.members)).Msg("room evicted")
	return len(r.members)
}
