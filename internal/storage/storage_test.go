package storage

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/dkeye/heartlink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, RunMigrations(context.Background(), db))
	return db
}

func seedUsers(t *testing.T, db *DB, ids ...string) {
	t.Helper()
	users := NewUserRepository(db)
	for _, id := range ids {
		require.NoError(t, users.Upsert(context.Background(), domain.User{ID: domain.UserID(id), Username: "user " + id}))
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, RunMigrations(context.Background(), db))
}

func TestUserRepository(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, users.Upsert(ctx, domain.User{ID: "1", Username: "Ann"}))
	require.NoError(t, users.Upsert(ctx, domain.User{ID: "1", Username: "Anna"}))

	u, err := users.User(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Anna", u.Username)

	_, err = users.User(ctx, "2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTokenRepository(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db, "1")
	tokens := NewTokenRepository(db)
	ctx := context.Background()

	tok, err := tokens.Issue(ctx, "1", time.Hour)
	require.NoError(t, err)
	uid, err := tokens.Authenticate(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("1"), uid)

	_, err = tokens.Authenticate(ctx, "bogus")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	_, err = tokens.Authenticate(ctx, "")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	expired, err := tokens.Issue(ctx, "1", -time.Minute)
	require.NoError(t, err)
	_, err = tokens.Authenticate(ctx, expired)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	n, err := tokens.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, tokens.Revoke(ctx, tok))
	_, err = tokens.Authenticate(ctx, tok)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestMatchRepository(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db, "1", "2", "3")
	matches := NewMatchRepository(db)
	ctx := context.Background()

	id, err := matches.Create(ctx, "2", "1")
	require.NoError(t, err)
	again, err := matches.Create(ctx, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	ok, err := matches.IsAuthorizedPair(ctx, "1", "2")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = matches.IsAuthorizedPair(ctx, "1", "3")
	require.NoError(t, err)
	assert.False(t, ok)

	matchID := fmtID(id)
	p, err := matches.PartnerOf(ctx, matchID, "2")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("1"), p)
	_, err = matches.PartnerOf(ctx, matchID, "3")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, matches.Deactivate(ctx, matchID))
	ok, err = matches.IsAuthorizedPair(ctx, "2", "1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, matches.Deactivate(ctx, matchID), domain.ErrNotFound)

	_, err = matches.Create(ctx, "1", "1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMessageRepository(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db, "1", "2")
	ctx := context.Background()
	id, err := NewMatchRepository(db).Create(ctx, "1", "2")
	require.NoError(t, err)
	msgs := NewMessageRepository(db)

	m, err := msgs.CreateMessage(ctx, fmtID(id), "1", "hello", "text")
	require.NoError(t, err)
	assert.Equal(t, "user 1", m.SenderName)
	assert.Equal(t, fmtID(id), m.MatchID)
	assert.Equal(t, domain.UserID("1"), m.SenderID)

	_, err = msgs.CreateMessage(ctx, fmtID(id), "2", "hi back", "text")
	require.NoError(t, err)

	list, err := msgs.ListMessages(ctx, fmtID(id), 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "hello", list[0].Content)
	assert.Equal(t, "hi back", list[1].Content)
}

func TestCallHistoryRepository(t *testing.T) {
	db := newTestDB(t)
	calls := NewCallHistoryRepository(db)
	ctx := context.Background()

	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	accepted := start.Add(5 * time.Second)
	ended := accepted.Add(time.Minute)
	s := domain.CallSession{
		ID: "c1", CallerID: "1", ReceiverID: "2", Type: domain.CallVideo,
		Status: domain.CallEnded, StartedAt: start, AcceptedAt: &accepted, EndedAt: &ended,
	}
	require.NoError(t, calls.Record(ctx, s))
	require.NoError(t, calls.Record(ctx, domain.CallSession{
		ID: "c2", CallerID: "3", ReceiverID: "1", Type: domain.CallAudio,
		Status: domain.CallMissed, StartedAt: start.Add(time.Hour),
	}))

	list, err := calls.ListForUser(ctx, "1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.CallID("c2"), list[0].ID)
	assert.Nil(t, list[0].AcceptedAt)
	assert.Equal(t, domain.CallEnded, list[1].Status)
	require.NotNil(t, list[1].EndedAt)
	assert.True(t, ended.Equal(*list[1].EndedAt))

	var duration int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT duration_seconds FROM call_history WHERE call_id = 'c1'`).Scan(&duration))
	assert.Equal(t, 60, duration)
}

func TestZoneRepository(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db, "1", "2", "3")
	zones := NewZoneRepository(db)
	ctx := context.Background()

	require.NoError(t, zones.Create(ctx, "z1", "Friday night"))
	require.NoError(t, zones.AddMember(ctx, "z1", "1", ZoneAdmin))
	require.NoError(t, zones.AddMember(ctx, "z1", "2", ZoneMember))

	for _, tt := range []struct {
		uid           domain.UserID
		member, admin bool
	}{
		{"1", true, true},
		{"2", true, false},
		{"3", false, false},
	} {
		member, err := zones.IsMember(ctx, "z1", tt.uid)
		require.NoError(t, err)
		admin, err := zones.IsAdmin(ctx, "z1", tt.uid)
		require.NoError(t, err)
		assert.Equal(t, tt.member, member, tt.uid)
		assert.Equal(t, tt.admin, admin, tt.uid)
	}
}

func fmtID(id int64) string {
	return strconv.FormatInt(id, 10)
}
