package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserID_UnmarshalJSON(t *testing.T) {
	var v struct {
		A UserID `json:"a"`
		B UserID `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":42,"b":"x-9"}`), &v))
	assert.Equal(t, UserID("42"), v.A)
	assert.Equal(t, UserID("x-9"), v.B)

	assert.Error(t, json.Unmarshal([]byte(`{"a":4.2}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestNewUser(t *testing.T) {
	_, err := NewUser("1", "")
	assert.ErrorIs(t, err, ErrUsernameEmpty)

	u, err := NewUser("1", strings.Repeat("n", MaxUsernameLen+10))
	require.NoError(t, err)
	assert.Len(t, u.Username, MaxUsernameLen)

	// 63 ASCII bytes then a two-byte rune straddling the limit.
	u, err = NewUser("1", strings.Repeat("n", MaxUsernameLen-1)+"éé")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(u.Username))
	assert.Len(t, u.Username, MaxUsernameLen-1)
}

func TestCallSession_Peer(t *testing.T) {
	s := CallSession{CallerID: "a", ReceiverID: "b"}
	assert.Equal(t, UserID("b"), s.Peer("a"))
	assert.Equal(t, UserID("a"), s.Peer("b"))
	assert.True(t, s.Involves("a"))
	assert.False(t, s.Involves("c"))
}
