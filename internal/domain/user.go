// Package domain contains entity without logic, just meta-data
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"unicode/utf8"
)

const MaxUsernameLen = 64

var ErrUsernameEmpty = errors.New("username empty")

// UserID identifies a participant. Clients may send it as a JSON number or string.
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	s, err := ParseFlexibleID(b)
	if err != nil {
		return err
	}
	*id = UserID(s)
	return nil
}

// ParseFlexibleID decodes a JSON string or integer identifier into its string form.
func ParseFlexibleID(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", err
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return "", err
	}
	return n.String(), nil
}

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"name"`
}

// NewUser avoids ad-hoc struct literals in adapters.
func NewUser(id UserID, username string) (*User, error) {
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		username = truncate(username, MaxUsernameLen)
	}
	return &User{ID: id, Username: username}, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
