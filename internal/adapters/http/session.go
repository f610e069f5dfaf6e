package http

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type sessionRequest struct {
	Token string `json:"token" binding:"required"`
}

// createSession validates an access token and keeps it in the cookie
// session, so browser websocket clients need not pass it in the URL.
func (a *api) createSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	uid, err := a.deps.Auth.Authenticate(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: "invalid access token"})
		return
	}
	s := sessions.Default(c)
	s.Set(sessionTokenKey, req.Token)
	if err := s.Save(); err != nil {
		writeError(c, err)
		return
	}
	log.Info().Str("module", "adapters.http").Str("user", string(uid)).Msg("session created")
	c.JSON(http.StatusOK, gin.H{"user_id": uid})
}

// deleteSession logs out: the session's access token is revoked and the
// cookie cleared.
func (a *api) deleteSession(c *gin.Context) {
	s := sessions.Default(c)
	if token, ok := s.Get(sessionTokenKey).(string); ok && token != "" && a.deps.Revoker != nil {
		if err := a.deps.Revoker.Revoke(c.Request.Context(), token); err != nil {
			writeError(c, err)
			return
		}
		log.Info().Str("module", "adapters.http").Msg("session token revoked")
	}
	s.Clear()
	if err := s.Save(); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
