package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/heartlink/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusOf maps domain errors onto an HTTP status and a stable error code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrPeerOffline):
		return http.StatusConflict, "peer_offline"
	case errors.Is(err, domain.ErrInvalidCallState):
		return http.StatusConflict, "invalid_call_state"
	case errors.Is(err, domain.ErrNotAuthorized):
		return http.StatusForbidden, "not_authorized"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrNoActiveGame):
		return http.StatusBadRequest, "no_active_game"
	case errors.Is(err, domain.ErrInvalidCallType), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeError(c *gin.Context, err error) {
	status, code := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
		msg = "internal error"
	} else {
		log.Debug().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Int("status", status).Msg("request declined")
	}
	c.JSON(status, errorBody{Error: code, Message: msg})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
}
