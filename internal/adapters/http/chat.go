package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dkeye/heartlink/internal/domain"
	"github.com/gin-gonic/gin"
)

// flexID accepts an identifier sent as a JSON string or number.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	s, err := domain.ParseFlexibleID(b)
	if err != nil {
		return err
	}
	*id = flexID(s)
	return nil
}

type sendMessageRequest struct {
	MatchID     flexID `json:"match_id" binding:"required"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	MediaRef    string `json:"media_ref"`
}

func (a *api) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	content := req.Content
	if req.MediaRef != "" {
		switch req.MessageType {
		case "image", "voice", "video":
			content = req.MediaRef
		default:
			writeError(c, fmt.Errorf("%w: media_ref needs an image, voice or video message", domain.ErrInvalidInput))
			return
		}
	}
	msg, delivered, err := a.deps.Orch.SendChatMessage(c.Request.Context(), currentUser(c), string(req.MatchID), content, req.MessageType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg, "delivered": delivered})
}

func (a *api) listMessages(c *gin.Context) {
	matchID := c.Param("match_id")
	if _, err := a.deps.Orch.Matches.PartnerOf(c.Request.Context(), matchID, currentUser(c)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrNotAuthorized
		}
		writeError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	msgs, err := a.deps.Messages.ListMessages(c.Request.Context(), matchID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (a *api) unmatch(c *gin.Context) {
	if err := a.deps.Orch.Unmatch(c.Request.Context(), currentUser(c), c.Param("match_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) chatWS(c *gin.Context) {
	a.deps.Signal.HandleChat(a.ctx, c, currentUser(c))
}
