package http

import (
	"net/http"

	"github.com/dkeye/heartlink/internal/domain"
	"github.com/gin-gonic/gin"
)

type askQuestionRequest struct {
	Question string `json:"question" binding:"required,max=500"`
	Type     string `json:"type" binding:"omitempty,oneof=truth dare custom"`
}

func zoneOf(c *gin.Context) domain.RoomID {
	return domain.RoomID(c.Param("zone_id"))
}

func (a *api) roomWS(c *gin.Context) {
	room, uid := zoneOf(c), currentUser(c)
	if err := a.deps.Orch.AuthorizeMember(c.Request.Context(), room, uid); err != nil {
		writeError(c, err)
		return
	}
	a.deps.Signal.HandleRoom(a.ctx, c, room, uid)
}

func (a *api) roomState(c *gin.Context) {
	room := zoneOf(c)
	if err := a.deps.Orch.AuthorizeMember(c.Request.Context(), room, currentUser(c)); err != nil {
		writeError(c, err)
		return
	}
	members := a.deps.Orch.Rooms.Members(room)
	if members == nil {
		members = []domain.User{}
	}
	resp := gin.H{"zone_id": room, "members": members}
	if g, ok := a.deps.Orch.Rooms.Game(room); ok {
		resp["game"] = g
	}
	c.JSON(http.StatusOK, resp)
}

func (a *api) startGame(c *gin.Context) {
	g, err := a.deps.Orch.StartGame(c.Request.Context(), zoneOf(c), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": g.ID, "players": g.Players})
}

func (a *api) spinBottle(c *gin.Context) {
	res, err := a.deps.Orch.SpinBottle(c.Request.Context(), zoneOf(c), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *api) askQuestion(c *gin.Context) {
	var req askQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := a.deps.Orch.AskQuestion(c.Request.Context(), zoneOf(c), currentUser(c), req.Question, req.Type)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent_to": res.SentTo})
}

func (a *api) evictRoom(c *gin.Context) {
	n, err := a.deps.Orch.EvictRoom(c.Request.Context(), zoneOf(c), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evicted": n})
}

func (a *api) kickMember(c *gin.Context) {
	target := domain.UserID(c.Param("user_id"))
	if err := a.deps.Orch.KickMember(c.Request.Context(), zoneOf(c), currentUser(c), target); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
