package http

import (
	"net/http"
	"strconv"

	"github.com/dkeye/heartlink/internal/domain"
	"github.com/gin-gonic/gin"
)

type initiateCallRequest struct {
	ReceiverID domain.UserID   `json:"receiver_id" binding:"required"`
	CallType   domain.CallType `json:"call_type" binding:"required"`
}

type callIDRequest struct {
	CallID domain.CallID `json:"call_id" binding:"required"`
}

func (a *api) initiateCall(c *gin.Context) {
	var req initiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	id, err := a.deps.Orch.StartCall(ctx, currentUser(c), req.ReceiverID, req.CallType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"call_id":   id,
		"call_type": req.CallType,
		"receiver":  a.deps.Orch.Profile(ctx, req.ReceiverID),
	})
}

func (a *api) acceptCall(c *gin.Context) {
	var req callIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	notified, err := a.deps.Orch.Calls.Accept(req.CallID, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_id": req.CallID, "status": domain.CallActive, "caller_notified": notified})
}

func (a *api) rejectCall(c *gin.Context) {
	var req callIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := a.deps.Orch.Calls.Reject(req.CallID, currentUser(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_id": req.CallID, "status": domain.CallRejected})
}

func (a *api) endCall(c *gin.Context) {
	var req callIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := a.deps.Orch.Calls.End(req.CallID, currentUser(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_id": req.CallID, "status": domain.CallEnded})
}

func (a *api) activeCalls(c *gin.Context) {
	calls := a.deps.Orch.Calls.ActiveCalls(currentUser(c))
	if calls == nil {
		calls = []domain.CallSession{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": calls})
}

func (a *api) callHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	calls, err := a.deps.Calls.ListForUser(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if calls == nil {
		calls = []domain.CallSession{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": calls})
}

func (a *api) getICEServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ice_servers": a.iceServers})
}

func (a *api) callWS(c *gin.Context) {
	a.deps.Signal.HandleCallSignal(a.ctx, c, currentUser(c))
}
