package httpapi

import (
	"net/http"

	"callcenter-platform/internal/calls"
	"callcenter-platform/internal/session"
	"callcenter-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

type resultRequest struct {
	Outcome string `json:"outcome"`
	Notes   string `json:"notes"`
}

// StartCall places a call for the authenticated operator.
func (h Handlers) StartCall(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	var req session.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sess, err := ctl.Start(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	logger.ForCall(logger.FromGin(c), ctl.OperatorID(), sess.SessionID).Info("call started", "backend", sess.BackendKind)
	c.JSON(http.StatusOK, sess)
}

// EndCall is the operator's normal hang-up.
func (h Handlers) EndCall(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	sess, err := ctl.EndCall(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// ForceEndCall abandons the live call locally whatever the provider says.
func (h Handlers) ForceEndCall(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	sess, err := ctl.ForceEnd(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// ConfirmResult saves the outcome of the call awaiting one.
func (h Handlers) ConfirmResult(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	var req resultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	outcome, _ := calls.ParseOutcome(req.Outcome)
	res, err := ctl.Confirm(c.Request.Context(), outcome, req.Notes)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h Handlers) BeginEdit(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	res, err := ctl.BeginEdit()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) ConfirmEdit(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	var req resultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	outcome, _ := calls.ParseOutcome(req.Outcome)
	res, err := ctl.ConfirmEdit(c.Request.Context(), calls.ResultUpdate{Outcome: outcome, Notes: req.Notes})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) CancelEdit(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	if err := ctl.CancelEdit(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctl.Snapshot())
}

// CurrentCall returns the operator's session view, including the coaching
// list and unread count.
func (h Handlers) CurrentCall(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctl.Snapshot())
}
