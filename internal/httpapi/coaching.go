package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"callcenter-platform/internal/auth"
	"callcenter-platform/internal/coaching"
	"callcenter-platform/internal/session"
	"callcenter-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamReadLimit    = 512
)

// streamFrame is what the operator client receives over the stream.
type streamFrame struct {
	Type   string          `json:"type"`
	View   *session.View   `json:"view,omitempty"`
	Notice *session.Notice `json:"notice,omitempty"`
}

// CoachingStream upgrades to a websocket and pushes the session view
// followed by every notice for the operator: coaching messages, watchdog
// warnings, polling health and remote hang-ups.
//
// Notices are consumed from the operator's single queue, so two open
// streams for one operator split them between each other.
func (h Handlers) CoachingStream(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	log := logger.FromGin(c).With("operator_id", ctl.OperatorID())

	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	interval := h.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	// Clients only send control frames; the read loop exists to process
	// pongs and notice the close.
	closed := make(chan struct{})
	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(2 * interval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * interval))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug("coaching stream read ended", "err", err)
				}
				return
			}
		}
	}()

	view := ctl.Snapshot()
	if err := writeFrame(conn, streamFrame{Type: "snapshot", View: &view}); err != nil {
		return
	}

	ping := time.NewTicker(interval)
	defer ping.Stop()
	notices := ctl.Notices()
	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case n := <-notices:
			if err := writeFrame(conn, streamFrame{Type: "notice", Notice: &n}); err != nil {
				log.Debug("coaching stream write failed", "err", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, f streamFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(f)
}

// CoachingInbox lists the operator's persisted coaching messages, most
// recent first.
func (h Handlers) CoachingInbox(c *gin.Context) {
	if h.Coaching == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "coaching not configured"})
		return
	}
	opID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	msgs, err := h.Coaching.List(c.Request.Context(), opID, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// MarkCoachingRead records the read time and clears the unread flag in the
// live session view. Repeating it is harmless.
func (h Handlers) MarkCoachingRead(c *gin.Context) {
	if h.Coaching == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "coaching not configured"})
		return
	}
	opID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	msgID := c.Param("message_id")
	m, err := h.Coaching.MarkRead(c.Request.Context(), opID, msgID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if h.Sessions != nil {
		if ctl, ok := h.Sessions.Get(opID); ok {
			ctl.MarkCoachingRead(msgID)
		}
	}
	c.JSON(http.StatusOK, m)
}

// SendCoaching is the supervisor-side producer.
func (h Handlers) SendCoaching(c *gin.Context) {
	if h.Coaching == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "coaching not configured"})
		return
	}
	senderID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	var req coaching.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.SenderID = senderID
	if req.SessionScope == "" && h.Sessions != nil {
		// Unscoped messages attach to the call the operator is on right now.
		if ctl, ok := h.Sessions.Get(req.OperatorID); ok {
			req.SessionScope, _ = ctl.LiveSessionID()
		}
	}

	m, err := h.Coaching.Send(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if h.Audit != nil {
		if err := h.Audit.LogCoachingSent(c.Request.Context(), m.OperatorID, senderID, m.SessionScope, m.MessageID); err != nil {
			logger.FromGin(c).Warn("audit coaching_sent failed", "message_id", m.MessageID, "err", err)
		}
	}
	c.JSON(http.StatusCreated, m)
}
