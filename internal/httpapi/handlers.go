package httpapi

import (
	"context"
	"net/http"
	"time"

	"callcenter-platform/internal/analysis"
	"callcenter-platform/internal/audit"
	"callcenter-platform/internal/auth"
	"callcenter-platform/internal/calls"
	"callcenter-platform/internal/coaching"
	"callcenter-platform/internal/rbac"
	"callcenter-platform/internal/reporting"
	"callcenter-platform/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ResultReader looks up a persisted call result.
type ResultReader interface {
	GetCallResult(ctx context.Context, resultID string) (calls.CallResult, error)
}

// RunReader exposes analysis bookkeeping for a result.
type RunReader interface {
	Run(ctx context.Context, resultID string) (analysis.Run, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Sessions *session.Manager
	Coaching *coaching.Service
	Audit    *audit.Service
	Results  ResultReader
	Analysis RunReader
	Reports  *reporting.Service

	// Upgrader is used by the coaching stream. The zero value rejects
	// cross-origin browsers.
	Upgrader websocket.Upgrader

	// PingInterval keeps the stream alive through proxies. Defaults to 30s.
	PingInterval time.Duration
}

func (h Handlers) controller(c *gin.Context) (*session.Controller, bool) {
	if h.Sessions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sessions not configured"})
		return nil, false
	}
	opID, err := auth.UserID(c.Request.Context())
	if err != nil || opID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return nil, false
	}
	return h.Sessions.For(opID), true
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	TeamID string `json:"team_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: local/dev only. It does not check credentials and is not routed in
// production.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.TeamID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, team_id, role required"})
		return
	}
	switch req.Role {
	case rbac.RoleOperator, rbac.RoleSupervisor, rbac.RoleDirector, rbac.RoleAdmin:
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), auth.Identity{UserID: req.UserID, TeamID: req.TeamID, Role: req.Role})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// Me echoes the caller's identity.
func (h Handlers) Me(c *gin.Context) {
	ctx := c.Request.Context()
	uid, _ := auth.UserID(ctx)
	tid, _ := auth.TeamID(ctx)
	role, _ := auth.Role(ctx)
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "team_id": tid, "role": role})
}

// Convenience middleware bundles.

func RequireTeamAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireTeam(), rbac.RequireAnyRole(roles...)}
}
