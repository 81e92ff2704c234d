package main

import (
	"database/sql"
	"net/http"
	"time"

	"callcenter-platform/internal/httpapi"
	"callcenter-platform/internal/rbac"
	"callcenter-platform/internal/telephony"
	"callcenter-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// registerPublicRoutes wires unauthenticated routes: health, metrics and
// provider webhooks.
func registerPublicRoutes(r *gin.Engine, db *sql.DB, rdb *redis.Client, status telephony.StatusWebhookHandler) {
	r.GET("/healthz", func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := utils.HealthCheck(ctx, db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider status pushes. Guarded by a shared secret header when
	// TELEPHONY_WEBHOOK_SECRET is set.
	r.POST("/webhooks/telephony/status", status.HandleStatus)
}

// registerProtectedRoutes wires the authenticated API.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerProtectedRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers) {
	v1 := r.Group("/v1")
	v1.Use(authMW, rbac.RequireTeam())

	v1.GET("/me", h.Me)

	callers := v1.Group("")
	callers.Use(rbac.RequireAnyRole(rbac.RoleOperator))
	{
		callers.POST("/calls/start", h.StartCall)
		callers.POST("/calls/end", h.EndCall)
		callers.POST("/calls/force-end", h.ForceEndCall)
		callers.POST("/calls/confirm", h.ConfirmResult)
		callers.POST("/calls/edit", h.BeginEdit)
		callers.PUT("/calls/edit", h.ConfirmEdit)
		callers.DELETE("/calls/edit", h.CancelEdit)
		callers.GET("/calls/current", h.CurrentCall)

		callers.GET("/coaching/stream", h.CoachingStream)
		callers.GET("/coaching/inbox", h.CoachingInbox)
		callers.POST("/coaching/inbox/:message_id/read", h.MarkCoachingRead)
	}

	v1.GET("/calls/results/:result_id/analysis",
		rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleSupervisor, rbac.RoleDirector),
		h.AnalysisRun)

	supervisors := v1.Group("/supervisor")
	supervisors.Use(rbac.RequireAnyRole(rbac.RoleSupervisor, rbac.RoleDirector))
	{
		supervisors.POST("/coaching", h.SendCoaching)
	}

	projects := v1.Group("/projects")
	projects.Use(rbac.RequireAnyRole(rbac.RoleDirector))
	{
		projects.GET("/:project_id/summary", h.ProjectSummary)
	}
}
