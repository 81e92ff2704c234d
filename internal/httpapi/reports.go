package httpapi

import (
	"net/http"
	"strings"
	"time"

	"callcenter-platform/internal/auth"
	"callcenter-platform/internal/rbac"
	"callcenter-platform/internal/reporting"

	"github.com/gin-gonic/gin"
)

const defaultSummaryWindow = 7 * 24 * time.Hour

// AnalysisRun reports per-step analysis status for a saved result.
// Operators only see their own results.
func (h Handlers) AnalysisRun(c *gin.Context) {
	if h.Analysis == nil || h.Results == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "analysis not configured"})
		return
	}
	ctx := c.Request.Context()
	resultID := c.Param("result_id")

	res, err := h.Results.GetCallResult(ctx, resultID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	uid, _ := auth.UserID(ctx)
	role, _ := auth.Role(ctx)
	if role == rbac.RoleOperator && res.OperatorID != uid {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	run, err := h.Analysis.Run(ctx, resultID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// ProjectSummary aggregates saved outcomes for a project over [from, to).
// Both bounds are RFC 3339; the window defaults to the last seven days.
func (h Handlers) ProjectSummary(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	to := time.Now().UTC()
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
			return
		}
		to = t
	}
	from := to.Add(-defaultSummaryWindow)
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
			return
		}
		from = t
	}

	out, err := h.Reports.ProjectSummary(c.Request.Context(), reporting.ProjectSummaryRequest{
		ProjectID: c.Param("project_id"),
		Range:     reporting.TimeRange{From: from, To: to},
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
