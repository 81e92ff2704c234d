package httpapi

import (
	"errors"
	"net/http"

	"callcenter-platform/internal/analysis"
	"callcenter-platform/internal/coaching"
	"callcenter-platform/internal/reporting"
	"callcenter-platform/internal/results"
	"callcenter-platform/internal/session"
	"callcenter-platform/internal/telephony"
	"callcenter-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// abortWithError maps domain errors onto HTTP responses. Anything unmapped is
// logged and returned as a bare 500.
func abortWithError(c *gin.Context, err error) {
	var (
		saveErr *session.SaveError
		editErr *session.EditError
		origErr *telephony.OriginateError
	)
	switch {
	case errors.As(err, &saveErr):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "call result could not be saved", "retryable": saveErr.Retryable})
	case errors.As(err, &editErr):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "call result could not be updated", "retryable": editErr.Retryable})
	case errors.As(err, &origErr):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": origErr.Message})
	case errors.Is(err, session.ErrTerminateFailed):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "the phone provider did not end the call; try again or force-end"})

	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrSessionLive),
		errors.Is(err, session.ErrOperatorBusy),
		errors.Is(err, session.ErrSuperseded),
		errors.Is(err, session.ErrSaveInProgress):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, session.ErrInvalidRequest),
		errors.Is(err, session.ErrInvalidOutcome),
		errors.Is(err, telephony.ErrBackendUnavailable),
		errors.Is(err, coaching.ErrInvalidMessage),
		errors.Is(err, reporting.ErrInvalidRequest),
		errors.Is(err, results.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case errors.Is(err, coaching.ErrNotFound),
		errors.Is(err, analysis.ErrRunNotFound),
		errors.Is(err, results.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})

	default:
		logger.FromGin(c).Error("request failed", "err", err)
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
