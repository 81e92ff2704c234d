package telephony

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"callcenter-platform/internal/calls"
	"callcenter-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const headerWebhookSecret = "X-Webhook-Secret"

// StatusCallback is the subset of provider status-callback fields we use.
// Providers send application/x-www-form-urlencoded.
type StatusCallback struct {
	CallSid    string
	CallStatus string
	Timestamp  string
}

func ParseStatusCallback(r *http.Request) (StatusCallback, error) {
	if err := r.ParseForm(); err != nil {
		return StatusCallback{}, err
	}
	return StatusCallback{
		CallSid:    strings.TrimSpace(r.PostFormValue("CallSid")),
		CallStatus: strings.TrimSpace(r.PostFormValue("CallStatus")),
		Timestamp:  strings.TrimSpace(r.PostFormValue("Timestamp")),
	}, nil
}

func (f StatusCallback) Status() calls.ProviderStatus {
	return calls.NormalizeProviderStatus(f.CallStatus)
}

// StatusSink applies a pushed provider status to whichever session owns the ref.
// It reports false when no live session matches.
type StatusSink interface {
	ApplyProviderStatus(ctx context.Context, providerCallRef string, status calls.ProviderStatus) bool
}

// StatusWebhookHandler accepts provider status pushes. It is an alternative
// delivery path to polling and goes through the same generation-guarded
// transition, so a late or duplicate push is harmless.
type StatusWebhookHandler struct {
	Sink StatusSink

	// Secret, when set, must match the X-Webhook-Secret header.
	Secret string

	Now func() time.Time
}

func (h StatusWebhookHandler) HandleStatus(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Now == nil {
		h.Now = time.Now
	}
	if h.Sink == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status sink not configured"})
		return
	}
	if h.Secret != "" {
		got := c.GetHeader(headerWebhookSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	form, err := ParseStatusCallback(c.Request)
	if err != nil {
		log.Warn("status webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if form.CallSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid required"})
		return
	}

	applied := h.Sink.ApplyProviderStatus(c.Request.Context(), form.CallSid, form.Status())
	log.Info("provider status received",
		"provider_call_ref", form.CallSid,
		"status", form.Status(),
		"applied", applied,
		"received_at", h.Now().UTC(),
	)
	// Always acknowledge; unknown refs belong to sessions that already moved on.
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}
