package telephony

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"voiceagent-platform/pkg/logger"
)

// HandoffRequest is the provider's inbound-call webhook body.
type HandoffRequest struct {
	CallID     string      `json:"call_id" binding:"required"`
	SIPHeaders []SIPHeader `json:"sip_headers"`
}

// SignatureVerifier authenticates a webhook delivery. Implementations
// live outside this package; tests and local runs use AllowAll.
type SignatureVerifier interface {
	Verify(r *http.Request) error
}

// AllowAll accepts every delivery. Local/dev use only.
type AllowAll struct{}

func (AllowAll) Verify(*http.Request) error { return nil }

// CallInitiator starts the coordination side of an accepted handoff.
type CallInitiator interface {
	Initiate(ctx context.Context, callID, businessID, callerPhone string) error
}

// WebhookHandler converts the provider's handoff webhook into a call
// initiation. No business logic here: verify, extract, hand off.
//
// Initiation runs detached from the webhook request; the provider only
// needs the delivery acknowledged, and a slow downstream must not cause
// a webhook retry storm.
type WebhookHandler struct {
	Verifier  SignatureVerifier
	Initiator CallInitiator
}

func (h WebhookHandler) HandleHandoff(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Verifier == nil || h.Initiator == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "handler not configured"})
		return
	}
	if err := h.Verifier.Verify(c.Request); err != nil {
		log.Warn("webhook signature rejected", "err", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var req HandoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("handoff body unreadable", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	info, err := ExtractCallInfo(req.SIPHeaders)
	if err != nil {
		log.Warn("handoff headers incomplete", "call_id", req.CallID, "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	go func() {
		ctx := context.WithoutCancel(c.Request.Context())
		if err := h.Initiator.Initiate(ctx, req.CallID, info.BusinessID, info.CallerPhone); err != nil {
			log.Error("call initiation failed", "call_id", req.CallID, "err", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"call_id": req.CallID})
}
