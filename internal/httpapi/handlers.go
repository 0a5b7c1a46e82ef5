package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voiceagent-platform/internal/audit"
	"voiceagent-platform/internal/callstate"
	"voiceagent-platform/internal/convlog"
	"voiceagent-platform/internal/reporting"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Calls   *callstate.Store
	Turns   *convlog.Log
	History *audit.Service
	Stats   *reporting.Service
}

// GetCall returns a live (or recently ended) call's record. An unknown or
// expired call is a 404, not an error.
func (h Handlers) GetCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call store not configured"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}

	rec, err := h.Calls.Get(c.Request.Context(), callID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	if rec == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown call"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetCallMessageCount returns how many turns the call has logged so far.
func (h Handlers) GetCallMessageCount(c *gin.Context) {
	if h.Turns == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "conversation log not configured"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}

	n, err := h.Turns.Count(c.Request.Context(), callID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_id": callID, "message_count": n})
}

// GetCallEvents returns the recorded event trail for a call, oldest first.
func (h Handlers) GetCallEvents(c *gin.Context) {
	if h.History == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call history not configured"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.History.History(c.Request.Context(), callID, limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_id": callID, "events": entries})
}

// GetBusinessStats returns aggregated call counters for one business.
func (h Handlers) GetBusinessStats(c *gin.Context) {
	if h.Stats == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	businessID := c.Param("business_id")
	if businessID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "business_id required"})
		return
	}

	stats, err := h.Stats.Summary(c.Request.Context(), businessID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "stats lookup failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
