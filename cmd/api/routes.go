package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/httpapi"
	"voiceagent-platform/internal/rbac"
	"voiceagent-platform/internal/telephony"
	"voiceagent-platform/pkg/utils"
)

type routeDeps struct {
	authMW       gin.HandlerFunc
	orchestrator *calls.Orchestrator
	handlers     httpapi.Handlers
	db           *sql.DB
	rdb          *redis.Client
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), deps.db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := deps.rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider handoff webhook (public).
	// NOTE: production deployments must supply a real SignatureVerifier.
	{
		h := telephony.WebhookHandler{
			Verifier:  telephony.AllowAll{},
			Initiator: deps.orchestrator,
		}
		r.POST("/webhooks/calls/handoff", h.HandleHandoff)
	}

	// protected ops API
	v1 := r.Group("/v1")
	v1.Use(deps.authMW, rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleSupervisor, rbac.RoleAnalyst))
	{
		v1.GET("/calls/:call_id", deps.handlers.GetCall)
		v1.GET("/calls/:call_id/messages/count", deps.handlers.GetCallMessageCount)
		v1.GET("/calls/:call_id/events", deps.handlers.GetCallEvents)
		v1.GET("/businesses/:business_id/stats", deps.handlers.GetBusinessStats)
	}
}
