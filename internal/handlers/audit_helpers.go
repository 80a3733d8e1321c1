package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-backend/internal/telemetry"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

// userIDFromContext returns the authenticated user set by the auth middleware.
func userIDFromContext(c *gin.Context) *int64 {
	userID := c.GetInt("userID")
	if userID <= 0 {
		return nil
	}
	value := int64(userID)
	return &value
}

func emitAudit(c *gin.Context, audit *telemetry.AuditEmitter, event telemetry.AuditEvent) {
	if audit == nil {
		return
	}
	event.RequestID = requestIDFromContext(c)
	if event.UserID == nil {
		event.UserID = userIDFromContext(c)
	}
	audit.Emit(c.Request.Context(), event)
}

func parseIDParam(c *gin.Context, name, label string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + label})
		return 0, false
	}
	return id, true
}
