package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DirectWebSocketHandler serves the per-user inbox socket carrying direct
// message events.
type DirectWebSocketHandler struct {
	hub    *Hub
	tokens TokenValidator
}

// NewDirectWebSocketHandler constructs a DirectWebSocketHandler.
func NewDirectWebSocketHandler(hub *Hub, tokens TokenValidator) *DirectWebSocketHandler {
	return &DirectWebSocketHandler{hub: hub, tokens: tokens}
}

// Handle upgrades the connection and registers it to the caller's inbox.
func (h *DirectWebSocketHandler) Handle(c *gin.Context) {
	span := startHandshake(c, KindDirect)
	defer span.End()

	userID, err := authenticate(c, h.tokens)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	serve(c, h.hub, span, KindDirect, userID, userID)
}
