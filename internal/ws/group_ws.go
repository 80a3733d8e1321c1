package ws

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-backend/internal/repositories"
)

// GroupWebSocketHandler handles group websocket connections.
type GroupWebSocketHandler struct {
	hub       *Hub
	groupRepo repositories.GroupRepository
	tokens    TokenValidator
}

// NewGroupWebSocketHandler constructs a GroupWebSocketHandler.
func NewGroupWebSocketHandler(hub *Hub, groupRepo repositories.GroupRepository, tokens TokenValidator) *GroupWebSocketHandler {
	return &GroupWebSocketHandler{hub: hub, groupRepo: groupRepo, tokens: tokens}
}

// Handle upgrades and registers a websocket connection for group chats.
func (h *GroupWebSocketHandler) Handle(c *gin.Context) {
	groupID, err := strconv.Atoi(c.Param("group_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	span := startHandshake(c, KindGroup)
	defer span.End()

	userID, err := authenticate(c, h.tokens)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for group"})
		return
	}

	serve(c, h.hub, span, KindGroup, groupID, userID)
}
