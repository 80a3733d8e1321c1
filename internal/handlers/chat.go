package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-backend/internal/models"
	"chat-backend/internal/repositories"
	"chat-backend/internal/telemetry"
	"chat-backend/internal/ws"
)

// ChatHandler manages direct message endpoints.
type ChatHandler struct {
	userRepo    repositories.UserRepository
	messageRepo repositories.MessageRepository
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(userRepo repositories.UserRepository, messageRepo repositories.MessageRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		userRepo:    userRepo,
		messageRepo: messageRepo,
		hub:         hub,
		audit:       audit,
	}
}

// SendMessage handles POST /messages.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req struct {
		ReceiverID int    `json:"receiver_id" binding:"required"`
		Content    string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if req.ReceiverID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself"})
		return
	}

	if _, err := h.userRepo.GetUser(c.Request.Context(), req.ReceiverID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "receiver not found"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.hub.BroadcastDirectMessage(msg)
	c.JSON(http.StatusCreated, msg)
}

// GetConversation returns the messages exchanged with another user.
func (h *ChatHandler) GetConversation(c *gin.Context) {
	otherID, ok := parseIDParam(c, "user_id", "user id")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	msgs, err := h.messageRepo.ListConversation(c.Request.Context(), userID, otherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	users, err := h.userRepo.BulkUsers(c.Request.Context(), []int{userID, otherID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load senders"})
		return
	}
	senderNames := map[int]string{}
	for _, u := range users {
		senderNames[u.ID] = u.Username
	}

	type messageResponse struct {
		models.Message
		SenderUsername string `json:"sender_username,omitempty"`
	}

	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{Message: m, SenderUsername: senderNames[m.SenderID]})
	}

	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

// DeleteMessageForAll marks a message as deleted for both participants (sender only).
func (h *ChatHandler) DeleteMessageForAll(c *gin.Context) {
	messageID, ok := parseIDParam(c, "message_id", "message id")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}
	if msg.SenderID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only sender can delete for all"})
		return
	}

	if err := h.messageRepo.DeleteMessageForAll(c.Request.Context(), messageID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not delete message"})
		return
	}

	h.hub.BroadcastDirectDeletion(msg)
	emitAudit(c, h.audit, telemetry.AuditEvent{Level: "INFO", Text: "Message deleted for all"})
	c.Status(http.StatusNoContent)
}
