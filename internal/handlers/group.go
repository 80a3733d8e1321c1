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

// GroupHandler manages group-related endpoints.
type GroupHandler struct {
	groupRepo   repositories.GroupRepository
	messageRepo repositories.GroupMessageRepository
	userRepo    repositories.UserRepository
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groupRepo repositories.GroupRepository, messageRepo repositories.GroupMessageRepository, userRepo repositories.UserRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{
		groupRepo:   groupRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		hub:         hub,
		audit:       audit,
	}
}

// CreateGroup handles POST /groups.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		Name      string `json:"name" binding:"required"`
		MemberIDs []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.MemberIDs) > 0 {
		users, err := h.userRepo.BulkUsers(c.Request.Context(), req.MemberIDs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate members"})
			return
		}
		if len(users) != len(uniqueIDs(req.MemberIDs)) {
			h.emitAudit(c, "ERROR", "unknown group members")
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown members"})
			return
		}
	}

	group, err := h.groupRepo.CreateGroup(c.Request.Context(), userID, req.Name, req.MemberIDs)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	h.emitAudit(c, "INFO", "Group created")
	c.JSON(http.StatusCreated, gin.H{"group_id": group.ID})
}

// ListGroups returns groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID := c.GetInt("userID")
	groups, err := h.groupRepo.ListGroupsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroupMessages returns messages in the group.
func (h *GroupHandler) GetGroupMessages(c *gin.Context) {
	groupID, ok := parseIDParam(c, "group_id", "group id")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	msgs, err := h.messageRepo.ListGroupMessages(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	senderIDs := make([]int, 0, len(msgs))
	for _, m := range msgs {
		senderIDs = append(senderIDs, m.SenderID)
	}
	senderIDs = uniqueIDs(senderIDs)

	usernameByID := map[int]string{}
	if len(senderIDs) > 0 {
		users, err := h.userRepo.BulkUsers(c.Request.Context(), senderIDs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load senders"})
			return
		}
		for _, u := range users {
			usernameByID[u.ID] = u.Username
		}
	}

	type messageResponse struct {
		models.GroupMessage
		SenderUsername string `json:"sender_username,omitempty"`
	}

	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{GroupMessage: m, SenderUsername: usernameByID[m.SenderID]})
	}

	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

// PostGroupMessage persists and broadcasts a group message.
func (h *GroupHandler) PostGroupMessage(c *gin.Context) {
	groupID, ok := parseIDParam(c, "group_id", "group id")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageRepo.CreateGroupMessage(c.Request.Context(), groupID, userID, req.Content)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.hub.BroadcastGroupMessage(groupID, msg)
	h.emitAudit(c, "INFO", "Group message sent")
	c.JSON(http.StatusCreated, msg)
}

// DeleteGroupMessageForAll deletes a message for everyone when invoked by the sender.
func (h *GroupHandler) DeleteGroupMessageForAll(c *gin.Context) {
	groupID, messageID, ok := parseGroupIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		h.emitAudit(c, "ERROR", "not allowed to delete for all")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	msg, err := h.messageRepo.GetGroupMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		if status == http.StatusNotFound {
			h.emitAudit(c, "ERROR", "message not found")
		} else {
			h.emitAudit(c, "ERROR", "internal error")
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}
	if msg.GroupID != groupID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to group"})
		return
	}
	if msg.SenderID != userID {
		h.emitAudit(c, "ERROR", "not allowed to delete for all")
		c.JSON(http.StatusForbidden, gin.H{"error": "only sender may delete"})
		return
	}

	if err := h.messageRepo.DeleteForAll(c.Request.Context(), messageID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		if status == http.StatusNotFound {
			h.emitAudit(c, "ERROR", "message not found")
		} else {
			h.emitAudit(c, "ERROR", "internal error")
		}
		c.JSON(status, gin.H{"error": "could not delete"})
		return
	}

	h.hub.BroadcastGroupDeletion(groupID, messageID)
	h.emitAudit(c, "INFO", "Group message deleted for all")
	c.Status(http.StatusNoContent)
}

// MarkGroupRead moves the caller's read marker to the given message and
// returns the remaining unread count.
func (h *GroupHandler) MarkGroupRead(c *gin.Context) {
	groupID, messageID, ok := parseGroupIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	msg, err := h.messageRepo.GetGroupMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}
	if msg.GroupID != groupID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to group"})
		return
	}

	if err := h.messageRepo.MarkRead(c.Request.Context(), groupID, userID, messageID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark read"})
		return
	}
	h.respondUnread(c, groupID, userID)
}

// GetGroupUnread returns how many messages the caller has not read yet.
func (h *GroupHandler) GetGroupUnread(c *gin.Context) {
	groupID, ok := parseIDParam(c, "group_id", "group id")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}
	h.respondUnread(c, groupID, userID)
}

func (h *GroupHandler) respondUnread(c *gin.Context, groupID, userID int) {
	unread, err := h.messageRepo.UnreadCount(c.Request.Context(), groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_id": groupID, "unread": unread})
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, text string) {
	emitAudit(c, h.audit, telemetry.AuditEvent{Level: level, Text: text})
}

func parseGroupIDs(c *gin.Context) (int, int, bool) {
	groupID, ok := parseIDParam(c, "group_id", "group id")
	if !ok {
		return 0, 0, false
	}
	msgID, ok := parseIDParam(c, "message_id", "message id")
	if !ok {
		return 0, 0, false
	}
	return groupID, msgID, true
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
