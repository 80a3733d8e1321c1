package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-backend/internal/cascade"
	"chat-backend/internal/telemetry"
)

type accountDeleter interface {
	DeleteUser(ctx context.Context, userID int64, opts cascade.Options) (*cascade.Result, error)
}

type connectionCloser interface {
	DisconnectUser(userID int, reason string) int
}

// AccountHandler serves self-service account deletion.
type AccountHandler struct {
	deleter   accountDeleter
	conns     connectionCloser
	audit     *telemetry.AuditEmitter
	avatarDir string
	chunkSize int
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(deleter accountDeleter, conns connectionCloser, audit *telemetry.AuditEmitter, avatarDir string, chunkSize int) *AccountHandler {
	return &AccountHandler{
		deleter:   deleter,
		conns:     conns,
		audit:     audit,
		avatarDir: avatarDir,
		chunkSize: chunkSize,
	}
}

// DeleteMe handles DELETE /users/me: the caller's account and everything
// that depends on it is removed, then their sockets are closed.
func (h *AccountHandler) DeleteMe(c *gin.Context) {
	userID := c.GetInt("userID")
	if userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
		return
	}

	result, err := h.deleter.DeleteUser(c.Request.Context(), int64(userID), cascade.Options{
		AvatarDir: h.avatarDir,
		ChunkSize: h.chunkSize,
	})
	if err != nil {
		log.Printf("account deletion failed: user_id=%d err=%v", userID, err)
		emitAudit(c, h.audit, telemetry.AuditEvent{Level: "ERROR", Text: "Account deletion failed"})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete account"})
		return
	}

	closed := 0
	if h.conns != nil {
		closed = h.conns.DisconnectUser(userID, "account deleted")
	}

	warnings := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		warnings = append(warnings, w.String())
	}
	log.Printf("account deleted: user_id=%d found=%t warnings=%d sockets_closed=%d", userID, result.UserFound, len(warnings), closed)

	emitAudit(c, h.audit, telemetry.AuditEvent{
		Type:  "account_deleted",
		Level: "INFO",
		Text:  "Account deleted",
		Details: map[string]any{
			"warnings":       warnings,
			"rows_deleted":   result.RowsDeleted,
			"deleted_groups": result.DeletedGroups,
			"avatar_removed": result.AvatarRemoved,
		},
	})
	c.Status(http.StatusNoContent)
}
