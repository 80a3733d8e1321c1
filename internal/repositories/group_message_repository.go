package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-backend/internal/models"
)

// GroupMessageRepository defines interactions for group messages.
type GroupMessageRepository interface {
	CreateGroupMessage(ctx context.Context, groupID int, senderID int, content string) (models.GroupMessage, error)
	ListGroupMessages(ctx context.Context, groupID int) ([]models.GroupMessage, error)
	GetGroupMessage(ctx context.Context, messageID int) (models.GroupMessage, error)
	DeleteForAll(ctx context.Context, messageID int, senderID int) error
	MarkRead(ctx context.Context, groupID int, userID int, messageID int) error
	UnreadCount(ctx context.Context, groupID int, userID int) (int, error)
}

// GroupMessageRepo is a sqlx-backed implementation.
type GroupMessageRepo struct {
	db *sqlx.DB
}

// NewGroupMessageRepo constructs a GroupMessageRepo.
func NewGroupMessageRepo(db *sqlx.DB) *GroupMessageRepo {
	return &GroupMessageRepo{db: db}
}

const groupMessageColumns = `id, group_id, sender_id, content, deleted_for_all, created_at`

// CreateGroupMessage persists a group message.
func (r *GroupMessageRepo) CreateGroupMessage(ctx context.Context, groupID int, senderID int, content string) (models.GroupMessage, error) {
	var msg models.GroupMessage
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(`INSERT INTO group_messages (group_id, sender_id, content) VALUES (?, ?, ?) RETURNING `+groupMessageColumns), groupID, senderID, content).
		StructScan(&msg)
	return msg, err
}

// ListGroupMessages returns messages ordered by creation, excluding deleted_for_all.
func (r *GroupMessageRepo) ListGroupMessages(ctx context.Context, groupID int) ([]models.GroupMessage, error) {
	var msgs []models.GroupMessage
	err := r.db.SelectContext(ctx, &msgs, r.db.Rebind(`SELECT `+groupMessageColumns+` FROM group_messages WHERE group_id=? AND deleted_for_all = FALSE ORDER BY created_at ASC, id ASC`), groupID)
	return msgs, err
}

// GetGroupMessage fetches a single message.
func (r *GroupMessageRepo) GetGroupMessage(ctx context.Context, messageID int) (models.GroupMessage, error) {
	var msg models.GroupMessage
	err := r.db.GetContext(ctx, &msg, r.db.Rebind(`SELECT `+groupMessageColumns+` FROM group_messages WHERE id=?`), messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GroupMessage{}, ErrMessageNotFound
	}
	return msg, err
}

// DeleteForAll marks a message deleted for everyone (sender only).
func (r *GroupMessageRepo) DeleteForAll(ctx context.Context, messageID int, senderID int) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE group_messages SET deleted_for_all = TRUE WHERE id=? AND sender_id=?`), messageID, senderID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// MarkRead moves the member's read marker forward to messageID. The marker
// never moves backwards.
func (r *GroupMessageRepo) MarkRead(ctx context.Context, groupID int, userID int, messageID int) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO group_reads (group_id, user_id, last_read_message_id, last_read_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (group_id, user_id) DO UPDATE SET
			last_read_message_id = CASE
				WHEN excluded.last_read_message_id > group_reads.last_read_message_id THEN excluded.last_read_message_id
				ELSE group_reads.last_read_message_id
			END,
			last_read_at = CURRENT_TIMESTAMP`), groupID, userID, messageID)
	return err
}

// UnreadCount counts visible messages from other members after the read marker.
func (r *GroupMessageRepo) UnreadCount(ctx context.Context, groupID int, userID int) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`
		SELECT COUNT(*) FROM group_messages gm
		WHERE gm.group_id = ? AND gm.sender_id <> ? AND gm.deleted_for_all = FALSE
		  AND gm.id > COALESCE((SELECT gr.last_read_message_id FROM group_reads gr WHERE gr.group_id = ? AND gr.user_id = ?), 0)`),
		groupID, userID, groupID, userID)
	return n, err
}
