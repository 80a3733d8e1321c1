package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-backend/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, senderID int, receiverID int, content string) (models.Message, error)
	ListConversation(ctx context.Context, userID int, otherID int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	DeleteMessageForAll(ctx context.Context, messageID int, userID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, sender_id, receiver_id, content, attachment_path, deleted_for_all, created_at`

// CreateMessage stores a direct message.
func (r *MessageRepo) CreateMessage(ctx context.Context, senderID int, receiverID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(`INSERT INTO messages (sender_id, receiver_id, content) VALUES (?, ?, ?) RETURNING `+messageColumns), senderID, receiverID, content).
		StructScan(&msg)
	return msg, err
}

// ListConversation returns both directions of a conversation, oldest first,
// without messages deleted for everyone.
func (r *MessageRepo) ListConversation(ctx context.Context, userID int, otherID int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + `
        FROM messages
        WHERE ((sender_id=? AND receiver_id=?) OR (sender_id=? AND receiver_id=?))
        AND deleted_for_all = FALSE
        ORDER BY created_at ASC, id ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, r.db.Rebind(query), userID, otherID, otherID, userID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, r.db.Rebind(`SELECT `+messageColumns+` FROM messages WHERE id=?`), messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// DeleteMessageForAll marks a message as deleted for both participants.
func (r *MessageRepo) DeleteMessageForAll(ctx context.Context, messageID int, userID int) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE messages SET deleted_for_all = TRUE WHERE id=? AND sender_id=?`), messageID, userID)
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
