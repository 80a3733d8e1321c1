package models

import "time"

// Message represents a direct message between two users.
type Message struct {
	ID             int       `db:"id" json:"id"`
	SenderID       int       `db:"sender_id" json:"sender_id"`
	ReceiverID     int       `db:"receiver_id" json:"receiver_id"`
	Content        string    `db:"content" json:"content"`
	AttachmentPath string    `db:"attachment_path" json:"attachment_path,omitempty"`
	DeletedForAll  bool      `db:"deleted_for_all" json:"deleted_for_all"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// DirectEvent is pushed to the inbox sockets of both participants.
type DirectEvent struct {
	Type      string   `json:"type"`
	Message   *Message `json:"message,omitempty"`
	MessageID int      `json:"message_id,omitempty"`
}
