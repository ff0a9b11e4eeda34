package models

import "time"

// DeletedContent replaces the body of a soft-deleted message.
const DeletedContent = "This message was deleted"

// MessageTypeText is the only message type currently produced.
const MessageTypeText = "text"

// Message is a single chat message. Soft delete keeps the row and
// redacts Content.
type Message struct {
	ID          int        `db:"id" json:"id"`
	ChatID      int        `db:"chat_id" json:"chat_id"`
	SenderID    int        `db:"sender_id" json:"sender_id"`
	Content     string     `db:"content" json:"content"`
	MessageType string     `db:"message_type" json:"message_type"`
	IsDeleted   bool       `db:"is_deleted" json:"is_deleted"`
	EditedAt    *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// MessageDetail is a message with its sender profile resolved.
type MessageDetail struct {
	Message
	Sender *UserSummary `json:"sender,omitempty"`
}

// ReadReceipt records that a user has read a message. Append-only,
// at most one entry per reader per message.
type ReadReceipt struct {
	MessageID int       `db:"message_id" json:"message_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	ReadAt    time.Time `db:"read_at" json:"read_at"`
}
