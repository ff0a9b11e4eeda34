package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"dm-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, chat_id, sender_id, content, message_type, is_deleted, edited_at, created_at`

// MessageRepository defines interactions for chat messages and read
// receipts.
type MessageRepository interface {
	CreateMessage(ctx context.Context, chatID, senderID int, content, messageType string) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	ListChatMessages(ctx context.Context, chatID, limit, offset int) ([]models.Message, error)
	MarkChatRead(ctx context.Context, chatID, readerID int) error
	MarkMessagesRead(ctx context.Context, chatID, readerID int, messageIDs []int, readAt time.Time) error
	EditMessage(ctx context.Context, messageID int, content string) (models.Message, error)
	SoftDeleteMessage(ctx context.Context, messageID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a new message.
func (r *MessageRepo) CreateMessage(ctx context.Context, chatID, senderID int, content, messageType string) (models.Message, error) {
	if messageType == "" {
		messageType = models.MessageTypeText
	}
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`INSERT INTO messages (chat_id, sender_id, content, message_type) VALUES ($1, $2, $3, $4) RETURNING `+messageColumns,
		chatID, senderID, content, messageType)
	return msg, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListChatMessages returns a page of non-deleted messages, newest
// first. Callers re-order ascending for presentation.
func (r *MessageRepo) ListChatMessages(ctx context.Context, chatID, limit, offset int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE chat_id=$1 AND is_deleted = FALSE
         ORDER BY created_at DESC
         LIMIT $2 OFFSET $3`, chatID, limit, offset)
	return msgs, err
}

// MarkChatRead appends a read receipt for every message in the chat
// authored by someone else and not yet read by the reader.
func (r *MessageRepo) MarkChatRead(ctx context.Context, chatID, readerID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, user_id)
         SELECT m.id, $2 FROM messages m
         WHERE m.chat_id=$1 AND m.sender_id <> $2
         ON CONFLICT (message_id, user_id) DO NOTHING`, chatID, readerID)
	return err
}

// MarkMessagesRead appends read receipts for the referenced messages,
// stamped with the caller-supplied readAt so the stored rows match
// what was broadcast. Messages outside the chat or authored by the
// reader are skipped; the primary key makes the operation idempotent
// per reader.
func (r *MessageRepo) MarkMessagesRead(ctx context.Context, chatID, readerID int, messageIDs []int, readAt time.Time) error {
	if len(messageIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, user_id, read_at)
         SELECT m.id, $3, $4 FROM messages m
         WHERE m.id = ANY($1) AND m.chat_id=$2 AND m.sender_id <> $3
         ON CONFLICT (message_id, user_id) DO NOTHING`,
		pq.Array(messageIDs), chatID, readerID, readAt)
	return err
}

// EditMessage replaces the content of a not-yet-deleted message and
// stamps edited_at.
func (r *MessageRepo) EditMessage(ctx context.Context, messageID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`UPDATE messages SET content=$1, edited_at=NOW() WHERE id=$2 AND is_deleted = FALSE RETURNING `+messageColumns,
		content, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SoftDeleteMessage flags the message deleted and redacts its content.
// There is no not-already-deleted precondition; repeating the call is
// harmless.
func (r *MessageRepo) SoftDeleteMessage(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET is_deleted = TRUE, content=$1 WHERE id=$2`, models.DeletedContent, messageID)
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
