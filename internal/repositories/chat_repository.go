package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"dm-service/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

const chatColumns = `id, is_group, group_name, group_admin_id, last_message_id, last_activity, created_at`

const prefixedChatColumns = `c.id, c.is_group, c.group_name, c.group_admin_id, c.last_message_id, c.last_activity, c.created_at`

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	CreateOrGetDirectChat(ctx context.Context, userID, participantID int) (models.Chat, bool, error)
	GetChat(ctx context.Context, chatID int) (models.Chat, error)
	IsParticipant(ctx context.Context, chatID, userID int) (bool, error)
	ListChats(ctx context.Context, userID int) ([]models.Chat, error)
	ListChatIDs(ctx context.Context, userID int) ([]int, error)
	ParticipantIDs(ctx context.Context, chatID int) ([]int, error)
	SetLastMessage(ctx context.Context, chatID, messageID int, at time.Time) error
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// CreateOrGetDirectChat returns the direct chat between the two users,
// creating it when absent. Uniqueness is lookup-before-create; a race
// between concurrent creators is accepted.
func (r *ChatRepo) CreateOrGetDirectChat(ctx context.Context, userID, participantID int) (models.Chat, bool, error) {
	if userID == participantID {
		return models.Chat{}, false, errors.New("cannot create chat with self")
	}

	var chat models.Chat
	err := r.db.GetContext(ctx, &chat,
		`SELECT `+prefixedChatColumns+`
         FROM chats c
         JOIN chat_participants p1 ON p1.chat_id = c.id AND p1.user_id = $1
         JOIN chat_participants p2 ON p2.chat_id = c.id AND p2.user_id = $2
         WHERE c.is_group = FALSE
         LIMIT 1`, userID, participantID)
	if err == nil {
		return chat, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, false, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, false, err
	}
	defer tx.Rollback()

	if err := tx.GetContext(ctx, &chat,
		`INSERT INTO chats (is_group) VALUES (FALSE) RETURNING `+chatColumns); err != nil {
		return models.Chat{}, false, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2), ($1, $3)`,
		chat.ID, userID, participantID); err != nil {
		return models.Chat{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return models.Chat{}, false, err
	}
	return chat, true, nil
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// IsParticipant checks whether a user belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id=$1 AND user_id=$2)`, chatID, userID)
	return exists, err
}

// ListChats returns the user's chats, most recently active first.
func (r *ChatRepo) ListChats(ctx context.Context, userID int) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats,
		`SELECT `+prefixedChatColumns+`
         FROM chats c JOIN chat_participants p ON p.chat_id = c.id
         WHERE p.user_id=$1 ORDER BY c.last_activity DESC`, userID)
	return chats, err
}

// ListChatIDs returns the ids of every chat the user participates in.
func (r *ChatRepo) ListChatIDs(ctx context.Context, userID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids,
		`SELECT chat_id FROM chat_participants WHERE user_id=$1`, userID)
	return ids, err
}

// ParticipantIDs returns the ids of a chat's participants.
func (r *ChatRepo) ParticipantIDs(ctx context.Context, chatID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM chat_participants WHERE chat_id=$1 ORDER BY joined_at`, chatID)
	return ids, err
}

// SetLastMessage updates the denormalized last-message pointer and
// activity timestamp.
func (r *ChatRepo) SetLastMessage(ctx context.Context, chatID, messageID int, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE chats SET last_message_id=$1, last_activity=$2 WHERE id=$3`, messageID, at, chatID)
	return err
}
