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

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("username or email already taken")
)

const userColumns = `id, username, email, password_hash, full_name, avatar, bio, is_online, last_seen, created_at`

const summaryColumns = `id, username, full_name, avatar, is_online, last_seen`

// UserRepository abstracts user, presence and friend persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (models.User, error)
	GetUserByID(ctx context.Context, userID int) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUsersByIDs(ctx context.Context, ids []int) ([]models.UserSummary, error)
	UpdateProfile(ctx context.Context, userID int, fullName, avatar, bio string) (models.User, error)
	SearchUsers(ctx context.Context, query string, excludeID, limit int) ([]models.UserSummary, error)
	UpdatePresence(ctx context.Context, userID int, online bool, lastSeen time.Time) error
	AddFriendRequest(ctx context.Context, senderID, receiverID int) error
	RemoveFriendRequest(ctx context.Context, senderID, receiverID int) error
	HasFriendRequest(ctx context.Context, senderID, receiverID int) (bool, error)
	AcceptFriendRequest(ctx context.Context, userID, requesterID int) error
	AreFriends(ctx context.Context, userID, friendID int) (bool, error)
	ListFriends(ctx context.Context, userID int) ([]models.UserSummary, error)
	ListFriendIDs(ctx context.Context, userID int) ([]int, error)
	ListFriendRequests(ctx context.Context, userID int) (sent, received []models.UserSummary, err error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser inserts a new account.
func (r *UserRepo) CreateUser(ctx context.Context, username, email, passwordHash string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING `+userColumns,
		username, email, passwordHash)
	if isUniqueViolation(err) {
		return models.User{}, ErrDuplicateUser
	}
	return user, err
}

// GetUserByID fetches a user by id.
func (r *UserRepo) GetUserByID(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUserByUsername fetches a user by its unique username.
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUsersByIDs bulk-loads profile summaries.
func (r *UserRepo) GetUsersByIDs(ctx context.Context, ids []int) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, nil
	}
	var users []models.UserSummary
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+summaryColumns+` FROM users WHERE id = ANY($1)`, pq.Array(ids))
	return users, err
}

// UpdateProfile replaces the mutable profile fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID int, fullName, avatar, bio string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`UPDATE users SET full_name=$1, avatar=$2, bio=$3 WHERE id=$4 RETURNING `+userColumns,
		fullName, avatar, bio, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// SearchUsers finds users by username substring, excluding the caller.
func (r *UserRepo) SearchUsers(ctx context.Context, query string, excludeID, limit int) ([]models.UserSummary, error) {
	var users []models.UserSummary
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+summaryColumns+` FROM users WHERE username ILIKE '%' || $1 || '%' AND id <> $2 ORDER BY username LIMIT $3`,
		query, excludeID, limit)
	return users, err
}

// UpdatePresence upserts the denormalized presence fields.
func (r *UserRepo) UpdatePresence(ctx context.Context, userID int, online bool, lastSeen time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_online=$1, last_seen=$2 WHERE id=$3`, online, lastSeen, userID)
	return err
}

// AddFriendRequest records a pending request from sender to receiver.
func (r *UserRepo) AddFriendRequest(ctx context.Context, senderID, receiverID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO friend_requests (sender_id, receiver_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		senderID, receiverID)
	return err
}

// RemoveFriendRequest drops a pending request, if present.
func (r *UserRepo) RemoveFriendRequest(ctx context.Context, senderID, receiverID int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM friend_requests WHERE sender_id=$1 AND receiver_id=$2`, senderID, receiverID)
	return err
}

// HasFriendRequest reports whether sender has a pending request to receiver.
func (r *UserRepo) HasFriendRequest(ctx context.Context, senderID, receiverID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM friend_requests WHERE sender_id=$1 AND receiver_id=$2)`,
		senderID, receiverID)
	return exists, err
}

// AcceptFriendRequest removes the pending request and inserts both
// sides of the friendship in one transaction, keeping the relation
// symmetric.
func (r *UserRepo) AcceptFriendRequest(ctx context.Context, userID, requesterID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM friend_requests WHERE sender_id=$1 AND receiver_id=$2`, requesterID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO friends (user_id, friend_id) VALUES ($1, $2), ($2, $1) ON CONFLICT DO NOTHING`,
		userID, requesterID); err != nil {
		return err
	}
	return tx.Commit()
}

// AreFriends checks the friendship relation.
func (r *UserRepo) AreFriends(ctx context.Context, userID, friendID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM friends WHERE user_id=$1 AND friend_id=$2)`, userID, friendID)
	return exists, err
}

// ListFriends returns the user's friends with their profile summaries.
func (r *UserRepo) ListFriends(ctx context.Context, userID int) ([]models.UserSummary, error) {
	var friends []models.UserSummary
	err := r.db.SelectContext(ctx, &friends,
		`SELECT u.id, u.username, u.full_name, u.avatar, u.is_online, u.last_seen
         FROM friends f JOIN users u ON u.id = f.friend_id
         WHERE f.user_id=$1 ORDER BY u.username`, userID)
	return friends, err
}

// ListFriendIDs returns only the friend ids, for fan-out.
func (r *UserRepo) ListFriendIDs(ctx context.Context, userID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `SELECT friend_id FROM friends WHERE user_id=$1`, userID)
	return ids, err
}

// ListFriendRequests returns the user's outgoing and incoming pending requests.
func (r *UserRepo) ListFriendRequests(ctx context.Context, userID int) ([]models.UserSummary, []models.UserSummary, error) {
	var sent []models.UserSummary
	if err := r.db.SelectContext(ctx, &sent,
		`SELECT u.id, u.username, u.full_name, u.avatar, u.is_online, u.last_seen
         FROM friend_requests fr JOIN users u ON u.id = fr.receiver_id
         WHERE fr.sender_id=$1 ORDER BY fr.created_at`, userID); err != nil {
		return nil, nil, err
	}

	var received []models.UserSummary
	if err := r.db.SelectContext(ctx, &received,
		`SELECT u.id, u.username, u.full_name, u.avatar, u.is_online, u.last_seen
         FROM friend_requests fr JOIN users u ON u.id = fr.sender_id
         WHERE fr.receiver_id=$1 ORDER BY fr.created_at`, userID); err != nil {
		return nil, nil, err
	}
	return sent, received, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
