package models

import "time"

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Avatar       string    `db:"avatar" json:"avatar"`
	Bio          string    `db:"bio" json:"bio"`
	IsOnline     bool      `db:"is_online" json:"is_online"`
	LastSeen     time.Time `db:"last_seen" json:"last_seen"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserSummary is the profile slice embedded in chats, messages and
// search results.
type UserSummary struct {
	ID       int       `db:"id" json:"id"`
	Username string    `db:"username" json:"username"`
	FullName string    `db:"full_name" json:"full_name"`
	Avatar   string    `db:"avatar" json:"avatar"`
	IsOnline bool      `db:"is_online" json:"is_online"`
	LastSeen time.Time `db:"last_seen" json:"last_seen"`
}

// Summary projects a full user record onto its public profile slice.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Avatar:   u.Avatar,
		IsOnline: u.IsOnline,
		LastSeen: u.LastSeen,
	}
}
