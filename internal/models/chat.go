package models

import "time"

// Chat is a conversation between participants. Direct chats carry
// exactly two participants; the group fields are only meaningful when
// IsGroup is set (no endpoint exercises them yet).
type Chat struct {
	ID            int       `db:"id" json:"id"`
	IsGroup       bool      `db:"is_group" json:"is_group"`
	GroupName     string    `db:"group_name" json:"group_name,omitempty"`
	GroupAdminID  *int      `db:"group_admin_id" json:"group_admin_id,omitempty"`
	LastMessageID *int      `db:"last_message_id" json:"last_message_id,omitempty"`
	LastActivity  time.Time `db:"last_activity" json:"last_activity"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ChatDetail is the API view of a chat with resolved participants and
// the denormalized last message.
type ChatDetail struct {
	Chat
	Participants []UserSummary `json:"participants"`
	LastMessage  *Message      `json:"last_message,omitempty"`
}

// ChatRef is the compact chat reference attached to new_message
// events.
type ChatRef struct {
	ID           int           `json:"id"`
	Participants []UserSummary `json:"participants"`
	LastActivity time.Time     `json:"last_activity"`
}
