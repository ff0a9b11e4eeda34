package ws

import (
	"encoding/json"
	"strconv"
	"time"

	"dm-service/internal/models"
)

// Client-issued event names. Dispatch over this set is exhaustive;
// anything else yields an error event.
const (
	EventJoinChat    = "join_chat"
	EventLeaveChat   = "leave_chat"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventMarkRead    = "mark_read"
)

// Server-pushed event names.
const (
	EventNewMessage         = "new_message"
	EventUserTyping         = "user_typing"
	EventMessagesRead       = "messages_read"
	EventFriendStatusChange = "friend_status_change"
	EventError              = "error"
)

// Envelope is the tagged frame exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinChatPayload struct {
	ChatID int `json:"chat_id"`
}

type SendMessagePayload struct {
	ChatID      int    `json:"chat_id"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
}

type TypingPayload struct {
	ChatID   int  `json:"chat_id"`
	IsTyping bool `json:"is_typing"`
}

type MarkReadPayload struct {
	ChatID     int   `json:"chat_id"`
	MessageIDs []int `json:"message_ids"`
}

type NewMessagePayload struct {
	Message models.MessageDetail `json:"message"`
	Chat    models.ChatRef       `json:"chat"`
}

type UserTypingPayload struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

type MessagesReadPayload struct {
	ReadBy     int       `json:"read_by"`
	MessageIDs []int     `json:"message_ids"`
	ReadAt     time.Time `json:"read_at"`
}

type FriendStatusPayload struct {
	UserID   int       `json:"user_id"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func marshalEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// PersonalRoom names the private notification room reaching all of a
// user's open connections.
func PersonalRoom(userID int) string {
	return "user:" + strconv.Itoa(userID)
}

// ChatRoom names the broadcast room of a chat.
func ChatRoom(chatID int) string {
	return "chat:" + strconv.Itoa(chatID)
}
