package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

const (
	defaultPageSize = 50
	defaultPage     = 1
)

// MessageHandler serves the message REST endpoints.
type MessageHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, userRepo repositories.UserRepository) *MessageHandler {
	return &MessageHandler{chatRepo: chatRepo, messageRepo: messageRepo, userRepo: userRepo}
}

// GetChatMessages returns one history page in chronological order and,
// as a side effect, marks every unread message in the chat as read by
// the caller.
func (h *MessageHandler) GetChatMessages(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	userID := currentUserID(c)
	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}

	page := queryInt(c, "page", defaultPage)
	limit := queryInt(c, "limit", defaultPageSize)
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultPageSize
	}

	msgs, err := h.messageRepo.ListChatMessages(c.Request.Context(), chatID, limit, (page-1)*limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	// Fetching history doubles as the bulk read receipt.
	if err := h.messageRepo.MarkChatRead(c.Request.Context(), chatID, userID); err != nil {
		log.Printf("mark chat %d read for user %d: %v", chatID, userID, err)
	}

	details, err := h.resolveSenders(c, msgs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load senders"})
		return
	}

	// Stored newest-first for the page cut, presented oldest-first.
	for i, j := 0, len(details)-1; i < j; i, j = i+1, j-1 {
		details[i], details[j] = details[j], details[i]
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": details,
		"page":     page,
		"has_more": len(msgs) == limit,
	})
}

// SendMessage stores a message and updates the parent chat, mirroring
// the realtime relay without the broadcast step.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req struct {
		ChatID      int    `json:"chat_id" binding:"required"`
		Content     string `json:"content" binding:"required"`
		MessageType string `json:"message_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUserID(c)
	member, err := h.chatRepo.IsParticipant(c.Request.Context(), req.ChatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}
	if !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), req.ChatID, userID, req.Content, req.MessageType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	if err := h.chatRepo.SetLastMessage(c.Request.Context(), req.ChatID, msg.ID, msg.CreatedAt); err != nil {
		log.Printf("update chat %d last message: %v", req.ChatID, err)
	}

	sender := currentUser(c).Summary()
	c.JSON(http.StatusCreated, gin.H{"message": models.MessageDetail{Message: msg, Sender: &sender}})
}

// EditMessage replaces the content of the caller's own, not yet
// deleted message.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUserID(c)
	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}
	if msg.SenderID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender can edit a message"})
		return
	}
	if msg.IsDeleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}

	updated, err := h.messageRepo.EditMessage(c.Request.Context(), messageID, req.Content)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "failed to edit message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": updated})
}

// DeleteMessage soft-deletes the caller's own message. Unlike edit
// there is no not-already-deleted precondition; repeating the call is
// a no-op.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := currentUserID(c)
	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}
	if msg.SenderID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender can delete a message"})
		return
	}

	if err := h.messageRepo.SoftDeleteMessage(c.Request.Context(), messageID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}

func (h *MessageHandler) resolveSenders(c *gin.Context, msgs []models.Message) ([]models.MessageDetail, error) {
	senderIDs := make([]int, 0, len(msgs))
	seen := map[int]struct{}{}
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	senders, err := h.userRepo.GetUsersByIDs(c.Request.Context(), senderIDs)
	if err != nil {
		return nil, err
	}
	senderByID := make(map[int]models.UserSummary, len(senders))
	for _, s := range senders {
		senderByID[s.ID] = s
	}

	details := make([]models.MessageDetail, 0, len(msgs))
	for _, m := range msgs {
		detail := models.MessageDetail{Message: m}
		if sender, ok := senderByID[m.SenderID]; ok {
			detail.Sender = &sender
		}
		details = append(details, detail)
	}
	return details, nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
	}
	return fallback
}
