package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dm-service/internal/models"
	"dm-service/internal/presence"
	"dm-service/internal/repositories"
)

// ChatHandler manages the chat REST endpoints.
type ChatHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	presence    *presence.Tracker
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, tracker *presence.Tracker) *ChatHandler {
	return &ChatHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		presence:    tracker,
	}
}

// ListChats returns the caller's chats, most recently active first,
// with participants and the denormalized last message resolved.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := currentUserID(c)

	chats, err := h.chatRepo.ListChats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	details := make([]models.ChatDetail, 0, len(chats))
	for _, chat := range chats {
		detail, err := h.chatDetail(c.Request.Context(), chat)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
			return
		}
		details = append(details, detail)
	}

	c.JSON(http.StatusOK, gin.H{"chats": details})
}

// CreateChat creates or returns the existing direct chat with the
// given participant.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	var req struct {
		ParticipantID int `json:"participant_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUserID(c)
	if userID == req.ParticipantID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return
	}

	if _, err := h.userRepo.GetUserByID(c.Request.Context(), req.ParticipantID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create chat"})
		return
	}

	chat, created, err := h.chatRepo.CreateOrGetDirectChat(c.Request.Context(), userID, req.ParticipantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create chat"})
		return
	}

	detail, err := h.chatDetail(c.Request.Context(), chat)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create chat"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"chat": detail})
}

// GetChat returns a single chat the caller participates in.
func (h *ChatHandler) GetChat(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	userID := currentUserID(c)
	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}
	if !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}

	chat, err := h.chatRepo.GetChat(c.Request.Context(), chatID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return
	}

	detail, err := h.chatDetail(c.Request.Context(), chat)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": detail})
}

func (h *ChatHandler) chatDetail(ctx context.Context, chat models.Chat) (models.ChatDetail, error) {
	participantIDs, err := h.chatRepo.ParticipantIDs(ctx, chat.ID)
	if err != nil {
		return models.ChatDetail{}, err
	}
	participants, err := h.userRepo.GetUsersByIDs(ctx, participantIDs)
	if err != nil {
		return models.ChatDetail{}, err
	}
	for i := range participants {
		participants[i].IsOnline = h.presence.IsOnline(participants[i].ID)
	}

	detail := models.ChatDetail{Chat: chat, Participants: participants}
	if chat.LastMessageID != nil {
		msg, err := h.messageRepo.GetMessage(ctx, *chat.LastMessageID)
		if err == nil {
			detail.LastMessage = &msg
		} else if !errors.Is(err, repositories.ErrMessageNotFound) {
			log.Printf("load last message of chat %d: %v", chat.ID, err)
		}
	}
	return detail, nil
}
