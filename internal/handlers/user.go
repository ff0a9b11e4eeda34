package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dm-service/internal/presence"
	"dm-service/internal/repositories"
)

// UserHandler serves profile, search and friend endpoints.
type UserHandler struct {
	userRepo repositories.UserRepository
	presence *presence.Tracker
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(userRepo repositories.UserRepository, tracker *presence.Tracker) *UserHandler {
	return &UserHandler{userRepo: userRepo, presence: tracker}
}

// GetProfile returns the caller's own profile.
func (h *UserHandler) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

// UpdateProfile replaces the mutable profile fields.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		FullName string `json:"full_name"`
		Avatar   string `json:"avatar"`
		Bio      string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.UpdateProfile(c.Request.Context(), currentUserID(c), req.FullName, req.Avatar, req.Bio)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}

// SearchUsers finds users by username substring, excluding the caller.
func (h *UserHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if len(query) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "search query must be at least 2 characters"})
		return
	}

	users, err := h.userRepo.SearchUsers(c.Request.Context(), query, currentUserID(c), 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search users"})
		return
	}
	for i := range users {
		users[i].IsOnline = h.presence.IsOnline(users[i].ID)
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// SendFriendRequest records a pending request addressed by username.
func (h *UserHandler) SendFriendRequest(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUserID(c)
	target, err := h.userRepo.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send friend request"})
		return
	}
	if target.ID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot send friend request to yourself"})
		return
	}

	friends, err := h.userRepo.AreFriends(c.Request.Context(), userID, target.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send friend request"})
		return
	}
	if friends {
		c.JSON(http.StatusBadRequest, gin.H{"error": "already friends with this user"})
		return
	}

	sent, err := h.userRepo.HasFriendRequest(c.Request.Context(), userID, target.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send friend request"})
		return
	}
	if sent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "friend request already sent"})
		return
	}

	received, err := h.userRepo.HasFriendRequest(c.Request.Context(), target.ID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send friend request"})
		return
	}
	if received {
		c.JSON(http.StatusBadRequest, gin.H{"error": "this user has already sent you a friend request"})
		return
	}

	if err := h.userRepo.AddFriendRequest(c.Request.Context(), userID, target.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send friend request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Friend request sent successfully"})
}

// AcceptFriend turns a pending request into a symmetric friendship.
func (h *UserHandler) AcceptFriend(c *gin.Context) {
	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUserID(c)
	if _, err := h.userRepo.GetUserByID(c.Request.Context(), req.UserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to accept friend request"})
		return
	}

	if err := h.userRepo.AcceptFriendRequest(c.Request.Context(), userID, req.UserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no friend request from this user"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to accept friend request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Friend request accepted"})
}

// RejectFriend drops a pending request without creating a friendship.
func (h *UserHandler) RejectFriend(c *gin.Context) {
	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userRepo.RemoveFriendRequest(c.Request.Context(), req.UserID, currentUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reject friend request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Friend request rejected"})
}

// ListFriends returns friends plus both pending request directions.
func (h *UserHandler) ListFriends(c *gin.Context) {
	userID := currentUserID(c)

	friends, err := h.userRepo.ListFriends(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friends"})
		return
	}
	for i := range friends {
		friends[i].IsOnline = h.presence.IsOnline(friends[i].ID)
	}

	sent, received, err := h.userRepo.ListFriendRequests(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friends"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"friends":           friends,
		"sent_requests":     sent,
		"received_requests": received,
	})
}
