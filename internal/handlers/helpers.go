package handlers

import (
	"github.com/gin-gonic/gin"

	"dm-service/internal/models"
)

func currentUserID(c *gin.Context) int {
	return c.GetInt("userID")
}

func currentUser(c *gin.Context) models.User {
	if val, ok := c.Get("user"); ok {
		if user, ok := val.(models.User); ok {
			return user
		}
	}
	return models.User{}
}
