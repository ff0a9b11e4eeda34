package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dm-service/internal/mocks"
	"dm-service/internal/models"
	"dm-service/internal/presence"
	"dm-service/internal/repositories"
)

func setupChatRouter(handler *ChatHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/chats", handler.ListChats)
	r.POST("/chats/create", handler.CreateChat)
	r.GET("/chats/:chat_id", handler.GetChat)
	return r
}

func newChatHandlerWithMocks(chatRepo *mocks.ChatRepositoryMock, messageRepo *mocks.MessageRepositoryMock, userRepo *mocks.UserRepositoryMock) *ChatHandler {
	tracker := presence.NewTracker(new(mocks.PresenceStoreMock))
	return NewChatHandler(chatRepo, messageRepo, userRepo, tracker)
}

func TestCreateChatNew(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	router := setupChatRouter(newChatHandlerWithMocks(chatRepo, new(mocks.MessageRepositoryMock), userRepo))

	userRepo.On("GetUserByID", mock.Anything, 2).Return(models.User{ID: 2, Username: "bob"}, nil).Once()
	chatRepo.On("CreateOrGetDirectChat", mock.Anything, 1, 2).Return(models.Chat{ID: 10}, true, nil).Once()
	chatRepo.On("ParticipantIDs", mock.Anything, 10).Return([]int{1, 2}, nil).Once()
	userRepo.On("GetUsersByIDs", mock.Anything, []int{1, 2}).
		Return([]models.UserSummary{{ID: 1, Username: "alice"}, {ID: 2, Username: "bob"}}, nil).Once()

	body := bytes.NewBufferString(`{"participant_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/create", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	chatRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestCreateChatExistingReturnsOK(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	router := setupChatRouter(newChatHandlerWithMocks(chatRepo, new(mocks.MessageRepositoryMock), userRepo))

	userRepo.On("GetUserByID", mock.Anything, 2).Return(models.User{ID: 2, Username: "bob"}, nil).Once()
	chatRepo.On("CreateOrGetDirectChat", mock.Anything, 1, 2).Return(models.Chat{ID: 10}, false, nil).Once()
	chatRepo.On("ParticipantIDs", mock.Anything, 10).Return([]int{1, 2}, nil).Once()
	userRepo.On("GetUsersByIDs", mock.Anything, []int{1, 2}).
		Return([]models.UserSummary{{ID: 1}, {ID: 2}}, nil).Once()

	body := bytes.NewBufferString(`{"participant_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/create", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateChatWithSelf(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	router := setupChatRouter(newChatHandlerWithMocks(chatRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock)))

	body := bytes.NewBufferString(`{"participant_id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/create", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	chatRepo.AssertNotCalled(t, "CreateOrGetDirectChat", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateChatUnknownParticipant(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	router := setupChatRouter(newChatHandlerWithMocks(new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), userRepo))

	userRepo.On("GetUserByID", mock.Anything, 99).Return(models.User{}, repositories.ErrUserNotFound).Once()

	body := bytes.NewBufferString(`{"participant_id":99}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/create", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetChatNonParticipant(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	router := setupChatRouter(newChatHandlerWithMocks(chatRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock)))

	chatRepo.On("IsParticipant", mock.Anything, 10, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	chatRepo.AssertNotCalled(t, "GetChat", mock.Anything, mock.Anything)
}

func TestListChatsResolvesLastMessage(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	router := setupChatRouter(newChatHandlerWithMocks(chatRepo, messageRepo, userRepo))

	lastID := 42
	chatRepo.On("ListChats", mock.Anything, 1).
		Return([]models.Chat{{ID: 10, LastMessageID: &lastID}}, nil).Once()
	chatRepo.On("ParticipantIDs", mock.Anything, 10).Return([]int{1, 2}, nil).Once()
	userRepo.On("GetUsersByIDs", mock.Anything, []int{1, 2}).
		Return([]models.UserSummary{{ID: 1, Username: "alice"}, {ID: 2, Username: "bob"}}, nil).Once()
	messageRepo.On("GetMessage", mock.Anything, 42).
		Return(models.Message{ID: 42, ChatID: 10, SenderID: 2, Content: "hey"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Chats []models.ChatDetail `json:"chats"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Chats, 1)
	require.NotNil(t, resp.Chats[0].LastMessage)
	assert.Equal(t, "hey", resp.Chats[0].LastMessage.Content)
	assert.Len(t, resp.Chats[0].Participants, 2)
}
