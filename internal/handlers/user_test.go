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

func setupUserRouter(handler *UserHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Set("user", models.User{ID: 1, Username: "alice"})
		c.Next()
	})
	r.GET("/users/search", handler.SearchUsers)
	r.POST("/users/friend-request", handler.SendFriendRequest)
	r.POST("/users/accept-friend", handler.AcceptFriend)
	r.POST("/users/reject-friend", handler.RejectFriend)
	r.GET("/users/friends", handler.ListFriends)
	return r
}

func newUserHandlerWith(userRepo *mocks.UserRepositoryMock) (*UserHandler, *presence.Tracker) {
	tracker := presence.NewTracker(new(mocks.PresenceStoreMock))
	return NewUserHandler(userRepo, tracker), tracker
}

func TestSearchUsersQueryTooShort(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler, _ := newUserHandlerWith(userRepo)
	router := setupUserRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/users/search?q=a", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	userRepo.AssertNotCalled(t, "SearchUsers", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchUsersOverlaysPresence(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler, tracker := newUserHandlerWith(userRepo)
	router := setupUserRouter(handler)
	tracker.Connected(3)

	userRepo.On("SearchUsers", mock.Anything, "bo", 1, 20).
		Return([]models.UserSummary{{ID: 2, Username: "bob"}, {ID: 3, Username: "bonnie"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users/search?q=bo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []models.UserSummary `json:"users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Users, 2)
	assert.False(t, resp.Users[0].IsOnline)
	assert.True(t, resp.Users[1].IsOnline)
}

func TestSendFriendRequestSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler, _ := newUserHandlerWith(userRepo)
	router := setupUserRouter(handler)

	userRepo.On("GetUserByUsername", mock.Anything, "bob").Return(models.User{ID: 2, Username: "bob"}, nil).Once()
	userRepo.On("AreFriends", mock.Anything, 1, 2).Return(false, nil).Once()
	userRepo.On("HasFriendRequest", mock.Anything, 1, 2).Return(false, nil).Once()
	userRepo.On("HasFriendRequest", mock.Anything, 2, 1).Return(false, nil).Once()
	userRepo.On("AddFriendRequest", mock.Anything, 1, 2).Return(nil).Once()

	body := bytes.NewBufferString(`{"username":"bob"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/friend-request", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestSendFriendRequestToSelf(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler, _ := newUserHandlerWith(userRepo)
	router := setupUserRouter(handler)

	userRepo.On("GetUserByUsername", mock.Anything, "alice").Return(models.User{ID: 1, Username: "alice"}, nil).Once()

	body := bytes.NewBufferString(`{"username":"alice"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/friend-request", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	userRepo.AssertNotCalled(t, "AddFriendRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendFriendRequestAlreadyFriends(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler, _ := newUserHandlerWith(userRepo)
	router := setupUserRouter(handler)

	userRepo.On("GetUserByUsername", mock.Anything, "bob").Return(models.User{ID: 2}, nil).Once()
	userRepo.On("AreFriends", mock.Anything, 1, 2).Return(true, nil).Once()

	body := bytes.NewBufferString(`{"username":"bob"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/friend-request", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	userRepo.AssertNotCalled(t, "AddFriendRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendFriendRequestReverseAlreadyPending(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler, _ := newUserHandlerWith(userRepo)
	router := setupUserRouter(handler)

	userRepo.On("GetUserByUsername", mock.Anything, "bob").Return(models.User{ID: 2}, nil).Once()
	userRepo.On("AreFriends", mock.Anything, 1, 2).Return(false, nil).Once()
	userRepo.On("HasFriendRequest", mock.Anything, 1, 2).Return(false, nil).Once()
	userRepo.On("HasFriendRequest", mock.Anything, 2, 1).Return(true, nil).Once()

	body := bytes.NewBufferString(`{"username":"bob"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/friend-request", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	userRepo.AssertNotCalled(t, "AddFriendRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcceptFriendSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler, _ := newUserHandlerWith(userRepo)
	router := setupUserRouter(handler)

	userRepo.On("GetUserByID", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	userRepo.On("AcceptFriendRequest", mock.Anything, 1, 2).Return(nil).Once()

	body := bytes.NewBufferString(`{"user_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/users/accept-friend", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestAcceptFriendWithoutPendingRequest(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler, _ := newUserHandlerWith(userRepo)
	router := setupUserRouter(handler)

	userRepo.On("GetUserByID", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	userRepo.On("AcceptFriendRequest", mock.Anything, 1, 2).Return(repositories.ErrUserNotFound).Once()

	body := bytes.NewBufferString(`{"user_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/users/accept-friend", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRejectFriend(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler, _ := newUserHandlerWith(userRepo)
	router := setupUserRouter(handler)

	userRepo.On("RemoveFriendRequest", mock.Anything, 2, 1).Return(nil).Once()

	body := bytes.NewBufferString(`{"user_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/users/reject-friend", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestListFriendsWithRequests(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler, tracker := newUserHandlerWith(userRepo)
	router := setupUserRouter(handler)
	tracker.Connected(2)

	userRepo.On("ListFriends", mock.Anything, 1).
		Return([]models.UserSummary{{ID: 2, Username: "bob"}}, nil).Once()
	userRepo.On("ListFriendRequests", mock.Anything, 1).
		Return([]models.UserSummary{{ID: 3}}, []models.UserSummary{{ID: 4}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users/friends", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Friends          []models.UserSummary `json:"friends"`
		SentRequests     []models.UserSummary `json:"sent_requests"`
		ReceivedRequests []models.UserSummary `json:"received_requests"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Friends, 1)
	assert.True(t, resp.Friends[0].IsOnline)
	assert.Len(t, resp.SentRequests, 1)
	assert.Len(t, resp.ReceivedRequests, 1)
}
