package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, username, email, passwordHash string) (models.User, error) {
	args := m.Called(ctx, username, email, passwordHash)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByID(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUsersByIDs(ctx context.Context, ids []int) ([]models.UserSummary, error) {
	args := m.Called(ctx, ids)
	var users []models.UserSummary
	if val := args.Get(0); val != nil {
		users = val.([]models.UserSummary)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) UpdateProfile(ctx context.Context, userID int, fullName, avatar, bio string) (models.User, error) {
	args := m.Called(ctx, userID, fullName, avatar, bio)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) SearchUsers(ctx context.Context, query string, excludeID, limit int) ([]models.UserSummary, error) {
	args := m.Called(ctx, query, excludeID, limit)
	var users []models.UserSummary
	if val := args.Get(0); val != nil {
		users = val.([]models.UserSummary)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) UpdatePresence(ctx context.Context, userID int, online bool, lastSeen time.Time) error {
	args := m.Called(ctx, userID, online, lastSeen)
	return args.Error(0)
}

func (m *UserRepositoryMock) AddFriendRequest(ctx context.Context, senderID, receiverID int) error {
	args := m.Called(ctx, senderID, receiverID)
	return args.Error(0)
}

func (m *UserRepositoryMock) RemoveFriendRequest(ctx context.Context, senderID, receiverID int) error {
	args := m.Called(ctx, senderID, receiverID)
	return args.Error(0)
}

func (m *UserRepositoryMock) HasFriendRequest(ctx context.Context, senderID, receiverID int) (bool, error) {
	args := m.Called(ctx, senderID, receiverID)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepositoryMock) AcceptFriendRequest(ctx context.Context, userID, requesterID int) error {
	args := m.Called(ctx, userID, requesterID)
	return args.Error(0)
}

func (m *UserRepositoryMock) AreFriends(ctx context.Context, userID, friendID int) (bool, error) {
	args := m.Called(ctx, userID, friendID)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepositoryMock) ListFriends(ctx context.Context, userID int) ([]models.UserSummary, error) {
	args := m.Called(ctx, userID)
	var friends []models.UserSummary
	if val := args.Get(0); val != nil {
		friends = val.([]models.UserSummary)
	}
	return friends, args.Error(1)
}

func (m *UserRepositoryMock) ListFriendIDs(ctx context.Context, userID int) ([]int, error) {
	args := m.Called(ctx, userID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *UserRepositoryMock) ListFriendRequests(ctx context.Context, userID int) ([]models.UserSummary, []models.UserSummary, error) {
	args := m.Called(ctx, userID)
	var sent, received []models.UserSummary
	if val := args.Get(0); val != nil {
		sent = val.([]models.UserSummary)
	}
	if val := args.Get(1); val != nil {
		received = val.([]models.UserSummary)
	}
	return sent, received, args.Error(2)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateOrGetDirectChat(ctx context.Context, userID, participantID int) (models.Chat, bool, error) {
	args := m.Called(ctx, userID, participantID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Bool(1), args.Error(2)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) IsParticipant(ctx context.Context, chatID, userID int) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) ListChats(ctx context.Context, userID int) ([]models.Chat, error) {
	args := m.Called(ctx, userID)
	var chats []models.Chat
	if val := args.Get(0); val != nil {
		chats = val.([]models.Chat)
	}
	return chats, args.Error(1)
}

func (m *ChatRepositoryMock) ListChatIDs(ctx context.Context, userID int) ([]int, error) {
	args := m.Called(ctx, userID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *ChatRepositoryMock) ParticipantIDs(ctx context.Context, chatID int) ([]int, error) {
	args := m.Called(ctx, chatID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *ChatRepositoryMock) SetLastMessage(ctx context.Context, chatID, messageID int, at time.Time) error {
	args := m.Called(ctx, chatID, messageID, at)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, chatID, senderID int, content, messageType string) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, content, messageType)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListChatMessages(ctx context.Context, chatID, limit, offset int) ([]models.Message, error) {
	args := m.Called(ctx, chatID, limit, offset)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkChatRead(ctx context.Context, chatID, readerID int) error {
	args := m.Called(ctx, chatID, readerID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) MarkMessagesRead(ctx context.Context, chatID, readerID int, messageIDs []int, readAt time.Time) error {
	args := m.Called(ctx, chatID, readerID, messageIDs, readAt)
	return args.Error(0)
}

func (m *MessageRepositoryMock) EditMessage(ctx context.Context, messageID int, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDeleteMessage(ctx context.Context, messageID int) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
