package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dm-service/internal/mocks"
	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

const testSecret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateToken(42, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, "TOKEN_EXPIRED", Code(err))
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(42, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseTokenMalformed(t *testing.T) {
	_, err := ParseToken("not.a.token", testSecret)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.Equal(t, "TOKEN_INVALID", Code(err))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hash, "hunter22"))
	assert.False(t, VerifyPassword(hash, "hunter23"))
}

func TestAuthenticateSuccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	authn := NewAuthenticator(users, testSecret)

	token, err := GenerateToken(42, testSecret, time.Hour)
	require.NoError(t, err)

	users.On("GetUserByID", mock.Anything, 42).Return(models.User{ID: 42, Username: "alice"}, nil).Once()

	user, err := authn.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	users.AssertExpectations(t)
}

func TestAuthenticateMissingToken(t *testing.T) {
	authn := NewAuthenticator(new(mocks.UserRepositoryMock), testSecret)

	_, err := authn.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.Equal(t, "MISSING_TOKEN", Code(err))
}

func TestAuthenticateUnknownUser(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	authn := NewAuthenticator(users, testSecret)

	token, err := GenerateToken(42, testSecret, time.Hour)
	require.NoError(t, err)

	users.On("GetUserByID", mock.Anything, 42).Return(models.User{}, repositories.ErrUserNotFound).Once()

	_, err = authn.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, "USER_NOT_FOUND", Code(err))
}
