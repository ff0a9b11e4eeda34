package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

// Classified authentication failures. Each maps to a stable machine
// label surfaced to clients; anything else is a server error.
var (
	ErrMissingToken = errors.New("no token provided")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrUserNotFound = errors.New("user not found")
)

// Code returns the machine-readable label for an authentication error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "MISSING_TOKEN"
	case errors.Is(err, ErrTokenExpired):
		return "TOKEN_EXPIRED"
	case errors.Is(err, ErrTokenInvalid):
		return "TOKEN_INVALID"
	case errors.Is(err, ErrUserNotFound):
		return "USER_NOT_FOUND"
	default:
		return "SERVER_ERROR"
	}
}

type Claims struct {
	UserID int `json:"uid"`
	jwt.RegisteredClaims
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func VerifyPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// GenerateToken issues a signed HS256 bearer token for the user.
func GenerateToken(userID int, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies the signature and validity window of a token.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Authenticator resolves bearer tokens to user records. It gates both
// the REST middleware and the websocket handshake; there is no
// partial-auth state.
type Authenticator struct {
	users  repositories.UserRepository
	secret string
}

func NewAuthenticator(users repositories.UserRepository, secret string) *Authenticator {
	return &Authenticator{users: users, secret: secret}
}

// Authenticate verifies the raw token and loads the user it names.
func (a *Authenticator) Authenticate(ctx context.Context, rawToken string) (models.User, error) {
	if rawToken == "" {
		return models.User{}, ErrMissingToken
	}

	claims, err := ParseToken(rawToken, a.secret)
	if err != nil {
		return models.User{}, err
	}

	user, err := a.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
