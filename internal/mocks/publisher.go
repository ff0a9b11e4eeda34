package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"dm-service/internal/presence"
	"dm-service/internal/push"
)

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type PresenceStoreMock struct {
	mock.Mock
}

func (m *PresenceStoreMock) UpdatePresence(ctx context.Context, userID int, online bool, lastSeen time.Time) error {
	args := m.Called(ctx, userID, online, lastSeen)
	return args.Error(0)
}

var _ push.Publisher = (*PublisherMock)(nil)
var _ presence.Store = (*PresenceStoreMock)(nil)
