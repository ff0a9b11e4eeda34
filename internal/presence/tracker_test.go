package presence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"dm-service/internal/mocks"
	"dm-service/internal/presence"
)

func TestConnectedReportsOnlineTransition(t *testing.T) {
	tracker := presence.NewTracker(new(mocks.PresenceStoreMock))

	assert.True(t, tracker.Connected(1))
	assert.True(t, tracker.IsOnline(1))

	// A second connection of the same user is not a transition.
	assert.False(t, tracker.Connected(1))
	assert.True(t, tracker.IsOnline(1))
}

func TestDisconnectedOnlyLastIntentionalCloseGoesOffline(t *testing.T) {
	tracker := presence.NewTracker(new(mocks.PresenceStoreMock))
	tracker.Connected(1)
	tracker.Connected(1)

	assert.False(t, tracker.Disconnected(1, true))
	assert.True(t, tracker.IsOnline(1))

	assert.True(t, tracker.Disconnected(1, true))
	assert.False(t, tracker.IsOnline(1))
}

func TestDisconnectedTransientDropKeepsOnline(t *testing.T) {
	tracker := presence.NewTracker(new(mocks.PresenceStoreMock))
	tracker.Connected(1)

	assert.False(t, tracker.Disconnected(1, false))
	assert.True(t, tracker.IsOnline(1))

	// Reconnecting after the drop is not a fresh transition.
	assert.False(t, tracker.Connected(1))
}

func TestDisconnectedUnknownUser(t *testing.T) {
	tracker := presence.NewTracker(new(mocks.PresenceStoreMock))
	assert.False(t, tracker.Disconnected(99, true))
}

func TestLastSeenAdvances(t *testing.T) {
	tracker := presence.NewTracker(new(mocks.PresenceStoreMock))
	assert.True(t, tracker.LastSeen(1).IsZero())

	before := time.Now()
	tracker.Connected(1)
	seen := tracker.LastSeen(1)
	assert.False(t, seen.Before(before))

	tracker.Disconnected(1, true)
	assert.False(t, tracker.LastSeen(1).Before(seen))
}

func TestFlushWritesDirtyEntriesOnce(t *testing.T) {
	store := new(mocks.PresenceStoreMock)
	tracker := presence.NewTracker(store)
	tracker.Connected(1)

	store.On("UpdatePresence", mock.Anything, 1, true, mock.AnythingOfType("time.Time")).Return(nil).Once()
	tracker.Flush(context.Background())

	// Entry is clean now; nothing to write.
	tracker.Flush(context.Background())
	store.AssertExpectations(t)
}

func TestFlushFailureRetriesNextPass(t *testing.T) {
	store := new(mocks.PresenceStoreMock)
	tracker := presence.NewTracker(store)
	tracker.Connected(1)

	store.On("UpdatePresence", mock.Anything, 1, true, mock.AnythingOfType("time.Time")).Return(assert.AnError).Once()
	tracker.Flush(context.Background())

	store.On("UpdatePresence", mock.Anything, 1, true, mock.AnythingOfType("time.Time")).Return(nil).Once()
	tracker.Flush(context.Background())
	store.AssertExpectations(t)
}
