package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dm-service/internal/models"
)

func testClient(id int) *Client {
	return newClient(&Deps{}, nil, models.User{ID: id, Username: "user"})
}

func recvEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case payload := <-c.send:
		var frame Envelope
		require.NoError(t, json.Unmarshal(payload, &frame))
		return frame
	default:
		t.Fatal("expected a pending frame")
		return Envelope{}
	}
}

func TestHubJoinLeave(t *testing.T) {
	hub := NewHub()
	client := testClient(1)

	hub.Join("chat:1", client)
	hub.Join("chat:1", client)
	assert.True(t, hub.InRoom("chat:1", client))
	assert.Equal(t, 1, hub.RoomSize("chat:1"))

	hub.Leave("chat:1", client)
	assert.False(t, hub.InRoom("chat:1", client))
	assert.Equal(t, 0, hub.RoomSize("chat:1"))

	// Leaving a room twice is harmless.
	hub.Leave("chat:1", client)
}

func TestHubLeaveAll(t *testing.T) {
	hub := NewHub()
	client := testClient(1)
	other := testClient(2)

	hub.Join("chat:1", client)
	hub.Join("chat:2", client)
	hub.Join("chat:1", other)

	hub.LeaveAll(client)

	assert.False(t, hub.InRoom("chat:1", client))
	assert.False(t, hub.InRoom("chat:2", client))
	assert.True(t, hub.InRoom("chat:1", other))
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	a := testClient(1)
	b := testClient(2)
	outsider := testClient(3)

	hub.Join("chat:1", a)
	hub.Join("chat:1", b)
	hub.Join("chat:2", outsider)

	hub.Broadcast("chat:1", EventUserTyping, UserTypingPayload{UserID: 1, IsTyping: true})

	for _, c := range []*Client{a, b} {
		frame := recvEnvelope(t, c)
		assert.Equal(t, EventUserTyping, frame.Event)
	}
	assert.Empty(t, outsider.send)
}

func TestHubBroadcastExceptSkipsOriginator(t *testing.T) {
	hub := NewHub()
	sender := testClient(1)
	peer := testClient(2)

	hub.Join("chat:1", sender)
	hub.Join("chat:1", peer)

	hub.BroadcastExcept("chat:1", sender, EventUserTyping, UserTypingPayload{UserID: 1, IsTyping: true})

	frame := recvEnvelope(t, peer)
	assert.Equal(t, EventUserTyping, frame.Event)
	assert.Empty(t, sender.send)
}

func TestHubBroadcastToEmptyRoom(t *testing.T) {
	hub := NewHub()
	hub.Broadcast("chat:99", EventUserTyping, UserTypingPayload{UserID: 1})
}
