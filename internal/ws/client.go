package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"dm-service/internal/models"
	"dm-service/internal/observability"
	"dm-service/internal/presence"
	"dm-service/internal/push"
	"dm-service/internal/repositories"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1 << 20
	sendBufferSize = 256
)

// Deps bundles everything the realtime layer needs.
type Deps struct {
	Hub      *Hub
	Users    repositories.UserRepository
	Chats    repositories.ChatRepository
	Messages repositories.MessageRepository
	Presence *presence.Tracker
	Notifier *push.Notifier
}

// Client is one authenticated websocket connection. Its read pump
// dispatches inbound events one at a time; the write pump serializes
// outbound frames through the send channel.
type Client struct {
	deps      *Deps
	conn      *websocket.Conn
	send      chan []byte
	user      models.User
	connID    string
	closeOnce sync.Once
	dropped   atomic.Bool
}

func newClient(deps *Deps, conn *websocket.Conn, user models.User) *Client {
	return &Client{
		deps:   deps,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		user:   user,
		connID: newConnID(),
	}
}

func (c *Client) trySend(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// drop force-closes the connection from the server side, typically a
// slow consumer. The read pump then classifies the close as
// intentional, so the dead connection cannot pin the user online.
func (c *Client) drop() {
	c.dropped.Store(true)
	c.close()
}

// intentionalClose classifies a read failure. Peer-sent normal
// closure or going-away codes and server-initiated drops are
// intentional; timeouts and transport errors are transient.
func (c *Client) intentionalClose(err error) bool {
	if c.dropped.Load() {
		return true
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

func (c *Client) sendEvent(event string, data any) {
	payload, err := marshalEvent(event, data)
	if err != nil {
		log.Printf("marshal %s event: %v", event, err)
		return
	}
	if !c.trySend(payload) {
		c.drop()
	}
}

// sendError delivers a caller-scoped failure notice. Operation errors
// never tear down the connection.
func (c *Client) sendError(message string) {
	c.sendEvent(EventError, ErrorPayload{Message: message})
}

// bootstrap joins the personal room plus one room per existing chat,
// marks the user online and fans the transition out to friends.
func (c *Client) bootstrap(ctx context.Context) {
	c.deps.Hub.Join(PersonalRoom(c.user.ID), c)

	chatIDs, err := c.deps.Chats.ListChatIDs(ctx, c.user.ID)
	if err != nil {
		log.Printf("join chat rooms for user %d: %v", c.user.ID, err)
	} else {
		for _, chatID := range chatIDs {
			c.deps.Hub.Join(ChatRoom(chatID), c)
		}
	}

	if c.deps.Presence.Connected(c.user.ID) {
		c.notifyFriends(ctx, true)
	}
}

// teardown drops all memberships and applies the offline transition
// only for intentional closes.
func (c *Client) teardown(ctx context.Context, intentional bool) {
	c.deps.Hub.LeaveAll(c)
	if c.deps.Presence.Disconnected(c.user.ID, intentional) {
		c.notifyFriends(ctx, false)
	}
}

// notifyFriends pushes a status-change event to every friend's
// personal room. Push-on-change: offline friends simply miss it.
func (c *Client) notifyFriends(ctx context.Context, online bool) {
	friendIDs, err := c.deps.Users.ListFriendIDs(ctx, c.user.ID)
	if err != nil {
		log.Printf("load friends of user %d: %v", c.user.ID, err)
		return
	}

	payload := FriendStatusPayload{UserID: c.user.ID, IsOnline: online, LastSeen: time.Now()}
	for _, friendID := range friendIDs {
		c.deps.Hub.Broadcast(PersonalRoom(friendID), EventFriendStatusChange, payload)
	}
}

// dispatch routes one inbound frame. The event set is closed; unknown
// events are answered with an error event.
func (c *Client) dispatch(ctx context.Context, frame Envelope) {
	observability.IncWSEvent(frame.Event)

	switch frame.Event {
	case EventJoinChat:
		var p JoinChatPayload
		if !c.decode(frame.Data, &p) {
			return
		}
		// Joining grants broadcast receipt only; the participant check
		// is re-enforced at send time.
		c.deps.Hub.Join(ChatRoom(p.ChatID), c)
	case EventLeaveChat:
		var p JoinChatPayload
		if !c.decode(frame.Data, &p) {
			return
		}
		c.deps.Hub.Leave(ChatRoom(p.ChatID), c)
	case EventSendMessage:
		var p SendMessagePayload
		if !c.decode(frame.Data, &p) {
			return
		}
		c.handleSendMessage(ctx, p)
	case EventTyping:
		var p TypingPayload
		if !c.decode(frame.Data, &p) {
			return
		}
		c.handleTyping(p)
	case EventMarkRead:
		var p MarkReadPayload
		if !c.decode(frame.Data, &p) {
			return
		}
		c.handleMarkRead(ctx, p)
	default:
		c.sendError("unknown event: " + frame.Event)
	}
}

func (c *Client) decode(raw json.RawMessage, out any) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		c.sendError("malformed event payload")
		return false
	}
	return true
}

// handleSendMessage persists the message and the chat update before
// any broadcast, so a message seen live is always retrievable via a
// subsequent history query.
func (c *Client) handleSendMessage(ctx context.Context, p SendMessagePayload) {
	if strings.TrimSpace(p.Content) == "" {
		c.sendError("message content is empty")
		return
	}

	chat, err := c.deps.Chats.GetChat(ctx, p.ChatID)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			c.sendError("Chat not found")
		} else {
			log.Printf("load chat %d: %v", p.ChatID, err)
			c.sendError("Failed to send message")
		}
		return
	}

	member, err := c.deps.Chats.IsParticipant(ctx, chat.ID, c.user.ID)
	if err != nil {
		log.Printf("check participant chat=%d user=%d: %v", chat.ID, c.user.ID, err)
		c.sendError("Failed to send message")
		return
	}
	if !member {
		c.sendError("Chat not found")
		return
	}

	msg, err := c.deps.Messages.CreateMessage(ctx, chat.ID, c.user.ID, p.Content, p.MessageType)
	if err != nil {
		log.Printf("store message chat=%d: %v", chat.ID, err)
		c.sendError("Failed to send message")
		return
	}

	// The chat update must be durable before anyone hears about the
	// message; a half-persisted send is reported, not broadcast.
	if err := c.deps.Chats.SetLastMessage(ctx, chat.ID, msg.ID, msg.CreatedAt); err != nil {
		log.Printf("update chat %d last message: %v", chat.ID, err)
		c.sendError("Failed to send message")
		return
	}

	participantIDs, err := c.deps.Chats.ParticipantIDs(ctx, chat.ID)
	if err != nil {
		log.Printf("load participants of chat %d: %v", chat.ID, err)
	}
	participants, err := c.deps.Users.GetUsersByIDs(ctx, participantIDs)
	if err != nil {
		log.Printf("load participant profiles of chat %d: %v", chat.ID, err)
		participants = nil
	}
	// The in-memory tracker is authoritative for presence; the stored
	// flag may lag a flush interval behind.
	for i := range participants {
		participants[i].IsOnline = c.deps.Presence.IsOnline(participants[i].ID)
	}

	sender := c.user.Summary()
	sender.IsOnline = true

	c.deps.Hub.Broadcast(ChatRoom(chat.ID), EventNewMessage, NewMessagePayload{
		Message: models.MessageDetail{Message: msg, Sender: &sender},
		Chat: models.ChatRef{
			ID:           chat.ID,
			Participants: participants,
			LastActivity: msg.CreatedAt,
		},
	})

	var offline []int
	for _, id := range participantIDs {
		if id != c.user.ID && !c.deps.Presence.IsOnline(id) {
			offline = append(offline, id)
		}
	}
	c.deps.Notifier.MessageStored(ctx, msg, offline)
}

// handleTyping relays the ephemeral typing state to everyone else in
// the room. Nothing is persisted and no timeout is enforced; clearing
// the indicator is the client's responsibility.
func (c *Client) handleTyping(p TypingPayload) {
	c.deps.Hub.BroadcastExcept(ChatRoom(p.ChatID), c, EventUserTyping, UserTypingPayload{
		UserID:   c.user.ID,
		Username: c.user.Username,
		IsTyping: p.IsTyping,
	})
}

// handleMarkRead appends read receipts and notifies the rest of the
// room. The set-add semantics make repeated calls harmless.
func (c *Client) handleMarkRead(ctx context.Context, p MarkReadPayload) {
	readAt := time.Now()
	if err := c.deps.Messages.MarkMessagesRead(ctx, p.ChatID, c.user.ID, p.MessageIDs, readAt); err != nil {
		log.Printf("mark read chat=%d user=%d: %v", p.ChatID, c.user.ID, err)
		return
	}

	c.deps.Hub.BroadcastExcept(ChatRoom(p.ChatID), c, EventMessagesRead, MessagesReadPayload{
		ReadBy:     c.user.ID,
		MessageIDs: p.MessageIDs,
		ReadAt:     readAt,
	})
}

// readPump processes inbound frames one at a time until the
// connection drops, then classifies the close reason and tears down.
func (c *Client) readPump(ctx context.Context) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	intentional := false
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			intentional = c.intentionalClose(err)
			break
		}

		var frame Envelope
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError("malformed event frame")
			continue
		}
		c.dispatch(ctx, frame)
	}

	c.teardown(ctx, intentional)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
