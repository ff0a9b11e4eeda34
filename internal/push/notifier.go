package push

import (
	"context"
	"log"
	"time"

	"dm-service/internal/models"
	"dm-service/internal/observability"
)

const (
	routingKeyOfflineMessage = "notifications.offline_message"
	routingKeyConnections    = "ws_events.connections"
)

// Envelope wraps every published event.
type Envelope struct {
	SchemaVersion int    `json:"schema_version"`
	EventType     string `json:"event_type"`
	OccurredAt    string `json:"occurred_at"`
	Service       string `json:"service"`
	Environment   string `json:"environment"`
	Payload       any    `json:"payload"`
}

// Notifier emits notification events. Failures are logged and
// counted; they never reach the code paths that triggered them.
type Notifier struct {
	publisher   Publisher
	service     string
	environment string
}

// NewNotifier constructs a Notifier.
func NewNotifier(publisher Publisher, service, environment string) *Notifier {
	return &Notifier{publisher: publisher, service: service, environment: environment}
}

// MessageStored hands the offline participants of a freshly stored
// message to the external push collaborator. No-op when everyone was
// online.
func (n *Notifier) MessageStored(ctx context.Context, msg models.Message, offlineUserIDs []int) {
	if n == nil || n.publisher == nil || len(offlineUserIDs) == 0 {
		return
	}
	n.emit(ctx, routingKeyOfflineMessage, "offline_message", map[string]any{
		"chat_id":          msg.ChatID,
		"message_id":       msg.ID,
		"sender_id":        msg.SenderID,
		"message_type":     msg.MessageType,
		"offline_user_ids": offlineUserIDs,
	})
}

// ConnectionEvent records a websocket lifecycle transition.
func (n *Notifier) ConnectionEvent(ctx context.Context, event string, userID int, connID, reason string) {
	if n == nil || n.publisher == nil {
		return
	}
	n.emit(ctx, routingKeyConnections, event, map[string]any{
		"event":   event,
		"user_id": userID,
		"conn_id": connID,
		"reason":  reason,
	})
}

func (n *Notifier) emit(ctx context.Context, routingKey, eventType string, payload any) {
	envelope := Envelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       n.service,
		Environment:   n.environment,
		Payload:       payload,
	}
	if err := n.publisher.Publish(ctx, routingKey, envelope); err != nil {
		log.Printf("notification publish failed: %v", err)
		observability.IncPushPublishError()
	}
}
