package notification

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_sink.go -package=mocks . Sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification is one mailbox entry for a recipient.
type Notification struct {
	NotificationID uuid.UUID `json:"notificationId"`
	Recipient      string    `json:"recipient"`
	Role           string    `json:"role"`
	Message        string    `json:"message"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Sink is the boundary the core writes notifications through. Delivery
// transport beyond the mailbox (chat, email) belongs to the surrounding
// system.
type Sink interface {
	Notify(ctx context.Context, recipient, role, message string) error
}

// PushMessage is one event pushed to connected clients over SSE.
type PushMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// PushClient is one connected SSE consumer.
type PushClient struct {
	ClientID  string
	Recipient string
	Ch        chan *PushMessage
	closed    bool
}

// NewPushClient creates a client with a buffered channel.
func NewPushClient(recipient string) *PushClient {
	return &PushClient{
		ClientID:  uuid.New().String(),
		Recipient: recipient,
		Ch:        make(chan *PushMessage, 16),
	}
}

// Close releases the client channel. Safe to call once.
func (c *PushClient) Close() {
	if !c.closed {
		c.closed = true
		close(c.Ch)
	}
}
