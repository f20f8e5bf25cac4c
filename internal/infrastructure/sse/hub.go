// Package sse fans notification pushes out to connected browser sessions.
package sse

import (
	"sync"

	"github.com/gemdesk/gemdesk/internal/domain/notification"
)

// Hub manages connected push clients keyed by client id.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*notification.PushClient
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*notification.PushClient),
	}
}

func (h *Hub) Register(client *notification.PushClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.Close()
		delete(h.clients, clientID)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PushToRecipient delivers a message to every connection the recipient holds.
// A full channel drops the message; the mailbox remains the durable copy.
func (h *Hub) PushToRecipient(recipient string, message *notification.PushMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.Recipient == recipient {
			trySend(c, message)
		}
	}
}

// Broadcast delivers a message to every connected client.
func (h *Hub) Broadcast(message *notification.PushMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		trySend(c, message)
	}
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

func trySend(c *notification.PushClient, msg *notification.PushMessage) bool {
	select {
	case c.Ch <- msg:
		return true
	default:
		return false
	}
}
