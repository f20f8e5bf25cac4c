// Package notify keeps a per-recipient mailbox in the record store and pushes
// live copies to connected SSE clients.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gemdesk/gemdesk/internal/domain/notification"
	"github.com/gemdesk/gemdesk/internal/infrastructure/sse"
	"github.com/gemdesk/gemdesk/internal/store"
)

// Service implements notification.Sink over the record store.
type Service struct {
	store  store.RecordStore
	hub    *sse.Hub
	logger zerolog.Logger

	// mu serializes mailbox appends; each mailbox is one stored list.
	mu sync.Mutex
}

// NewService creates the notification service. hub may be nil when live push
// is not wired.
func NewService(recordStore store.RecordStore, hub *sse.Hub, logger zerolog.Logger) *Service {
	return &Service{
		store:  recordStore,
		hub:    hub,
		logger: logger.With().Str("service", "notify").Logger(),
	}
}

// Notify appends to the recipient's mailbox and pushes a live copy.
func (s *Service) Notify(ctx context.Context, recipient, role, message string) error {
	n := notification.Notification{
		NotificationID: uuid.New(),
		Recipient:      recipient,
		Role:           role,
		Message:        message,
		CreatedAt:      time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	mailbox, err := s.loadMailbox(ctx, recipient)
	if err != nil {
		return err
	}
	mailbox = append(mailbox, n)
	if err := s.saveMailbox(ctx, recipient, mailbox); err != nil {
		return err
	}

	if s.hub != nil {
		data, err := json.Marshal(n)
		if err == nil {
			s.hub.PushToRecipient(n.Recipient, &notification.PushMessage{
				Event: "notification",
				Data:  data,
			})
		}
	}
	return nil
}

// List returns the recipient's mailbox, newest last.
func (s *Service) List(ctx context.Context, recipient string) ([]notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadMailbox(ctx, recipient)
}

// Unread returns only unread entries.
func (s *Service) Unread(ctx context.Context, recipient string) ([]notification.Notification, error) {
	all, err := s.List(ctx, recipient)
	if err != nil {
		return nil, err
	}
	unread := make([]notification.Notification, 0, len(all))
	for _, n := range all {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

// MarkRead flags one mailbox entry as read. Unknown ids are a no-op.
func (s *Service) MarkRead(ctx context.Context, recipient string, notificationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mailbox, err := s.loadMailbox(ctx, recipient)
	if err != nil {
		return err
	}
	changed := false
	for i := range mailbox {
		if mailbox[i].NotificationID == notificationID && !mailbox[i].Read {
			mailbox[i].Read = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.saveMailbox(ctx, recipient, mailbox)
}

// MarkAllRead flags every entry in the mailbox as read.
func (s *Service) MarkAllRead(ctx context.Context, recipient string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mailbox, err := s.loadMailbox(ctx, recipient)
	if err != nil {
		return err
	}
	changed := false
	for i := range mailbox {
		if !mailbox[i].Read {
			mailbox[i].Read = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.saveMailbox(ctx, recipient, mailbox)
}

func (s *Service) loadMailbox(ctx context.Context, recipient string) ([]notification.Notification, error) {
	data, err := s.store.Get(ctx, store.NotificationKey(recipient))
	if store.IsNotFound(err) {
		return []notification.Notification{}, nil
	}
	if err != nil {
		return nil, err
	}
	var mailbox []notification.Notification
	if err := json.Unmarshal(data, &mailbox); err != nil {
		return nil, fmt.Errorf("mailbox %s: %w: %v", recipient, store.ErrCorrupt, err)
	}
	return mailbox, nil
}

func (s *Service) saveMailbox(ctx context.Context, recipient string, mailbox []notification.Notification) error {
	data, err := json.Marshal(mailbox)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, store.NotificationKey(recipient), data)
}
