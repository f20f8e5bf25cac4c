// Package activity keeps a per-actor action log.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gemdesk/gemdesk/internal/domain/activity"
	"github.com/gemdesk/gemdesk/internal/store"
)

// Service implements activity.Recorder over the record store.
type Service struct {
	store  store.RecordStore
	logger zerolog.Logger

	mu sync.Mutex
}

// NewService creates the activity service.
func NewService(recordStore store.RecordStore, logger zerolog.Logger) *Service {
	return &Service{
		store:  recordStore,
		logger: logger.With().Str("service", "activity").Logger(),
	}
}

// Record appends an activity entry asynchronously. Logging must never block
// or fail the operation it describes.
func (s *Service) Record(ctx context.Context, actor, action string, details map[string]interface{}) {
	go func() {
		if err := s.RecordSync(context.Background(), actor, action, details); err != nil {
			s.logger.Error().Err(err).
				Str("actor", actor).
				Str("action", action).
				Msg("failed to record activity")
		}
	}()
}

// RecordSync appends an activity entry and waits for the write.
func (s *Service) RecordSync(ctx context.Context, actor, action string, details map[string]interface{}) error {
	entry := activity.Entry{
		Actor:      actor,
		Action:     action,
		Details:    details,
		RecordedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadLog(ctx, actor)
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, store.ActivityKey(actor), data)
}

// List returns one actor's activity log, oldest first.
func (s *Service) List(ctx context.Context, actor string) ([]activity.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLog(ctx, actor)
}

func (s *Service) loadLog(ctx context.Context, actor string) ([]activity.Entry, error) {
	data, err := s.store.Get(ctx, store.ActivityKey(actor))
	if store.IsNotFound(err) {
		return []activity.Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []activity.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("activity log %s: %w: %v", actor, store.ErrCorrupt, err)
	}
	return entries, nil
}
