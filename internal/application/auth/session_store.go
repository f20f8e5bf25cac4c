package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainSession "github.com/gemdesk/gemdesk/internal/domain/session"
	"github.com/gemdesk/gemdesk/internal/store"
)

// SessionStore implements session.Store over the record store, one object
// per session keyed by token hash.
type SessionStore struct {
	store store.RecordStore
}

// NewSessionStore creates a record-store-backed session store.
func NewSessionStore(recordStore store.RecordStore) *SessionStore {
	return &SessionStore{store: recordStore}
}

func (s *SessionStore) Create(ctx context.Context, sess *domainSession.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, store.SessionKey(sess.TokenHash), data)
}

func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*domainSession.Session, error) {
	data, err := s.store.Get(ctx, store.SessionKey(tokenHash))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var sess domainSession.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session: %w: %v", store.ErrCorrupt, err)
	}
	return &sess, nil
}

func (s *SessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	err := s.store.Delete(ctx, store.SessionKey(tokenHash))
	if store.IsNotFound(err) {
		return nil
	}
	return err
}

func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	keys, err := s.store.List(ctx, store.SessionPrefix)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, key := range keys {
		data, err := s.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var sess domainSession.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			// Corrupt sessions are unusable; drop them too.
			if derr := s.store.Delete(ctx, key); derr == nil {
				deleted++
			}
			continue
		}
		if sess.IsExpired(now) {
			if derr := s.store.Delete(ctx, key); derr == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}
