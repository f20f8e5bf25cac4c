package store

import (
	"context"
	"time"
)

// RetryingStore decorates a RecordStore with a bounded retry for transient
// failures. Not-found and corrupt results are returned immediately; only
// genuine I/O errors are retried.
type RetryingStore struct {
	inner    RecordStore
	attempts int
	backoff  time.Duration
}

// WithRetry wraps inner with up to attempts tries per call.
func WithRetry(inner RecordStore, attempts int, backoff time.Duration) *RetryingStore {
	if attempts < 1 {
		attempts = 1
	}
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return &RetryingStore{inner: inner, attempts: attempts, backoff: backoff}
}

func (s *RetryingStore) Get(ctx context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.do(ctx, func() error {
		var innerErr error
		val, innerErr = s.inner.Get(ctx, key)
		return innerErr
	})
	return val, err
}

func (s *RetryingStore) Put(ctx context.Context, key string, value []byte) error {
	return s.do(ctx, func() error {
		return s.inner.Put(ctx, key, value)
	})
}

func (s *RetryingStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.do(ctx, func() error {
		var innerErr error
		keys, innerErr = s.inner.List(ctx, prefix)
		return innerErr
	})
	return keys, err
}

func (s *RetryingStore) Delete(ctx context.Context, key string) error {
	return s.do(ctx, func() error {
		return s.inner.Delete(ctx, key)
	})
}

func (s *RetryingStore) do(ctx context.Context, op func() error) error {
	var err error
	for i := 0; i < s.attempts; i++ {
		err = op()
		if err == nil || IsNotFound(err) || IsCorrupt(err) {
			return err
		}
		if i == s.attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff):
		}
	}
	return err
}
