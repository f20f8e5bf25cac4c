package store

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_store.go -package=mocks . RecordStore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the key does not exist. It is a legitimate empty
	// state, not a storage failure.
	ErrNotFound = errors.New("record not found")

	// ErrCorrupt means the stored payload could not be decoded. Callers must
	// not propagate a corrupt object into derived state.
	ErrCorrupt = errors.New("record payload corrupt")
)

// RecordStore is the object-storage primitive the whole system persists
// through. Writes are last-writer-wins per key; there are no transactions.
type RecordStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCorrupt reports whether err is (or wraps) ErrCorrupt.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt)
}
