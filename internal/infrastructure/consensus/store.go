package consensus

import (
	"context"
	"errors"
	"fmt"

	"github.com/gemdesk/gemdesk/internal/store"
)

// ErrNotLeader means a write reached a follower. The caller should retry
// against the leader address.
var ErrNotLeader = errors.New("not the raft leader")

// Store implements store.RecordStore on a Raft node. Reads come from the
// local machine; writes replicate through the log.
type Store struct {
	node *Node
}

// NewStore creates a raft-backed record store.
func NewStore(node *Node) *Store {
	return &Store{node: node}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := s.node.Machine().Get(key)
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, store.ErrNotFound)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if !s.node.IsLeader() {
		return fmt.Errorf("%w (leader: %s)", ErrNotLeader, s.node.LeaderAddr())
	}
	return s.node.Apply(ctx, Command{Op: OpPut, Key: key, Value: value})
}

func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	return s.node.Machine().List(prefix), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if !s.node.IsLeader() {
		return fmt.Errorf("%w (leader: %s)", ErrNotLeader, s.node.LeaderAddr())
	}
	return s.node.Apply(ctx, Command{Op: OpDelete, Key: key})
}
