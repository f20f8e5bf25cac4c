// Package inventory owns every write to the per-supplier shards and the
// combined view: validated shard replace, reconciliation, and the stone lock
// manager. The backing store has no row-level transactions, so all inventory
// mutations funnel through this one service and are serialized behind a single
// process-wide mutex.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gemdesk/gemdesk/internal/domain/stone"
	"github.com/gemdesk/gemdesk/internal/store"
)

// Service is the single legal mutator of inventory objects.
type Service struct {
	store  store.RecordStore
	logger zerolog.Logger

	// mu serializes every read-modify-write of the combined view and the
	// shards. TryLock linearizability for a given stock id depends on it.
	mu sync.Mutex
}

// NewService creates the inventory service.
func NewService(recordStore store.RecordStore, logger zerolog.Logger) *Service {
	return &Service{
		store:  recordStore,
		logger: logger.With().Str("service", "inventory").Logger(),
	}
}

// loadCombined reads the combined view. A missing object is a legitimate
// empty state; a corrupt one is fatal to the caller.
func (s *Service) loadCombined(ctx context.Context) (*stone.CombinedView, error) {
	data, err := s.store.Get(ctx, store.CombinedStockKey)
	if store.IsNotFound(err) {
		return &stone.CombinedView{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load combined view: %w", err)
	}
	var view stone.CombinedView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("combined view: %w: %v", store.ErrCorrupt, err)
	}
	return &view, nil
}

func (s *Service) saveCombined(ctx context.Context, view *stone.CombinedView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, store.CombinedStockKey, data); err != nil {
		return fmt.Errorf("save combined view: %w", err)
	}
	return nil
}

func (s *Service) loadShard(ctx context.Context, supplier string) (*stone.Shard, error) {
	data, err := s.store.Get(ctx, store.ShardKey(supplier))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("load shard %s: %w", supplier, err)
	}
	var shard stone.Shard
	if err := json.Unmarshal(data, &shard); err != nil {
		return nil, fmt.Errorf("shard %s: %w: %v", supplier, store.ErrCorrupt, err)
	}
	return &shard, nil
}

func (s *Service) saveShard(ctx context.Context, shard *stone.Shard) error {
	data, err := json.Marshal(shard)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, store.ShardKey(shard.Supplier), data); err != nil {
		return fmt.Errorf("save shard %s: %w", shard.Supplier, err)
	}
	return nil
}

// GetStone reads one stone from the combined view. Returns nil when absent.
func (s *Service) GetStone(ctx context.Context, stockID string) (*stone.Stone, error) {
	view, err := s.loadCombined(ctx)
	if err != nil {
		return nil, err
	}
	found := view.Find(stockID)
	if found == nil {
		return nil, nil
	}
	out := *found
	return &out, nil
}

// Combined returns the current combined view.
func (s *Service) Combined(ctx context.Context) (*stone.CombinedView, error) {
	return s.loadCombined(ctx)
}

// Shard returns one supplier's shard, or store.ErrNotFound.
func (s *Service) Shard(ctx context.Context, supplier string) (*stone.Shard, error) {
	return s.loadShard(ctx, stone.NormalizeSupplier(supplier))
}
