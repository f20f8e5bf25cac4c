package inventory

import (
	"context"

	"github.com/gemdesk/gemdesk/internal/domain/stone"
	"github.com/gemdesk/gemdesk/internal/store"
)

// TryLock atomically claims a stone for a deal. It returns true only when the
// stone exists and was unlocked at the moment of the flip; under N concurrent
// claims on the same stock id exactly one caller wins. The flag is written to
// both the combined view and the owning shard, so a later shard replace or
// rebuild cannot resurrect a stale unlocked state.
func (s *Service) TryLock(ctx context.Context, stockID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-read under the mutex: the check and the flip must see the same
	// state the write will be based on.
	view, err := s.loadCombined(ctx)
	if err != nil {
		return false, err
	}
	target := view.Find(stockID)
	if target == nil || target.IsLocked() {
		return false, nil
	}
	target.Locked = stone.Locked
	if err := s.saveCombined(ctx, view); err != nil {
		return false, err
	}

	if err := s.setShardLock(ctx, target.Supplier, stockID, stone.Locked); err != nil {
		// The caller treats a failed claim as lost and will never unlock,
		// so the combined flip must not stand. Best effort: if the revert
		// write also fails the stone stays locked until the next rebuild.
		target.Locked = stone.Unlocked
		if revertErr := s.saveCombined(ctx, view); revertErr != nil {
			s.logger.Error().Err(revertErr).Str("stock_id", stockID).Msg("lock revert failed")
		}
		return false, err
	}

	s.logger.Info().Str("stock_id", stockID).Msg("stone locked")
	return true, nil
}

// Unlock releases a stone's claim. Idempotent: unlocked or missing stones are
// a no-op, never an error.
func (s *Service) Unlock(ctx context.Context, stockID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.loadCombined(ctx)
	if err != nil {
		return err
	}
	target := view.Find(stockID)
	if target == nil {
		return nil
	}
	if target.IsLocked() {
		target.Locked = stone.Unlocked
		if err := s.saveCombined(ctx, view); err != nil {
			return err
		}
	}
	if err := s.setShardLock(ctx, target.Supplier, stockID, stone.Unlocked); err != nil {
		return err
	}

	s.logger.Info().Str("stock_id", stockID).Msg("stone unlocked")
	return nil
}

// Remove permanently deletes a stone from both its owning shard and the
// combined view. Used only on deal fulfillment. Idempotent.
func (s *Service) Remove(ctx context.Context, stockID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.loadCombined(ctx)
	if err != nil {
		return err
	}
	supplier := ""
	kept := view.Stones[:0]
	for _, st := range view.Stones {
		if st.StockID == stockID {
			supplier = st.Supplier
			continue
		}
		kept = append(kept, st)
	}
	if supplier == "" {
		return nil
	}
	view.Stones = kept
	if err := s.saveCombined(ctx, view); err != nil {
		return err
	}

	shard, err := s.loadShard(ctx, supplier)
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}
	keptShard := shard.Stones[:0]
	for _, st := range shard.Stones {
		if st.StockID != stockID {
			keptShard = append(keptShard, st)
		}
	}
	shard.Stones = keptShard
	if err := s.saveShard(ctx, shard); err != nil {
		return err
	}

	s.logger.Info().Str("stock_id", stockID).Str("supplier", supplier).Msg("stone removed")
	return nil
}

// setShardLock propagates a lock flag to the owning shard. Caller holds s.mu.
func (s *Service) setShardLock(ctx context.Context, supplier, stockID string, flag stone.LockFlag) error {
	shard, err := s.loadShard(ctx, supplier)
	if err != nil {
		if store.IsNotFound(err) {
			// The shard vanished between rebuilds; the combined view
			// already carries the flag.
			return nil
		}
		return err
	}
	target := shard.Find(stockID)
	if target == nil || target.Locked == flag {
		return nil
	}
	target.Locked = flag
	return s.saveShard(ctx, shard)
}
