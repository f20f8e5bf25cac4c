package inventory

import (
	"context"
	"time"

	"github.com/gemdesk/gemdesk/internal/domain/stone"
	"github.com/gemdesk/gemdesk/internal/store"
)

// ReplaceShard validates an upload batch and, when clean, fully replaces the
// supplier's shard. Lock flags of stock ids that already existed and survive
// the replace are carried forward, so a re-upload cannot silently unlock a
// stone mid-negotiation. The combined view is rebuilt immediately so
// staleness never outlives the call.
//
// A failed validation returns the report with a nil error: bad data is an
// expected outcome reported to the uploader, not a process fault.
func (s *Service) ReplaceShard(ctx context.Context, supplier string, rows []stone.Row) (*stone.ValidationReport, error) {
	now := time.Now().UTC()
	stones, report := stone.ValidateBatch(supplier, rows, now)
	if !report.OK() {
		s.logger.Warn().
			Str("supplier", supplier).
			Int("rows", report.Rows).
			Int("errors", len(report.Errors)).
			Msg("shard upload rejected")
		return report, nil
	}
	supplier = stone.NormalizeSupplier(supplier)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadShard(ctx, supplier)
	if err != nil && !store.IsNotFound(err) {
		if store.IsCorrupt(err) {
			// A corrupt shard is replaced wholesale; carrying nothing
			// forward is the only safe option.
			s.logger.Error().Err(err).Str("supplier", supplier).Msg("replacing corrupt shard")
			existing = nil
		} else {
			return nil, err
		}
	}

	if existing != nil {
		for i := range stones {
			if prev := existing.Find(stones[i].StockID); prev != nil {
				stones[i].Locked = prev.Locked
			}
		}
	}

	shard := &stone.Shard{
		Supplier:   supplier,
		UploadedAt: now,
		Stones:     stones,
	}
	if err := s.saveShard(ctx, shard); err != nil {
		return nil, err
	}

	if err := s.rebuildLocked(ctx); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("supplier", supplier).
		Int("stones", len(stones)).
		Msg("shard replaced")
	return report, nil
}

// DeleteShard removes a supplier's entire shard and reconciles. Idempotent.
func (s *Service) DeleteShard(ctx context.Context, supplier string) error {
	supplier = stone.NormalizeSupplier(supplier)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, store.ShardKey(supplier)); err != nil {
		return err
	}
	if err := s.rebuildLocked(ctx); err != nil {
		return err
	}
	s.logger.Info().Str("supplier", supplier).Msg("shard deleted")
	return nil
}
