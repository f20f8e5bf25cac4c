// Package deal drives the negotiation lifecycle: lock-first deal creation,
// the supplier and admin approval transitions, and the append-only history
// ledger. The conversational layer calls this engine instead of carrying
// deal-state logic of its own.
package deal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gemdesk/gemdesk/internal/domain/account"
	"github.com/gemdesk/gemdesk/internal/domain/activity"
	domainDeal "github.com/gemdesk/gemdesk/internal/domain/deal"
	"github.com/gemdesk/gemdesk/internal/domain/notification"
	"github.com/gemdesk/gemdesk/internal/domain/stone"
	"github.com/gemdesk/gemdesk/internal/store"
)

// StoneLocker is the slice of the inventory service the engine needs.
type StoneLocker interface {
	TryLock(ctx context.Context, stockID string) (bool, error)
	Unlock(ctx context.Context, stockID string) error
	Remove(ctx context.Context, stockID string) error
	GetStone(ctx context.Context, stockID string) (*stone.Stone, error)
}

// Service is the deal lifecycle engine.
type Service struct {
	store    store.RecordStore
	locker   StoneLocker
	notifier notification.Sink
	recorder activity.Recorder
	logger   zerolog.Logger

	// mu serializes deal transitions and history appends; the history log
	// is one read-modify-write object.
	mu sync.Mutex
}

// NewService creates the deal lifecycle engine. notifier and recorder may be
// nil in contexts that do not wire them.
func NewService(recordStore store.RecordStore, locker StoneLocker, notifier notification.Sink, recorder activity.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		store:    recordStore,
		locker:   locker,
		notifier: notifier,
		recorder: recorder,
		logger:   logger.With().Str("service", "deal").Logger(),
	}
}

// CreateDeal claims the stone's lock and opens a negotiation. Locking comes
// first: if the claim loses, no deal record is written and the caller gets
// ErrStoneUnavailable.
func (s *Service) CreateDeal(ctx context.Context, stockID, client string, offerPrice decimal.Decimal) (*domainDeal.Deal, error) {
	client = account.NormalizeUsername(client)
	if offerPrice.Sign() <= 0 {
		return nil, fmt.Errorf("offer price must be positive")
	}

	won, err := s.locker.TryLock(ctx, stockID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domainDeal.ErrStoneUnavailable
	}

	st, err := s.locker.GetStone(ctx, stockID)
	if err != nil || st == nil {
		_ = s.locker.Unlock(ctx, stockID)
		if err == nil {
			err = domainDeal.ErrStoneUnavailable
		}
		return nil, err
	}

	now := time.Now().UTC()
	d := &domainDeal.Deal{
		DealID:         domainDeal.NewDealID(),
		StockID:        stockID,
		Supplier:       st.Supplier,
		Client:         client,
		ListPrice:      st.PricePerCarat,
		OfferPrice:     offerPrice,
		SupplierAction: domainDeal.ActionPending,
		AdminAction:    domainDeal.ActionPending,
		FinalStatus:    domainDeal.StatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendHistory(ctx, d, now); err != nil {
		_ = s.locker.Unlock(ctx, stockID)
		return nil, err
	}
	if err := s.saveDeal(ctx, d); err != nil {
		_ = s.locker.Unlock(ctx, stockID)
		return nil, err
	}

	s.notify(ctx, d.Supplier, string(account.RoleSupplier),
		fmt.Sprintf("New deal offer for stone %s: %s/ct (list %s/ct), deal %s",
			d.StockID, d.OfferPrice, d.ListPrice, d.DealID))

	s.record(ctx, d.Client, "deal.create", d)
	s.logger.Info().
		Str("deal_id", d.DealID).
		Str("stock_id", d.StockID).
		Str("client", d.Client).
		Msg("deal created")
	return d, nil
}

// SupplierRespond applies the supplier's ACCEPT or REJECT. Only the deal's
// own supplier may respond.
func (s *Service) SupplierRespond(ctx context.Context, dealID, supplier string, decision domainDeal.Decision) (*domainDeal.Deal, error) {
	supplier = account.NormalizeUsername(supplier)

	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.loadDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if d.Supplier != supplier {
		return nil, domainDeal.ErrNotOwner
	}

	now := time.Now().UTC()
	if err := d.ApplySupplierDecision(decision, now); err != nil {
		return nil, err
	}
	if err := s.appendHistory(ctx, d, now); err != nil {
		return nil, err
	}
	if err := s.saveDeal(ctx, d); err != nil {
		return nil, err
	}

	switch decision {
	case domainDeal.DecisionAccept:
		s.notify(ctx, "admin", string(account.RoleAdmin),
			fmt.Sprintf("Deal %s accepted by supplier %s, awaiting admin approval", d.DealID, d.Supplier))
	case domainDeal.DecisionReject:
		if err := s.locker.Unlock(ctx, d.StockID); err != nil {
			return nil, err
		}
		s.notify(ctx, d.Client, string(account.RoleClient),
			fmt.Sprintf("Deal %s was rejected by the supplier; stone %s is available again", d.DealID, d.StockID))
	}

	s.record(ctx, supplier, "deal.supplier_respond", d)
	s.logger.Info().
		Str("deal_id", d.DealID).
		Str("decision", string(decision)).
		Msg("supplier responded")
	return d, nil
}

// AdminRespond applies the admin's APPROVE or REJECT. Approval fulfills the
// deal and permanently removes the stone; rejection releases the lock.
func (s *Service) AdminRespond(ctx context.Context, dealID string, decision domainDeal.Decision) (*domainDeal.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.loadDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := d.ApplyAdminDecision(decision, now); err != nil {
		return nil, err
	}
	if err := s.appendHistory(ctx, d, now); err != nil {
		return nil, err
	}
	if err := s.saveDeal(ctx, d); err != nil {
		return nil, err
	}

	switch decision {
	case domainDeal.DecisionApprove:
		if err := s.locker.Remove(ctx, d.StockID); err != nil {
			return nil, err
		}
		s.notify(ctx, d.Client, string(account.RoleClient),
			fmt.Sprintf("Deal %s approved: stone %s is yours at %s/ct", d.DealID, d.StockID, d.OfferPrice))
		s.notify(ctx, d.Supplier, string(account.RoleSupplier),
			fmt.Sprintf("Deal %s completed: stone %s sold at %s/ct", d.DealID, d.StockID, d.OfferPrice))
	case domainDeal.DecisionReject:
		if err := s.locker.Unlock(ctx, d.StockID); err != nil {
			return nil, err
		}
		s.notify(ctx, d.Client, string(account.RoleClient),
			fmt.Sprintf("Deal %s was rejected by the admin", d.DealID))
		s.notify(ctx, d.Supplier, string(account.RoleSupplier),
			fmt.Sprintf("Deal %s was rejected by the admin; stone %s is available again", d.DealID, d.StockID))
	}

	s.record(ctx, "admin", "deal.admin_respond", d)
	s.logger.Info().
		Str("deal_id", d.DealID).
		Str("decision", string(decision)).
		Msg("admin responded")
	return d, nil
}

// Get retrieves one deal.
func (s *Service) Get(ctx context.Context, dealID string) (*domainDeal.Deal, error) {
	return s.loadDeal(ctx, dealID)
}

// ListFilter narrows deal listings by participant.
type ListFilter struct {
	Supplier string
	Client   string
}

// List returns deals newest-first, optionally filtered by participant.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*domainDeal.Deal, error) {
	keys, err := s.store.List(ctx, store.DealPrefix)
	if err != nil {
		return nil, err
	}
	supplier := account.NormalizeUsername(filter.Supplier)
	client := account.NormalizeUsername(filter.Client)

	deals := make([]*domainDeal.Deal, 0, len(keys))
	for _, key := range keys {
		data, err := s.store.Get(ctx, key)
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		var d domainDeal.Deal
		if err := json.Unmarshal(data, &d); err != nil {
			s.logger.Error().Str("key", key).Err(err).Msg("skipping corrupt deal record")
			continue
		}
		if supplier != "" && d.Supplier != supplier {
			continue
		}
		if client != "" && d.Client != client {
			continue
		}
		deals = append(deals, &d)
	}
	sort.Slice(deals, func(i, j int) bool {
		return deals[i].CreatedAt.After(deals[j].CreatedAt)
	})
	return deals, nil
}

// History returns the full append-only ledger.
func (s *Service) History(ctx context.Context) ([]domainDeal.HistoryEntry, error) {
	return s.loadHistory(ctx)
}

// LeaderboardRow is one supplier's completed-deal count.
type LeaderboardRow struct {
	Supplier  string `json:"supplier"`
	Completed int    `json:"completed"`
}

// SupplierLeaderboard ranks suppliers by completed deals.
func (s *Service) SupplierLeaderboard(ctx context.Context) ([]LeaderboardRow, error) {
	deals, err := s.List(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, d := range deals {
		if d.FinalStatus == domainDeal.StatusCompleted {
			counts[d.Supplier]++
		}
	}
	rows := make([]LeaderboardRow, 0, len(counts))
	for supplier, n := range counts {
		rows = append(rows, LeaderboardRow{Supplier: supplier, Completed: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Completed != rows[j].Completed {
			return rows[i].Completed > rows[j].Completed
		}
		return rows[i].Supplier < rows[j].Supplier
	})
	return rows, nil
}

func (s *Service) loadDeal(ctx context.Context, dealID string) (*domainDeal.Deal, error) {
	data, err := s.store.Get(ctx, store.DealKey(dealID))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, domainDeal.ErrNotFound
		}
		return nil, err
	}
	var d domainDeal.Deal
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("deal %s: %w: %v", dealID, store.ErrCorrupt, err)
	}
	return &d, nil
}

func (s *Service) saveDeal(ctx context.Context, d *domainDeal.Deal) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, store.DealKey(d.DealID), data)
}

func (s *Service) loadHistory(ctx context.Context) ([]domainDeal.HistoryEntry, error) {
	data, err := s.store.Get(ctx, store.DealHistoryKey)
	if store.IsNotFound(err) {
		return []domainDeal.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []domainDeal.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("deal history: %w: %v", store.ErrCorrupt, err)
	}
	return entries, nil
}

// appendHistory writes the ledger entry before the live deal record, so the
// ledger is never missing a state the deal reflects. Caller holds s.mu.
func (s *Service) appendHistory(ctx context.Context, d *domainDeal.Deal, now time.Time) error {
	entries, err := s.loadHistory(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, domainDeal.Snapshot(d, now))
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, store.DealHistoryKey, data)
}

func (s *Service) record(ctx context.Context, actor, action string, d *domainDeal.Deal) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, actor, action, map[string]interface{}{
		"dealId":  d.DealID,
		"stockId": d.StockID,
	})
}

// notify writes a mailbox entry; delivery failures are logged, not fatal to
// the transition that already happened.
func (s *Service) notify(ctx context.Context, recipient, role, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, recipient, role, message); err != nil {
		s.logger.Warn().Err(err).Str("recipient", recipient).Msg("notification failed")
	}
}
