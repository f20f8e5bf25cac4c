package stone

import (
	"time"

	"github.com/shopspring/decimal"
)

// LockFlag marks whether a stone is claimed by an in-progress deal.
type LockFlag string

const (
	Locked   LockFlag = "YES"
	Unlocked LockFlag = "NO"
)

// Stone is one inventory item, identified by its stock id. It lives as a row
// in its owning supplier's shard and, after reconciliation, in the combined
// view.
type Stone struct {
	StockID       string          `json:"stockId"`
	Shape         string          `json:"shape"`
	Weight        decimal.Decimal `json:"weight"`
	Color         string          `json:"color"`
	Clarity       string          `json:"clarity"`
	PricePerCarat decimal.Decimal `json:"pricePerCarat"`
	Lab           string          `json:"lab"`
	ReportNumber  string          `json:"reportNumber"`
	DiamondType   string          `json:"diamondType"`
	Description   string          `json:"description"`
	Cut           string          `json:"cut,omitempty"`
	Polish        string          `json:"polish,omitempty"`
	Symmetry      string          `json:"symmetry,omitempty"`
	Supplier      string          `json:"supplier"`
	Locked        LockFlag        `json:"locked"`
	UploadedAt    time.Time       `json:"uploadedAt"`
}

// IsLocked reports whether the stone is claimed by an open deal.
func (s *Stone) IsLocked() bool {
	return s.Locked == Locked
}

// Shard is the inventory subset owned by exactly one supplier. The only legal
// mutation pattern is a validated full replace, except for lock-flag toggles
// which are targeted updates preserving all other rows.
type Shard struct {
	Supplier   string    `json:"supplier"`
	UploadedAt time.Time `json:"uploadedAt"`
	Stones     []Stone   `json:"stones"`
}

// Find returns the stone with the given stock id, or nil.
func (sh *Shard) Find(stockID string) *Stone {
	for i := range sh.Stones {
		if sh.Stones[i].StockID == stockID {
			return &sh.Stones[i]
		}
	}
	return nil
}

// CombinedView is the reconciled union of all shards. It is derived and
// disposable: the reconciler rebuilds it in full, and shards remain the source
// of truth for lock state at rebuild time.
type CombinedView struct {
	Stones []Stone `json:"stones"`

	// DuplicateIDs lists stock ids that appeared in more than one shard at
	// the last rebuild. First-seen rows win; the rest are dropped.
	DuplicateIDs []string `json:"duplicateIds,omitempty"`
}

// Find returns the stone with the given stock id, or nil.
func (v *CombinedView) Find(stockID string) *Stone {
	for i := range v.Stones {
		if v.Stones[i].StockID == stockID {
			return &v.Stones[i]
		}
	}
	return nil
}
