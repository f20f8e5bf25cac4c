package deal

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry is an append-only snapshot of a deal at a point in transition.
// Entries are never mutated or deleted.
type HistoryEntry struct {
	DealID         string          `json:"dealId"`
	StockID        string          `json:"stockId"`
	Supplier       string          `json:"supplier"`
	Client         string          `json:"client"`
	ListPrice      decimal.Decimal `json:"listPrice"`
	OfferPrice     decimal.Decimal `json:"offerPrice"`
	SupplierAction Action          `json:"supplierAction"`
	AdminAction    Action          `json:"adminAction"`
	FinalStatus    Status          `json:"finalStatus"`
	RecordedAt     time.Time       `json:"recordedAt"`
}

// Snapshot captures the deal's current state as a history entry.
func Snapshot(d *Deal, now time.Time) HistoryEntry {
	return HistoryEntry{
		DealID:         d.DealID,
		StockID:        d.StockID,
		Supplier:       d.Supplier,
		Client:         d.Client,
		ListPrice:      d.ListPrice,
		OfferPrice:     d.OfferPrice,
		SupplierAction: d.SupplierAction,
		AdminAction:    d.AdminAction,
		FinalStatus:    d.FinalStatus,
		RecordedAt:     now.UTC(),
	}
}
