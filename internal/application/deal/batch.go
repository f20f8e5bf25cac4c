package deal

import (
	"context"

	domainDeal "github.com/gemdesk/gemdesk/internal/domain/deal"
)

// BatchItem is one decision in a batch request.
type BatchItem struct {
	DealID   string              `json:"dealId"`
	Decision domainDeal.Decision `json:"decision"`
}

// BatchResult reports the outcome for one deal in a batch. Failures carry the
// error message; the rest of the batch still proceeds.
type BatchResult struct {
	DealID string           `json:"dealId"`
	OK     bool             `json:"ok"`
	Error  string           `json:"error,omitempty"`
	Deal   *domainDeal.Deal `json:"deal,omitempty"`
}

// SupplierRespondBatch applies the supplier's decisions one by one. A failed
// item never blocks the others.
func (s *Service) SupplierRespondBatch(ctx context.Context, supplier string, items []BatchItem) []BatchResult {
	results := make([]BatchResult, 0, len(items))
	for _, item := range items {
		d, err := s.SupplierRespond(ctx, item.DealID, supplier, item.Decision)
		results = append(results, batchResult(item.DealID, d, err))
	}
	return results
}

// AdminRespondBatch applies the admin's decisions one by one. A failed item
// never blocks the others.
func (s *Service) AdminRespondBatch(ctx context.Context, items []BatchItem) []BatchResult {
	results := make([]BatchResult, 0, len(items))
	for _, item := range items {
		d, err := s.AdminRespond(ctx, item.DealID, item.Decision)
		results = append(results, batchResult(item.DealID, d, err))
	}
	return results
}

func batchResult(dealID string, d *domainDeal.Deal, err error) BatchResult {
	if err != nil {
		return BatchResult{DealID: dealID, Error: err.Error()}
	}
	return BatchResult{DealID: dealID, OK: true, Deal: d}
}
