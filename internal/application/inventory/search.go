package inventory

import (
	"context"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/gemdesk/gemdesk/internal/domain/stone"
)

// SearchQuery describes a client browse request. Filter is a boolean
// expression over stone attributes, e.g.
//
//	shape == 'ROUND' && weight >= 1.0 && price_per_carat < 12000
//
// An empty filter matches everything.
type SearchQuery struct {
	Filter        string
	AvailableOnly bool
	Limit         int
}

// Search evaluates the query against the combined view.
func (s *Service) Search(ctx context.Context, q SearchQuery) ([]stone.Stone, error) {
	view, err := s.loadCombined(ctx)
	if err != nil {
		return nil, err
	}

	var expr *govaluate.EvaluableExpression
	if f := strings.TrimSpace(q.Filter); f != "" {
		expr, err = govaluate.NewEvaluableExpression(f)
		if err != nil {
			return nil, err
		}
	}

	results := make([]stone.Stone, 0)
	for _, st := range view.Stones {
		if q.AvailableOnly && st.IsLocked() {
			continue
		}
		if expr != nil {
			match, err := expr.Evaluate(searchParams(&st))
			if err != nil {
				return nil, err
			}
			ok, isBool := match.(bool)
			if !isBool || !ok {
				continue
			}
		}
		results = append(results, st)
		if q.Limit > 0 && len(results) >= q.Limit {
			break
		}
	}
	return results, nil
}

func searchParams(st *stone.Stone) map[string]interface{} {
	weight, _ := st.Weight.Float64()
	price, _ := st.PricePerCarat.Float64()
	return map[string]interface{}{
		"stock_id":        st.StockID,
		"shape":           st.Shape,
		"weight":          weight,
		"color":           st.Color,
		"clarity":         st.Clarity,
		"price_per_carat": price,
		"lab":             st.Lab,
		"report_number":   st.ReportNumber,
		"diamond_type":    st.DiamondType,
		"cut":             st.Cut,
		"polish":          st.Polish,
		"symmetry":        st.Symmetry,
		"supplier":        st.Supplier,
		"locked":          st.IsLocked(),
	}
}
