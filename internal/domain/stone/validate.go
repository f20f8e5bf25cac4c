package stone

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical upload column names. The upload collaborator parses spreadsheets
// into Row maps keyed by these names; the core only sees parsed rows.
const (
	ColStockID       = "Stock #"
	ColShape         = "Shape"
	ColWeight        = "Weight"
	ColColor         = "Color"
	ColClarity       = "Clarity"
	ColPricePerCarat = "Price Per Carat"
	ColLab           = "Lab"
	ColReportNumber  = "Report #"
	ColDiamondType   = "Diamond Type"
	ColDescription   = "Description"
	ColCut           = "CUT"
	ColPolish        = "Polish"
	ColSymmetry      = "Symmetry"
)

// RequiredColumns must be present and non-empty on every row.
var RequiredColumns = []string{
	ColStockID, ColShape, ColWeight, ColColor, ColClarity,
	ColPricePerCarat, ColLab, ColReportNumber, ColDiamondType, ColDescription,
}

// OptionalColumns may be absent or blank.
var OptionalColumns = []string{ColCut, ColPolish, ColSymmetry}

// Row is one parsed upload row, keyed by canonical column name.
type Row map[string]string

// ValidationReport collects the per-batch outcome of upload validation.
// Errors are reported to the uploader; they never crash the process.
type ValidationReport struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Rows     int      `json:"rows"`
}

// OK reports whether the batch passed validation.
func (r *ValidationReport) OK() bool {
	return len(r.Errors) == 0
}

func (r *ValidationReport) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationReport) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateBatch checks a full shard upload for the named supplier and, when
// the batch is clean, returns the stones ready to be written as the shard
// contents. Lock flags start at NO; the shard manager carries forward flags
// for stock ids that survive the replace.
func ValidateBatch(supplier string, rows []Row, now time.Time) ([]Stone, *ValidationReport) {
	report := &ValidationReport{Rows: len(rows)}
	supplier = NormalizeSupplier(supplier)
	if supplier == "" {
		report.errorf("supplier identity is required")
		return nil, report
	}
	if len(rows) == 0 {
		report.errorf("upload contains no rows")
		return nil, report
	}

	// Column presence is checked against the first row: the upload
	// collaborator produces uniform keys for the whole sheet.
	for _, col := range RequiredColumns {
		if _, ok := rows[0][col]; !ok {
			report.errorf("missing required column: %s", col)
		}
	}
	for _, col := range OptionalColumns {
		if _, ok := rows[0][col]; !ok {
			report.warnf("optional column not found: %s", col)
		}
	}
	if len(report.Errors) > 0 {
		return nil, report
	}

	stones := make([]Stone, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for i, row := range rows {
		line := i + 2 // spreadsheet numbering: header is line 1

		cleaned := make(Row, len(row))
		for k, v := range row {
			cleaned[k] = CleanText(v)
		}

		rowOK := true
		for _, col := range RequiredColumns {
			if cleaned[col] == "" {
				report.errorf("row %d: %s is empty", line, col)
				rowOK = false
			}
		}
		if !rowOK {
			continue
		}

		stockID := cleaned[ColStockID]
		if seen[stockID] {
			report.errorf("row %d: duplicate Stock # %s", line, stockID)
			continue
		}
		seen[stockID] = true

		weight, err := parsePositiveDecimal(cleaned[ColWeight])
		if err != nil {
			report.errorf("row %d: Weight %q: %v", line, cleaned[ColWeight], err)
			continue
		}
		price, err := parsePositiveDecimal(cleaned[ColPricePerCarat])
		if err != nil {
			report.errorf("row %d: Price Per Carat %q: %v", line, cleaned[ColPricePerCarat], err)
			continue
		}

		stones = append(stones, Stone{
			StockID:       stockID,
			Shape:         cleaned[ColShape],
			Weight:        weight,
			Color:         cleaned[ColColor],
			Clarity:       cleaned[ColClarity],
			PricePerCarat: price,
			Lab:           cleaned[ColLab],
			ReportNumber:  cleaned[ColReportNumber],
			DiamondType:   cleaned[ColDiamondType],
			Description:   cleaned[ColDescription],
			Cut:           cleaned[ColCut],
			Polish:        cleaned[ColPolish],
			Symmetry:      cleaned[ColSymmetry],
			Supplier:      supplier,
			Locked:        Unlocked,
			UploadedAt:    now.UTC(),
		})
	}

	if len(report.Errors) > 0 {
		return nil, report
	}
	return stones, report
}

func parsePositiveDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not numeric")
	}
	if d.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("must be positive")
	}
	return d, nil
}

// NormalizeSupplier lowercases and trims a supplier identity so shard keys
// and deal ownership checks agree.
func NormalizeSupplier(supplier string) string {
	return strings.ToLower(strings.TrimSpace(supplier))
}

// CleanText collapses whitespace and strips zero-width and non-breaking
// characters that spreadsheet exports tend to smuggle in.
func CleanText(value string) string {
	value = strings.ReplaceAll(value, " ", " ")
	value = strings.ReplaceAll(value, "​", "")
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	return strings.Join(strings.Fields(value), " ")
}
