package stone

import (
	"strings"
	"testing"
	"time"
)

func validRow(stockID string) Row {
	return Row{
		ColStockID:       stockID,
		ColShape:         "ROUND",
		ColWeight:        "1.52",
		ColColor:         "D",
		ColClarity:       "VS1",
		ColPricePerCarat: "10000",
		ColLab:           "GIA",
		ColReportNumber:  "RPT-1001",
		ColDiamondType:   "NATURAL",
		ColDescription:   "eye clean",
		ColCut:           "EX",
		ColPolish:        "EX",
		ColSymmetry:      "EX",
	}
}

func TestValidateBatchAccepted(t *testing.T) {
	stones, report := ValidateBatch("Alpha Gems", []Row{validRow("D001"), validRow("D002")}, time.Now())
	if !report.OK() {
		t.Fatalf("expected clean batch, got errors: %v", report.Errors)
	}
	if len(stones) != 2 {
		t.Fatalf("expected 2 stones, got %d", len(stones))
	}
	if stones[0].Supplier != "alpha gems" {
		t.Fatalf("supplier not normalized: %q", stones[0].Supplier)
	}
	if stones[0].Locked != Unlocked {
		t.Fatalf("new stones must start unlocked, got %q", stones[0].Locked)
	}
	if stones[0].Weight.String() != "1.52" {
		t.Fatalf("weight parsed wrong: %s", stones[0].Weight)
	}
}

func TestValidateBatchMissingRequiredColumn(t *testing.T) {
	row := validRow("D001")
	delete(row, ColLab)
	_, report := ValidateBatch("alpha", []Row{row}, time.Now())
	if report.OK() {
		t.Fatal("expected missing-column error")
	}
	if !strings.Contains(strings.Join(report.Errors, ";"), ColLab) {
		t.Fatalf("error should name the missing column: %v", report.Errors)
	}
}

func TestValidateBatchEmptyRequiredCell(t *testing.T) {
	row := validRow("D001")
	row[ColColor] = "  "
	_, report := ValidateBatch("alpha", []Row{row}, time.Now())
	if report.OK() {
		t.Fatal("expected empty-cell error")
	}
}

func TestValidateBatchDuplicateStockID(t *testing.T) {
	_, report := ValidateBatch("alpha", []Row{validRow("D001"), validRow("D001")}, time.Now())
	if report.OK() {
		t.Fatal("expected duplicate stock id error")
	}
}

func TestValidateBatchBadNumbers(t *testing.T) {
	cases := map[string]Row{}

	zeroWeight := validRow("D001")
	zeroWeight[ColWeight] = "0"
	cases["zero weight"] = zeroWeight

	negPrice := validRow("D002")
	negPrice[ColPricePerCarat] = "-5"
	cases["negative price"] = negPrice

	textWeight := validRow("D003")
	textWeight[ColWeight] = "heavy"
	cases["non-numeric weight"] = textWeight

	for name, row := range cases {
		if _, report := ValidateBatch("alpha", []Row{row}, time.Now()); report.OK() {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestValidateBatchOptionalColumnsMayBeBlank(t *testing.T) {
	row := validRow("D001")
	row[ColCut] = ""
	row[ColPolish] = ""
	stones, report := ValidateBatch("alpha", []Row{row}, time.Now())
	if !report.OK() {
		t.Fatalf("blank optional columns must pass: %v", report.Errors)
	}
	if stones[0].Cut != "" {
		t.Fatalf("unexpected cut %q", stones[0].Cut)
	}
}

func TestValidateBatchCleansText(t *testing.T) {
	row := validRow("D001")
	row[ColDescription] = "  eye clean\n stone ​ "
	stones, report := ValidateBatch("alpha", []Row{row}, time.Now())
	if !report.OK() {
		t.Fatalf("unexpected errors: %v", report.Errors)
	}
	if stones[0].Description != "eye clean stone" {
		t.Fatalf("text not cleaned: %q", stones[0].Description)
	}
}

func TestValidateBatchEmptyUpload(t *testing.T) {
	if _, report := ValidateBatch("alpha", nil, time.Now()); report.OK() {
		t.Fatal("expected error for empty upload")
	}
}
