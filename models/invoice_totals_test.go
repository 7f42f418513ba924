package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"github.com/shopspring/decimal"
)

func TestCalculateInvoiceTotals_SubTotalPlusTaxMinusDiscount(t *testing.T) {
	items := []models.InvoiceItem{
		{Amount: decimal.NewFromInt(100)},
		{Amount: decimal.NewFromInt(50)},
	}

	totals := models.CalculateInvoiceTotals(items, decimal.NewFromInt(10), decimal.NewFromInt(20))

	if !totals.SubTotal.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("sub_total expected 150, got %s", totals.SubTotal)
	}
	if !totals.Total.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("total expected 140, got %s", totals.Total)
	}
	if totals.Clamped {
		t.Fatalf("total should not be clamped")
	}
}

func TestCalculateInvoiceTotals_DiscountExceedingTotalClampsToZero(t *testing.T) {
	items := []models.InvoiceItem{
		{Amount: decimal.NewFromInt(100)},
	}

	totals := models.CalculateInvoiceTotals(items, decimal.NewFromInt(10), decimal.NewFromInt(200))

	if !totals.SubTotal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("sub_total expected 100, got %s", totals.SubTotal)
	}
	if !totals.Total.Equal(decimal.Zero) {
		t.Fatalf("total expected 0 after clamp, got %s", totals.Total)
	}
	if !totals.Clamped {
		t.Fatalf("clamp should be reported so callers can surface it")
	}
}

func TestCalculateInvoiceTotals_NoItems(t *testing.T) {
	totals := models.CalculateInvoiceTotals(nil, decimal.Zero, decimal.Zero)

	if !totals.SubTotal.Equal(decimal.Zero) || !totals.Total.Equal(decimal.Zero) {
		t.Fatalf("empty invoice expected zero totals, got sub_total=%s total=%s", totals.SubTotal, totals.Total)
	}
	if totals.Clamped {
		t.Fatalf("empty invoice should not report a clamp")
	}
}

func TestCalculateInvoiceTotals_Idempotent(t *testing.T) {
	items := []models.InvoiceItem{
		{Amount: decimal.RequireFromString("1234.5678")},
		{Amount: decimal.RequireFromString("0.0001")},
	}
	tax := decimal.RequireFromString("12.34")
	discount := decimal.RequireFromString("34.56")

	first := models.CalculateInvoiceTotals(items, tax, discount)
	second := models.CalculateInvoiceTotals(items, tax, discount)

	if !first.SubTotal.Equal(second.SubTotal) || !first.Total.Equal(second.Total) {
		t.Fatalf("recomputation over unchanged inputs must yield identical totals: %s/%s vs %s/%s",
			first.SubTotal, first.Total, second.SubTotal, second.Total)
	}
}
