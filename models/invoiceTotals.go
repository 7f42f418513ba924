package models

import (
	"github.com/shopspring/decimal"
)

// InvoiceTotals is the derived financial state of an invoice.
// Clamped reports that discount exceeded subTotal + tax and the total was
// held at zero, so callers can surface the anomaly instead of silently
// absorbing it.
type InvoiceTotals struct {
	SubTotal decimal.Decimal
	Total    decimal.Decimal
	Clamped  bool
}

// CalculateInvoiceTotals recomputes the derived fields from the line items.
//
// subTotal = sum of each item's caller-supplied amount (the persistence
// layer does not re-derive amount from pageQty x rate; that consistency is
// a UI concern). tax and discount are absolute currency amounts. The
// organization's TaxRate setting is only a default for clients; it is
// never applied here.
//
// total = subTotal + tax - discount, clamped at zero.
func CalculateInvoiceTotals(items []InvoiceItem, tax decimal.Decimal, discount decimal.Decimal) InvoiceTotals {
	subTotal := decimal.Zero
	for _, item := range items {
		subTotal = subTotal.Add(item.Amount)
	}

	total := subTotal.Add(tax).Sub(discount)
	clamped := false
	if total.IsNegative() {
		total = decimal.Zero
		clamped = true
	}

	return InvoiceTotals{
		SubTotal: subTotal,
		Total:    total,
		Clamped:  clamped,
	}
}
