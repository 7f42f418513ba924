package models_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/shopspring/decimal"
)

func TestSequenceSeed_FreshOrganizationAndYear(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)

	org, err := models.CreateOrganization(ctx, &models.NewOrganization{Name: "Fresh Start Ltd"})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	ctx = utils.SetOrganizationIdInContext(ctx, org.ID.String())

	db := config.GetDB()
	year := time.Now().UTC().Year()

	// No invoices at all for the tenant: MAX(invoice_number) comes back as
	// SQL NULL and the seed must resolve to zero, not error.
	last, anomaly, err := models.ReconcileSequenceFromHistory(db, ctx, org.ID.String(), year)
	if err != nil {
		t.Fatalf("ReconcileSequenceFromHistory with no history: %v", err)
	}
	if last != 0 || anomaly != nil {
		t.Fatalf("empty history should seed at 0 with no anomaly, got %d / %+v", last, anomaly)
	}

	// The tenant's very first invoice therefore numbers from 1.
	cust, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "First Customer"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	inv, err := models.CreateInvoice(ctx, &models.NewInvoice{
		CustomerId: cust.ID,
		IssueDate:  time.Now().UTC(),
		DueDate:    time.Now().UTC().Add(14 * 24 * time.Hour),
		Items: []*models.NewInvoiceItem{
			{Description: "Standard translation", Amount: decimal.NewFromInt(75)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice on fresh tenant: %v", err)
	}
	if expected := models.FormatInvoiceNumber(year, 1); inv.InvoiceNumber != expected {
		t.Fatalf("first invoice number expected %s, got %s", expected, inv.InvoiceNumber)
	}

	// A year with no history behaves the same even once the invoices table
	// has rows for other years.
	last, anomaly, err = models.ReconcileSequenceFromHistory(db, ctx, org.ID.String(), year+1)
	if err != nil {
		t.Fatalf("ReconcileSequenceFromHistory for untouched year: %v", err)
	}
	if last != 0 || anomaly != nil {
		t.Fatalf("untouched year should seed at 0 with no anomaly, got %d / %+v", last, anomaly)
	}
}
