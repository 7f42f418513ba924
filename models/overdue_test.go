package models_test

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/models"
)

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	cases := []struct {
		name     string
		status   models.InvoiceStatus
		dueDate  time.Time
		expected bool
	}{
		{"sent past due", models.InvoiceStatusSent, past, true},
		{"sent not yet due", models.InvoiceStatusSent, future, false},
		{"sent due exactly now", models.InvoiceStatusSent, now, false},
		{"paid past due", models.InvoiceStatusPaid, past, false},
		{"draft past due", models.InvoiceStatusDraft, past, true},
		{"draft not yet due", models.InvoiceStatusDraft, future, false},
	}
	for _, tc := range cases {
		if got := models.IsOverdue(tc.status, tc.dueDate, now); got != tc.expected {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestEffectiveStatus_OverlaysOverdueOnRead(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	if got := models.EffectiveStatus(models.InvoiceStatusSent, past, now); got != models.InvoiceStatusOverdue {
		t.Fatalf("sent past due should display overdue, got %s", got)
	}
	if got := models.EffectiveStatus(models.InvoiceStatusPaid, past, now); got != models.InvoiceStatusPaid {
		t.Fatalf("paid invoices never display overdue, got %s", got)
	}
	if got := models.EffectiveStatus(models.InvoiceStatusDraft, past, now); got != models.InvoiceStatusOverdue {
		t.Fatalf("past-due drafts display overdue, got %s", got)
	}
}
