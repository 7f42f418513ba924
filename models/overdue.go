package models

import "time"

// IsOverdue classifies an invoice for display and notification purposes.
// It is recomputed on read, never persisted by the core logic: an invoice
// is overdue iff it is not paid and its due date has passed. The stored
// status is untouched; only the presented classification changes.
func IsOverdue(status InvoiceStatus, dueDate time.Time, now time.Time) bool {
	if status == InvoiceStatusPaid {
		return false
	}
	return dueDate.Before(now)
}

// EffectiveStatus resolves the display status, overlaying the derived
// overdue classification on the stored one.
func EffectiveStatus(status InvoiceStatus, dueDate time.Time, now time.Time) InvoiceStatus {
	if IsOverdue(status, dueDate, now) {
		return InvoiceStatusOverdue
	}
	return status
}
