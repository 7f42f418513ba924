package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"gorm.io/gorm"
)

// Reminder is the append-only audit trail of overdue notices sent for an
// invoice. SentBy is zero when the daily sweep, rather than a user,
// triggered the notice.
type Reminder struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"size:36;not null;index" json:"organization_id"`
	InvoiceId      int       `gorm:"index;not null" json:"invoice_id"`
	SentAt         time.Time `gorm:"index;not null" json:"sent_at"`
	SentBy         int       `json:"sent_by"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (r *Reminder) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("reminders are append-only and cannot be updated")
}

func (r *Reminder) BeforeDelete(tx *gorm.DB) error {
	return errors.New("reminders are append-only and cannot be deleted")
}

// recordReminder appends the audit row and stages the notification in the
// caller's transaction.
func recordReminder(tx *gorm.DB, ctx context.Context, organizationId string, invoiceId int, sentBy int, sentAt time.Time) (*Reminder, error) {
	reminder := Reminder{
		OrganizationId: organizationId,
		InvoiceId:      invoiceId,
		SentAt:         sentAt,
		SentBy:         sentBy,
	}
	if err := tx.WithContext(ctx).Create(&reminder).Error; err != nil {
		return nil, err
	}
	if err := WriteOutbox(tx, ctx, organizationId, NotificationReferenceTypeReminder, invoiceId, NotificationActionReminderDue, reminder); err != nil {
		return nil, err
	}
	return &reminder, nil
}

// SendInvoiceReminder is the user-triggered variant. The invoice must be
// billable (sent, possibly overdue); at most one reminder per invoice per
// calendar day, matching the sweep's throttle.
func SendInvoiceReminder(ctx context.Context, invoiceId int) (*Reminder, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, organizationId, invoiceId)
	if err != nil {
		return nil, err
	}
	if invoice.Status != InvoiceStatusSent {
		return nil, errors.New("reminders can only be sent for unpaid sent invoices")
	}

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	count, err := utils.ResourceCountWhere[Reminder](ctx, organizationId, "invoice_id = ? AND sent_at >= ?", invoiceId, dayStart)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("a reminder was already sent for this invoice today")
	}

	userId, _ := utils.GetUserIdFromContext(ctx)

	db := config.GetDB()
	var reminder *Reminder
	err = db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		reminder, txErr = recordReminder(tx, ctx, organizationId, invoiceId, userId, now)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return reminder, nil
}
