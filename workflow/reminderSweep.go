package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReminderSweep scans for overdue invoices once a day and stages a
// reminder notification for each, throttled to at most one reminder per
// invoice per calendar day regardless of how often the sweep runs. Only
// sent invoices qualify: a past-due draft classifies as overdue for
// display, but the customer never received it, so no reminder goes out.
type ReminderSweep struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewReminderSweep(db *gorm.DB, logger *logrus.Logger) *ReminderSweep {
	return &ReminderSweep{DB: db, Logger: logger}
}

type overdueCandidate struct {
	ID             int
	OrganizationId string
	CustomerId     int
}

// Run is invoked by the cron schedule.
func (s *ReminderSweep) Run() {
	if config.DisableSweeps() {
		return
	}
	ctx := context.Background()
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var candidates []overdueCandidate
	err := s.DB.WithContext(ctx).Model(&models.Invoice{}).
		Select("invoices.id, invoices.organization_id, invoices.customer_id").
		Where("invoices.status = ? AND invoices.due_date < ?", models.InvoiceStatusSent, now).
		Where(`NOT EXISTS (
			SELECT 1 FROM reminders
			WHERE reminders.invoice_id = invoices.id AND reminders.sent_at >= ?
		)`, dayStart).
		Scan(&candidates).Error
	if err != nil {
		config.LogError(s.Logger, "reminderSweep.go", "Run", "scan overdue invoices", nil, err)
		return
	}

	sent := 0
	for _, candidate := range candidates {
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			reminder := models.Reminder{
				OrganizationId: candidate.OrganizationId,
				InvoiceId:      candidate.ID,
				SentAt:         now,
				// SentBy stays zero for sweep-generated reminders
			}
			if err := tx.Create(&reminder).Error; err != nil {
				return err
			}
			return models.WriteOutbox(tx, ctx, candidate.OrganizationId,
				models.NotificationReferenceTypeReminder, candidate.ID,
				models.NotificationActionReminderDue, reminder)
		})
		if err != nil {
			config.LogError(s.Logger, "reminderSweep.go", "Run", "record reminder", candidate.ID, err)
			continue
		}
		sent++
	}

	if sent > 0 && s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"field":     "ReminderSweep",
			"reminders": sent,
			"scanned":   len(candidates),
		}).Warn("overdue reminder sweep completed")
	}
}
