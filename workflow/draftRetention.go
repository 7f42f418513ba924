package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DraftRetentionSweep removes draft invoices older than the retention
// window. The legacy system leaned on a store-level TTL for this; here it
// is an explicit daily sweep so the deletion also covers line items and
// attachments.
type DraftRetentionSweep struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewDraftRetentionSweep(db *gorm.DB, logger *logrus.Logger) *DraftRetentionSweep {
	return &DraftRetentionSweep{DB: db, Logger: logger}
}

func (s *DraftRetentionSweep) Run() {
	if config.DisableSweeps() {
		return
	}
	ctx := context.Background()
	cutoff := time.Now().UTC().AddDate(0, 0, -config.DraftRetentionDays())

	var expired []models.Invoice
	err := s.DB.WithContext(ctx).
		Preload("Documents").
		Where("status = ? AND created_at < ?", models.InvoiceStatusDraft, cutoff).
		Find(&expired).Error
	if err != nil {
		config.LogError(s.Logger, "draftRetention.go", "Run", "scan expired drafts", nil, err)
		return
	}

	removed := 0
	for i := range expired {
		invoice := &expired[i]
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("invoice_id = ?", invoice.ID).
				Delete(&models.InvoiceItem{}).Error; err != nil {
				return err
			}
			for _, doc := range invoice.Documents {
				if err := doc.Delete(tx, ctx); err != nil {
					return err
				}
			}
			return tx.Delete(invoice).Error
		})
		if err != nil {
			config.LogError(s.Logger, "draftRetention.go", "Run", "delete expired draft", invoice.ID, err)
			continue
		}
		removed++
	}

	if removed > 0 && s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"field":   "DraftRetentionSweep",
			"removed": removed,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Warn("draft retention sweep completed")
	}
}
