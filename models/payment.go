package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment rows are append-only: they are the evidence behind the invoice
// paid amount and the customer rollup, so corrections happen by recording
// a compensating payment, never by editing history.
type Payment struct {
	ID             int             `gorm:"primary_key" json:"id"`
	OrganizationId string          `gorm:"size:36;not null;index" json:"organization_id"`
	InvoiceId      int             `gorm:"index;not null" json:"invoice_id"`
	CustomerId     int             `gorm:"index;not null" json:"customer_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	PaymentDate    time.Time       `gorm:"index;not null" json:"payment_date"`
	PaymentMode    PaymentMode     `gorm:"type:enum('Cash','BankTransfer','Card','Other');default:'Other'" json:"payment_mode"`
	Reference      string          `gorm:"size:100" json:"reference"`
	Notes          string          `gorm:"type:text" json:"notes"`
	RecordedBy     int             `json:"recorded_by"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (p *Payment) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("payments are append-only and cannot be updated")
}

func (p *Payment) BeforeDelete(tx *gorm.DB) error {
	return errors.New("payments are append-only and cannot be deleted")
}

func GetPayments(ctx context.Context, invoiceId *int, customerId *int) ([]*Payment, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	var results []*Payment

	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId)
	if invoiceId != nil && *invoiceId > 0 {
		dbCtx = dbCtx.Where("invoice_id = ?", *invoiceId)
	}
	if customerId != nil && *customerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", *customerId)
	}
	if err := dbCtx.Order("payment_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
