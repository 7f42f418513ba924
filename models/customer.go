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

// Customer carries denormalized financial rollups so list/detail screens
// never re-aggregate invoice history. The rollup invariant is
// outstanding_balance = total_invoiced - total_paid, recomputed in the
// same statement as every mutation. Overpayment is NOT clamped: a
// customer who pays more than invoiced carries a negative outstanding
// balance (credit).
//
// Rollup mutations are unexported on purpose: only the invoice domain
// operations (SendInvoice, RecordInvoicePayment) may call them, inside
// their own transaction, so invoice state and customer totals can never
// drift apart.
type Customer struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	OrganizationId     string          `gorm:"index;size:36;not null" json:"organization_id" binding:"required"`
	Name               string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Email              string          `gorm:"size:100" json:"email"`
	Phone              string          `gorm:"size:20" json:"phone"`
	Address            string          `gorm:"size:255" json:"address"`
	Notes              string          `gorm:"type:text" json:"notes"`
	TotalInvoiced      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_invoiced"`
	TotalPaid          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_paid"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"outstanding_balance"`
	LastInvoiceDate    *time.Time      `json:"last_invoice_date"`
	IsActive           *bool           `gorm:"not null;default:true" json:"is_active"`
	Documents          []*Document     `gorm:"polymorphic:Reference" json:"documents"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

func (input *NewCustomer) validate(ctx context.Context, organizationId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Customer](ctx, organizationId, id); err != nil {
			return err
		}
	}
	// validate unique name
	if err := utils.ValidateUnique[Customer](ctx, organizationId, "name", input.Name, id); err != nil {
		return err
	}
	// validate email
	if input.Email != "" {
		if !utils.IsValidEmail(input.Email) {
			return errors.New("invalid email")
		}
		if err := utils.ValidateUnique[Customer](ctx, organizationId, "email", input.Email, id); err != nil {
			return err
		}
	}
	// validate phone
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return errors.New("invalid phone number")
		}
	}
	return nil
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	customer := Customer{
		OrganizationId:     organizationId,
		Name:               input.Name,
		Email:              input.Email,
		Phone:              input.Phone,
		Address:            input.Address,
		Notes:              input.Notes,
		TotalInvoiced:      decimal.Zero,
		TotalPaid:          decimal.Zero,
		OutstandingBalance: decimal.Zero,
		IsActive:           utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, id); err != nil {
		return nil, err
	}

	customer, err := utils.FetchModel[Customer](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	// rollup fields are deliberately absent here
	if err := db.WithContext(ctx).Model(customer).
		Updates(map[string]interface{}{
			"Name":    input.Name,
			"Email":   input.Email,
			"Phone":   input.Phone,
			"Address": input.Address,
			"Notes":   input.Notes,
		}).Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[Customer](id)
	return customer, nil
}

// DeleteCustomer removes a customer, or deactivates it instead when
// invoices reference it: financial history is never orphaned.
func DeleteCustomer(ctx context.Context, id int) (*Customer, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	customer, err := utils.FetchModel[Customer](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Invoice{}).
		Where("organization_id = ? AND customer_id = ?", organizationId, id).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		// soft-deactivate instead of delete
		if err := db.WithContext(ctx).Model(customer).
			Update("IsActive", false).Error; err != nil {
			return nil, err
		}
		customer.IsActive = utils.NewFalse()
		_ = utils.RemoveRedisItem[Customer](id)
		return customer, nil
	}

	if err := db.WithContext(ctx).Delete(customer).Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[Customer](id)
	return customer, nil
}

func ToggleActiveCustomer(ctx context.Context, id int, isActive bool) (*Customer, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	customer, err := utils.FetchModel[Customer](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(customer).
		Update("IsActive", isActive).Error; err != nil {
		return nil, err
	}
	customer.IsActive = &isActive
	_ = utils.RemoveRedisItem[Customer](id)
	return customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	// cache hits must still be tenant-checked
	if cached, err := utils.RetrieveRedis[Customer](id); err == nil && cached != nil && cached.OrganizationId == organizationId {
		return cached, nil
	}

	customer, err := utils.FetchModel[Customer](ctx, organizationId, id, "Documents")
	if err != nil {
		return nil, err
	}
	_ = utils.StoreRedis[Customer](customer, id)
	return customer, nil
}

func GetCustomersAll(ctx context.Context, name *string, activeOnly bool) ([]*Customer, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	var results []*Customer

	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if activeOnly {
		dbCtx = dbCtx.Where("is_active = ?", true)
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// applyInvoiceIssued adds to the invoiced running total and stamps the
// last invoice date. MySQL evaluates SET clauses left to right, so the
// balance recompute sees the updated invoiced total; the whole rollup is
// one atomic statement.
func applyInvoiceIssued(tx *gorm.DB, ctx context.Context, organizationId string, customerId int, amount decimal.Decimal, issuedAt time.Time) error {
	res := tx.WithContext(ctx).Exec(
		`UPDATE customers
		 SET total_invoiced = total_invoiced + ?,
		     outstanding_balance = total_invoiced - total_paid,
		     last_invoice_date = ?
		 WHERE organization_id = ? AND id = ?`,
		amount, issuedAt, organizationId, customerId,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

// applyPayment adds to the paid running total. The balance may go
// negative on overpayment; that is customer credit, not an error.
func applyPayment(tx *gorm.DB, ctx context.Context, organizationId string, customerId int, amount decimal.Decimal) error {
	res := tx.WithContext(ctx).Exec(
		`UPDATE customers
		 SET total_paid = total_paid + ?,
		     outstanding_balance = total_invoiced - total_paid
		 WHERE organization_id = ? AND id = ?`,
		amount, organizationId, customerId,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
