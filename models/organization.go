package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Organization is the tenant boundary; every customer, invoice and user is
// scoped to one. TaxRate is a percentage default offered to clients when
// drafting invoices; the persisted invoice tax is always an absolute
// amount and is never derived from this rate server-side.
// FiscalYearStartMonth is informational for reporting clients; invoice
// numbering is always scoped to the calendar year.
type Organization struct {
	ID                   uuid.UUID       `gorm:"type:char(36);primary_key" json:"id"`
	Name                 string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Email                string          `gorm:"size:100" json:"email"`
	Phone                string          `gorm:"size:20" json:"phone"`
	Address              string          `gorm:"size:255" json:"address"`
	Timezone             string          `gorm:"size:50;default:'Asia/Yangon'" json:"timezone"`
	TaxRate              decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"tax_rate"`
	Currency             string          `gorm:"size:3;default:'MMK'" json:"currency"`
	FiscalYearStartMonth int             `gorm:"default:1" json:"fiscal_year_start_month"`
	IsActive             *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOrganization struct {
	Name                 string          `json:"name" binding:"required"`
	Email                string          `json:"email"`
	Phone                string          `json:"phone"`
	Address              string          `json:"address"`
	Timezone             string          `json:"timezone"`
	TaxRate              decimal.Decimal `json:"tax_rate"`
	Currency             string          `json:"currency"`
	FiscalYearStartMonth int             `json:"fiscal_year_start_month"`
}

func CreateOrganization(ctx context.Context, input *NewOrganization) (*Organization, error) {
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}
	if input.TaxRate.IsNegative() {
		return nil, errors.New("tax rate cannot be negative")
	}

	if input.FiscalYearStartMonth < 0 || input.FiscalYearStartMonth > 12 {
		return nil, errors.New("fiscal year start month must be between 1 and 12")
	}

	org := Organization{
		ID:                   uuid.New(),
		Name:                 input.Name,
		Email:                input.Email,
		Phone:                input.Phone,
		Address:              input.Address,
		Timezone:             input.Timezone,
		TaxRate:              input.TaxRate,
		Currency:             input.Currency,
		FiscalYearStartMonth: input.FiscalYearStartMonth,
		IsActive:             utils.NewTrue(),
	}
	if org.Timezone == "" {
		org.Timezone = "Asia/Yangon"
	}
	if org.Currency == "" {
		org.Currency = "MMK"
	}
	if org.FiscalYearStartMonth == 0 {
		org.FiscalYearStartMonth = 1
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// GetOrganizationById reads through the redis cache.
func GetOrganizationById(ctx context.Context, organizationId string) (*Organization, error) {
	var org Organization
	cacheKey := "Organization:" + organizationId
	exists, err := config.GetRedisObject(cacheKey, &org)
	if err != nil {
		return nil, err
	}
	if exists {
		return &org, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", organizationId).First(&org).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := config.SetRedisObject(cacheKey, &org, utils.GetCacheLifespan()); err != nil {
		return nil, err
	}
	return &org, nil
}

// GetOrganization resolves the tenant from context.
func GetOrganization(ctx context.Context) (*Organization, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	return GetOrganizationById(ctx, organizationId)
}

func UpdateOrganization(ctx context.Context, input *NewOrganization) (*Organization, error) {
	org, err := GetOrganization(ctx)
	if err != nil {
		return nil, err
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}
	if input.TaxRate.IsNegative() {
		return nil, errors.New("tax rate cannot be negative")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(org).
		Updates(map[string]interface{}{
			"Name":                 input.Name,
			"Email":                input.Email,
			"Phone":                input.Phone,
			"Address":              input.Address,
			"Timezone":             input.Timezone,
			"TaxRate":              input.TaxRate,
			"Currency":             input.Currency,
			"FiscalYearStartMonth": input.FiscalYearStartMonth,
		}).Error; err != nil {
		return nil, err
	}

	if err := config.RemoveRedisKey("Organization:" + org.ID.String()); err != nil {
		return nil, err
	}
	return org, nil
}
