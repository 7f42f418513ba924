package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

type Invoice struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"size:36;not null;index;uniqueIndex:uq_org_invoice_number,priority:1" json:"organization_id"`
	CustomerId     int       `gorm:"index;not null" json:"customer_id" binding:"required"`
	Customer       *Customer `gorm:"foreignKey:CustomerId" json:"customer"`
	// InvoiceNumber is assigned once at creation from the atomic sequence
	// and never reassigned, even when the rest of the document changes.
	InvoiceNumber string          `gorm:"size:20;not null;uniqueIndex:uq_org_invoice_number,priority:2" json:"invoice_number"`
	IssueDate     time.Time       `gorm:"index;not null" json:"issue_date"`
	DueDate       time.Time       `gorm:"index;not null" json:"due_date"`
	Notes         string          `gorm:"type:text" json:"notes"`
	Tax           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax"`
	Discount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	SubTotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sub_total"`
	Total         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	Status        InvoiceStatus   `gorm:"type:enum('draft','sent','paid','overdue');default:'draft';index" json:"status"`
	SentAt        *time.Time      `json:"sent_at"`
	PaidAt        *time.Time      `json:"paid_at"`
	Items         []InvoiceItem   `gorm:"foreignKey:InvoiceId" json:"items"`
	Payments      []Payment       `gorm:"foreignKey:InvoiceId" json:"payments"`
	Reminders     []Reminder      `gorm:"foreignKey:InvoiceId" json:"reminders"`
	Documents     []*Document     `gorm:"polymorphic:Reference" json:"documents"`
	// Result variants surfaced to the caller, never persisted.
	TotalsClamped    bool              `gorm:"-" json:"totals_clamped,omitempty"`
	NumberingAnomaly *NumberingAnomaly `gorm:"-" json:"numbering_anomaly,omitempty"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// InvoiceItem amounts are caller-supplied; the persistence layer does not
// enforce amount == pageQty x rate (that consistency lives in the client).
type InvoiceItem struct {
	ID            int             `gorm:"primary_key" json:"id"`
	InvoiceId     int             `gorm:"index;not null" json:"invoice_id"`
	Description   string          `gorm:"size:255" json:"description"`
	PageQty       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"page_qty"`
	ServiceCharge decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"service_charge"`
	Rate          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
}

type NewInvoiceItem struct {
	Description   string          `json:"description"`
	PageQty       decimal.Decimal `json:"page_qty"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	Rate          decimal.Decimal `json:"rate"`
	Amount        decimal.Decimal `json:"amount"`
}

type NewInvoice struct {
	CustomerId int               `json:"customer_id" binding:"required"`
	IssueDate  time.Time         `json:"issue_date" binding:"required"`
	DueDate    time.Time         `json:"due_date" binding:"required"`
	Notes      string            `json:"notes"`
	Tax        decimal.Decimal   `json:"tax"`
	Discount   decimal.Decimal   `json:"discount"`
	Items      []*NewInvoiceItem `json:"items"`
	Documents  []*NewDocument    `json:"documents"`
}

type NewPayment struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate time.Time       `json:"payment_date"`
	PaymentMode PaymentMode     `json:"payment_mode"`
	Reference   string          `json:"reference"`
	Notes       string          `json:"notes"`
}

func (input *NewInvoice) validate(ctx context.Context, organizationId string) error {
	if err := utils.ValidateResourceId[Customer](ctx, organizationId, input.CustomerId); err != nil {
		return errors.New("customer not found")
	}
	if input.Tax.IsNegative() {
		return errors.New("tax cannot be negative")
	}
	if input.Discount.IsNegative() {
		return errors.New("discount cannot be negative")
	}
	if input.DueDate.Before(input.IssueDate) {
		return errors.New("due date cannot be before issue date")
	}
	for _, item := range input.Items {
		if item.Amount.IsNegative() {
			return errors.New("item amount cannot be negative")
		}
		if item.PageQty.IsNegative() || item.Rate.IsNegative() || item.ServiceCharge.IsNegative() {
			return errors.New("item quantities and rates cannot be negative")
		}
	}
	return nil
}

func (input *NewInvoice) mapItems() []InvoiceItem {
	items := make([]InvoiceItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, InvoiceItem{
			Description:   item.Description,
			PageQty:       item.PageQty,
			ServiceCharge: item.ServiceCharge,
			Rate:          item.Rate,
			Amount:        item.Amount,
		})
	}
	return items
}

// numberingYear resolves the sequence's calendar year per configuration:
// wall clock at creation time (legacy default) or the caller-supplied
// issue date.
func numberingYear(issueDate time.Time) int {
	if config.GetNumberingYearSource() == config.NumberingYearFromIssueDate {
		return issueDate.Year()
	}
	return time.Now().UTC().Year()
}

// CreateInvoice persists a new draft with its assigned number and computed
// totals in one transaction. The number comes from the atomic per
// (organization, year) sequence, so concurrent creations cannot collide.
func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId); err != nil {
		return nil, err
	}

	items := input.mapItems()
	totals := CalculateInvoiceTotals(items, input.Tax, input.Discount)

	tx := db.Begin()
	// Always rollback on early-return or panic to avoid leaking DB locks.
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	year := numberingYear(input.IssueDate)
	seq, anomaly, err := NextInvoiceSequence(tx, ctx, organizationId, year)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	invoice := Invoice{
		OrganizationId: organizationId,
		CustomerId:     input.CustomerId,
		InvoiceNumber:  FormatInvoiceNumber(year, seq),
		IssueDate:      input.IssueDate,
		DueDate:        input.DueDate,
		Notes:          input.Notes,
		Tax:            input.Tax,
		Discount:       input.Discount,
		SubTotal:       totals.SubTotal,
		Total:          totals.Total,
		PaidAmount:     decimal.Zero,
		Status:         InvoiceStatusDraft,
		Items:          items,
	}
	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	documents, err := upsertDocuments(ctx, tx, input.Documents, "invoices", invoice.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	invoice.Documents = documents

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	invoice.TotalsClamped = totals.Clamped
	invoice.NumberingAnomaly = anomaly
	return &invoice, nil
}

// UpdateInvoice re-persists the document with recomputed totals. The
// invoice number is never reassigned; paid invoices are immutable.
func UpdateInvoice(ctx context.Context, id int, input *NewInvoice) (*Invoice, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId); err != nil {
		return nil, err
	}

	invoice, err := utils.FetchModel[Invoice](ctx, organizationId, id, "Items")
	if err != nil {
		return nil, err
	}
	if invoice.Status == InvoiceStatusPaid {
		return nil, errors.New("paid invoices cannot be modified")
	}

	items := input.mapItems()
	totals := CalculateInvoiceTotals(items, input.Tax, input.Discount)

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	// replace line items wholesale
	if err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoice.ID).
		Delete(&InvoiceItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for i := range items {
		items[i].InvoiceId = invoice.ID
	}
	if len(items) > 0 {
		if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.WithContext(ctx).Model(invoice).
		Updates(map[string]interface{}{
			"CustomerId": input.CustomerId,
			"IssueDate":  input.IssueDate,
			"DueDate":    input.DueDate,
			"Notes":      input.Notes,
			"Tax":        input.Tax,
			"Discount":   input.Discount,
			"SubTotal":   totals.SubTotal,
			"Total":      totals.Total,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	documents, err := upsertDocuments(ctx, tx, input.Documents, "invoices", invoice.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	invoice.Items = items
	invoice.Documents = documents
	invoice.SubTotal = totals.SubTotal
	invoice.Total = totals.Total
	invoice.TotalsClamped = totals.Clamped
	return invoice, nil
}

// SendInvoice transitions draft -> sent and applies the customer rollup
// (invoiced total, last invoice date) in the same transaction, alongside
// the notification outbox row. Coupling the transition and the rollup in
// one domain operation is what keeps customer totals from drifting.
func SendInvoice(ctx context.Context, id int) (*Invoice, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	now := time.Now().UTC()

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	// Lock the row so concurrent sends serialize: the loser observes the
	// committed "sent" status and is rejected instead of applying the
	// invoiced rollup a second time.
	var invoice Invoice
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").Preload("Customer").
		Where("organization_id = ?", organizationId).
		First(&invoice, id).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if invoice.Status != InvoiceStatusDraft {
		tx.Rollback()
		return nil, errors.New("only draft invoices can be sent")
	}

	if err := tx.WithContext(ctx).Model(&invoice).
		Updates(map[string]interface{}{
			"Status": InvoiceStatusSent,
			"SentAt": &now,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := applyInvoiceIssued(tx, ctx, organizationId, invoice.CustomerId, invoice.Total, invoice.IssueDate); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := WriteOutbox(tx, ctx, organizationId, NotificationReferenceTypeInvoice, invoice.ID, NotificationActionInvoiceSent, &invoice); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[Customer](invoice.CustomerId)

	invoice.Status = InvoiceStatusSent
	invoice.SentAt = &now
	return &invoice, nil
}

// RecordInvoicePayment appends a payment, advances the invoice's paid
// amount (transitioning to paid when fully covered) and applies the
// customer rollup, all in one transaction. The rollup never clamps:
// overpayment leaves the customer with a negative outstanding balance.
func RecordInvoicePayment(ctx context.Context, id int, input *NewPayment) (*Invoice, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if !input.Amount.IsPositive() {
		return nil, errors.New("payment amount must be positive")
	}
	if input.PaymentMode != "" && !input.PaymentMode.Valid() {
		return nil, errors.New("invalid payment mode")
	}

	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now().UTC()
	}
	paymentMode := input.PaymentMode
	if paymentMode == "" {
		paymentMode = PaymentModeOther
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	// Lock the row so concurrent payments serialize: each one reads the
	// paid amount the previous writer committed, keeping paid_amount equal
	// to the sum of recorded payments.
	var invoice Invoice
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ?", organizationId).
		First(&invoice, id).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if invoice.Status == InvoiceStatusDraft {
		tx.Rollback()
		return nil, errors.New("draft invoices cannot receive payments")
	}

	payment := Payment{
		OrganizationId: organizationId,
		InvoiceId:      invoice.ID,
		CustomerId:     invoice.CustomerId,
		Amount:         input.Amount,
		PaymentDate:    paymentDate,
		PaymentMode:    paymentMode,
		Reference:      input.Reference,
		Notes:          input.Notes,
		RecordedBy:     userId,
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	newPaid := invoice.PaidAmount.Add(input.Amount)
	updates := map[string]interface{}{
		"PaidAmount": newPaid,
	}
	var paidAt *time.Time
	if newPaid.GreaterThanOrEqual(invoice.Total) {
		now := time.Now().UTC()
		paidAt = &now
		updates["Status"] = InvoiceStatusPaid
		updates["PaidAt"] = paidAt
	}
	if err := tx.WithContext(ctx).Model(&invoice).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := applyPayment(tx, ctx, organizationId, invoice.CustomerId, input.Amount); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := WriteOutbox(tx, ctx, organizationId, NotificationReferenceTypePayment, payment.ID, NotificationActionPaymentRecorded, payment); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[Customer](invoice.CustomerId)

	invoice.PaidAmount = newPaid
	if paidAt != nil {
		invoice.Status = InvoiceStatusPaid
		invoice.PaidAt = paidAt
	}
	invoice.Payments = append(invoice.Payments, payment)
	return &invoice, nil
}

// DeleteInvoice removes a draft. Sent and paid invoices are part of the
// customer's financial history and cannot be deleted.
func DeleteInvoice(ctx context.Context, id int) (*Invoice, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, organizationId, id, "Documents")
	if err != nil {
		return nil, err
	}
	if invoice.Status != InvoiceStatusDraft {
		return nil, errors.New("only draft invoices can be deleted")
	}

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoice.ID).
		Delete(&InvoiceItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := deleteDocuments(ctx, tx, invoice.Documents); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(invoice).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, organizationId, id, "Items", "Customer", "Payments", "Reminders", "Documents")
	if err != nil {
		return nil, err
	}
	invoice.Status = EffectiveStatus(invoice.Status, invoice.DueDate, time.Now().UTC())
	return invoice, nil
}

func GetInvoices(ctx context.Context, customerId *int, status *InvoiceStatus, notes *string, fromDate *time.Time, toDate *time.Time, limit int, offset int) ([]*Invoice, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	var results []*Invoice

	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId)
	if customerId != nil && *customerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", *customerId)
	}
	if notes != nil && len(*notes) > 0 {
		dbCtx = dbCtx.Where("notes LIKE ?", "%"+*notes+"%")
	}
	if fromDate != nil {
		dbCtx = dbCtx.Where("issue_date >= ?", *fromDate)
	}
	if toDate != nil {
		dbCtx = dbCtx.Where("issue_date <= ?", *toDate)
	}

	now := time.Now().UTC()
	if status != nil {
		// overdue is derived, not stored; translate the filter so the four
		// views partition: any unpaid past-due row lists as overdue only
		switch *status {
		case InvoiceStatusOverdue:
			dbCtx = dbCtx.Where("status <> ? AND due_date < ?", InvoiceStatusPaid, now)
		case InvoiceStatusDraft, InvoiceStatusSent:
			dbCtx = dbCtx.Where("status = ? AND due_date >= ?", *status, now)
		default:
			dbCtx = dbCtx.Where("status = ?", *status)
		}
	}

	if limit > 0 {
		dbCtx = dbCtx.Limit(limit).Offset(offset)
	}

	if err := dbCtx.Preload("Items").Preload("Customer").
		Order("issue_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	for _, invoice := range results {
		invoice.Status = EffectiveStatus(invoice.Status, invoice.DueDate, now)
	}
	return results, nil
}
