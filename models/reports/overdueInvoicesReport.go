package reports

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/shopspring/decimal"
)

type OverdueInvoiceResponse struct {
	InvoiceId     int             `json:"InvoiceId"`
	InvoiceNumber string          `json:"InvoiceNumber"`
	CustomerName  string          `json:"CustomerName"`
	DueDate       time.Time       `json:"DueDate"`
	DaysOverdue   int             `json:"DaysOverdue"`
	Total         decimal.Decimal `json:"Total"`
	PaidAmount    decimal.Decimal `json:"PaidAmount"`
	Balance       decimal.Decimal `json:"Balance"`
	ReminderCount int             `json:"ReminderCount"`
}

// GetOverdueInvoicesReport lists unpaid sent invoices past their due
// date, oldest first. Overdue is derived at query time, mirroring how the
// read path classifies invoices.
func GetOverdueInvoicesReport(ctx context.Context) ([]*OverdueInvoiceResponse, error) {

	sql := `
SELECT
    invoices.id AS invoice_id,
    invoices.invoice_number,
    customers.name AS customer_name,
    invoices.due_date,
    DATEDIFF(@now, invoices.due_date) AS days_overdue,
    invoices.total,
    invoices.paid_amount,
    invoices.total - invoices.paid_amount AS balance,
    COALESCE(reminder_counts.reminder_count, 0) AS reminder_count
FROM
    invoices
        LEFT JOIN
    customers ON customers.id = invoices.customer_id
        LEFT JOIN
    (SELECT
        invoice_id, COUNT(id) AS reminder_count
    FROM
        reminders
    WHERE
        organization_id = @organizationId
    GROUP BY invoice_id) AS reminder_counts ON reminder_counts.invoice_id = invoices.id
WHERE
    invoices.organization_id = @organizationId
        AND invoices.status = 'sent'
        AND invoices.due_date < @now
ORDER BY invoices.due_date;
`

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	var records []*OverdueInvoiceResponse
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"organizationId": organizationId,
		"now":            time.Now().UTC(),
	}).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r OverdueInvoiceResponse) GetCellValues() []interface{} {
	return []interface{}{
		r.InvoiceNumber,
		r.CustomerName,
		r.DueDate.Format("2006-01-02"),
		r.DaysOverdue,
		r.Total,
		r.PaidAmount,
		r.Balance,
		r.ReminderCount,
	}
}
