package reports

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/shopspring/decimal"
)

type MonthlyRevenueResponse struct {
	Month        string          `json:"Month"`
	InvoiceCount int             `json:"InvoiceCount"`
	TotalBilled  decimal.Decimal `json:"TotalBilled"`
	TotalPaid    decimal.Decimal `json:"TotalPaid"`
	Outstanding  decimal.Decimal `json:"Outstanding"`
}

// GetMonthlyRevenueReport aggregates billed and collected amounts per
// calendar month over the requested range. Draft invoices are excluded:
// they are not yet receivables.
func GetMonthlyRevenueReport(ctx context.Context, customerId *int, fromDate models.DateString, toDate models.DateString) ([]*MonthlyRevenueResponse, error) {

	sqlT := `
SELECT
    DATE_FORMAT(issue_date, '%Y-%m') AS month,
    COUNT(id) AS invoice_count,
    SUM(total) AS total_billed,
    SUM(paid_amount) AS total_paid,
    SUM(total - paid_amount) AS outstanding
FROM
    invoices
WHERE
    organization_id = @organizationId
        AND status <> 'draft'
        AND issue_date BETWEEN @fromDate AND @toDate
        {{- if .customerId }} AND customer_id = @customerId {{- end }}
GROUP BY DATE_FORMAT(issue_date, '%Y-%m')
ORDER BY month;
`

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	org, err := models.GetOrganization(ctx)
	if err != nil {
		return nil, err
	}
	if err := fromDate.StartOfDayUTCTime(org.Timezone); err != nil {
		return nil, err
	}
	if err := toDate.EndOfDayUTCTime(org.Timezone); err != nil {
		return nil, err
	}

	if customerId != nil && *customerId != 0 {
		if err := utils.ValidateResourceId[models.Customer](ctx, organizationId, customerId); err != nil {
			return nil, errors.New("customer not found")
		}
	}

	// generating sql from template
	sql, err := utils.ExecTemplate(sqlT, map[string]interface{}{
		"customerId": utils.DereferencePtr(customerId),
	})
	if err != nil {
		return nil, err
	}

	var records []*MonthlyRevenueResponse
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"organizationId": organizationId,
		"fromDate":       fromDate,
		"toDate":         toDate,
		"customerId":     customerId,
	}).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r MonthlyRevenueResponse) GetCellValues() []interface{} {
	return []interface{}{
		r.Month,
		r.InvoiceCount,
		r.TotalBilled,
		r.TotalPaid,
		r.Outstanding,
	}
}
