package reports

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/shopspring/decimal"
)

type CustomerBalanceResponse struct {
	CustomerId         int             `json:"CustomerId"`
	CustomerName       string          `json:"CustomerName"`
	TotalInvoiced      decimal.Decimal `json:"TotalInvoiced"`
	TotalPaid          decimal.Decimal `json:"TotalPaid"`
	OutstandingBalance decimal.Decimal `json:"OutstandingBalance"`
	OpenInvoiceCount   int             `json:"OpenInvoiceCount"`
}

// GetCustomerBalancesReport lists each customer's rollup alongside a live
// count of open invoices. The rollup columns come straight from the
// customers table; the count is the cross-check against invoice state.
func GetCustomerBalancesReport(ctx context.Context, withBalanceOnly bool) ([]*CustomerBalanceResponse, error) {

	sqlT := `
SELECT
    customers.id AS customer_id,
    customers.name AS customer_name,
    customers.total_invoiced,
    customers.total_paid,
    customers.outstanding_balance,
    COALESCE(open_invoices.open_count, 0) AS open_invoice_count
FROM
    customers
        LEFT JOIN
    (SELECT
        customer_id, COUNT(id) AS open_count
    FROM
        invoices
    WHERE
        organization_id = @organizationId AND status = 'sent'
    GROUP BY customer_id) AS open_invoices ON open_invoices.customer_id = customers.id
WHERE
    customers.organization_id = @organizationId
    {{- if .withBalanceOnly }} AND customers.outstanding_balance <> 0 {{- end }}
ORDER BY customers.outstanding_balance DESC;
`

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	sql, err := utils.ExecTemplate(sqlT, map[string]interface{}{
		"withBalanceOnly": withBalanceOnly,
	})
	if err != nil {
		return nil, err
	}

	var records []*CustomerBalanceResponse
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"organizationId": organizationId,
	}).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r CustomerBalanceResponse) GetCellValues() []interface{} {
	return []interface{}{
		r.CustomerName,
		r.TotalInvoiced,
		r.TotalPaid,
		r.OutstandingBalance,
		r.OpenInvoiceCount,
	}
}
