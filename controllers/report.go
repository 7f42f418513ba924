package controllers

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"bitbucket.org/mmdatafocus/invoicing_backend/models/reports"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/gin-gonic/gin"
)

const excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func parseDateRange(c *gin.Context) (models.DateString, models.DateString, bool) {
	var from, to models.DateString

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "from and to dates are required")
		return from, to, false
	}
	fromTime, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "from must be formatted as 2006-01-02")
		return from, to, false
	}
	toTime, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "to must be formatted as 2006-01-02")
		return from, to, false
	}
	return models.DateString(fromTime), models.DateString(toTime), true
}

func GetMonthlyRevenueReport(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	var customerId *int
	if v := c.Query("customer_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid customer id")
			return
		}
		customerId = &id
	}

	records, err := reports.GetMonthlyRevenueReport(c.Request.Context(), customerId, from, to)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if c.Query("format") == "xlsx" {
		rows := make([]reports.ExcelExporter, len(records))
		for i, r := range records {
			rows[i] = *r
		}
		c.Header("Content-Type", excelContentType)
		c.Header("Content-Disposition", "attachment; filename=monthly_revenue.xlsx")
		if err := reports.WriteExcel(c.Writer,
			[]string{"Month", "Invoice Count", "Total Billed", "Total Paid", "Outstanding"}, rows); err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}
	utils.RespondWithData(c, http.StatusOK, records)
}

func GetCustomerBalancesReport(c *gin.Context) {
	withBalanceOnly := c.Query("with_balance_only") == "true"

	records, err := reports.GetCustomerBalancesReport(c.Request.Context(), withBalanceOnly)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if c.Query("format") == "xlsx" {
		rows := make([]reports.ExcelExporter, len(records))
		for i, r := range records {
			rows[i] = *r
		}
		c.Header("Content-Type", excelContentType)
		c.Header("Content-Disposition", "attachment; filename=customer_balances.xlsx")
		if err := reports.WriteExcel(c.Writer,
			[]string{"Customer", "Total Invoiced", "Total Paid", "Outstanding Balance", "Open Invoices"}, rows); err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}
	utils.RespondWithData(c, http.StatusOK, records)
}

func GetOverdueInvoicesReport(c *gin.Context) {
	records, err := reports.GetOverdueInvoicesReport(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if c.Query("format") == "xlsx" {
		rows := make([]reports.ExcelExporter, len(records))
		for i, r := range records {
			rows[i] = *r
		}
		c.Header("Content-Type", excelContentType)
		c.Header("Content-Disposition", "attachment; filename=overdue_invoices.xlsx")
		if err := reports.WriteExcel(c.Writer,
			[]string{"Invoice Number", "Customer", "Due Date", "Days Overdue", "Total", "Paid", "Balance", "Reminders"}, rows); err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}
	utils.RespondWithData(c, http.StatusOK, records)
}
