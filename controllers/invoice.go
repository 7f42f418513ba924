package controllers

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func CreateInvoice(c *gin.Context) {
	var input models.NewInvoice
	if err := c.ShouldBindJSON(&input); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(ve)})
			return
		}
		utils.RespondWithError(c, http.StatusBadRequest, "invalid input: "+err.Error())
		return
	}

	invoice, err := models.CreateInvoice(c.Request.Context(), &input)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusCreated, invoice)
}

func GetInvoices(c *gin.Context) {
	var customerId *int
	if v := c.Query("customer_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid customer id")
			return
		}
		customerId = &id
	}
	var status *models.InvoiceStatus
	if v := c.Query("status"); v != "" {
		s := models.InvoiceStatus(v)
		if !s.Valid() {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid status")
			return
		}
		status = &s
	}
	var notes *string
	if v := c.Query("notes"); v != "" {
		notes = &v
	}
	var fromDate, toDate *time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "from must be formatted as 2006-01-02")
			return
		}
		fromDate = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "to must be formatted as 2006-01-02")
			return
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		toDate = &end
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	invoices, err := models.GetInvoices(c.Request.Context(), customerId, status, notes, fromDate, toDate, limit, offset)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, invoices)
}

func GetInvoice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid invoice id")
		return
	}

	invoice, err := models.GetInvoice(c.Request.Context(), id)
	if err != nil {
		utils.RespondWithError(c, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, invoice)
}

func UpdateInvoice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid invoice id")
		return
	}

	var input models.NewInvoice
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid input: "+err.Error())
		return
	}

	invoice, err := models.UpdateInvoice(c.Request.Context(), id, &input)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, invoice)
}

func DeleteInvoice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid invoice id")
		return
	}

	invoice, err := models.DeleteInvoice(c.Request.Context(), id)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, invoice)
}

func SendInvoice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid invoice id")
		return
	}

	invoice, err := models.SendInvoice(c.Request.Context(), id)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, invoice)
}

func RecordInvoicePayment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid invoice id")
		return
	}

	var input models.NewPayment
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid input: "+err.Error())
		return
	}

	invoice, err := models.RecordInvoicePayment(c.Request.Context(), id, &input)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, invoice)
}

func SendInvoiceReminder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid invoice id")
		return
	}

	reminder, err := models.SendInvoiceReminder(c.Request.Context(), id)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusCreated, reminder)
}

func GetPayments(c *gin.Context) {
	var invoiceId, customerId *int
	if v := c.Query("invoice_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid invoice id")
			return
		}
		invoiceId = &id
	}
	if v := c.Query("customer_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid customer id")
			return
		}
		customerId = &id
	}

	payments, err := models.GetPayments(c.Request.Context(), invoiceId, customerId)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, payments)
}
