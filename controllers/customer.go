package controllers

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func CreateCustomer(c *gin.Context) {
	var input models.NewCustomer
	if err := c.ShouldBindJSON(&input); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(ve)})
			return
		}
		utils.RespondWithError(c, http.StatusBadRequest, "invalid input: "+err.Error())
		return
	}

	customer, err := models.CreateCustomer(c.Request.Context(), &input)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusCreated, customer)
}

func GetCustomers(c *gin.Context) {
	var name *string
	if v := c.Query("name"); v != "" {
		name = &v
	}
	activeOnly := c.Query("active_only") == "true"

	customers, err := models.GetCustomersAll(c.Request.Context(), name, activeOnly)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, customers)
}

func GetCustomer(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid customer id")
		return
	}

	customer, err := models.GetCustomer(c.Request.Context(), id)
	if err != nil {
		utils.RespondWithError(c, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, customer)
}

func UpdateCustomer(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid customer id")
		return
	}

	var input models.NewCustomer
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid input: "+err.Error())
		return
	}

	customer, err := models.UpdateCustomer(c.Request.Context(), id, &input)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, customer)
}

func DeleteCustomer(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid customer id")
		return
	}

	customer, err := models.DeleteCustomer(c.Request.Context(), id)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, customer)
}

func ToggleActiveCustomer(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid customer id")
		return
	}
	isActive := c.Query("is_active") == "true"

	customer, err := models.ToggleActiveCustomer(c.Request.Context(), id, isActive)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, customer)
}
