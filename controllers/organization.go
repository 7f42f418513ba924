package controllers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func CreateOrganization(c *gin.Context) {
	var input models.NewOrganization
	if err := c.ShouldBindJSON(&input); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(ve)})
			return
		}
		utils.RespondWithError(c, http.StatusBadRequest, "invalid input: "+err.Error())
		return
	}

	org, err := models.CreateOrganization(c.Request.Context(), &input)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusCreated, org)
}

func GetOrganization(c *gin.Context) {
	org, err := models.GetOrganization(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, org)
}

func UpdateOrganization(c *gin.Context) {
	var input models.NewOrganization
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid input: "+err.Error())
		return
	}

	org, err := models.UpdateOrganization(c.Request.Context(), &input)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, org)
}
