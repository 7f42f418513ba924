package controllers

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/gin-gonic/gin"
)

func GetDocument(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid document id")
		return
	}

	document, err := models.GetDocument(c.Request.Context(), id)
	if err != nil {
		utils.RespondWithError(c, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, document)
}
