package controllers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/gin-gonic/gin"
)

func UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "file is required")
		return
	}

	response, err := models.UploadDocumentFile(c.Request.Context(), fileHeader)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusCreated, response)
}

func UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "file is required")
		return
	}

	response, err := models.UploadImageFile(c.Request.Context(), fileHeader)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusCreated, response)
}

func RemoveFile(c *gin.Context) {
	fileUrl := c.Query("url")
	if fileUrl == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "url is required")
		return
	}

	response, err := models.RemoveFile(c.Request.Context(), fileUrl)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, response)
}
