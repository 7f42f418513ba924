package controllers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordInput struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func Register(c *gin.Context) {
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(ve)})
			return
		}
		utils.RespondWithError(c, http.StatusBadRequest, "invalid input: "+err.Error())
		return
	}

	user, err := models.CreateUser(c.Request.Context(), &input)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusCreated, user)
}

func Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "username and password are required")
		return
	}

	info, err := models.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, info)
}

func Logout(c *gin.Context) {
	ok, err := models.Logout(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, gin.H{"logged_out": ok})
}

func ChangePassword(c *gin.Context) {
	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "old and new passwords are required")
		return
	}

	user, err := models.ChangePassword(c.Request.Context(), input.OldPassword, input.NewPassword)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, user)
}

func Me(c *gin.Context) {
	userId, ok := utils.GetUserIdFromContext(c.Request.Context())
	if !ok || userId == 0 {
		utils.RespondWithError(c, http.StatusUnauthorized, "user id not found in context")
		return
	}
	user, err := models.GetUser(c.Request.Context(), userId)
	if err != nil {
		utils.RespondWithError(c, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondWithData(c, http.StatusOK, user)
}
