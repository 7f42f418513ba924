package models

import (
	"context"
	"errors"
	"html"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;size:36" json:"organization_id"`
	Username       string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name           string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email          *string   `gorm:"size:100;unique" json:"email"`
	Phone          string    `gorm:"size:20" json:"phone"`
	ImageUrl       string    `json:"image_url"`
	Password       string    `gorm:"size:255;not null" json:"password"`
	IsActive       *bool     `gorm:"not null" json:"is_active"`
	Role           string    `gorm:"size:20;default:'staff'" json:"role"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	OrganizationId string `json:"organization_id"`
	Username       string `json:"username" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	ImageUrl       string `json:"image_url"`
	Password       string `json:"password" binding:"required"`
	Role           string `json:"role"`
}

type LoginInfo struct {
	Token            string `json:"token"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	OrganizationName string `json:"organization_name"`
	Currency         string `json:"currency"`
	Timezone         string `json:"timezone"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	db := config.GetDB()
	var count int64

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email address")
	}

	err := db.WithContext(ctx).Model(&User{}).
		Where("username = ?", input.Username).Or("email = ?", input.Email).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("duplicate username or email")
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	input.Email = strings.ToLower(input.Email)

	role := input.Role
	if role == "" {
		role = "staff"
	}
	user := User{
		OrganizationId: input.OrganizationId,
		Username:       html.EscapeString(strings.TrimSpace(input.Username)),
		Name:           input.Name,
		Email:          utils.NilIfEmpty(input.Email),
		Phone:          input.Phone,
		ImageUrl:       input.ImageUrl,
		Password:       string(hashedPassword),
		IsActive:       utils.NewTrue(),
		Role:           role,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}

// Login verifies the credentials and hands back a signed JWT carrying the
// user's organization scope. The token is also tracked in redis so
// password changes can revoke outstanding sessions.
func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {
	db := config.GetDB()
	var result LoginInfo

	user := User{}
	if err := db.WithContext(ctx).Model(&User{}).
		Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, errors.New("invalid username or password")
	}

	if err := utils.ComparePassword(user.Password, password); err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return nil, errors.New("invalid username or password")
		}
		return nil, err
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, errors.New("user is disabled")
	}

	token, err := utils.JwtGenerate(user.ID, user.OrganizationId, user.Role, user.Username)
	if err != nil {
		return nil, err
	}

	result.Token = token
	result.Name = user.Username
	result.Role = user.Role

	if user.OrganizationId != "" {
		org, err := GetOrganizationById(ctx, user.OrganizationId)
		if err != nil {
			return nil, err
		}
		result.OrganizationName = org.Name
		result.Currency = org.Currency
		result.Timezone = org.Timezone
	}

	tokenLifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil {
		tokenLifespan = 24
	}
	if err := config.AddRedisSet("Tokens:"+user.Username, token); err != nil {
		return nil, err
	}
	if err := config.SetRedisValue("Token:"+token, user.Username, time.Duration(tokenLifespan)*time.Hour); err != nil {
		return nil, err
	}

	return &result, nil
}

// Logout revokes the current session token.
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	if err := config.RemoveRedisKey("Token:" + token); err != nil {
		return false, err
	}
	username, ok := utils.GetUserNameFromContext(ctx)
	if !ok || username == "" {
		return false, errors.New("user not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+username, token); err != nil {
		return false, err
	}
	return true, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	db := config.GetDB()
	var result User

	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	result.PrepareGive()
	return &result, nil
}

func GetAllUsers(ctx context.Context) ([]*User, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	var results []*User
	if err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Find(&results).Error; err != nil {
		return nil, err
	}
	for _, u := range results {
		u.PrepareGive()
	}
	return results, nil
}

func (user *User) DestroyAllSessions(ctx context.Context) error {
	allTokens, err := config.GetRedisSetMembers("Tokens:" + user.Username)
	if err != nil {
		return err
	}
	for _, token := range allTokens {
		if err := config.RemoveRedisKey("Token:" + token); err != nil {
			return err
		}
	}
	return config.RemoveRedisKey("Tokens:" + user.Username)
}

func ChangePassword(ctx context.Context, oldPassword string, newPassword string) (*User, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, errors.New("user id is required")
	}

	var user User
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&user, userId).Error; err != nil {
		return nil, err
	}
	if err := utils.ComparePassword(user.Password, oldPassword); err != nil {
		return nil, errors.New("old password is wrong")
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&user).
		UpdateColumn("password", string(hashedPassword)).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	// revoke every outstanding session
	if err := user.DestroyAllSessions(ctx); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	user.PrepareGive()
	return &user, nil
}
