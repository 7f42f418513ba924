package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CorrelationMiddleware tags every request with a correlation id,
// propagated through the context into logs and outbox rows.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := c.GetHeader("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Correlation-Id", correlationId)
		c.Next()
	}
}

// AuthMiddleware validates the bearer token and scopes the request
// context to the token's organization.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondWithError(c, http.StatusUnauthorized, "authorization header is required")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := utils.JwtValidate(tokenString)
		if err != nil || !token.Valid {
			utils.RespondWithError(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		claims, ok := token.Claims.(*utils.JwtCustomClaim)
		if !ok {
			utils.RespondWithError(c, http.StatusUnauthorized, "invalid token claims")
			return
		}

		ctx := c.Request.Context()
		ctx = utils.SetTokenInContext(ctx, tokenString)
		ctx = utils.SetUserIdInContext(ctx, claims.ID)
		ctx = utils.SetOrganizationIdInContext(ctx, claims.OrganizationId)
		ctx = utils.SetUserNameInContext(ctx, claims.Username)
		ctx = utils.SetIsAdminInContext(ctx, claims.Role == "admin")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
