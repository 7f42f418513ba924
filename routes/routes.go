package routes

import (
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/controllers"
	"bitbucket.org/mmdatafocus/invoicing_backend/middlewares"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	allowedOrigins := []string{"http://localhost:3000"}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		allowedOrigins = strings.Split(v, ",")
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Correlation-Id"},
		ExposeHeaders:    []string{"Content-Length", "X-Correlation-Id"},
		AllowCredentials: true,
	}))
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(middlewares.TracingMiddleware())

	// The server starts listening before its dependencies are connected;
	// gate app endpoints until they are ready.
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatusJSON(503, gin.H{"error": "service not ready"})
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)

		auth.Use(middlewares.AuthMiddleware())
		auth.GET("/me", controllers.Me)
		auth.POST("/logout", controllers.Logout)
		auth.PUT("/change-password", controllers.ChangePassword)
	}

	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware())
	{
		organization := api.Group("/organization")
		{
			organization.POST("", controllers.CreateOrganization)
			organization.GET("", controllers.GetOrganization)
			organization.PUT("", controllers.UpdateOrganization)
		}

		customers := api.Group("/customers")
		{
			customers.POST("", controllers.CreateCustomer)
			customers.GET("", controllers.GetCustomers)
			customers.GET("/:id", controllers.GetCustomer)
			customers.PUT("/:id", controllers.UpdateCustomer)
			customers.DELETE("/:id", controllers.DeleteCustomer)
			customers.PUT("/:id/active", controllers.ToggleActiveCustomer)
		}

		invoices := api.Group("/invoices")
		{
			invoices.POST("", controllers.CreateInvoice)
			invoices.GET("", controllers.GetInvoices)
			invoices.GET("/:id", controllers.GetInvoice)
			invoices.PUT("/:id", controllers.UpdateInvoice)
			invoices.DELETE("/:id", controllers.DeleteInvoice)
			invoices.POST("/:id/send", controllers.SendInvoice)
			invoices.POST("/:id/payments", controllers.RecordInvoicePayment)
			invoices.POST("/:id/reminders", controllers.SendInvoiceReminder)
		}

		api.GET("/payments", controllers.GetPayments)
		api.GET("/documents/:id", controllers.GetDocument)

		reports := api.Group("/reports")
		{
			reports.GET("/monthly-revenue", controllers.GetMonthlyRevenueReport)
			reports.GET("/customer-balances", controllers.GetCustomerBalancesReport)
			reports.GET("/overdue-invoices", controllers.GetOverdueInvoicesReport)
		}

		uploads := api.Group("/uploads")
		{
			uploads.POST("/documents", controllers.UploadDocument)
			uploads.POST("/images", controllers.UploadImage)
			uploads.DELETE("/files", controllers.RemoveFile)
		}
	}

	return r
}
