package routes

import (
	"clinic-app-server/internal/config"
	"clinic-app-server/internal/handlers"
	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/notify"
	"clinic-app-server/internal/workflow"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, engine *workflow.Engine, store workflow.Store, hub *notify.Hub) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	patientHandler := handlers.NewPatientHandler(store)
	visitHandler := handlers.NewVisitHandler(engine, store)
	prescriptionHandler := handlers.NewPrescriptionHandler(engine, store)
	medicineHandler := handlers.NewMedicineHandler(store)
	paymentHandler := handlers.NewPaymentHandler(engine, store)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
		}

		// User management routes
		userRoutes := private.Group("/users")
		{
			// Doctor picker for the registration form - any authenticated user
			userRoutes.GET("/doctors", userHandler.GetDoctors)

			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		// Patient records
		patientRoutes := private.Group("/patients")
		{
			patientRoutes.GET("/me/history", middleware.RoleAuthMiddleware(models.RolePatient), patientHandler.GetMyHistory)

			staffRoutes := patientRoutes.Group("")
			staffRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleDoctor))
			{
				staffRoutes.GET("", patientHandler.GetPatients)
				staffRoutes.GET("/:id", patientHandler.GetPatientByID)
				staffRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), patientHandler.UpdatePatient)
			}
		}

		// Visit lifecycle
		visitRoutes := private.Group("/visits")
		{
			visitRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient, models.RoleAdmin), visitHandler.RegisterVisit)
			visitRoutes.GET("", visitHandler.GetVisits)
			visitRoutes.GET("/:id", visitHandler.GetVisitByID)
			visitRoutes.GET("/:id/actions", visitHandler.GetVisitActions)
			visitRoutes.POST("/:id/cancel", middleware.RoleAuthMiddleware(models.RolePatient, models.RoleAdmin), visitHandler.CancelVisit)

			// Examination - doctor only
			visitRoutes.POST("/:id/start", middleware.RoleAuthMiddleware(models.RoleDoctor), visitHandler.StartExamination)
			visitRoutes.POST("/:id/complete", middleware.RoleAuthMiddleware(models.RoleDoctor), visitHandler.CompleteExamination)

			// Pharmacy hand-over settles the visit and its payment together
			visitRoutes.POST("/:id/handover", middleware.RoleAuthMiddleware(models.RolePharmacist), prescriptionHandler.HandOver)

			// Billing
			visitRoutes.GET("/:id/total", middleware.RoleAuthMiddleware(models.RoleAdmin), paymentHandler.GetVisitTotal)
			visitRoutes.POST("/:id/pay", middleware.RoleAuthMiddleware(models.RoleAdmin), paymentHandler.FinalizePayment)
		}

		// Prescription routes
		prescriptionRoutes := private.Group("/prescriptions")
		{
			prescriptionRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleDoctor), prescriptionHandler.SubmitPrescription)
			prescriptionRoutes.GET("/pending", middleware.RoleAuthMiddleware(models.RolePharmacist), prescriptionHandler.GetPendingPrescriptions)
			prescriptionRoutes.GET("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RolePharmacist, models.RoleAdmin), prescriptionHandler.GetPrescriptionByID)
			prescriptionRoutes.POST("/:id/fulfill", middleware.RoleAuthMiddleware(models.RolePharmacist), prescriptionHandler.FulfillPrescription)
		}

		// Medicine stock
		medicineRoutes := private.Group("/medicines")
		{
			medicineRoutes.GET("", medicineHandler.GetMedicines)

			pharmacistRoutes := medicineRoutes.Group("")
			pharmacistRoutes.Use(middleware.RoleAuthMiddleware(models.RolePharmacist, models.RoleAdmin))
			{
				pharmacistRoutes.POST("", medicineHandler.CreateMedicine)
				pharmacistRoutes.PUT("/:id", medicineHandler.UpdateMedicine)
			}
		}

		// Payment routes
		paymentRoutes := private.Group("/payments")
		{
			paymentRoutes.GET("", middleware.RoleAuthMiddleware(models.RoleAdmin), paymentHandler.GetDayPayments)
			paymentRoutes.GET("/receipts", middleware.RoleAuthMiddleware(models.RolePatient), paymentHandler.GetMyReceipts)
		}

		// Reports
		private.GET("/reports/daily", middleware.RoleAuthMiddleware(models.RoleOwner, models.RoleAdmin), paymentHandler.GetDailyReport)

		// Change notification stream
		private.GET("/ws", func(c *gin.Context) {
			hub.HandleWS(c.Writer, c.Request)
		})
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
