package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/oes-platform/exam-service/internal/services"
	"github.com/oes-platform/exam-service/internal/utils"
)

type HandlerManager struct {
	authHandler      *AuthHandler
	examHandler      *ExamHandler
	attemptHandler   *AttemptHandler
	resultHandler    *ResultHandler
	dashboardHandler *DashboardHandler
	userHandler      *UserHandler
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		authHandler:      NewAuthHandler(serviceManager.Auth(), logger),
		examHandler:      NewExamHandler(serviceManager.Exam(), logger),
		attemptHandler:   NewAttemptHandler(serviceManager.Attempt(), logger),
		resultHandler:    NewResultHandler(serviceManager.Result(), logger),
		dashboardHandler: NewDashboardHandler(serviceManager.Dashboard(), logger),
		userHandler:      NewUserHandler(serviceManager.User(), logger),
	}
}

// IdentityMiddleware lifts the authenticated user id from the gateway
// header into the request context. Token verification happens upstream;
// this service trusts the header it is handed.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.Use(IdentityMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "exam-service",
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", hm.authHandler.SignUp)
			auth.POST("/login", hm.authHandler.Login)
			auth.POST("/forgot-password", hm.authHandler.ForgotPassword)
			auth.POST("/change-password", hm.authHandler.ChangePassword)
		}

		// Exam catalog and question management
		exams := v1.Group("/exams")
		{
			exams.POST("", hm.examHandler.CreateExam)
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.PUT("/:id", hm.examHandler.UpdateExam)
			exams.PUT("/:id/active", hm.examHandler.SetExamActive)

			exams.GET("/:id/questions", hm.examHandler.ListQuestions)
			exams.POST("/:id/questions", hm.examHandler.AddQuestion)
			exams.DELETE("/:id/questions/:question_id", hm.examHandler.DeleteQuestion)
			exams.POST("/:id/recount", hm.examHandler.RecountQuestions)

			exams.GET("/:id/analytics", hm.dashboardHandler.GetExamAnalytics)
			exams.GET("/:id/export", hm.dashboardHandler.ExportExamResults)
		}

		// Attempt lifecycle
		attempt := v1.Group("/attempt")
		{
			attempt.POST("/select", hm.attemptHandler.SelectExam)
			attempt.POST("/start", hm.attemptHandler.StartAttempt)
			attempt.POST("/answer", hm.attemptHandler.SaveAnswer)
			attempt.GET("/progress", hm.attemptHandler.GetProgress)
			attempt.POST("/submit", hm.attemptHandler.SubmitAttempt)
			attempt.DELETE("", hm.attemptHandler.AbandonAttempt)
		}

		// Results
		results := v1.Group("/results")
		{
			results.GET("", hm.resultHandler.ListResults)
			results.GET("/:attempt_id", hm.resultHandler.GetResult)
		}

		// Dashboard
		dashboard := v1.Group("/dashboard")
		{
			dashboard.GET("/leaderboard", hm.dashboardHandler.GetLeaderboard)
			dashboard.GET("/overview", hm.dashboardHandler.GetOverview)
			dashboard.GET("/history/:student_id", hm.dashboardHandler.GetStudentHistory)
		}

		// User management
		users := v1.Group("/users")
		{
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/:id", hm.userHandler.GetUser)
			users.PUT("/:id", hm.userHandler.UpdateUser)
		}
	}
}
