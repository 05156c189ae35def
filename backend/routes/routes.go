package routes

import (
	"log"

	"quizhub/backend/cache"
	"quizhub/backend/config"
	"quizhub/backend/controllers"
	"quizhub/backend/events"
	"quizhub/backend/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, c *cache.Cache, publisher *events.EventPublisher, logger *log.Logger) {
	// Auth routes
	authController := controllers.NewAuthController(db, cfg, publisher, logger)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)
	app.Post("/api/auth/reset-request", authController.RequestPasswordReset)
	app.Post("/api/auth/reset-confirm", authController.ConfirmPasswordReset)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(db, cfg)

	// User routes
	usersController := controllers.NewUsersController(db, cfg)
	app.Get("/api/user/profile", authMiddleware, usersController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, usersController.UpdateProfile)

	// Quiz routes
	quizzesController := controllers.NewQuizzesController(db, cfg, publisher, logger)
	quizzes := app.Group("/api/quizzes", authMiddleware)
	quizzes.Get("/", quizzesController.ListQuizzes)
	quizzes.Get("/:id", quizzesController.GetQuizDetails)
	quizzes.Post("/:id/share", quizzesController.ShareQuiz)

	// Shared quizzes resolve without auth
	app.Get("/api/shared/:code", quizzesController.GetSharedQuiz)

	// Attempt routes
	attemptsController := controllers.NewAttemptsController(db, cfg, publisher, logger)
	quizzes.Post("/:id/attempts", attemptsController.SubmitAttempt)
	app.Get("/api/attempts", authMiddleware, attemptsController.GetMyAttempts)
	app.Get("/api/attempts/:id", authMiddleware, attemptsController.GetAttemptResult)

	// Favorites
	favoritesController := controllers.NewFavoritesController(db, cfg)
	quizzes.Post("/:id/favorite", favoritesController.ToggleFavorite)
	app.Get("/api/favorites", authMiddleware, favoritesController.GetFavorites)

	// Leaderboard
	leaderboardController := controllers.NewLeaderboardController(db, cfg, c)
	app.Get("/api/leaderboard", authMiddleware, leaderboardController.GetLeaderboard)

	// Admin routes for quizzes
	adminQuizzes := app.Group("/api/admin/quizzes", authMiddleware, adminMiddleware)
	adminQuizzes.Post("/", quizzesController.CreateQuiz)
	adminQuizzes.Put("/:id", quizzesController.UpdateQuiz)
	adminQuizzes.Delete("/:id", quizzesController.DeleteQuiz)
	adminQuizzes.Post("/:id/questions", quizzesController.AddQuestion)
	adminQuizzes.Put("/:id/questions/:questionId", quizzesController.UpdateQuestion)
	adminQuizzes.Delete("/:id/questions/:questionId", quizzesController.DeleteQuestion)
	adminQuizzes.Post("/:id/questions/import", quizzesController.ImportQuestionsCSV)

	// Admin routes for users
	adminUsers := app.Group("/api/admin/users", authMiddleware, adminMiddleware)
	adminUsers.Get("/", usersController.ListUsers)
	adminUsers.Put("/:id/role", usersController.UpdateUserRole)
	adminUsers.Delete("/:id", usersController.DeleteUser)

	// Admin analytics
	analyticsController := controllers.NewAnalyticsController(db, cfg)
	adminAnalytics := app.Group("/api/admin/analytics", authMiddleware, adminMiddleware)
	adminAnalytics.Get("/", analyticsController.GetPlatformAnalytics)
	adminAnalytics.Get("/quizzes/:id", analyticsController.GetQuizAnalytics)
	adminAnalytics.Get("/report", analyticsController.DownloadReport)
}
