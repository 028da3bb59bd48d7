package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/orbitpath/orbitpath-backend/internal/handlers"
	"github.com/orbitpath/orbitpath-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler     *handlers.AuthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	QuizHandler     *handlers.QuizHandler
	RoleplayHandler *handlers.RoleplayHandler
	CareerHandler   *handlers.CareerHandler
	UserHandler     *handlers.UserHandler
	AllowOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)
	router.POST("/refresh", cfg.AuthHandler.Refresh)

	// Session routes are open to anonymous users; a valid token upgrades them
	// with resumable sessions and reward points.
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.OptionalAuth())
	{
		api.GET("/quizzes", cfg.QuizHandler.ListQuizzes)
		api.POST("/quiz/start", cfg.QuizHandler.Start)
		api.GET("/quiz/:token/questions", cfg.QuizHandler.GetQuestions)
		api.POST("/quiz/:token/answers", cfg.QuizHandler.SaveAnswer)
		api.POST("/quiz/:token/submit", cfg.QuizHandler.Submit)
		api.GET("/quiz/:token/report", cfg.QuizHandler.GetReport)

		api.GET("/roleplay/scripts", cfg.RoleplayHandler.ListScripts)
		api.GET("/roleplay/scripts/:slug", cfg.RoleplayHandler.GetScript)
		api.POST("/roleplay/start", cfg.RoleplayHandler.Start)
		api.GET("/roleplay/:token/state", cfg.RoleplayHandler.GetState)
		api.POST("/roleplay/:token/choose", cfg.RoleplayHandler.Choose)
		api.GET("/roleplay/:token/report", cfg.RoleplayHandler.GetReport)

		api.GET("/careers", cfg.CareerHandler.ListCareers)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	protected.POST("/logout", cfg.AuthHandler.Logout)
	protected.GET("/api/me/points", cfg.UserHandler.GetPoints)
	protected.GET("/api/me/reports", cfg.UserHandler.GetReports)
	protected.GET("/api/me/recommendations", cfg.UserHandler.GetRecommendations)

	return router
}
