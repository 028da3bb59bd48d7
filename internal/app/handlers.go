package app

import (
	"github.com/gin-gonic/gin"

	"github.com/orbitpath/orbitpath-backend/internal/handlers"
	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/middleware"
	"github.com/orbitpath/orbitpath-backend/internal/server"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

type Handlers struct {
	Auth     *handlers.AuthHandler
	Quiz     *handlers.QuizHandler
	Roleplay *handlers.RoleplayHandler
	Career   *handlers.CareerHandler
	User     *handlers.UserHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:     handlers.NewAuthHandler(log, services.Auth),
		Quiz:     handlers.NewQuizHandler(log, services.Quiz, services.Report),
		Roleplay: handlers.NewRoleplayHandler(log, services.Roleplay, services.Report),
		Career:   handlers.NewCareerHandler(log, services.Career),
		User:     handlers.NewUserHandler(log, services.Points, services.Report),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(cfg Config, h Handlers, mw Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthHandler:     h.Auth,
		AuthMiddleware:  mw.Auth,
		QuizHandler:     h.Quiz,
		RoleplayHandler: h.Roleplay,
		CareerHandler:   h.Career,
		UserHandler:     h.User,
		AllowOrigins:    cfg.AllowOrigins,
	})
}
