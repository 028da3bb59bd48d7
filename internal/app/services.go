package app

import (
	"gorm.io/gorm"

	"github.com/orbitpath/orbitpath-backend/internal/clients/openai"
	redisclient "github.com/orbitpath/orbitpath-backend/internal/clients/redis"
	"github.com/orbitpath/orbitpath-backend/internal/jobs"
	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/services"
)

type Services struct {
	Auth      services.AuthService
	Quiz      services.QuizService
	Roleplay  services.RoleplayService
	Career    services.CareerService
	Report    services.ReportService
	Points    services.PointsService
	Narrative services.NarrativeService
	Enricher  *jobs.Enricher
	Cache     redisclient.Cache
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos) (Services, error) {
	log.Info("Wiring services...")

	var cache redisclient.Cache
	if cfg.RedisEnabled {
		c, err := redisclient.NewCache(log)
		if err != nil {
			return Services{}, err
		}
		cache = c
	}

	var generator services.TextGenerator
	if cfg.OpenAIEnabled {
		client, err := openai.NewClient(log)
		if err != nil {
			return Services{}, err
		}
		generator = client
	}

	authService := services.NewAuthService(db, log, r.User, r.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	careerService := services.NewCareerService(db, log, r.Career, cache)
	quizService := services.NewQuizService(db, log, r.Quiz, r.QuizSession, r.QuizAnswer, r.Report, r.Points, careerService, cfg.SessionTTL)
	roleplayService := services.NewRoleplayService(db, log, r.RoleplayScript, r.RoleplaySession, r.Report, r.Points, cfg.SessionTTL)
	reportService := services.NewReportService(db, log, r.Report, r.QuizSession, r.RoleplaySession, careerService)
	pointsService := services.NewPointsService(db, log, r.Points)
	narrativeService := services.NewNarrativeService(log, generator)
	enricher := jobs.NewEnricher(db, log, r.Report, narrativeService)

	return Services{
		Auth:      authService,
		Quiz:      quizService,
		Roleplay:  roleplayService,
		Career:    careerService,
		Report:    reportService,
		Points:    pointsService,
		Narrative: narrativeService,
		Enricher:  enricher,
		Cache:     cache,
	}, nil
}
