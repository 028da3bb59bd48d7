package app

import (
	"gorm.io/gorm"

	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/repos"
)

type Repos struct {
	User             repos.UserRepo
	UserToken        repos.UserTokenRepo
	Quiz             repos.QuizRepo
	QuizSession      repos.QuizSessionRepo
	QuizAnswer       repos.QuizAnswerRepo
	Career           repos.CareerRepo
	Report           repos.ReportRepo
	RoleplayScript   repos.RoleplayScriptRepo
	RoleplaySession  repos.RoleplaySessionRepo
	Points           repos.PointsRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:            repos.NewUserRepo(db, log),
		UserToken:       repos.NewUserTokenRepo(db, log),
		Quiz:            repos.NewQuizRepo(db, log),
		QuizSession:     repos.NewQuizSessionRepo(db, log),
		QuizAnswer:      repos.NewQuizAnswerRepo(db, log),
		Career:          repos.NewCareerRepo(db, log),
		Report:          repos.NewReportRepo(db, log),
		RoleplayScript:  repos.NewRoleplayScriptRepo(db, log),
		RoleplaySession: repos.NewRoleplaySessionRepo(db, log),
		Points:          repos.NewPointsRepo(db, log),
	}
}
