package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/types"
	"github.com/orbitpath/orbitpath-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewPostgresService opens the database named by DB_DRIVER. "postgres" is the
// default; "sqlite" exists for local runs and tests where no server is around.
func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	driver := utils.GetEnv("DB_DRIVER", "postgres", log)
	if driver == "sqlite" {
		path := utils.GetEnv("SQLITE_PATH", "orbitpath.db", log)
		log.Info("Connecting to SQLite...", "path", path)
		gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Error("Failed to open SQLite database", "error", err)
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return &PostgresService{db: gdb, log: serviceLog}, nil
	}

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "orbitpath", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Quiz{},
		&types.Question{},
		&types.Option{},
		&types.QuizSession{},
		&types.QuizAnswer{},
		&types.Career{},
		&types.Report{},
		&types.Recommendation{},
		&types.RoleplayScript{},
		&types.RoleplaySession{},
		&types.UserPoints{},
		&types.PointTransaction{},
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
