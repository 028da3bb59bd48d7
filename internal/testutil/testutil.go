package testutil

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

// DB opens a fresh in-memory SQLite database with the full schema migrated.
// Each call gets its own database, so tests never share state.
func DB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=private"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
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
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func Logger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}
