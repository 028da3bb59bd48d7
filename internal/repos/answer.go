package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

type QuizAnswerRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, answer *types.QuizAnswer) (*types.QuizAnswer, error)
	GetBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.QuizAnswer, error)
	CountBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (int64, error)
}

type quizAnswerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizAnswerRepo(db *gorm.DB, baseLog *logger.Logger) QuizAnswerRepo {
	repoLog := baseLog.With("repo", "QuizAnswerRepo")
	return &quizAnswerRepo{db: db, log: repoLog}
}

// Upsert writes the answer, replacing any earlier answer the session holds
// for the same question. Last write wins.
func (ar *quizAnswerRepo) Upsert(ctx context.Context, tx *gorm.DB, answer *types.QuizAnswer) (*types.QuizAnswer, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	if answer.ID == uuid.Nil {
		answer.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"option_id":    answer.OptionID,
				"option_ids":   answer.OptionIDs,
				"rating_value": answer.RatingValue,
				"distribution": answer.Distribution,
				"updated_at":   time.Now().UTC(),
			}),
		}).
		Create(answer).Error; err != nil {
		return nil, err
	}
	return answer, nil
}

func (ar *quizAnswerRepo) GetBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.QuizAnswer, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []*types.QuizAnswer
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *quizAnswerRepo) CountBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.QuizAnswer{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
