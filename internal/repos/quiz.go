package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orbitpath/orbitpath-backend/internal/apperr"
	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

type QuizRepo interface {
	Create(ctx context.Context, tx *gorm.DB, quiz *types.Quiz) (*types.Quiz, error)
	GetByID(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) (*types.Quiz, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Quiz, error)
	ListPublished(ctx context.Context, tx *gorm.DB) ([]*types.Quiz, error)
	GetQuestions(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) ([]*types.Question, error)
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	repoLog := baseLog.With("repo", "QuizRepo")
	return &quizRepo{db: db, log: repoLog}
}

func (qr *quizRepo) Create(ctx context.Context, tx *gorm.DB, quiz *types.Quiz) (*types.Quiz, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}

	if quiz.ID == uuid.Nil {
		quiz.ID = uuid.New()
	}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		q.QuizID = quiz.ID
		for j := range q.Options {
			o := &q.Options[j]
			if o.ID == uuid.Nil {
				o.ID = uuid.New()
			}
			o.QuestionID = q.ID
		}
	}
	if err := transaction.WithContext(ctx).Create(quiz).Error; err != nil {
		return nil, err
	}
	return quiz, nil
}

func (qr *quizRepo) GetByID(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) (*types.Quiz, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}

	var result types.Quiz
	if err := transaction.WithContext(ctx).
		Where("id = ?", quizID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (qr *quizRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Quiz, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}

	var result types.Quiz
	if err := transaction.WithContext(ctx).
		Where("slug = ?", slug).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (qr *quizRepo) ListPublished(ctx context.Context, tx *gorm.DB) ([]*types.Quiz, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}

	var results []*types.Quiz
	if err := transaction.WithContext(ctx).
		Where("is_published = ?", true).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (qr *quizRepo) GetQuestions(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}

	var results []*types.Question
	if err := transaction.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("quiz_id = ?", quizID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
