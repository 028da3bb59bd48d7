package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orbitpath/orbitpath-backend/internal/apperr"
	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

type QuizSessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.QuizSession) (*types.QuizSession, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (*types.QuizSession, error)
	GetOpenForUser(ctx context.Context, tx *gorm.DB, quizID, userID uuid.UUID, now time.Time) (*types.QuizSession, error)
	TransitionStatus(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, from, to string, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error
	ReleaseStale(ctx context.Context, tx *gorm.DB, quizID, userID uuid.UUID, now time.Time) error
}

type quizSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizSessionRepo(db *gorm.DB, baseLog *logger.Logger) QuizSessionRepo {
	repoLog := baseLog.With("repo", "QuizSessionRepo")
	return &quizSessionRepo{db: db, log: repoLog}
}

func (sr *quizSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.QuizSession) (*types.QuizSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (sr *quizSessionRepo) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*types.QuizSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.QuizSession
	if err := transaction.WithContext(ctx).
		Preload("Quiz").
		Where("token = ?", token).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// GetOpenForUser finds the newest still-live session for the pair, used to
// resume instead of opening a second session for the same quiz.
func (sr *quizSessionRepo) GetOpenForUser(ctx context.Context, tx *gorm.DB, quizID, userID uuid.UUID, now time.Time) (*types.QuizSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.QuizSession
	if err := transaction.WithContext(ctx).
		Where("quiz_id = ? AND user_id = ? AND status = ? AND expires_at > ?", quizID, userID, types.SessionInProgress, now).
		Order("created_at DESC").
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// TransitionStatus moves the session from one status to another only if it is
// still in the expected state. Returns false when another transition won.
func (sr *quizSessionRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, from, to string, at time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	updates := map[string]interface{}{"status": to, "updated_at": at, "active_key": nil}
	switch to {
	case types.SessionSubmitted:
		updates["submitted_at"] = at
	case types.SessionCompleted:
		updates["completed_at"] = at
	}

	res := transaction.WithContext(ctx).
		Model(&types.QuizSession{}).
		Where("id = ? AND status = ?", sessionID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (sr *quizSessionRepo) MarkExpired(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.QuizSession{}).
		Where("id = ? AND status = ?", sessionID, types.SessionInProgress).
		Updates(map[string]interface{}{"status": types.SessionExpired, "active_key": nil}).Error
}

// ReleaseStale expires every in-progress session of the pair whose deadline
// has passed, freeing the active-key slot so a new session can take it.
func (sr *quizSessionRepo) ReleaseStale(ctx context.Context, tx *gorm.DB, quizID, userID uuid.UUID, now time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.QuizSession{}).
		Where("quiz_id = ? AND user_id = ? AND status = ? AND expires_at <= ?", quizID, userID, types.SessionInProgress, now).
		Updates(map[string]interface{}{"status": types.SessionExpired, "active_key": nil}).Error
}
