package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

type PointsRepo interface {
	Award(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, reason string, sourceID uuid.UUID) (bool, error)
	GetBalance(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error)
	ListTransactions(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.PointTransaction, error)
}

type pointsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPointsRepo(db *gorm.DB, baseLog *logger.Logger) PointsRepo {
	repoLog := baseLog.With("repo", "PointsRepo")
	return &pointsRepo{db: db, log: repoLog}
}

// Award appends a ledger row and bumps the balance. The unique index on
// source_id makes a repeated award for the same session a no-op, which keeps
// completion retries from paying twice. Returns false when the award already
// existed.
func (pr *pointsRepo) Award(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, reason string, sourceID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	now := time.Now().UTC()
	entry := &types.PointTransaction{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		SourceID:  sourceID,
		CreatedAt: now,
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_id"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"balance": gorm.Expr("user_points.balance + ?", amount), "updated_at": now}),
		}).
		Create(&types.UserPoints{UserID: userID, Balance: amount, UpdatedAt: now}).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (pr *pointsRepo) GetBalance(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var row types.UserPoints
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.Balance, nil
}

func (pr *pointsRepo) ListTransactions(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.PointTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.PointTransaction
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
