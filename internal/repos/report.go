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

type ReportRepo interface {
	Create(ctx context.Context, tx *gorm.DB, report *types.Report) (*types.Report, error)
	GetByID(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) (*types.Report, error)
	GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.Report, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Report, error)
	SetNarrative(ctx context.Context, tx *gorm.DB, reportID uuid.UUID, narrative string) error
	ListMissingNarrative(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Report, error)
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	repoLog := baseLog.With("repo", "ReportRepo")
	return &reportRepo{db: db, log: repoLog}
}

func (rr *reportRepo) Create(ctx context.Context, tx *gorm.DB, report *types.Report) (*types.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	for i := range report.Recommendations {
		rec := &report.Recommendations[i]
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.ReportID = report.ID
	}
	if err := transaction.WithContext(ctx).Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

func (rr *reportRepo) GetByID(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) (*types.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var result types.Report
	if err := transaction.WithContext(ctx).
		Preload("Recommendations", func(db *gorm.DB) *gorm.DB {
			return db.Order("rank ASC")
		}).
		Preload("Recommendations.Career").
		Where("id = ?", reportID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (rr *reportRepo) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var result types.Report
	if err := transaction.WithContext(ctx).
		Preload("Recommendations", func(db *gorm.DB) *gorm.DB {
			return db.Order("rank ASC")
		}).
		Preload("Recommendations.Career").
		Where("session_id = ?", sessionID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (rr *reportRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.Report
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *reportRepo) SetNarrative(ctx context.Context, tx *gorm.DB, reportID uuid.UUID, narrative string) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Report{}).
		Where("id = ? AND (narrative IS NULL OR narrative = '')", reportID).
		Update("narrative", narrative).Error
}

func (rr *reportRepo) ListMissingNarrative(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.Report
	if err := transaction.WithContext(ctx).
		Where("narrative IS NULL OR narrative = ''").
		Order("created_at ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
