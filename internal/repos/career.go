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

type CareerRepo interface {
	Create(ctx context.Context, tx *gorm.DB, careers []*types.Career) ([]*types.Career, error)
	GetByID(ctx context.Context, tx *gorm.DB, careerID uuid.UUID) (*types.Career, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, careerIDs []uuid.UUID) ([]*types.Career, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Career, error)
	ListByGalaxy(ctx context.Context, tx *gorm.DB, galaxy string) ([]*types.Career, error)
}

type careerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCareerRepo(db *gorm.DB, baseLog *logger.Logger) CareerRepo {
	repoLog := baseLog.With("repo", "CareerRepo")
	return &careerRepo{db: db, log: repoLog}
}

func (cr *careerRepo) Create(ctx context.Context, tx *gorm.DB, careers []*types.Career) ([]*types.Career, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if len(careers) == 0 {
		return []*types.Career{}, nil
	}
	for _, c := range careers {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).Create(&careers).Error; err != nil {
		return nil, err
	}
	return careers, nil
}

func (cr *careerRepo) GetByID(ctx context.Context, tx *gorm.DB, careerID uuid.UUID) (*types.Career, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.Career
	if err := transaction.WithContext(ctx).
		Where("id = ?", careerID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (cr *careerRepo) GetByIDs(ctx context.Context, tx *gorm.DB, careerIDs []uuid.UUID) ([]*types.Career, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Career
	if len(careerIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", careerIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *careerRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Career, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Career
	if err := transaction.WithContext(ctx).
		Order("popularity DESC, name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *careerRepo) ListByGalaxy(ctx context.Context, tx *gorm.DB, galaxy string) ([]*types.Career, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Career
	if err := transaction.WithContext(ctx).
		Where("galaxy = ?", galaxy).
		Order("popularity DESC, name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
