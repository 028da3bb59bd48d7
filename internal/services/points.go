package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/orbitpath/orbitpath-backend/internal/apperr"
	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/repos"
	"github.com/orbitpath/orbitpath-backend/internal/requestdata"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

type PointsSummary struct {
	Balance      int                       `json:"balance"`
	Transactions []*types.PointTransaction `json:"transactions"`
}

type PointsService interface {
	Summary(ctx context.Context) (*PointsSummary, error)
}

type pointsService struct {
	db         *gorm.DB
	log        *logger.Logger
	pointsRepo repos.PointsRepo
}

func NewPointsService(db *gorm.DB, log *logger.Logger, pointsRepo repos.PointsRepo) PointsService {
	serviceLog := log.With("service", "PointsService")
	return &pointsService{db: db, log: serviceLog, pointsRepo: pointsRepo}
}

func (ps *pointsService) Summary(ctx context.Context) (*PointsSummary, error) {
	userID := requestdata.UserID(ctx)
	if userID == nil {
		return nil, fmt.Errorf("points need a signed-in user: %w", apperr.ErrInvalidState)
	}
	balance, err := ps.pointsRepo.GetBalance(ctx, nil, *userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	transactions, err := ps.pointsRepo.ListTransactions(ctx, nil, *userID, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return &PointsSummary{Balance: balance, Transactions: transactions}, nil
}
