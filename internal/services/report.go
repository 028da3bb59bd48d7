package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orbitpath/orbitpath-backend/internal/apperr"
	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/repos"
	"github.com/orbitpath/orbitpath-backend/internal/requestdata"
	"github.com/orbitpath/orbitpath-backend/internal/scoring"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

type ReportService interface {
	GetBySessionToken(ctx context.Context, token string) (*types.Report, error)
	ListMine(ctx context.Context) ([]*types.Report, error)
	RecommendMine(ctx context.Context, k int) ([]scoring.Recommendation, error)
}

type reportService struct {
	db                  *gorm.DB
	log                 *logger.Logger
	reportRepo          repos.ReportRepo
	quizSessionRepo     repos.QuizSessionRepo
	roleplaySessionRepo repos.RoleplaySessionRepo
	careerService       CareerService
}

func NewReportService(
	db *gorm.DB,
	log *logger.Logger,
	reportRepo repos.ReportRepo,
	quizSessionRepo repos.QuizSessionRepo,
	roleplaySessionRepo repos.RoleplaySessionRepo,
	careerService CareerService,
) ReportService {
	serviceLog := log.With("service", "ReportService")
	return &reportService{
		db:                  db,
		log:                 serviceLog,
		reportRepo:          reportRepo,
		quizSessionRepo:     quizSessionRepo,
		roleplaySessionRepo: roleplaySessionRepo,
		careerService:       careerService,
	}
}

// GetBySessionToken resolves a session token of either kind to its report.
// Reports are immutable, so this read needs no expiry or status checks beyond
// the report existing.
func (rs *reportService) GetBySessionToken(ctx context.Context, token string) (*types.Report, error) {
	sessionID, err := rs.resolveSessionID(ctx, token)
	if err != nil {
		return nil, err
	}
	report, err := rs.reportRepo.GetBySessionID(ctx, nil, sessionID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, fmt.Errorf("no report for session %q yet: %w", token, apperr.ErrNotFound)
		}
		return nil, err
	}
	return report, nil
}

func (rs *reportService) ListMine(ctx context.Context) ([]*types.Report, error) {
	userID := requestdata.UserID(ctx)
	if userID == nil {
		return nil, fmt.Errorf("report history needs a signed-in user: %w", apperr.ErrInvalidState)
	}
	return rs.reportRepo.ListByUser(ctx, nil, *userID)
}

// RecommendMine re-runs the matcher for the user's newest quiz profile
// against the current catalog, so the list reflects careers added after the
// report was assembled. The report's own recommendations stay frozen.
func (rs *reportService) RecommendMine(ctx context.Context, k int) ([]scoring.Recommendation, error) {
	userID := requestdata.UserID(ctx)
	if userID == nil {
		return nil, fmt.Errorf("recommendations need a signed-in user: %w", apperr.ErrInvalidState)
	}
	if k <= 0 {
		k = MaxRecommendations
	}
	if k > 10 {
		k = 10
	}

	reports, err := rs.reportRepo.ListByUser(ctx, nil, *userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}
	var latest *types.Report
	for _, report := range reports {
		if report.Kind == types.ReportKindQuiz {
			latest = report
			break
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("no completed quiz yet: %w", apperr.ErrNotFound)
	}

	var result QuizResult
	if err := json.Unmarshal(latest.Result, &result); err != nil {
		return nil, fmt.Errorf("report %s has bad result payload: %w", latest.ID, apperr.ErrCorruptState)
	}

	catalog, err := rs.careerService.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load career catalog: %w", err)
	}
	return scoring.Match(result.Dimensions, catalog, k), nil
}

func (rs *reportService) resolveSessionID(ctx context.Context, token string) (uuid.UUID, error) {
	if quizSession, err := rs.quizSessionRepo.GetByToken(ctx, nil, token); err == nil {
		return quizSession.ID, nil
	} else if !apperr.IsNotFound(err) {
		return uuid.Nil, fmt.Errorf("failed to look up session %q: %w", token, err)
	}
	if roleplaySession, err := rs.roleplaySessionRepo.GetByToken(ctx, nil, token); err == nil {
		return roleplaySession.ID, nil
	} else if !apperr.IsNotFound(err) {
		return uuid.Nil, fmt.Errorf("failed to look up session %q: %w", token, err)
	}
	return uuid.Nil, fmt.Errorf("unknown session token %q: %w", token, apperr.ErrNotFound)
}
