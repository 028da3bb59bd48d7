package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/orbitpath/orbitpath-backend/internal/apperr"
	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

type RoleplayScriptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, script *types.RoleplayScript) (*types.RoleplayScript, error)
	GetByID(ctx context.Context, tx *gorm.DB, scriptID uuid.UUID) (*types.RoleplayScript, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.RoleplayScript, error)
	ListPublished(ctx context.Context, tx *gorm.DB) ([]*types.RoleplayScript, error)
}

type roleplayScriptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoleplayScriptRepo(db *gorm.DB, baseLog *logger.Logger) RoleplayScriptRepo {
	repoLog := baseLog.With("repo", "RoleplayScriptRepo")
	return &roleplayScriptRepo{db: db, log: repoLog}
}

func (rr *roleplayScriptRepo) Create(ctx context.Context, tx *gorm.DB, script *types.RoleplayScript) (*types.RoleplayScript, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if script.ID == uuid.Nil {
		script.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(script).Error; err != nil {
		return nil, err
	}
	return script, nil
}

func (rr *roleplayScriptRepo) GetByID(ctx context.Context, tx *gorm.DB, scriptID uuid.UUID) (*types.RoleplayScript, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var result types.RoleplayScript
	if err := transaction.WithContext(ctx).
		Where("id = ?", scriptID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (rr *roleplayScriptRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.RoleplayScript, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var result types.RoleplayScript
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

func (rr *roleplayScriptRepo) ListPublished(ctx context.Context, tx *gorm.DB) ([]*types.RoleplayScript, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.RoleplayScript
	if err := transaction.WithContext(ctx).
		Where("is_published = ?", true).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type RoleplaySessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.RoleplaySession) (*types.RoleplaySession, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (*types.RoleplaySession, error)
	GetOpenForUser(ctx context.Context, tx *gorm.DB, scriptID, userID uuid.UUID, now time.Time) (*types.RoleplaySession, error)
	AdvanceState(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, expectedVersion int, state datatypes.JSON, progress float64, completed bool, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error
	ReleaseStale(ctx context.Context, tx *gorm.DB, scriptID, userID uuid.UUID, now time.Time) error
}

type roleplaySessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoleplaySessionRepo(db *gorm.DB, baseLog *logger.Logger) RoleplaySessionRepo {
	repoLog := baseLog.With("repo", "RoleplaySessionRepo")
	return &roleplaySessionRepo{db: db, log: repoLog}
}

func (sr *roleplaySessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.RoleplaySession) (*types.RoleplaySession, error) {
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

func (sr *roleplaySessionRepo) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*types.RoleplaySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.RoleplaySession
	if err := transaction.WithContext(ctx).
		Preload("Script").
		Where("token = ?", token).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (sr *roleplaySessionRepo) GetOpenForUser(ctx context.Context, tx *gorm.DB, scriptID, userID uuid.UUID, now time.Time) (*types.RoleplaySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.RoleplaySession
	if err := transaction.WithContext(ctx).
		Where("script_id = ? AND user_id = ? AND status = ? AND expires_at > ?", scriptID, userID, types.SessionInProgress, now).
		Order("created_at DESC").
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// AdvanceState persists a transition guarded by the version counter. The
// write only lands when the stored version still matches expectedVersion, so
// two concurrent choices on the same session cannot both succeed.
func (sr *roleplaySessionRepo) AdvanceState(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, expectedVersion int, state datatypes.JSON, progress float64, completed bool, at time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	updates := map[string]interface{}{
		"state":      state,
		"progress":   progress,
		"version":    expectedVersion + 1,
		"updated_at": at,
	}
	if completed {
		updates["status"] = types.SessionCompleted
		updates["completed_at"] = at
		updates["active_key"] = nil
	}

	res := transaction.WithContext(ctx).
		Model(&types.RoleplaySession{}).
		Where("id = ? AND version = ? AND status = ?", sessionID, expectedVersion, types.SessionInProgress).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (sr *roleplaySessionRepo) MarkExpired(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.RoleplaySession{}).
		Where("id = ? AND status = ?", sessionID, types.SessionInProgress).
		Updates(map[string]interface{}{"status": types.SessionExpired, "active_key": nil}).Error
}

// ReleaseStale expires every in-progress session of the pair whose deadline
// has passed, freeing the active-key slot so a new session can take it.
func (sr *roleplaySessionRepo) ReleaseStale(ctx context.Context, tx *gorm.DB, scriptID, userID uuid.UUID, now time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.RoleplaySession{}).
		Where("script_id = ? AND user_id = ? AND status = ? AND expires_at <= ?", scriptID, userID, types.SessionInProgress, now).
		Updates(map[string]interface{}{"status": types.SessionExpired, "active_key": nil}).Error
}
