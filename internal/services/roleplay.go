package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orbitpath/orbitpath-backend/internal/apperr"
	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/repos"
	"github.com/orbitpath/orbitpath-backend/internal/requestdata"
	"github.com/orbitpath/orbitpath-backend/internal/roleplay"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

// RoleplayView is the client-facing slice of a roleplay session: the current
// scene with its choices, the running scores and progress. Script internals
// past the current scene are never exposed.
type RoleplayView struct {
	Session  *types.RoleplaySession `json:"session"`
	Scene    roleplay.Scene         `json:"scene"`
	Scores   map[string]int         `json:"scores"`
	Progress int                    `json:"progress"`
	Report   *types.Report          `json:"report,omitempty"`
}

// ChoiceResult reports the outcome of one accepted choice.
type ChoiceResult struct {
	Outcome      string         `json:"outcome,omitempty"`
	ScoreChanges map[string]int `json:"score_changes,omitempty"`
	View         *RoleplayView  `json:"view"`
}

// ScriptSummary is the catalog view of a script: metadata plus counts, never
// the scene graph itself.
type ScriptSummary struct {
	ID         uuid.UUID          `json:"id"`
	Slug       string             `json:"slug"`
	Title      string             `json:"title"`
	Summary    string             `json:"summary,omitempty"`
	Setting    string             `json:"setting,omitempty"`
	Abilities  []roleplay.Ability `json:"abilities,omitempty"`
	SceneCount int                `json:"scene_count"`
}

type RoleplayService interface {
	ListScripts(ctx context.Context) ([]*ScriptSummary, error)
	GetScript(ctx context.Context, slug string) (*ScriptSummary, error)
	StartSession(ctx context.Context, slug string) (*RoleplayView, error)
	GetState(ctx context.Context, token string) (*RoleplayView, error)
	Choose(ctx context.Context, token, choiceID string) (*ChoiceResult, error)
}

type roleplayService struct {
	db          *gorm.DB
	log         *logger.Logger
	scriptRepo  repos.RoleplayScriptRepo
	sessionRepo repos.RoleplaySessionRepo
	reportRepo  repos.ReportRepo
	pointsRepo  repos.PointsRepo
	sessionTTL  time.Duration
}

func NewRoleplayService(
	db *gorm.DB,
	log *logger.Logger,
	scriptRepo repos.RoleplayScriptRepo,
	sessionRepo repos.RoleplaySessionRepo,
	reportRepo repos.ReportRepo,
	pointsRepo repos.PointsRepo,
	sessionTTL time.Duration,
) RoleplayService {
	serviceLog := log.With("service", "RoleplayService")
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &roleplayService{
		db:          db,
		log:         serviceLog,
		scriptRepo:  scriptRepo,
		sessionRepo: sessionRepo,
		reportRepo:  reportRepo,
		pointsRepo:  pointsRepo,
		sessionTTL:  sessionTTL,
	}
}

func (rs *roleplayService) ListScripts(ctx context.Context) ([]*ScriptSummary, error) {
	scripts, err := rs.scriptRepo.ListPublished(ctx, nil)
	if err != nil {
		return nil, err
	}
	// List payloads stay light: counts and metadata, never scene content.
	summaries := make([]*ScriptSummary, 0, len(scripts))
	for _, row := range scripts {
		summary, sErr := summarizeScript(row)
		if sErr != nil {
			rs.log.Warn("Skipping script that does not parse", "script_id", row.ID, "error", sErr)
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (rs *roleplayService) GetScript(ctx context.Context, slug string) (*ScriptSummary, error) {
	row, err := rs.scriptRepo.GetBySlug(ctx, nil, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load script %q: %w", slug, err)
	}
	if !row.IsPublished {
		return nil, fmt.Errorf("script %q is not published: %w", slug, apperr.ErrNotFound)
	}
	return summarizeScript(row)
}

func (rs *roleplayService) StartSession(ctx context.Context, slug string) (*RoleplayView, error) {
	row, err := rs.scriptRepo.GetBySlug(ctx, nil, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load script %q: %w", slug, err)
	}
	if !row.IsPublished {
		return nil, fmt.Errorf("script %q is not published: %w", slug, apperr.ErrNotFound)
	}
	script, err := parseScriptRow(row)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	userID := requestdata.UserID(ctx)

	if userID != nil {
		existing, err := rs.sessionRepo.GetOpenForUser(ctx, nil, row.ID, *userID, now)
		if err == nil {
			existing.Script = row
			return rs.viewOf(ctx, existing, script)
		}
		if !apperr.IsNotFound(err) {
			return nil, fmt.Errorf("failed to look up open session: %w", err)
		}
	}

	initial := script.InitialState()
	statePayload, err := roleplay.MarshalState(initial)
	if err != nil {
		return nil, fmt.Errorf("failed to encode initial state: %w", err)
	}
	session := &types.RoleplaySession{
		ID:        uuid.New(),
		Token:     uuid.NewString(),
		ScriptID:  row.ID,
		UserID:    userID,
		ActiveKey: activeSessionKey(row.ID, userID),
		Status:    types.SessionInProgress,
		Progress:  float64(script.Progress(initial)),
		State:     statePayload,
		ExpiresAt: now.Add(rs.sessionTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := rs.sessionRepo.Create(ctx, nil, session)
	if errors.Is(err, gorm.ErrDuplicatedKey) && userID != nil {
		// The active-key slot is taken: either a concurrent start won the
		// race, or a stale session past its deadline still holds it.
		existing, oErr := rs.sessionRepo.GetOpenForUser(ctx, nil, row.ID, *userID, now)
		if oErr == nil {
			existing.Script = row
			return rs.viewOf(ctx, existing, script)
		}
		if !apperr.IsNotFound(oErr) {
			return nil, fmt.Errorf("failed to look up open session: %w", oErr)
		}
		if rErr := rs.sessionRepo.ReleaseStale(ctx, nil, row.ID, *userID, now); rErr != nil {
			return nil, fmt.Errorf("failed to release stale session: %w", rErr)
		}
		session.ID = uuid.New()
		session.Token = uuid.NewString()
		created, err = rs.sessionRepo.Create(ctx, nil, session)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	created.Script = row
	return rs.viewOf(ctx, created, script)
}

func (rs *roleplayService) GetState(ctx context.Context, token string) (*RoleplayView, error) {
	session, script, err := rs.loadSession(ctx, token)
	if err != nil {
		return nil, err
	}
	return rs.viewOf(ctx, session, script)
}

// Choose applies one choice to the session. The in-memory transition is pure;
// persistence is guarded by the session version so concurrent choices cannot
// both land. The loser gets ErrConflict and should refetch state.
func (rs *roleplayService) Choose(ctx context.Context, token, choiceID string) (*ChoiceResult, error) {
	session, script, err := rs.loadSession(ctx, token)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if session.Status != types.SessionInProgress {
		return nil, fmt.Errorf("session %q is %s: %w", token, session.Status, apperr.ErrSessionClosed)
	}

	state, err := script.ParseState(session.State)
	if err != nil {
		return nil, err
	}
	next, outcome, err := script.Advance(state, choiceID)
	if err != nil {
		return nil, err
	}

	statePayload, err := roleplay.MarshalState(next)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	progress := script.Progress(next)

	err = rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, aErr := rs.sessionRepo.AdvanceState(ctx, tx, session.ID, session.Version, statePayload, float64(progress), next.Completed, now)
		if aErr != nil {
			return fmt.Errorf("failed to persist transition: %w", aErr)
		}
		if !won {
			return fmt.Errorf("session %q advanced concurrently: %w", token, apperr.ErrConflict)
		}
		if next.Completed {
			if fErr := rs.finalize(ctx, tx, session, script, next, now); fErr != nil {
				return fErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session.State = statePayload
	session.Progress = float64(progress)
	session.Version++
	if next.Completed {
		session.Status = types.SessionCompleted
		session.CompletedAt = &now
	}

	view, err := rs.viewOf(ctx, session, script)
	if err != nil {
		return nil, err
	}
	return &ChoiceResult{
		Outcome:      outcome.Outcome,
		ScoreChanges: outcome.ScoreChanges,
		View:         view,
	}, nil
}

// finalize writes the immutable roleplay report and awards points, inside the
// same transaction as the completing transition.
func (rs *roleplayService) finalize(ctx context.Context, tx *gorm.DB, session *types.RoleplaySession, script *roleplay.Script, state roleplay.State, now time.Time) error {
	result := RoleplayResult{
		Scores:        state.Scores,
		AbilityLabels: script.AbilityLabels(),
		Advice:        script.Advice(state.Scores),
		StepsTaken:    len(state.History),
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	report := &types.Report{
		ID:        uuid.New(),
		SessionID: session.ID,
		UserID:    session.UserID,
		Kind:      types.ReportKindRoleplay,
		Result:    resultJSON,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := rs.reportRepo.Create(ctx, tx, report); err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if session.UserID != nil {
		if _, err := rs.pointsRepo.Award(ctx, tx, *session.UserID, PointsRoleplayCompleted, types.PointReasonRoleplayCompleted, session.ID); err != nil {
			return fmt.Errorf("failed to award points: %w", err)
		}
	}
	rs.log.Info("Roleplay session completed", "token", session.Token, "steps", result.StepsTaken)
	return nil
}

// loadSession resolves a session by token and applies lazy expiry the same
// way the quiz path does: a live session past its deadline is flipped to
// expired as a side effect of the access. Completed sessions stay readable.
func (rs *roleplayService) loadSession(ctx context.Context, token string) (*types.RoleplaySession, *roleplay.Script, error) {
	session, err := rs.sessionRepo.GetByToken(ctx, nil, token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session %q: %w", token, err)
	}
	if session.Expired(time.Now().UTC()) {
		if mErr := rs.sessionRepo.MarkExpired(ctx, nil, session.ID); mErr != nil {
			rs.log.Warn("Failed to mark session expired", "token", token, "error", mErr)
		}
		return nil, nil, fmt.Errorf("session %q past its deadline: %w", token, apperr.ErrExpired)
	}
	if session.Script == nil {
		return nil, nil, fmt.Errorf("session %q has no script: %w", token, apperr.ErrCorruptState)
	}
	script, err := parseScriptRow(session.Script)
	if err != nil {
		return nil, nil, err
	}
	return session, script, nil
}

func (rs *roleplayService) viewOf(ctx context.Context, session *types.RoleplaySession, script *roleplay.Script) (*RoleplayView, error) {
	state, err := script.ParseState(session.State)
	if err != nil {
		return nil, err
	}
	view := &RoleplayView{
		Session:  session,
		Scores:   state.Scores,
		Progress: script.Progress(state),
	}
	scene, err := script.Scene(state.SceneID)
	if err != nil {
		return nil, err
	}
	view.Scene = scene
	if session.Status == types.SessionCompleted {
		if report, rErr := rs.reportRepo.GetBySessionID(ctx, nil, session.ID); rErr == nil {
			view.Report = report
		}
	}
	return view, nil
}

func summarizeScript(row *types.RoleplayScript) (*ScriptSummary, error) {
	script, err := parseScriptRow(row)
	if err != nil {
		return nil, err
	}
	return &ScriptSummary{
		ID:         row.ID,
		Slug:       row.Slug,
		Title:      row.Title,
		Summary:    row.Summary,
		Setting:    script.Setting,
		Abilities:  script.Abilities,
		SceneCount: len(script.Scenes),
	}, nil
}

func parseScriptRow(row *types.RoleplayScript) (*roleplay.Script, error) {
	script, err := roleplay.ParseScript(row.Content)
	if err != nil {
		return nil, fmt.Errorf("script %s does not parse: %w", row.ID, apperr.ErrCorruptState)
	}
	return script, nil
}

// RoleplayResult is the immutable payload stored on a roleplay report.
type RoleplayResult struct {
	Scores        map[string]int    `json:"scores"`
	AbilityLabels map[string]string `json:"ability_labels"`
	Advice        string            `json:"advice"`
	StepsTaken    int               `json:"steps_taken"`
}
