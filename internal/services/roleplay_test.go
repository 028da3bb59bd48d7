package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/orbitpath/orbitpath-backend/internal/apperr"
	"github.com/orbitpath/orbitpath-backend/internal/repos"
	"github.com/orbitpath/orbitpath-backend/internal/roleplay"
	"github.com/orbitpath/orbitpath-backend/internal/services"
	"github.com/orbitpath/orbitpath-backend/internal/testutil"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

type roleplayFixture struct {
	db       *gorm.DB
	svc      services.RoleplayService
	sessions repos.RoleplaySessionRepo
}

func newRoleplayFixture(t *testing.T) *roleplayFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	scriptRepo := repos.NewRoleplayScriptRepo(db, log)
	sessionRepo := repos.NewRoleplaySessionRepo(db, log)
	reportRepo := repos.NewReportRepo(db, log)
	pointsRepo := repos.NewPointsRepo(db, log)

	svc := services.NewRoleplayService(db, log, scriptRepo, sessionRepo, reportRepo, pointsRepo, 30*time.Minute)

	content := roleplay.Script{
		Abilities: []roleplay.Ability{
			{Code: "craft", Name: "Craft", Role: "a builder role", Advice: "practice more builds"},
			{Code: "teamwork", Name: "Teamwork", Role: "a coordinator role", Advice: "pair up more often"},
		},
		Start: "briefing",
		Scenes: map[string]roleplay.Scene{
			"briefing": {
				ID: "briefing", Title: "Briefing", Text: "The day starts.",
				Choices: []roleplay.Choice{
					{ID: "dive-in", Text: "Start building", Outcome: "You get moving.", Effects: map[string]int{"craft": 1}, Next: "review"},
					{ID: "ask-around", Text: "Talk to the team", Effects: map[string]int{"teamwork": 1}, Next: "review"},
				},
			},
			"review": {
				ID: "review", Title: "Review", Text: "Your work is discussed.",
				Choices: []roleplay.Choice{
					{ID: "accept", Text: "Take the feedback", Effects: map[string]int{"teamwork": 1}, Next: "wrap"},
				},
			},
			"wrap": {ID: "wrap", Title: "Wrap-up", Text: "The day ends."},
		},
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("encode script: %v", err)
	}
	now := time.Now().UTC()
	if _, err := scriptRepo.Create(context.Background(), nil, &types.RoleplayScript{
		Slug: "first-day", Title: "First Day", IsPublished: true,
		Content: encoded, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed script: %v", err)
	}

	return &roleplayFixture{db: db, svc: svc, sessions: sessionRepo}
}

func TestRoleplayPlaythrough(t *testing.T) {
	f := newRoleplayFixture(t)
	ctx := context.Background()

	view, err := f.svc.StartSession(ctx, "first-day")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.Scene.ID != "briefing" {
		t.Fatalf("expected to start at briefing, got %q", view.Scene.ID)
	}
	if view.Scores["craft"] != roleplay.DefaultBaseScore {
		t.Fatalf("expected base score %d, got %d", roleplay.DefaultBaseScore, view.Scores["craft"])
	}
	token := view.Session.Token

	result, err := f.svc.Choose(ctx, token, "dive-in")
	if err != nil {
		t.Fatalf("choose: %v", err)
	}
	if result.Outcome != "You get moving." {
		t.Fatalf("unexpected outcome %q", result.Outcome)
	}
	if result.ScoreChanges["craft"] != roleplay.DefaultPointStep {
		t.Fatalf("expected craft +%d, got %d", roleplay.DefaultPointStep, result.ScoreChanges["craft"])
	}
	if result.View.Scene.ID != "review" {
		t.Fatalf("expected review scene, got %q", result.View.Scene.ID)
	}

	// The review choice leads into the terminal scene and completes the run.
	final, err := f.svc.Choose(ctx, token, "accept")
	if err != nil {
		t.Fatalf("final choose: %v", err)
	}
	if final.View.Session.Status != types.SessionCompleted {
		t.Fatalf("expected completed session, got %q", final.View.Session.Status)
	}
	if final.View.Progress != 100 {
		t.Fatalf("expected 100%% progress, got %d", final.View.Progress)
	}
	if final.View.Report == nil {
		t.Fatalf("expected a report on the completed view")
	}
	var rr services.RoleplayResult
	if err := json.Unmarshal(final.View.Report.Result, &rr); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rr.StepsTaken != 2 {
		t.Fatalf("expected 2 steps, got %d", rr.StepsTaken)
	}
	if rr.Scores["craft"] != roleplay.DefaultBaseScore+roleplay.DefaultPointStep {
		t.Fatalf("unexpected craft score %d", rr.Scores["craft"])
	}
	if rr.Advice == "" {
		t.Fatalf("expected non-empty advice")
	}

	// A finished session rejects further choices.
	if _, err := f.svc.Choose(ctx, token, "accept"); !errors.Is(err, apperr.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestRoleplayRejectsChoiceFromWrongScene(t *testing.T) {
	f := newRoleplayFixture(t)
	ctx := context.Background()

	view, err := f.svc.StartSession(ctx, "first-day")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// "accept" belongs to the review scene, not the current one.
	_, err = f.svc.Choose(ctx, view.Session.Token, "accept")
	if !errors.Is(err, apperr.ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}

	// The rejected choice must not have moved the session.
	state, err := f.svc.GetState(ctx, view.Session.Token)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Scene.ID != "briefing" {
		t.Fatalf("session moved to %q after a rejected choice", state.Scene.ID)
	}
}

func TestRoleplayStateLazyExpiry(t *testing.T) {
	f := newRoleplayFixture(t)
	ctx := context.Background()

	view, err := f.svc.StartSession(ctx, "first-day")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	token := view.Session.Token

	// Push the deadline into the past behind the service's back.
	if err := f.db.Model(&types.RoleplaySession{}).
		Where("id = ?", view.Session.ID).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("rewind deadline: %v", err)
	}

	if _, err := f.svc.GetState(ctx, token); !errors.Is(err, apperr.ErrExpired) {
		t.Fatalf("expected ErrExpired on state read, got %v", err)
	}

	// The read flipped the stored status.
	session, err := f.sessions.GetByToken(ctx, nil, token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.Status != types.SessionExpired {
		t.Fatalf("expected expired status, got %q", session.Status)
	}

	if _, err := f.svc.Choose(ctx, token, "dive-in"); !errors.Is(err, apperr.ErrExpired) {
		t.Fatalf("expected ErrExpired on choose, got %v", err)
	}
}

func TestRoleplayCompletedSessionStaysReadable(t *testing.T) {
	f := newRoleplayFixture(t)
	ctx := context.Background()

	view, err := f.svc.StartSession(ctx, "first-day")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	token := view.Session.Token
	if _, err := f.svc.Choose(ctx, token, "dive-in"); err != nil {
		t.Fatalf("choose: %v", err)
	}
	if _, err := f.svc.Choose(ctx, token, "accept"); err != nil {
		t.Fatalf("choose: %v", err)
	}

	// A finished session outliving its deadline is not expired; its report
	// view stays available.
	if err := f.db.Model(&types.RoleplaySession{}).
		Where("id = ?", view.Session.ID).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("rewind deadline: %v", err)
	}
	state, err := f.svc.GetState(ctx, token)
	if err != nil {
		t.Fatalf("state after completion: %v", err)
	}
	if state.Report == nil {
		t.Fatalf("expected report on completed session view")
	}
}

func TestRoleplayListSummarizesScripts(t *testing.T) {
	f := newRoleplayFixture(t)

	scripts, err := f.svc.ListScripts(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(scripts) != 1 {
		t.Fatalf("expected 1 script, got %d", len(scripts))
	}
	if scripts[0].Slug != "first-day" {
		t.Fatalf("unexpected slug %q", scripts[0].Slug)
	}
	if scripts[0].SceneCount != 3 {
		t.Fatalf("expected 3 scenes, got %d", scripts[0].SceneCount)
	}
	if len(scripts[0].Abilities) != 2 {
		t.Fatalf("expected 2 abilities, got %d", len(scripts[0].Abilities))
	}
}
