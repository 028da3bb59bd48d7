package repos_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orbitpath/orbitpath-backend/internal/repos"
	"github.com/orbitpath/orbitpath-backend/internal/testutil"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

func seedQuiz(t *testing.T, ctx context.Context, qr repos.QuizRepo) *types.Quiz {
	t.Helper()
	now := time.Now().UTC()
	quiz := &types.Quiz{
		Slug:        "career-explorer",
		Title:       "Career Explorer",
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
		Questions: []types.Question{
			{
				Position: 0, Type: "single_choice", Content: "Pick one",
				CreatedAt: now, UpdatedAt: now,
				Options: []types.Option{
					{Position: 0, Content: "Build things", Dimension: "R", Weight: 2, CreatedAt: now},
					{Position: 1, Content: "Paint things", Dimension: "A", Weight: 2, CreatedAt: now},
				},
			},
			{
				Position: 1, Type: "rating", Content: "Rate it", Dimension: "I", Weight: 10,
				CreatedAt: now, UpdatedAt: now,
			},
		},
	}
	created, err := qr.Create(ctx, nil, quiz)
	if err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return created
}

func TestQuizQuestionsOrderedByPosition(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	qr := repos.NewQuizRepo(db, log)

	quiz := seedQuiz(t, ctx, qr)

	questions, err := qr.GetQuestions(ctx, nil, quiz.ID)
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions got %d", len(questions))
	}
	if questions[0].Position != 0 || questions[1].Position != 1 {
		t.Fatalf("questions out of order: %d, %d", questions[0].Position, questions[1].Position)
	}
	if len(questions[0].Options) != 2 {
		t.Fatalf("expected 2 options got %d", len(questions[0].Options))
	}
}

func TestSessionTransitionIsConditional(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	qr := repos.NewQuizRepo(db, log)
	sr := repos.NewQuizSessionRepo(db, log)

	quiz := seedQuiz(t, ctx, qr)
	now := time.Now().UTC()
	session, err := sr.Create(ctx, nil, &types.QuizSession{
		Token:     uuid.NewString(),
		QuizID:    quiz.ID,
		Status:    types.SessionInProgress,
		ExpiresAt: now.Add(30 * time.Minute),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	ok, err := sr.TransitionStatus(ctx, nil, session.ID, types.SessionInProgress, types.SessionSubmitted, now)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !ok {
		t.Fatalf("expected first transition to win")
	}

	// A second submit against the same precondition must lose.
	ok, err = sr.TransitionStatus(ctx, nil, session.ID, types.SessionInProgress, types.SessionSubmitted, now)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if ok {
		t.Fatalf("expected repeated transition to be rejected")
	}

	got, err := sr.GetByToken(ctx, nil, session.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got.Status != types.SessionSubmitted {
		t.Fatalf("expected submitted got %q", got.Status)
	}
	if got.SubmittedAt == nil {
		t.Fatalf("expected submitted_at to be set")
	}
}

func TestActiveKeyEnforcesSingleLiveSession(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	qr := repos.NewQuizRepo(db, log)
	sr := repos.NewQuizSessionRepo(db, log)

	quiz := seedQuiz(t, ctx, qr)
	now := time.Now().UTC()
	userID := uuid.New()
	key := quiz.ID.String() + ":" + userID.String()

	first, err := sr.Create(ctx, nil, &types.QuizSession{
		Token:     uuid.NewString(),
		QuizID:    quiz.ID,
		UserID:    &userID,
		ActiveKey: &key,
		Status:    types.SessionInProgress,
		ExpiresAt: now.Add(30 * time.Minute),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	// A second live session for the same user and quiz cannot land.
	_, err = sr.Create(ctx, nil, &types.QuizSession{
		Token:     uuid.NewString(),
		QuizID:    quiz.ID,
		UserID:    &userID,
		ActiveKey: &key,
		Status:    types.SessionInProgress,
		ExpiresAt: now.Add(30 * time.Minute),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}

	// Closing the first session frees the slot.
	if _, err := sr.TransitionStatus(ctx, nil, first.ID, types.SessionInProgress, types.SessionSubmitted, now); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if _, err := sr.Create(ctx, nil, &types.QuizSession{
		Token:     uuid.NewString(),
		QuizID:    quiz.ID,
		UserID:    &userID,
		ActiveKey: &key,
		Status:    types.SessionInProgress,
		ExpiresAt: now.Add(30 * time.Minute),
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("expected slot freed after submit, got %v", err)
	}
}

func TestAnswerUpsertReplacesPrevious(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	qr := repos.NewQuizRepo(db, log)
	sr := repos.NewQuizSessionRepo(db, log)
	ar := repos.NewQuizAnswerRepo(db, log)

	quiz := seedQuiz(t, ctx, qr)
	now := time.Now().UTC()
	session, err := sr.Create(ctx, nil, &types.QuizSession{
		Token:     uuid.NewString(),
		QuizID:    quiz.ID,
		Status:    types.SessionInProgress,
		ExpiresAt: now.Add(30 * time.Minute),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	questionID := quiz.Questions[1].ID
	first := 3.0
	if _, err := ar.Upsert(ctx, nil, &types.QuizAnswer{
		SessionID:   session.ID,
		QuestionID:  questionID,
		RatingValue: &first,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := 5.0
	if _, err := ar.Upsert(ctx, nil, &types.QuizAnswer{
		SessionID:   session.ID,
		QuestionID:  questionID,
		RatingValue: &second,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	answers, err := ar.GetBySession(ctx, nil, session.ID)
	if err != nil {
		t.Fatalf("get answers: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("expected 1 answer got %d", len(answers))
	}
	if answers[0].RatingValue == nil || *answers[0].RatingValue != 5.0 {
		t.Fatalf("expected latest rating 5.0 got %v", answers[0].RatingValue)
	}
}

func TestPointsAwardIsIdempotentPerSource(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	ur := repos.NewUserRepo(db, log)
	pr := repos.NewPointsRepo(db, log)

	now := time.Now().UTC()
	user, err := ur.Create(ctx, nil, &types.User{
		Email: "traveler@example.com", Password: "x", Nickname: "traveler",
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	sourceID := uuid.New()
	awarded, err := pr.Award(ctx, nil, user.ID, 20, types.PointReasonQuizCompleted, sourceID)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if !awarded {
		t.Fatalf("expected first award to land")
	}

	awarded, err = pr.Award(ctx, nil, user.ID, 20, types.PointReasonQuizCompleted, sourceID)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if awarded {
		t.Fatalf("expected repeat award to be skipped")
	}

	balance, err := pr.GetBalance(ctx, nil, user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 20 {
		t.Fatalf("expected balance 20 got %d", balance)
	}
}

func TestRoleplayAdvanceStateVersionGuard(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	scr := repos.NewRoleplayScriptRepo(db, log)
	ssr := repos.NewRoleplaySessionRepo(db, log)

	now := time.Now().UTC()
	script, err := scr.Create(ctx, nil, &types.RoleplayScript{
		Slug: "first-day", Title: "First Day", IsPublished: true,
		Content:   mustJSON(t, map[string]interface{}{"start": "intro"}),
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create script: %v", err)
	}

	session, err := ssr.Create(ctx, nil, &types.RoleplaySession{
		Token:     uuid.NewString(),
		ScriptID:  script.ID,
		Status:    types.SessionInProgress,
		ExpiresAt: now.Add(30 * time.Minute),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	state := mustJSON(t, map[string]interface{}{"scene_id": "standup"})
	ok, err := ssr.AdvanceState(ctx, nil, session.ID, 0, state, 50, false, now)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !ok {
		t.Fatalf("expected advance at version 0 to succeed")
	}

	// Stale version loses.
	ok, err = ssr.AdvanceState(ctx, nil, session.ID, 0, state, 50, false, now)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if ok {
		t.Fatalf("expected stale advance to be rejected")
	}

	got, err := ssr.GetByToken(ctx, nil, session.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("expected version 1 got %d", got.Version)
	}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
