package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orbitpath/orbitpath-backend/internal/apperr"
	"github.com/orbitpath/orbitpath-backend/internal/repos"
	"github.com/orbitpath/orbitpath-backend/internal/requestdata"
	"github.com/orbitpath/orbitpath-backend/internal/services"
	"github.com/orbitpath/orbitpath-backend/internal/testutil"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

type quizFixture struct {
	db        *gorm.DB
	quizSvc   services.QuizService
	reportSvc services.ReportService
	quiz      *types.Quiz
	users     repos.UserRepo
	points    repos.PointsRepo
	sessions  repos.QuizSessionRepo
}

func newQuizFixture(t *testing.T) *quizFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	quizRepo := repos.NewQuizRepo(db, log)
	sessionRepo := repos.NewQuizSessionRepo(db, log)
	answerRepo := repos.NewQuizAnswerRepo(db, log)
	reportRepo := repos.NewReportRepo(db, log)
	pointsRepo := repos.NewPointsRepo(db, log)
	careerRepo := repos.NewCareerRepo(db, log)
	userRepo := repos.NewUserRepo(db, log)

	careerSvc := services.NewCareerService(db, log, careerRepo, nil)
	quizSvc := services.NewQuizService(db, log, quizRepo, sessionRepo, answerRepo, reportRepo, pointsRepo, careerSvc, 30*time.Minute)
	roleplaySessionRepo := repos.NewRoleplaySessionRepo(db, log)
	reportSvc := services.NewReportService(db, log, reportRepo, sessionRepo, roleplaySessionRepo, careerSvc)

	ctx := context.Background()
	now := time.Now().UTC()

	ratingSettings, _ := json.Marshal(types.QuestionSettings{MaxRating: 5})
	quiz := &types.Quiz{
		Slug:        "explorer",
		Title:       "Explorer",
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
		Questions: []types.Question{
			{
				Position: 0, Type: "single_choice", Content: "Pick one",
				CreatedAt: now, UpdatedAt: now,
				Options: []types.Option{
					{Position: 0, Content: "Build", Dimension: "R", Weight: 2, CreatedAt: now},
					{Position: 1, Content: "Research", Dimension: "I", Weight: 2, CreatedAt: now},
				},
			},
			{
				Position: 1, Type: "rating", Content: "Rate puzzles", Dimension: "I", Weight: 10,
				Settings: ratingSettings, CreatedAt: now, UpdatedAt: now,
			},
		},
	}
	if _, err := quizRepo.Create(ctx, nil, quiz); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}

	dims, _ := json.Marshal(map[string]float64{"I": 0.9, "R": 0.3})
	if _, err := careerRepo.Create(ctx, nil, []*types.Career{{
		Name: "Research Scientist", Description: "Asks hard questions.",
		Dimensions: dims, Popularity: 70, CreatedAt: now, UpdatedAt: now,
	}}); err != nil {
		t.Fatalf("seed career: %v", err)
	}

	return &quizFixture{
		db:        db,
		quizSvc:   quizSvc,
		reportSvc: reportSvc,
		quiz:      quiz,
		users:     userRepo,
		points:    pointsRepo,
		sessions:  sessionRepo,
	}
}

func userContext(t *testing.T, f *quizFixture) (context.Context, uuid.UUID) {
	t.Helper()
	now := time.Now().UTC()
	user, err := f.users.Create(context.Background(), nil, &types.User{
		Email: "kid@example.com", Password: "x", Nickname: "kid",
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	ctx := requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: user.ID})
	return ctx, user.ID
}

func TestQuizLifecycle(t *testing.T) {
	f := newQuizFixture(t)
	ctx, userID := userContext(t, f)

	started, err := f.quizSvc.StartSession(ctx, "explorer")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Resumed {
		t.Fatalf("expected a fresh session")
	}
	token := started.Session.Token

	// Starting again resumes the same session.
	again, err := f.quizSvc.StartSession(ctx, "explorer")
	if err != nil {
		t.Fatalf("start again: %v", err)
	}
	if !again.Resumed || again.Session.Token != token {
		t.Fatalf("expected resumption of %s, got %s (resumed=%v)", token, again.Session.Token, again.Resumed)
	}

	optionID := f.quiz.Questions[0].Options[1].ID
	if _, err := f.quizSvc.SaveAnswer(ctx, token, services.AnswerInput{
		QuestionID: f.quiz.Questions[0].ID,
		OptionID:   &optionID,
	}); err != nil {
		t.Fatalf("answer choice: %v", err)
	}
	rating := 4.0
	if _, err := f.quizSvc.SaveAnswer(ctx, token, services.AnswerInput{
		QuestionID:  f.quiz.Questions[1].ID,
		RatingValue: &rating,
	}); err != nil {
		t.Fatalf("answer rating: %v", err)
	}

	report, err := f.quizSvc.Submit(ctx, token)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if report.Kind != types.ReportKindQuiz {
		t.Fatalf("expected quiz report, got %q", report.Kind)
	}
	var result services.QuizResult
	if err := json.Unmarshal(report.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	// Rating 4/5 on weight 10 plus the option pick: I raw is 2+8=10 of max 12.
	if result.Raw["I"] != 10 {
		t.Fatalf("expected raw I=10 got %g", result.Raw["I"])
	}
	if len(report.Recommendations) == 0 {
		t.Fatalf("expected recommendations on the report")
	}

	// Submit is idempotent: a retry returns the same report.
	repeat, err := f.quizSvc.Submit(ctx, token)
	if err != nil {
		t.Fatalf("repeat submit: %v", err)
	}
	if repeat.ID != report.ID {
		t.Fatalf("expected same report %s, got %s", report.ID, repeat.ID)
	}

	// Completion paid out exactly once.
	balance, err := f.points.GetBalance(ctx, nil, userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != services.PointsQuizCompleted {
		t.Fatalf("expected %d points got %d", services.PointsQuizCompleted, balance)
	}

	// The closed session no longer accepts answers.
	if _, err := f.quizSvc.SaveAnswer(ctx, token, services.AnswerInput{
		QuestionID:  f.quiz.Questions[1].ID,
		RatingValue: &rating,
	}); !errors.Is(err, apperr.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestQuizAnswerShapeRejected(t *testing.T) {
	f := newQuizFixture(t)
	ctx := context.Background()

	started, err := f.quizSvc.StartSession(ctx, "explorer")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// A rating payload against a choice question must be rejected unsaved.
	rating := 3.0
	_, err = f.quizSvc.SaveAnswer(ctx, started.Session.Token, services.AnswerInput{
		QuestionID:  f.quiz.Questions[0].ID,
		RatingValue: &rating,
	})
	if !errors.Is(err, apperr.ErrInvalidAnswerShape) {
		t.Fatalf("expected ErrInvalidAnswerShape, got %v", err)
	}

	result, err := f.quizSvc.GetQuestions(ctx, started.Session.Token)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(result.Answers) != 0 {
		t.Fatalf("expected no stored answers, got %d", len(result.Answers))
	}
}

func TestQuizSessionLazyExpiry(t *testing.T) {
	f := newQuizFixture(t)
	ctx := context.Background()

	started, err := f.quizSvc.StartSession(ctx, "explorer")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	token := started.Session.Token

	// Push the deadline into the past behind the service's back.
	if err := f.db.Model(&types.QuizSession{}).
		Where("id = ?", started.Session.ID).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("rewind deadline: %v", err)
	}

	rating := 2.0
	_, err = f.quizSvc.SaveAnswer(ctx, token, services.AnswerInput{
		QuestionID:  f.quiz.Questions[1].ID,
		RatingValue: &rating,
	})
	if !errors.Is(err, apperr.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	// The access flipped the stored status.
	session, err := f.sessions.GetByToken(ctx, nil, token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.Status != types.SessionExpired {
		t.Fatalf("expected expired status, got %q", session.Status)
	}

	if _, err := f.quizSvc.Submit(ctx, token); !errors.Is(err, apperr.ErrExpired) {
		t.Fatalf("expected ErrExpired on submit, got %v", err)
	}
}

func TestQuizStartReclaimsStaleSessionSlot(t *testing.T) {
	f := newQuizFixture(t)
	ctx, _ := userContext(t, f)

	started, err := f.quizSvc.StartSession(ctx, "explorer")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Let the session lapse without any access touching it. Its stored
	// status stays in_progress and it still holds the active-key slot.
	if err := f.db.Model(&types.QuizSession{}).
		Where("id = ?", started.Session.ID).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("rewind deadline: %v", err)
	}

	fresh, err := f.quizSvc.StartSession(ctx, "explorer")
	if err != nil {
		t.Fatalf("start over stale slot: %v", err)
	}
	if fresh.Resumed {
		t.Fatalf("expected a fresh session over the lapsed one")
	}
	if fresh.Session.Token == started.Session.Token {
		t.Fatalf("expected a new token, got the stale session back")
	}

	old, err := f.sessions.GetByToken(ctx, nil, started.Session.Token)
	if err != nil {
		t.Fatalf("get stale session: %v", err)
	}
	if old.Status != types.SessionExpired {
		t.Fatalf("expected stale session expired, got %q", old.Status)
	}
}

func TestQuizSubmitResumesInterruptedFinalize(t *testing.T) {
	f := newQuizFixture(t)
	ctx, userID := userContext(t, f)

	started, err := f.quizSvc.StartSession(ctx, "explorer")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	token := started.Session.Token

	optionID := f.quiz.Questions[0].Options[1].ID
	if _, err := f.quizSvc.SaveAnswer(ctx, token, services.AnswerInput{
		QuestionID: f.quiz.Questions[0].ID,
		OptionID:   &optionID,
	}); err != nil {
		t.Fatalf("answer choice: %v", err)
	}
	rating := 4.0
	if _, err := f.quizSvc.SaveAnswer(ctx, token, services.AnswerInput{
		QuestionID:  f.quiz.Questions[1].ID,
		RatingValue: &rating,
	}); err != nil {
		t.Fatalf("answer rating: %v", err)
	}

	// Strand the session mid-submit, as if the process died after moving
	// the status but before the report transaction.
	if err := f.db.Model(&types.QuizSession{}).
		Where("id = ?", started.Session.ID).
		Update("status", types.SessionSubmitted).Error; err != nil {
		t.Fatalf("strand session: %v", err)
	}

	// A retry must pick the submit back up, not wedge on a conflict.
	report, err := f.quizSvc.Submit(ctx, token)
	if err != nil {
		t.Fatalf("submit after interruption: %v", err)
	}
	if report.Kind != types.ReportKindQuiz {
		t.Fatalf("expected quiz report, got %q", report.Kind)
	}

	session, err := f.sessions.GetByToken(ctx, nil, token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.Status != types.SessionCompleted {
		t.Fatalf("expected completed status, got %q", session.Status)
	}

	balance, err := f.points.GetBalance(ctx, nil, userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != services.PointsQuizCompleted {
		t.Fatalf("expected %d points got %d", services.PointsQuizCompleted, balance)
	}
}

func TestRecommendMineUsesLatestQuizProfile(t *testing.T) {
	f := newQuizFixture(t)
	ctx, _ := userContext(t, f)

	started, err := f.quizSvc.StartSession(ctx, "explorer")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	rating := 5.0
	if _, err := f.quizSvc.SaveAnswer(ctx, started.Session.Token, services.AnswerInput{
		QuestionID:  f.quiz.Questions[1].ID,
		RatingValue: &rating,
	}); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := f.quizSvc.Submit(ctx, started.Session.Token); err != nil {
		t.Fatalf("submit: %v", err)
	}

	recs, err := f.reportSvc.RecommendMine(ctx, 1)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if recs[0].Name != "Research Scientist" {
		t.Fatalf("expected the investigative career, got %q", recs[0].Name)
	}

	// Anonymous callers have no profile to recommend against.
	if _, err := f.reportSvc.RecommendMine(context.Background(), 1); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestAnonymousSessionsDoNotResume(t *testing.T) {
	f := newQuizFixture(t)
	ctx := context.Background()

	first, err := f.quizSvc.StartSession(ctx, "explorer")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	second, err := f.quizSvc.StartSession(ctx, "explorer")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if first.Session.Token == second.Session.Token {
		t.Fatalf("anonymous starts must not share a session")
	}
}
