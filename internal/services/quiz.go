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
	"github.com/orbitpath/orbitpath-backend/internal/scoring"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

const (
	// DefaultSessionTTL bounds how long an open session accepts answers.
	DefaultSessionTTL = 30 * time.Minute

	// MaxRecommendations caps the recommendation list on a quiz report.
	MaxRecommendations = 3

	PointsQuizCompleted     = 20
	PointsRoleplayCompleted = 30
)

// AnswerInput is the client payload for answering one question. Exactly one
// of the value fields must be set, matching the question's type.
type AnswerInput struct {
	QuestionID   uuid.UUID          `json:"question_id"`
	OptionID     *uuid.UUID         `json:"option_id,omitempty"`
	OptionIDs    []uuid.UUID        `json:"option_ids,omitempty"`
	RatingValue  *float64           `json:"rating_value,omitempty"`
	Distribution map[string]float64 `json:"distribution,omitempty"`
}

// StartResult reports the session handed to the client and whether an
// existing open session was resumed instead of a new one being created.
type StartResult struct {
	Session *types.QuizSession `json:"session"`
	Resumed bool               `json:"resumed"`
}

// SessionQuestions bundles the quiz definition with the answers the session
// has recorded so far, so a client can restore its local state after resuming.
type SessionQuestions struct {
	Session   *types.QuizSession  `json:"session"`
	Questions []*types.Question   `json:"questions"`
	Answers   []*types.QuizAnswer `json:"answers"`
}

type QuizService interface {
	ListQuizzes(ctx context.Context) ([]*types.Quiz, error)
	StartSession(ctx context.Context, slug string) (*StartResult, error)
	GetQuestions(ctx context.Context, token string) (*SessionQuestions, error)
	SaveAnswer(ctx context.Context, token string, input AnswerInput) (*types.QuizAnswer, error)
	Submit(ctx context.Context, token string) (*types.Report, error)
}

type quizService struct {
	db            *gorm.DB
	log           *logger.Logger
	quizRepo      repos.QuizRepo
	sessionRepo   repos.QuizSessionRepo
	answerRepo    repos.QuizAnswerRepo
	reportRepo    repos.ReportRepo
	pointsRepo    repos.PointsRepo
	careerService CareerService
	sessionTTL    time.Duration
}

func NewQuizService(
	db *gorm.DB,
	log *logger.Logger,
	quizRepo repos.QuizRepo,
	sessionRepo repos.QuizSessionRepo,
	answerRepo repos.QuizAnswerRepo,
	reportRepo repos.ReportRepo,
	pointsRepo repos.PointsRepo,
	careerService CareerService,
	sessionTTL time.Duration,
) QuizService {
	serviceLog := log.With("service", "QuizService")
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &quizService{
		db:            db,
		log:           serviceLog,
		quizRepo:      quizRepo,
		sessionRepo:   sessionRepo,
		answerRepo:    answerRepo,
		reportRepo:    reportRepo,
		pointsRepo:    pointsRepo,
		careerService: careerService,
		sessionTTL:    sessionTTL,
	}
}

func (qs *quizService) ListQuizzes(ctx context.Context) ([]*types.Quiz, error) {
	return qs.quizRepo.ListPublished(ctx, nil)
}

// StartSession opens a session against a published quiz. A signed-in user
// with a live session on the same quiz gets that session back instead of a
// fresh one, so a page reload never forks their progress.
func (qs *quizService) StartSession(ctx context.Context, slug string) (*StartResult, error) {
	quiz, err := qs.quizRepo.GetBySlug(ctx, nil, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz %q: %w", slug, err)
	}
	if !quiz.IsPublished {
		return nil, fmt.Errorf("quiz %q is not published: %w", slug, apperr.ErrNotFound)
	}

	now := time.Now().UTC()
	userID := requestdata.UserID(ctx)

	if userID != nil {
		existing, err := qs.sessionRepo.GetOpenForUser(ctx, nil, quiz.ID, *userID, now)
		if err == nil {
			existing.Quiz = quiz
			return &StartResult{Session: existing, Resumed: true}, nil
		}
		if !apperr.IsNotFound(err) {
			return nil, fmt.Errorf("failed to look up open session: %w", err)
		}
	}

	session := &types.QuizSession{
		ID:        uuid.New(),
		Token:     uuid.NewString(),
		QuizID:    quiz.ID,
		UserID:    userID,
		ActiveKey: activeSessionKey(quiz.ID, userID),
		Status:    types.SessionInProgress,
		ExpiresAt: now.Add(qs.sessionTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := qs.sessionRepo.Create(ctx, nil, session)
	if errors.Is(err, gorm.ErrDuplicatedKey) && userID != nil {
		// The active-key slot is taken: either a concurrent start won the
		// race, or a stale session past its deadline still holds it.
		existing, oErr := qs.sessionRepo.GetOpenForUser(ctx, nil, quiz.ID, *userID, now)
		if oErr == nil {
			existing.Quiz = quiz
			return &StartResult{Session: existing, Resumed: true}, nil
		}
		if !apperr.IsNotFound(oErr) {
			return nil, fmt.Errorf("failed to look up open session: %w", oErr)
		}
		if rErr := qs.sessionRepo.ReleaseStale(ctx, nil, quiz.ID, *userID, now); rErr != nil {
			return nil, fmt.Errorf("failed to release stale session: %w", rErr)
		}
		session.ID = uuid.New()
		session.Token = uuid.NewString()
		created, err = qs.sessionRepo.Create(ctx, nil, session)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	created.Quiz = quiz
	return &StartResult{Session: created, Resumed: false}, nil
}

func (qs *quizService) GetQuestions(ctx context.Context, token string) (*SessionQuestions, error) {
	session, err := qs.liveSession(ctx, token)
	if err != nil {
		return nil, err
	}
	questions, err := qs.quizRepo.GetQuestions(ctx, nil, session.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	answers, err := qs.answerRepo.GetBySession(ctx, nil, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	return &SessionQuestions{Session: session, Questions: questions, Answers: answers}, nil
}

// SaveAnswer validates the payload shape against the question's declared type
// and upserts it. Re-answering replaces the previous answer.
func (qs *quizService) SaveAnswer(ctx context.Context, token string, input AnswerInput) (*types.QuizAnswer, error) {
	session, err := qs.liveSession(ctx, token)
	if err != nil {
		return nil, err
	}

	questions, err := qs.quizRepo.GetQuestions(ctx, nil, session.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	var target *types.Question
	for _, q := range questions {
		if q.ID == input.QuestionID {
			target = q
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("question %s not part of this quiz: %w", input.QuestionID, apperr.ErrNotFound)
	}

	sq, err := toScoringQuestion(target)
	if err != nil {
		return nil, err
	}
	sa, err := inputToScoringAnswer(input)
	if err != nil {
		return nil, err
	}
	if err := scoring.ValidateAnswer(sq, sa); err != nil {
		return nil, err
	}

	record, err := answerRecord(session.ID, input)
	if err != nil {
		return nil, err
	}
	saved, err := qs.answerRepo.Upsert(ctx, nil, record)
	if err != nil {
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}
	return saved, nil
}

// Submit closes the session and assembles its report atomically. The
// completing status transition doubles as the idempotency gate: repeated
// submits of a session that already produced a report get that report back
// unchanged, and a session stranded in submitted by an interrupted submit is
// finalized on the next attempt instead of wedging.
func (qs *quizService) Submit(ctx context.Context, token string) (*types.Report, error) {
	session, err := qs.liveSessionForSubmit(ctx, token)
	if err != nil {
		return nil, err
	}

	if report, rErr := qs.reportRepo.GetBySessionID(ctx, nil, session.ID); rErr == nil {
		return report, nil
	} else if !apperr.IsNotFound(rErr) {
		return nil, fmt.Errorf("failed to look up report: %w", rErr)
	}

	now := time.Now().UTC()
	switch session.Status {
	case types.SessionInProgress:
		// A lost transition here means a concurrent submit moved the session
		// first. Fall through anyway; the completing transition below picks
		// the single caller that assembles the report.
		if _, tErr := qs.sessionRepo.TransitionStatus(ctx, nil, session.ID, types.SessionInProgress, types.SessionSubmitted, now); tErr != nil {
			return nil, fmt.Errorf("failed to submit session: %w", tErr)
		}
	case types.SessionSubmitted:
		// An earlier submit moved the status but never reached the report
		// transaction. Resume finalizing from where it stopped.
	default:
		return nil, fmt.Errorf("session %q is %s without a report: %w", token, session.Status, apperr.ErrCorruptState)
	}

	questions, err := qs.quizRepo.GetQuestions(ctx, nil, session.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	answers, err := qs.answerRepo.GetBySession(ctx, nil, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	scoringQuestions := make([]scoring.Question, 0, len(questions))
	for _, q := range questions {
		sq, cErr := toScoringQuestion(q)
		if cErr != nil {
			return nil, cErr
		}
		scoringQuestions = append(scoringQuestions, sq)
	}
	scoringAnswers := make([]scoring.Answer, 0, len(answers))
	for _, a := range answers {
		sa, cErr := storedToScoringAnswer(a)
		if cErr != nil {
			return nil, cErr
		}
		scoringAnswers = append(scoringAnswers, sa)
	}

	raw, err := scoring.Score(scoringQuestions, scoringAnswers)
	if err != nil {
		return nil, err
	}
	profile := raw.Normalize(scoring.MaxAttainable(scoringQuestions))

	catalog, err := qs.careerService.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load career catalog: %w", err)
	}
	recs := scoring.Match(profile, catalog, MaxRecommendations)

	result := QuizResult{
		Raw:             raw,
		Dimensions:      profile,
		HollandCode:     scoring.HollandCode(profile),
		UniqueAdvantage: scoring.UniqueAdvantage(profile),
		AnsweredCount:   len(answers),
		QuestionCount:   len(questions),
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	var report *types.Report
	err = qs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		completed, tErr := qs.sessionRepo.TransitionStatus(ctx, tx, session.ID, types.SessionSubmitted, types.SessionCompleted, now)
		if tErr != nil {
			return fmt.Errorf("failed to complete session: %w", tErr)
		}
		if !completed {
			return fmt.Errorf("session %q finalized concurrently: %w", session.Token, apperr.ErrConflict)
		}
		report = &types.Report{
			ID:        uuid.New(),
			SessionID: session.ID,
			UserID:    session.UserID,
			Kind:      types.ReportKindQuiz,
			Result:    resultJSON,
			CreatedAt: now,
			UpdatedAt: now,
		}
		for i, rec := range recs {
			report.Recommendations = append(report.Recommendations, types.Recommendation{
				ID:         uuid.New(),
				CareerID:   rec.CareerID,
				Rank:       i + 1,
				Score:      rec.Score,
				Reason:     rec.Reason,
				Backfilled: rec.Backfilled,
				CreatedAt:  now,
			})
		}
		if _, cErr := qs.reportRepo.Create(ctx, tx, report); cErr != nil {
			return fmt.Errorf("failed to create report: %w", cErr)
		}
		if session.UserID != nil {
			if _, pErr := qs.pointsRepo.Award(ctx, tx, *session.UserID, PointsQuizCompleted, types.PointReasonQuizCompleted, session.ID); pErr != nil {
				return fmt.Errorf("failed to award points: %w", pErr)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			if existing, rErr := qs.reportRepo.GetBySessionID(ctx, nil, session.ID); rErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	qs.log.Info("Quiz session completed", "token", session.Token, "holland_code", result.HollandCode)
	return report, nil
}

// liveSession loads a session by token and applies lazy expiry: a session
// past its deadline is flipped to expired as a side effect of the access.
func (qs *quizService) liveSession(ctx context.Context, token string) (*types.QuizSession, error) {
	session, err := qs.sessionRepo.GetByToken(ctx, nil, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %q: %w", token, err)
	}
	now := time.Now().UTC()
	if session.Expired(now) {
		if mErr := qs.sessionRepo.MarkExpired(ctx, nil, session.ID); mErr != nil {
			qs.log.Warn("Failed to mark session expired", "token", token, "error", mErr)
		}
		return nil, fmt.Errorf("session %q past its deadline: %w", token, apperr.ErrExpired)
	}
	if session.Status != types.SessionInProgress {
		return nil, fmt.Errorf("session %q is %s: %w", token, session.Status, apperr.ErrSessionClosed)
	}
	return session, nil
}

// liveSessionForSubmit is liveSession without the in_progress requirement, so
// a repeated submit can fall through to the idempotent report lookup.
func (qs *quizService) liveSessionForSubmit(ctx context.Context, token string) (*types.QuizSession, error) {
	session, err := qs.sessionRepo.GetByToken(ctx, nil, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %q: %w", token, err)
	}
	now := time.Now().UTC()
	if session.Expired(now) {
		if mErr := qs.sessionRepo.MarkExpired(ctx, nil, session.ID); mErr != nil {
			qs.log.Warn("Failed to mark session expired", "token", token, "error", mErr)
		}
		return nil, fmt.Errorf("session %q past its deadline: %w", token, apperr.ErrExpired)
	}
	return session, nil
}

// activeSessionKey builds the unique slot value a signed-in user's live
// session holds, nil for anonymous sessions.
func activeSessionKey(defID uuid.UUID, userID *uuid.UUID) *string {
	if userID == nil {
		return nil
	}
	key := defID.String() + ":" + userID.String()
	return &key
}

// QuizResult is the immutable payload stored on a quiz report.
type QuizResult struct {
	Raw             scoring.Vector `json:"raw"`
	Dimensions      scoring.Vector `json:"dimensions"`
	HollandCode     string         `json:"holland_code"`
	UniqueAdvantage string         `json:"unique_advantage"`
	AnsweredCount   int            `json:"answered_count"`
	QuestionCount   int            `json:"question_count"`
}

func toScoringQuestion(q *types.Question) (scoring.Question, error) {
	qt, err := scoring.ParseQuestionType(q.Type)
	if err != nil {
		return scoring.Question{}, fmt.Errorf("question %s: %w: %v", q.ID, apperr.ErrCorruptState, err)
	}

	var settings types.QuestionSettings
	if len(q.Settings) > 0 {
		if err := json.Unmarshal(q.Settings, &settings); err != nil {
			return scoring.Question{}, fmt.Errorf("question %s has bad settings: %w", q.ID, apperr.ErrCorruptState)
		}
	}

	sq := scoring.Question{
		ID:        q.ID,
		Type:      qt,
		Weight:    q.Weight,
		MaxRating: settings.MaxRating,
		MaxSelect: settings.MaxSelect,
	}
	if q.Dimension != "" {
		code, err := scoring.ParseCode(q.Dimension)
		if err != nil {
			return scoring.Question{}, fmt.Errorf("question %s: %w: %v", q.ID, apperr.ErrCorruptState, err)
		}
		sq.Dimension = code
	}
	for _, raw := range settings.Dimensions {
		code, err := scoring.ParseCode(raw)
		if err != nil {
			return scoring.Question{}, fmt.Errorf("question %s: %w: %v", q.ID, apperr.ErrCorruptState, err)
		}
		sq.Dimensions = append(sq.Dimensions, code)
	}
	for _, opt := range q.Options {
		code, err := scoring.ParseCode(opt.Dimension)
		if err != nil {
			return scoring.Question{}, fmt.Errorf("option %s: %w: %v", opt.ID, apperr.ErrCorruptState, err)
		}
		sq.Options = append(sq.Options, scoring.Option{ID: opt.ID, Dimension: code, Weight: opt.Weight})
	}
	return sq, nil
}

func inputToScoringAnswer(input AnswerInput) (scoring.Answer, error) {
	sa := scoring.Answer{
		QuestionID:  input.QuestionID,
		OptionID:    input.OptionID,
		OptionIDs:   input.OptionIDs,
		RatingValue: input.RatingValue,
	}
	if len(input.Distribution) > 0 {
		sa.Distribution = make(map[scoring.Code]float64, len(input.Distribution))
		for raw, share := range input.Distribution {
			code, err := scoring.ParseCode(raw)
			if err != nil {
				return scoring.Answer{}, fmt.Errorf("unknown dimension %q: %w", raw, apperr.ErrInvalidAnswerShape)
			}
			sa.Distribution[code] = share
		}
	}
	return sa, nil
}

func storedToScoringAnswer(a *types.QuizAnswer) (scoring.Answer, error) {
	sa := scoring.Answer{
		QuestionID:  a.QuestionID,
		OptionID:    a.OptionID,
		RatingValue: a.RatingValue,
	}
	if len(a.OptionIDs) > 0 {
		if err := json.Unmarshal(a.OptionIDs, &sa.OptionIDs); err != nil {
			return scoring.Answer{}, fmt.Errorf("answer %s has bad option ids: %w", a.ID, apperr.ErrCorruptState)
		}
	}
	if len(a.Distribution) > 0 {
		if err := json.Unmarshal(a.Distribution, &sa.Distribution); err != nil {
			return scoring.Answer{}, fmt.Errorf("answer %s has bad distribution: %w", a.ID, apperr.ErrCorruptState)
		}
	}
	return sa, nil
}

func answerRecord(sessionID uuid.UUID, input AnswerInput) (*types.QuizAnswer, error) {
	now := time.Now().UTC()
	record := &types.QuizAnswer{
		ID:          uuid.New(),
		SessionID:   sessionID,
		QuestionID:  input.QuestionID,
		OptionID:    input.OptionID,
		RatingValue: input.RatingValue,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(input.OptionIDs) > 0 {
		encoded, err := json.Marshal(input.OptionIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to encode option ids: %w", err)
		}
		record.OptionIDs = encoded
	}
	if len(input.Distribution) > 0 {
		encoded, err := json.Marshal(input.Distribution)
		if err != nil {
			return nil, fmt.Errorf("failed to encode distribution: %w", err)
		}
		record.Distribution = encoded
	}
	return record, nil
}
