package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/orbitpath/orbitpath-backend/internal/apperr"
)

// QuestionType is the closed tagged set of question shapes. An answer's shape
// must match its question's declared type; the match is checked at write time,
// never deferred to scoring.
type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	MultiChoice  QuestionType = "multi_choice"
	Rating       QuestionType = "rating"
	Distribution QuestionType = "distribution"
)

// distributionTolerance absorbs float rounding in client-supplied shares.
// A distribution answer must sum to 1 within this bound.
const distributionTolerance = 0.001

func ParseQuestionType(raw string) (QuestionType, error) {
	switch QuestionType(raw) {
	case SingleChoice, MultiChoice, Rating, Distribution:
		return QuestionType(raw), nil
	}
	return "", fmt.Errorf("unknown question type %q", raw)
}

// Option is one selectable choice carrying a dimension and a score weight.
type Option struct {
	ID        uuid.UUID
	Dimension Code
	Weight    float64
}

// Question is the scoring view of a quiz question. For Rating questions,
// Dimension and Weight describe the single scored axis and MaxRating the
// scale ceiling. For Distribution questions, Dimensions lists the axes the
// slider distributes over and Weight is the maximum weight per axis.
type Question struct {
	ID         uuid.UUID
	Type       QuestionType
	Dimension  Code
	Dimensions []Code
	Weight     float64
	MaxRating  float64
	MaxSelect  int
	Options    []Option
}

// Answer is the scoring view of a recorded answer. Exactly one payload field
// is populated, matching the question type.
type Answer struct {
	QuestionID   uuid.UUID
	OptionID     *uuid.UUID
	OptionIDs    []uuid.UUID
	RatingValue  *float64
	Distribution map[Code]float64
}

// ValidateAnswer checks an answer payload against its question's declared
// type. Violations surface as ErrInvalidAnswerShape so callers can reject the
// write before anything is stored.
func ValidateAnswer(q Question, a Answer) error {
	optionByID := make(map[uuid.UUID]Option, len(q.Options))
	for _, opt := range q.Options {
		optionByID[opt.ID] = opt
	}

	switch q.Type {
	case SingleChoice:
		if a.OptionID == nil || len(a.OptionIDs) > 0 || a.RatingValue != nil || a.Distribution != nil {
			return fmt.Errorf("question %s expects a single option id: %w", q.ID, apperr.ErrInvalidAnswerShape)
		}
		if _, ok := optionByID[*a.OptionID]; !ok {
			return fmt.Errorf("option %s does not belong to question %s: %w", *a.OptionID, q.ID, apperr.ErrInvalidAnswerShape)
		}
	case MultiChoice:
		if len(a.OptionIDs) == 0 || a.OptionID != nil || a.RatingValue != nil || a.Distribution != nil {
			return fmt.Errorf("question %s expects a set of option ids: %w", q.ID, apperr.ErrInvalidAnswerShape)
		}
		if q.MaxSelect > 0 && len(dedupe(a.OptionIDs)) > q.MaxSelect {
			return fmt.Errorf("question %s allows at most %d selections: %w", q.ID, q.MaxSelect, apperr.ErrInvalidAnswerShape)
		}
		for _, id := range a.OptionIDs {
			if _, ok := optionByID[id]; !ok {
				return fmt.Errorf("option %s does not belong to question %s: %w", id, q.ID, apperr.ErrInvalidAnswerShape)
			}
		}
	case Rating:
		if a.RatingValue == nil || a.OptionID != nil || len(a.OptionIDs) > 0 || a.Distribution != nil {
			return fmt.Errorf("question %s expects a numeric rating: %w", q.ID, apperr.ErrInvalidAnswerShape)
		}
		if *a.RatingValue < 0 || (q.MaxRating > 0 && *a.RatingValue > q.MaxRating) {
			return fmt.Errorf("rating %g outside scale for question %s: %w", *a.RatingValue, q.ID, apperr.ErrInvalidAnswerShape)
		}
	case Distribution:
		if len(a.Distribution) == 0 || a.OptionID != nil || len(a.OptionIDs) > 0 || a.RatingValue != nil {
			return fmt.Errorf("question %s expects a distribution payload: %w", q.ID, apperr.ErrInvalidAnswerShape)
		}
		declared := make(map[Code]bool, len(q.Dimensions))
		for _, c := range q.Dimensions {
			declared[c] = true
		}
		sum := 0.0
		for c, share := range a.Distribution {
			if !declared[c] {
				return fmt.Errorf("dimension %s not declared on question %s: %w", c, q.ID, apperr.ErrInvalidAnswerShape)
			}
			if share < 0 || share > 1 {
				return fmt.Errorf("distribution share %g outside [0,1] on question %s: %w", share, q.ID, apperr.ErrInvalidAnswerShape)
			}
			sum += share
		}
		if math.Abs(sum-1) > distributionTolerance {
			return fmt.Errorf("distribution shares sum to %g, want 1 on question %s: %w", sum, q.ID, apperr.ErrInvalidAnswerShape)
		}
	default:
		return fmt.Errorf("question %s has unknown type %q: %w", q.ID, q.Type, apperr.ErrInvalidAnswerShape)
	}
	return nil
}

// Score aggregates validated answers into a raw dimension vector. Unanswered
// questions contribute zero. Pure and deterministic: the result depends only
// on the question set and the answer set, never on submission order.
func Score(questions []Question, answers []Answer) (Vector, error) {
	questionByID := make(map[uuid.UUID]Question, len(questions))
	for _, q := range questions {
		questionByID[q.ID] = q
	}

	raw := NewVector()
	for _, a := range answers {
		q, ok := questionByID[a.QuestionID]
		if !ok {
			return nil, fmt.Errorf("answer references question %s not in quiz: %w", a.QuestionID, apperr.ErrCorruptState)
		}
		if err := ValidateAnswer(q, a); err != nil {
			return nil, err
		}
		switch q.Type {
		case SingleChoice:
			opt := findOption(q, *a.OptionID)
			raw.Add(opt.Dimension, opt.Weight)
		case MultiChoice:
			for _, id := range dedupe(a.OptionIDs) {
				opt := findOption(q, id)
				raw.Add(opt.Dimension, opt.Weight)
			}
		case Rating:
			scale := q.MaxRating
			if scale <= 0 {
				scale = 1
			}
			raw.Add(q.Dimension, *a.RatingValue/scale*q.Weight)
		case Distribution:
			for c, share := range a.Distribution {
				raw.Add(c, share*q.Weight)
			}
		}
	}
	return raw, nil
}

// MaxAttainable precomputes, per dimension, the highest raw score the quiz
// definition allows. This is the denominator for profile normalization.
func MaxAttainable(questions []Question) Vector {
	max := NewVector()
	for _, q := range questions {
		switch q.Type {
		case SingleChoice, MultiChoice:
			limit := 1
			if q.Type == MultiChoice {
				limit = q.MaxSelect
				if limit <= 0 {
					limit = len(q.Options)
				}
			}
			perDim := make(map[Code][]float64)
			for _, opt := range q.Options {
				perDim[opt.Dimension] = append(perDim[opt.Dimension], opt.Weight)
			}
			for c, weights := range perDim {
				sortDesc(weights)
				n := limit
				if n > len(weights) {
					n = len(weights)
				}
				for i := 0; i < n; i++ {
					max.Add(c, weights[i])
				}
			}
		case Rating:
			max.Add(q.Dimension, q.Weight)
		case Distribution:
			for _, c := range q.Dimensions {
				max.Add(c, q.Weight)
			}
		}
	}
	return max
}

// Profile scores the answers and normalizes against the quiz definition in
// one step.
func Profile(questions []Question, answers []Answer) (Vector, error) {
	raw, err := Score(questions, answers)
	if err != nil {
		return nil, err
	}
	return raw.Normalize(MaxAttainable(questions)), nil
}

func findOption(q Question, id uuid.UUID) Option {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt
		}
	}
	return Option{}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func sortDesc(vals []float64) {
	sort.Sort(sort.Reverse(sort.Float64Slice(vals)))
}
