package scoring

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/orbitpath/orbitpath-backend/internal/apperr"
)

func singleChoiceQuestion(dims ...Code) Question {
	q := Question{ID: uuid.New(), Type: SingleChoice}
	for _, d := range dims {
		q.Options = append(q.Options, Option{ID: uuid.New(), Dimension: d, Weight: 1})
	}
	return q
}

func TestScoreRatingQuestion(t *testing.T) {
	q := Question{
		ID:        uuid.New(),
		Type:      Rating,
		Dimension: CodeRealistic,
		Weight:    10,
		MaxRating: 5,
	}
	rating := 4.0
	raw, err := Score([]Question{q}, []Answer{{QuestionID: q.ID, RatingValue: &rating}})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if raw[CodeRealistic] != 8 {
		t.Fatalf("raw R = %g, want 8", raw[CodeRealistic])
	}

	profile := raw.Normalize(MaxAttainable([]Question{q}))
	if profile[CodeRealistic] != 0.8 {
		t.Fatalf("normalized R = %g, want 0.8", profile[CodeRealistic])
	}
	for _, c := range Priority {
		if c == CodeRealistic {
			continue
		}
		if profile[c] != 0 {
			t.Fatalf("normalized %s = %g, want 0", c, profile[c])
		}
	}
}

func TestScoreChoiceQuestions(t *testing.T) {
	single := singleChoiceQuestion(CodeRealistic, CodeArtistic)
	multi := Question{ID: uuid.New(), Type: MultiChoice, MaxSelect: 2}
	multi.Options = []Option{
		{ID: uuid.New(), Dimension: CodeInvestigative, Weight: 2},
		{ID: uuid.New(), Dimension: CodeInvestigative, Weight: 1},
		{ID: uuid.New(), Dimension: CodeSocial, Weight: 3},
	}

	answers := []Answer{
		{QuestionID: single.ID, OptionID: &single.Options[1].ID},
		{QuestionID: multi.ID, OptionIDs: []uuid.UUID{multi.Options[0].ID, multi.Options[2].ID}},
	}
	raw, err := Score([]Question{single, multi}, answers)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if raw[CodeArtistic] != 1 || raw[CodeInvestigative] != 2 || raw[CodeSocial] != 3 {
		t.Fatalf("unexpected raw vector: %v", raw)
	}

	// Same answers in reverse order must produce the identical vector.
	reversed := []Answer{answers[1], answers[0]}
	raw2, err := Score([]Question{single, multi}, reversed)
	if err != nil {
		t.Fatalf("Score reversed: %v", err)
	}
	for _, c := range Priority {
		if raw[c] != raw2[c] {
			t.Fatalf("order-dependent score on %s: %g vs %g", c, raw[c], raw2[c])
		}
	}
}

func TestScoreDistributionQuestion(t *testing.T) {
	q := Question{
		ID:         uuid.New(),
		Type:       Distribution,
		Dimensions: []Code{CodeEnterprising, CodeConventional},
		Weight:     20,
	}
	raw, err := Score([]Question{q}, []Answer{{
		QuestionID:   q.ID,
		Distribution: map[Code]float64{CodeEnterprising: 0.75, CodeConventional: 0.25},
	}})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if raw[CodeEnterprising] != 15 || raw[CodeConventional] != 5 {
		t.Fatalf("unexpected raw vector: %v", raw)
	}
}

func TestValidateAnswerShapes(t *testing.T) {
	single := singleChoiceQuestion(CodeRealistic)
	rating := Question{ID: uuid.New(), Type: Rating, Dimension: CodeSocial, Weight: 5, MaxRating: 5}
	dist := Question{ID: uuid.New(), Type: Distribution, Dimensions: []Code{CodeEnterprising, CodeConventional}, Weight: 10}
	foreign := uuid.New()
	val := 3.0

	cases := []struct {
		name     string
		question Question
		answer   Answer
	}{
		{"multi payload on single choice", single, Answer{QuestionID: single.ID, OptionIDs: []uuid.UUID{single.Options[0].ID}}},
		{"foreign option id", single, Answer{QuestionID: single.ID, OptionID: &foreign}},
		{"rating on choice question", single, Answer{QuestionID: single.ID, RatingValue: &val}},
		{"missing rating value", rating, Answer{QuestionID: rating.ID}},
		{"rating above scale", rating, Answer{QuestionID: rating.ID, RatingValue: ptr(9.0)}},
		{"distribution over-allocated", dist, Answer{QuestionID: dist.ID, Distribution: map[Code]float64{CodeEnterprising: 1, CodeConventional: 1}}},
		{"distribution under-allocated", dist, Answer{QuestionID: dist.ID, Distribution: map[Code]float64{CodeEnterprising: 0.2}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateAnswer(tc.question, tc.answer); !errors.Is(err, apperr.ErrInvalidAnswerShape) {
				t.Fatalf("got %v, want ErrInvalidAnswerShape", err)
			}
		})
	}

	if err := ValidateAnswer(single, Answer{QuestionID: single.ID, OptionID: &single.Options[0].ID}); err != nil {
		t.Fatalf("valid answer rejected: %v", err)
	}
	if err := ValidateAnswer(dist, Answer{QuestionID: dist.ID, Distribution: map[Code]float64{CodeEnterprising: 0.6, CodeConventional: 0.4}}); err != nil {
		t.Fatalf("normalized distribution rejected: %v", err)
	}
}

func TestMaxSelectEnforcement(t *testing.T) {
	multi := Question{ID: uuid.New(), Type: MultiChoice, MaxSelect: 1}
	multi.Options = []Option{
		{ID: uuid.New(), Dimension: CodeRealistic, Weight: 1},
		{ID: uuid.New(), Dimension: CodeArtistic, Weight: 1},
	}
	err := ValidateAnswer(multi, Answer{
		QuestionID: multi.ID,
		OptionIDs:  []uuid.UUID{multi.Options[0].ID, multi.Options[1].ID},
	})
	if !errors.Is(err, apperr.ErrInvalidAnswerShape) {
		t.Fatalf("got %v, want ErrInvalidAnswerShape", err)
	}

	// Duplicate ids collapse before the limit check.
	err = ValidateAnswer(multi, Answer{
		QuestionID: multi.ID,
		OptionIDs:  []uuid.UUID{multi.Options[0].ID, multi.Options[0].ID},
	})
	if err != nil {
		t.Fatalf("deduplicated selection rejected: %v", err)
	}
}

func TestMaxAttainableMultiChoice(t *testing.T) {
	multi := Question{ID: uuid.New(), Type: MultiChoice, MaxSelect: 2}
	multi.Options = []Option{
		{ID: uuid.New(), Dimension: CodeInvestigative, Weight: 3},
		{ID: uuid.New(), Dimension: CodeInvestigative, Weight: 2},
		{ID: uuid.New(), Dimension: CodeInvestigative, Weight: 1},
	}
	max := MaxAttainable([]Question{multi})
	if max[CodeInvestigative] != 5 {
		t.Fatalf("max I = %g, want 5 (top two weights)", max[CodeInvestigative])
	}
}

func TestUnansweredQuestionsContributeZero(t *testing.T) {
	q1 := singleChoiceQuestion(CodeRealistic)
	q2 := singleChoiceQuestion(CodeSocial)
	raw, err := Score([]Question{q1, q2}, []Answer{{QuestionID: q1.ID, OptionID: &q1.Options[0].ID}})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if raw[CodeSocial] != 0 {
		t.Fatalf("unanswered question contributed %g", raw[CodeSocial])
	}
}

func TestHollandCode(t *testing.T) {
	v := NewVector()
	v[CodeArtistic] = 3
	v[CodeRealistic] = 3
	v[CodeSocial] = 1
	// R and A tie; priority order puts R first.
	if got := HollandCode(v); got != "RAS" {
		t.Fatalf("HollandCode = %q, want RAS", got)
	}

	empty := NewVector()
	if got := HollandCode(empty); got != "" {
		t.Fatalf("HollandCode on zero vector = %q, want empty", got)
	}
}

func ptr(f float64) *float64 { return &f }
