package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/orbitpath/orbitpath-backend/internal/scoring"
	"github.com/orbitpath/orbitpath-backend/internal/services"
	"github.com/orbitpath/orbitpath-backend/internal/testutil"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

type stubGenerator struct {
	text string
	err  error
}

func (g *stubGenerator) GenerateText(ctx context.Context, system, user string) (string, error) {
	return g.text, g.err
}

func quizReport(t *testing.T) *types.Report {
	t.Helper()
	dims := scoring.NewVector()
	dims["I"] = 0.8
	dims["A"] = 0.5
	payload, err := json.Marshal(services.QuizResult{
		Dimensions:      dims,
		HollandCode:     "IA",
		UniqueAdvantage: "Your core strength is deep analysis.",
	})
	if err != nil {
		t.Fatalf("encode result: %v", err)
	}
	return &types.Report{Kind: types.ReportKindQuiz, Result: payload}
}

func TestNarrativePrefersGenerator(t *testing.T) {
	svc := services.NewNarrativeService(testutil.Logger(t), &stubGenerator{text: "A generated summary."})

	text, err := svc.ComposeNarrative(context.Background(), quizReport(t))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if text != "A generated summary." {
		t.Fatalf("expected generator output, got %q", text)
	}
}

func TestNarrativeFallsBackToTemplate(t *testing.T) {
	svc := services.NewNarrativeService(testutil.Logger(t), &stubGenerator{err: errors.New("upstream down")})

	text, err := svc.ComposeNarrative(context.Background(), quizReport(t))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !strings.Contains(text, "IA") {
		t.Fatalf("templated narrative should mention the interest code, got %q", text)
	}
	if !strings.Contains(text, "deep analysis") {
		t.Fatalf("templated narrative should carry the strength summary, got %q", text)
	}
}

func TestNarrativeTemplateForRoleplay(t *testing.T) {
	payload, err := json.Marshal(services.RoleplayResult{
		Scores:     map[string]int{"craft": 70},
		Advice:     "Suggested direction: a builder role.",
		StepsTaken: 3,
	})
	if err != nil {
		t.Fatalf("encode result: %v", err)
	}
	svc := services.NewNarrativeService(testutil.Logger(t), nil)

	text, err := svc.ComposeNarrative(context.Background(), &types.Report{
		Kind:   types.ReportKindRoleplay,
		Result: payload,
	})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !strings.Contains(text, "3 decisions") {
		t.Fatalf("expected step count in narrative, got %q", text)
	}
	if !strings.Contains(text, "a builder role") {
		t.Fatalf("expected advice carried through, got %q", text)
	}
}
