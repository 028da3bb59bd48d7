package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/scoring"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

// TextGenerator produces the free-text narrative for a report. The OpenAI
// client satisfies it; the template generator below is the offline fallback.
type TextGenerator interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

type NarrativeService interface {
	ComposeNarrative(ctx context.Context, report *types.Report) (string, error)
}

type narrativeService struct {
	log       *logger.Logger
	generator TextGenerator
}

// NewNarrativeService builds the narrative composer. generator may be nil, in
// which case every narrative comes from the deterministic template.
func NewNarrativeService(log *logger.Logger, generator TextGenerator) NarrativeService {
	serviceLog := log.With("service", "NarrativeService")
	return &narrativeService{log: serviceLog, generator: generator}
}

const narrativeSystemPrompt = "You write short, encouraging career-exploration summaries for young readers. " +
	"Two paragraphs at most, plain language, no lists."

func (ns *narrativeService) ComposeNarrative(ctx context.Context, report *types.Report) (string, error) {
	if ns.generator != nil {
		prompt, err := ns.promptFor(report)
		if err == nil {
			text, gErr := ns.generator.GenerateText(ctx, narrativeSystemPrompt, prompt)
			if gErr == nil && strings.TrimSpace(text) != "" {
				return text, nil
			}
			if gErr != nil {
				ns.log.Warn("Falling back to templated narrative", "report_id", report.ID, "error", gErr)
			}
		}
	}
	return ns.templated(report)
}

func (ns *narrativeService) promptFor(report *types.Report) (string, error) {
	switch report.Kind {
	case types.ReportKindQuiz:
		var result QuizResult
		if err := json.Unmarshal(report.Result, &result); err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"Interest code: %s. Normalized dimension scores: %v. Strength summary: %s. Write the reader a personal summary of what these results suggest.",
			result.HollandCode, result.Dimensions, result.UniqueAdvantage,
		), nil
	case types.ReportKindRoleplay:
		var result RoleplayResult
		if err := json.Unmarshal(report.Result, &result); err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"Roleplay ability scores: %v. Advice so far: %s. Write the reader a personal summary of how they handled the scenario.",
			result.Scores, result.Advice,
		), nil
	}
	return "", fmt.Errorf("unknown report kind %q", report.Kind)
}

// templated renders a deterministic narrative from the stored result, so a
// report always ends up with readable prose even with no generator configured.
func (ns *narrativeService) templated(report *types.Report) (string, error) {
	switch report.Kind {
	case types.ReportKindQuiz:
		var result QuizResult
		if err := json.Unmarshal(report.Result, &result); err != nil {
			return "", fmt.Errorf("failed to decode quiz result: %w", err)
		}
		var b strings.Builder
		if result.HollandCode != "" {
			fmt.Fprintf(&b, "Your interest code is %s. ", result.HollandCode)
			for i, r := range result.HollandCode {
				label := scoring.Labels[scoring.Code(string(r))]
				if label == "" {
					continue
				}
				if i == 0 {
					fmt.Fprintf(&b, "Your strongest pull is toward %s work", strings.ToLower(label))
				} else {
					fmt.Fprintf(&b, ", with %s interests close behind", strings.ToLower(label))
				}
			}
			b.WriteString(". ")
		}
		if result.UniqueAdvantage != "" {
			b.WriteString(result.UniqueAdvantage)
		}
		if b.Len() == 0 {
			b.WriteString("You completed the assessment. Explore the recommended directions to learn more about yourself.")
		}
		return b.String(), nil
	case types.ReportKindRoleplay:
		var result RoleplayResult
		if err := json.Unmarshal(report.Result, &result); err != nil {
			return "", fmt.Errorf("failed to decode roleplay result: %w", err)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "You worked through the scenario in %d decisions. ", result.StepsTaken)
		if result.Advice != "" {
			b.WriteString(result.Advice)
		}
		return b.String(), nil
	}
	return "", fmt.Errorf("unknown report kind %q", report.Kind)
}
