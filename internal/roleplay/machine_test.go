package roleplay

import (
	"errors"
	"strings"
	"testing"

	"github.com/orbitpath/orbitpath-backend/internal/apperr"
)

func demoScript(t *testing.T) *Script {
	t.Helper()
	s := &Script{
		Summary: "On call at a product launch",
		Abilities: []Ability{
			{Code: "T", Name: "Technical judgment", Role: "tech lead", Advice: "practice architecture reviews"},
			{Code: "C", Name: "Communication", Role: "project manager", Advice: "practice status updates"},
		},
		BaseScore: 50,
		PointStep: 10,
		Start:     "intro",
		Scenes: map[string]Scene{
			"intro": {
				ID:    "intro",
				Title: "Pager goes off",
				Text:  "The deploy is failing.",
				Choices: []Choice{
					{ID: "debug", Text: "Dig into the logs", Effects: map[string]int{"T": 1}, Next: "standup"},
					{ID: "escalate", Text: "Call the team", Effects: map[string]int{"C": 1}, Next: "standup"},
					{ID: "ignore", Text: "Silence the pager", Effects: map[string]int{"T": -1}, Next: "ending"},
				},
			},
			"standup": {
				ID:    "standup",
				Title: "Morning standup",
				Text:  "Explain what happened.",
				Choices: []Choice{
					{ID: "own", Text: "Own the incident", Effects: map[string]int{"C": 2}, Next: "ending"},
				},
			},
			"ending": {ID: "ending", Title: "Retro", Text: "The dust settles."},
		},
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("demo script invalid: %v", err)
	}
	return s
}

func TestInitialState(t *testing.T) {
	s := demoScript(t)
	st := s.InitialState()
	if st.SceneID != "intro" {
		t.Fatalf("start scene = %q, want intro", st.SceneID)
	}
	if st.Scores["T"] != 50 || st.Scores["C"] != 50 {
		t.Fatalf("initial scores = %v, want base 50", st.Scores)
	}
	if st.Completed {
		t.Fatalf("fresh state must not be completed")
	}
}

func TestAdvanceAppliesEffectsAndHistory(t *testing.T) {
	s := demoScript(t)
	st, res, err := s.Advance(s.InitialState(), "debug")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if st.SceneID != "standup" || res.NextSceneID != "standup" {
		t.Fatalf("moved to %q, want standup", st.SceneID)
	}
	if st.Scores["T"] != 60 {
		t.Fatalf("T score = %d, want 60", st.Scores["T"])
	}
	if res.ScoreChanges["T"] != 10 {
		t.Fatalf("score change = %v, want T+10", res.ScoreChanges)
	}
	if len(st.History) != 1 || st.History[0].ChoiceID != "debug" {
		t.Fatalf("history = %v", st.History)
	}
	if st.Completed || res.Completed {
		t.Fatalf("non-terminal advance marked completed")
	}
}

func TestAdvanceIntoTerminalSceneCompletesAtomically(t *testing.T) {
	s := demoScript(t)
	st, _, err := s.Advance(s.InitialState(), "debug")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	st, res, err := s.Advance(st, "own")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	// The successor is terminal: the same advance that reached it must mark
	// completion. No observer can see scene=ending with Completed=false.
	if !st.Completed || !res.Completed {
		t.Fatalf("terminal advance not completed: %+v", st)
	}
	if st.SceneID != "ending" {
		t.Fatalf("scene = %q, want ending", st.SceneID)
	}
	if len(st.History) != 2 {
		t.Fatalf("history = %v", st.History)
	}
}

func TestAdvanceRejectsUnknownChoice(t *testing.T) {
	s := demoScript(t)
	_, _, err := s.Advance(s.InitialState(), "bribe")
	if !errors.Is(err, apperr.ErrInvalidChoice) {
		t.Fatalf("got %v, want ErrInvalidChoice", err)
	}
}

func TestAdvanceAfterCompletionFails(t *testing.T) {
	s := demoScript(t)
	st := s.InitialState()
	st.Completed = true
	_, _, err := s.Advance(st, "debug")
	if !errors.Is(err, apperr.ErrSessionClosed) {
		t.Fatalf("got %v, want ErrSessionClosed", err)
	}
}

func TestSceneMissRaisesCorruptState(t *testing.T) {
	s := demoScript(t)
	st := s.InitialState()
	st.SceneID = "deleted-scene"
	if _, err := s.Scene(st.SceneID); !errors.Is(err, apperr.ErrCorruptState) {
		t.Fatalf("got %v, want ErrCorruptState", err)
	}
	if _, _, err := s.Advance(st, "debug"); !errors.Is(err, apperr.ErrCorruptState) {
		t.Fatalf("advance got %v, want ErrCorruptState", err)
	}
}

func TestValidateRejectsDanglingSuccessor(t *testing.T) {
	s := demoScript(t)
	broken := s.Scenes["intro"]
	broken.Choices = append(broken.Choices, Choice{ID: "warp", Text: "x", Next: "nowhere"})
	s.Scenes["intro"] = broken
	if err := s.Validate(); err == nil {
		t.Fatalf("dangling successor accepted")
	}
}

func TestValidateRejectsUnknownAbilityEffect(t *testing.T) {
	s := demoScript(t)
	broken := s.Scenes["intro"]
	broken.Choices[0].Effects = map[string]int{"Z": 1}
	s.Scenes["intro"] = broken
	if err := s.Validate(); err == nil {
		t.Fatalf("unknown ability effect accepted")
	}
}

func TestStateRoundTrip(t *testing.T) {
	s := demoScript(t)
	st, _, err := s.Advance(s.InitialState(), "escalate")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	payload, err := MarshalState(st)
	if err != nil {
		t.Fatalf("MarshalState: %v", err)
	}
	back, err := s.ParseState(payload)
	if err != nil {
		t.Fatalf("ParseState: %v", err)
	}
	if back.SceneID != st.SceneID || len(back.History) != len(st.History) || back.Scores["C"] != st.Scores["C"] {
		t.Fatalf("state did not round trip: %+v vs %+v", back, st)
	}
}

func TestAdviceHighlightsStrongAndWeak(t *testing.T) {
	s := demoScript(t)
	advice := s.Advice(map[string]int{"T": 80, "C": 40})
	if !strings.Contains(advice, "Technical judgment") {
		t.Fatalf("advice missing strongest ability: %q", advice)
	}
	if !strings.Contains(advice, "practice status updates") {
		t.Fatalf("advice missing weakest hint: %q", advice)
	}
	// Deterministic.
	if advice != s.Advice(map[string]int{"T": 80, "C": 40}) {
		t.Fatalf("advice not deterministic")
	}
}

func TestProgress(t *testing.T) {
	s := demoScript(t)
	st := s.InitialState()
	if s.Progress(st) != 0 {
		t.Fatalf("fresh progress = %d, want 0", s.Progress(st))
	}
	st, _, _ = s.Advance(st, "ignore")
	if s.Progress(st) != 100 {
		t.Fatalf("completed progress = %d, want 100", s.Progress(st))
	}
}
