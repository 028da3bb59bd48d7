package roleplay

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/orbitpath/orbitpath-backend/internal/apperr"
)

// Step is one entry of the append-only choice history.
type Step struct {
	SceneID  string `json:"scene_id"`
	ChoiceID string `json:"choice_id"`
}

// State is a session's traversal position: current scene, full history and
// accumulated ability scores. It round-trips through the session's persisted
// state payload.
type State struct {
	SceneID   string         `json:"scene_id"`
	History   []Step         `json:"history"`
	Scores    map[string]int `json:"scores"`
	Completed bool           `json:"completed"`
}

// AdvanceResult reports what a single choice did.
type AdvanceResult struct {
	Outcome      string
	ScoreChanges map[string]int
	NextSceneID  string
	Completed    bool
}

// InitialState positions a fresh session at the start scene with every
// ability at its initial score.
func (s *Script) InitialState() State {
	scores := make(map[string]int, len(s.Abilities))
	for _, a := range s.Abilities {
		scores[a.Code] = s.baseScore()
	}
	for code, v := range s.InitialScores {
		scores[code] = v
	}
	return State{SceneID: s.Start, Scores: scores}
}

// MarshalState encodes a state for the session's persisted payload column.
func MarshalState(st State) ([]byte, error) {
	if st.History == nil {
		st.History = []Step{}
	}
	return json.Marshal(st)
}

// ParseState decodes a persisted state payload. An empty payload yields the
// initial state so older sessions resume cleanly.
func (s *Script) ParseState(payload []byte) (State, error) {
	if len(payload) == 0 {
		return s.InitialState(), nil
	}
	var st State
	if err := json.Unmarshal(payload, &st); err != nil {
		return State{}, fmt.Errorf("decode state payload: %w", err)
	}
	if st.SceneID == "" {
		st.SceneID = s.Start
	}
	if st.Scores == nil {
		st.Scores = s.InitialState().Scores
	}
	return st, nil
}

// Advance applies one choice: validates it belongs to the current scene,
// applies its ability effects, appends to history and moves to the successor.
// When the choice terminates, or the successor scene is terminal, the
// returned state is already marked completed; there is no intermediate state
// where the position is terminal but the flag is not set.
func (s *Script) Advance(st State, choiceID string) (State, AdvanceResult, error) {
	if st.Completed {
		return State{}, AdvanceResult{}, fmt.Errorf("playthrough already finished: %w", apperr.ErrSessionClosed)
	}
	scene, err := s.Scene(st.SceneID)
	if err != nil {
		return State{}, AdvanceResult{}, err
	}

	var choice *Choice
	for i := range scene.Choices {
		if scene.Choices[i].ID == choiceID {
			choice = &scene.Choices[i]
			break
		}
	}
	if choice == nil {
		return State{}, AdvanceResult{}, fmt.Errorf("choice %q not offered by scene %q: %w", choiceID, scene.ID, apperr.ErrInvalidChoice)
	}

	next := State{
		SceneID: st.SceneID,
		History: append(append([]Step{}, st.History...), Step{SceneID: scene.ID, ChoiceID: choice.ID}),
		Scores:  make(map[string]int, len(st.Scores)),
	}
	for code, v := range st.Scores {
		next.Scores[code] = v
	}

	changes := make(map[string]int, len(choice.Effects))
	step := s.pointStep()
	for code, points := range choice.Effects {
		delta := points * step
		next.Scores[code] += delta
		changes[code] = delta
	}

	result := AdvanceResult{Outcome: choice.Outcome, ScoreChanges: changes}
	if choice.Next == "" {
		next.Completed = true
	} else {
		successor, err := s.Scene(choice.Next)
		if err != nil {
			return State{}, AdvanceResult{}, err
		}
		next.SceneID = successor.ID
		result.NextSceneID = successor.ID
		if successor.Terminal() {
			next.Completed = true
		}
	}
	result.Completed = next.Completed
	return next, result, nil
}

// Progress estimates completion as visited scenes over total scenes. A
// completed playthrough always reports 100.
func (s *Script) Progress(st State) int {
	if st.Completed {
		return 100
	}
	total := len(s.Scenes)
	if total == 0 {
		return 100
	}
	p := len(st.History) * 100 / total
	if p > 100 {
		p = 100
	}
	return p
}

// Advice composes the deterministic career-development summary from the final
// ability scores: strongest abilities set the direction, the weakest sets the
// improvement hint.
func (s *Script) Advice(scores map[string]int) string {
	if len(s.Abilities) == 0 || len(scores) == 0 {
		return "Keep building your foundational skills and look for chances to apply them in practice."
	}

	ordered := make([]Ability, len(s.Abilities))
	copy(ordered, s.Abilities)
	sort.SliceStable(ordered, func(i, j int) bool {
		return scores[ordered[i].Code] > scores[ordered[j].Code]
	})

	maxScore := scores[ordered[0].Code]
	minScore := scores[ordered[len(ordered)-1].Code]

	var coreNames, coreRoles []string
	for _, a := range ordered {
		if scores[a.Code] != maxScore {
			break
		}
		coreNames = append(coreNames, a.Name)
		role := a.Role
		if role == "" {
			role = "a key contributor role"
		}
		coreRoles = append(coreRoles, role)
	}

	weakest := ordered[len(ordered)-1]
	weakAdvice := weakest.Advice
	if weakAdvice == "" {
		weakAdvice = "close the gap in " + weakest.Name
	}

	b := strings.Builder{}
	fmt.Fprintf(&b, "You performed well in %s, which keeps projects on track. ", strings.Join(coreNames, ", "))
	fmt.Fprintf(&b, "Suggested direction: %s. ", strings.Join(coreRoles, ", "))
	if minScore < maxScore {
		fmt.Fprintf(&b, "To grow further, %s.", weakAdvice)
	} else {
		b.WriteString("Your abilities are evenly developed; deepen whichever interests you most.")
	}
	return b.String()
}
