package roleplay

import (
	"encoding/json"
	"fmt"

	"github.com/orbitpath/orbitpath-backend/internal/apperr"
)

const (
	DefaultBaseScore = 50
	DefaultPointStep = 10
)

// Ability is one scored axis of a roleplay script (for example "Technical
// judgment"). Codes are script-local, unlike the global interest taxonomy.
type Ability struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Role        string `json:"role,omitempty"`
	Advice      string `json:"advice,omitempty"`
}

// Choice is one outgoing edge of a scene. An empty Next terminates the
// playthrough; otherwise Next must name a scene in the same script.
type Choice struct {
	ID      string         `json:"id"`
	Text    string         `json:"text"`
	Outcome string         `json:"outcome,omitempty"`
	Effects map[string]int `json:"effects,omitempty"`
	Next    string         `json:"next,omitempty"`
}

// Scene is one node of the scene graph. A scene with no choices is terminal.
type Scene struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Text    string   `json:"text"`
	Choices []Choice `json:"choices,omitempty"`
}

func (s Scene) Terminal() bool { return len(s.Choices) == 0 }

// Script is a parsed, validated roleplay definition: a directed graph of
// scenes plus the ability scoring rules applied while traversing it.
type Script struct {
	Summary       string           `json:"summary,omitempty"`
	Setting       string           `json:"setting,omitempty"`
	Abilities     []Ability        `json:"abilities"`
	BaseScore     int              `json:"base_score,omitempty"`
	PointStep     int              `json:"point_step,omitempty"`
	InitialScores map[string]int   `json:"initial_scores,omitempty"`
	Start         string           `json:"start"`
	Scenes        map[string]Scene `json:"scenes"`
}

// ParseScript decodes and validates stored script content. Definition faults
// are rejected here, at ingestion, so sessions never traverse a broken graph.
func ParseScript(content []byte) (*Script, error) {
	var s Script
	if err := json.Unmarshal(content, &s); err != nil {
		return nil, fmt.Errorf("decode script content: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Script) Validate() error {
	if len(s.Scenes) == 0 {
		return fmt.Errorf("script has no scenes")
	}
	if _, ok := s.Scenes[s.Start]; !ok {
		return fmt.Errorf("start scene %q not defined", s.Start)
	}
	abilityCodes := make(map[string]bool, len(s.Abilities))
	for _, a := range s.Abilities {
		if a.Code == "" {
			return fmt.Errorf("ability with empty code")
		}
		if abilityCodes[a.Code] {
			return fmt.Errorf("duplicate ability code %q", a.Code)
		}
		abilityCodes[a.Code] = true
	}
	for id, scene := range s.Scenes {
		if scene.ID != id {
			return fmt.Errorf("scene key %q does not match scene id %q", id, scene.ID)
		}
		seenChoices := make(map[string]bool, len(scene.Choices))
		for _, choice := range scene.Choices {
			if choice.ID == "" {
				return fmt.Errorf("scene %q has a choice with empty id", id)
			}
			if seenChoices[choice.ID] {
				return fmt.Errorf("scene %q has duplicate choice id %q", id, choice.ID)
			}
			seenChoices[choice.ID] = true
			if choice.Next != "" {
				if _, ok := s.Scenes[choice.Next]; !ok {
					return fmt.Errorf("scene %q choice %q points to undefined scene %q", id, choice.ID, choice.Next)
				}
			}
			for code := range choice.Effects {
				if !abilityCodes[code] {
					return fmt.Errorf("scene %q choice %q affects unknown ability %q", id, choice.ID, code)
				}
			}
		}
	}
	return nil
}

// Scene resolves a stored scene id against the script. A miss means the
// definition changed underneath an existing session.
func (s *Script) Scene(id string) (Scene, error) {
	scene, ok := s.Scenes[id]
	if !ok {
		return Scene{}, fmt.Errorf("scene %q not in script: %w", id, apperr.ErrCorruptState)
	}
	return scene, nil
}

func (s *Script) baseScore() int {
	if s.BaseScore > 0 {
		return s.BaseScore
	}
	return DefaultBaseScore
}

func (s *Script) pointStep() int {
	if s.PointStep > 0 {
		return s.PointStep
	}
	return DefaultPointStep
}

// AbilityLabels maps ability codes to display names.
func (s *Script) AbilityLabels() map[string]string {
	labels := make(map[string]string, len(s.Abilities))
	for _, a := range s.Abilities {
		labels[a.Code] = a.Name
	}
	return labels
}
