package scoring

import (
	"fmt"
	"math"
	"sort"
)

// Code is one axis of the Holland interest taxonomy. The set is closed:
// questions, options and careers may only reference these six codes, and
// unknown codes are rejected when definitions or answers are ingested.
type Code string

const (
	CodeRealistic     Code = "R"
	CodeInvestigative Code = "I"
	CodeArtistic      Code = "A"
	CodeSocial        Code = "S"
	CodeEnterprising  Code = "E"
	CodeConventional  Code = "C"
)

// Priority is the canonical enumeration order. It doubles as the
// deterministic tie-break whenever two dimensions carry equal scores.
var Priority = []Code{
	CodeRealistic,
	CodeInvestigative,
	CodeArtistic,
	CodeSocial,
	CodeEnterprising,
	CodeConventional,
}

var Labels = map[Code]string{
	CodeRealistic:     "Realistic",
	CodeInvestigative: "Investigative",
	CodeArtistic:      "Artistic",
	CodeSocial:        "Social",
	CodeEnterprising:  "Enterprising",
	CodeConventional:  "Conventional",
}

var advantageKeywords = map[Code]string{
	CodeRealistic:     "hands-on building",
	CodeInvestigative: "deep analysis",
	CodeArtistic:      "creative expression",
	CodeSocial:        "working with people",
	CodeEnterprising:  "driving goals forward",
	CodeConventional:  "bringing order and structure",
}

var priorityIndex = func() map[Code]int {
	m := make(map[Code]int, len(Priority))
	for i, c := range Priority {
		m[c] = i
	}
	return m
}()

// ParseCode validates a raw dimension string against the closed enumeration.
func ParseCode(raw string) (Code, error) {
	c := Code(raw)
	if _, ok := priorityIndex[c]; !ok {
		return "", fmt.Errorf("unknown dimension code %q", raw)
	}
	return c, nil
}

// Vector maps every dimension code to an accumulated non-negative score.
// A Vector always carries all six codes so that serialization and iteration
// order are stable.
type Vector map[Code]float64

func NewVector() Vector {
	v := make(Vector, len(Priority))
	for _, c := range Priority {
		v[c] = 0
	}
	return v
}

func (v Vector) Add(c Code, weight float64) {
	v[c] += weight
}

func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for c, val := range v {
		out[c] = val
	}
	return out
}

// Normalize divides each dimension by its maximum attainable score and clamps
// the result into [0, 1]. Dimensions with no attainable score normalize to 0.
func (v Vector) Normalize(max Vector) Vector {
	out := NewVector()
	for _, c := range Priority {
		m := max[c]
		if m <= 0 {
			continue
		}
		val := v[c] / m
		out[c] = math.Max(0, math.Min(1, val))
	}
	return out
}

// Top returns the n highest-scoring dimension codes in deterministic order:
// score descending, then canonical priority order.
func (v Vector) Top(n int) []Code {
	codes := make([]Code, len(Priority))
	copy(codes, Priority)
	sort.SliceStable(codes, func(i, j int) bool {
		if v[codes[i]] != v[codes[j]] {
			return v[codes[i]] > v[codes[j]]
		}
		return priorityIndex[codes[i]] < priorityIndex[codes[j]]
	})
	if n > len(codes) {
		n = len(codes)
	}
	return codes[:n]
}

// HollandCode renders the classic letter code from the top three dimensions
// that scored above zero.
func HollandCode(v Vector) string {
	code := ""
	for _, c := range v.Top(3) {
		if v[c] <= 0 {
			continue
		}
		code += string(c)
	}
	return code
}

// UniqueAdvantage composes a templated summary of the profile's strongest
// traits. Deterministic: same vector, same text.
func UniqueAdvantage(v Vector) string {
	var strong []Code
	for _, c := range v.Top(3) {
		if v[c] > 0 {
			strong = append(strong, c)
		}
	}
	if len(strong) == 0 {
		return ""
	}
	switch len(strong) {
	case 1:
		return fmt.Sprintf("Your core strength is %s, the signature trait of %s types.",
			advantageKeywords[strong[0]], Labels[strong[0]])
	case 2:
		return fmt.Sprintf("Your core strengths combine %s and %s, drawing on both %s and %s traits.",
			advantageKeywords[strong[0]], advantageKeywords[strong[1]],
			Labels[strong[0]], Labels[strong[1]])
	default:
		return fmt.Sprintf("Your core strengths blend %s, %s and %s across %s, %s and %s traits.",
			advantageKeywords[strong[0]], advantageKeywords[strong[1]], advantageKeywords[strong[2]],
			Labels[strong[0]], Labels[strong[1]], Labels[strong[2]])
	}
}
