package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// DefaultMinSimilarity is the floor below which a career is not considered a
// genuine match and may only enter a result list as explicit back-fill.
const DefaultMinSimilarity = 0.1

// Career is the matcher's read-only view of a catalog entry.
type Career struct {
	ID          uuid.UUID
	Name        string
	Description string
	Vector      Vector
	Popularity  int
}

// Recommendation pairs a career with its match score and rationale. Backfilled
// entries did not clear the similarity floor and say so in their reason.
type Recommendation struct {
	CareerID   uuid.UUID
	Name       string
	Score      float64
	Reason     string
	Shared     []Code
	Backfilled bool
}

// Match ranks the catalog against a normalized profile and returns the top k
// recommendations. Ordering is fully deterministic: similarity descending,
// then career id ascending. When fewer than k careers clear the similarity
// floor the remainder is back-filled by popularity descending, then career id
// ascending, and each back-filled entry is flagged.
func Match(profile Vector, catalog []Career, k int) []Recommendation {
	if k <= 0 || len(catalog) == 0 {
		return nil
	}

	type scored struct {
		career     Career
		similarity float64
		shared     []Code
	}
	candidates := make([]scored, 0, len(catalog))
	for _, career := range catalog {
		sim := Similarity(profile, career.Vector)
		candidates = append(candidates, scored{
			career:     career,
			similarity: sim,
			shared:     sharedDimensions(profile, career.Vector),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].similarity != candidates[j].similarity {
			return candidates[i].similarity > candidates[j].similarity
		}
		return candidates[i].career.ID.String() < candidates[j].career.ID.String()
	})

	picked := make([]Recommendation, 0, k)
	used := make(map[uuid.UUID]bool, k)
	for _, cand := range candidates {
		if len(picked) == k {
			break
		}
		if cand.similarity < DefaultMinSimilarity {
			break
		}
		picked = append(picked, Recommendation{
			CareerID: cand.career.ID,
			Name:     cand.career.Name,
			Score:    round4(cand.similarity),
			Reason:   matchReason(cand.career, cand.shared, profile),
			Shared:   cand.shared,
		})
		used[cand.career.ID] = true
	}

	if len(picked) < k {
		fallback := make([]Career, 0, len(catalog))
		for _, career := range catalog {
			if !used[career.ID] {
				fallback = append(fallback, career)
			}
		}
		sort.SliceStable(fallback, func(i, j int) bool {
			if fallback[i].Popularity != fallback[j].Popularity {
				return fallback[i].Popularity > fallback[j].Popularity
			}
			return fallback[i].ID.String() < fallback[j].ID.String()
		})
		for _, career := range fallback {
			if len(picked) == k {
				break
			}
			picked = append(picked, Recommendation{
				CareerID:   career.ID,
				Name:       career.Name,
				Score:      round4(Similarity(profile, career.Vector)),
				Reason:     backfillReason(career),
				Backfilled: true,
			})
		}
	}
	return picked
}

// Similarity is the dot product of the two vectors after each is scaled to
// unit length. A zero vector on either side yields 0.
func Similarity(a, b Vector) float64 {
	var dot, na, nb float64
	for _, c := range Priority {
		dot += a[c] * b[c]
		na += a[c] * a[c]
		nb += b[c] * b[c]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sharedDimensions(profile, career Vector) []Code {
	var shared []Code
	for _, c := range profile.Top(len(Priority)) {
		if profile[c] > 0 && career[c] > 0 {
			shared = append(shared, c)
		}
	}
	if len(shared) > 3 {
		shared = shared[:3]
	}
	return shared
}

func matchReason(career Career, shared []Code, profile Vector) string {
	if len(shared) == 0 {
		return fmt.Sprintf("%s aligns with your overall interest profile.", career.Name)
	}
	labels := make([]string, 0, len(shared))
	for _, c := range shared {
		labels = append(labels, Labels[c])
	}
	summary := strings.TrimSpace(career.Description)
	if summary == "" {
		summary = "A direction worth exploring further."
	}
	return fmt.Sprintf("You scored strongly on %s. %s", joinLabels(labels), summary)
}

func backfillReason(career Career) string {
	return fmt.Sprintf("%s was added to broaden your exploration beyond your strongest matches.", career.Name)
}

func joinLabels(labels []string) string {
	switch len(labels) {
	case 1:
		return labels[0]
	case 2:
		return labels[0] + " and " + labels[1]
	default:
		return strings.Join(labels[:len(labels)-1], ", ") + " and " + labels[len(labels)-1]
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
