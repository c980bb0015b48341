package persona

import (
	"math"
	"regexp"
	"strings"
)

const (
	// suggestionThreshold is the minimum total score a context needs before
	// its persona is suggested. Fixed constant carried over from the
	// original product behaviour.
	suggestionThreshold = 5.0

	// minClusterMatches is the number of keywords from a single cluster
	// that must appear before the cluster counts as evidence. A single
	// incidental match is not evidence of topic relevance.
	minClusterMatches = 2

	// matchExponent shapes the per-cluster contribution:
	// matchCount^1.5 * weight.
	matchExponent = 1.5
)

// nonWordRe matches every character that is not a word character,
// whitespace, or hyphen. Such characters are replaced with spaces during
// normalisation.
var nonWordRe = regexp.MustCompile(`[^\w\s-]`)

// spaceRe collapses whitespace runs.
var spaceRe = regexp.MustCompile(`\s+`)

// Normalize lower-cases text, replaces every character that is not a word
// character, whitespace, or hyphen with a space, and collapses whitespace
// runs to single spaces. Normalize is idempotent.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = nonWordRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ContextScore reports how one expert context scored against a message.
type ContextScore struct {
	// ID is the context's persona id.
	ID string

	// Total is the summed contribution of all qualifying clusters.
	Total float64
}

// Scorer evaluates chat text against a fixed expert-context table.
// It is read-only after construction and safe for concurrent use.
type Scorer struct {
	contexts []ExpertContext
}

// NewScorer creates a Scorer over the given contexts. The slice order is the
// evaluation order; ties between equal top scores keep the earlier context.
// Passing nil uses [DefaultContexts].
func NewScorer(contexts []ExpertContext) *Scorer {
	if contexts == nil {
		contexts = DefaultContexts()
	}
	return &Scorer{contexts: contexts}
}

// Suggest returns the persona from personas that best matches text, or nil.
//
// Every context whose id differs from currentID is scored; the single
// highest-scoring context wins (first found on ties). When the best score
// reaches the suggestion threshold, the matching persona is looked up by id
// in personas — a missing lookup returns nil, as does a below-threshold or
// zero best score.
func (s *Scorer) Suggest(text, currentID string, personas []Persona) *Persona {
	best, ok := s.Best(text, currentID)
	if !ok || best.Total < suggestionThreshold {
		return nil
	}
	return FindByID(personas, best.ID)
}

// Best returns the highest-scoring context for text, skipping currentID.
// ok is false when no context produced a positive score.
func (s *Scorer) Best(text, currentID string) (ContextScore, bool) {
	norm := Normalize(text)
	if norm == "" {
		return ContextScore{}, false
	}

	var (
		best  ContextScore
		found bool
	)
	for _, ec := range s.contexts {
		if ec.ID == currentID {
			continue
		}
		total := scoreContext(norm, ec)
		if total <= 0 {
			continue
		}
		if !found || total > best.Total {
			best = ContextScore{ID: ec.ID, Total: total}
			found = true
		}
	}
	return best, found
}

// scoreContext sums the contributions of all qualifying clusters of ec
// against the already-normalised text.
func scoreContext(norm string, ec ExpertContext) float64 {
	var total float64
	for _, cluster := range ec.Clusters {
		matches := 0
		for _, kw := range cluster {
			if keywordMatches(norm, kw) {
				matches++
			}
		}
		if matches < minClusterMatches {
			continue
		}
		total += math.Pow(float64(matches), matchExponent) * ec.Weight
	}
	return total
}

// keywordMatches reports whether kw appears in norm as a substring, in
// either its literal or hyphen-joined form.
func keywordMatches(norm, kw string) bool {
	if strings.Contains(norm, kw) {
		return true
	}
	if strings.Contains(kw, " ") {
		return strings.Contains(norm, strings.ReplaceAll(kw, " ", "-"))
	}
	return false
}
