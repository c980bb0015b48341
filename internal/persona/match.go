package persona

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// MatcherOption is a functional option for configuring a [NameMatcher].
type MatcherOption func(*NameMatcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched persona name to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) MatcherOption {
	return func(m *NameMatcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the matcher falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) MatcherOption {
	return func(m *NameMatcher) {
		m.fuzzyThreshold = threshold
	}
}

// NameMatcher resolves a spoken persona reference ("switch to the law-yer")
// to a catalogue persona using Double Metaphone phonetic codes for candidate
// filtering and Jaro-Winkler similarity for ranking. STT regularly mangles
// persona names; exact string comparison would miss most of them.
//
// NameMatcher is read-only after construction and safe for concurrent use.
type NameMatcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewNameMatcher returns a NameMatcher with the supplied options.
func NewNameMatcher(opts ...MatcherOption) *NameMatcher {
	m := &NameMatcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match finds the persona whose id or display name best matches spoken.
// When matched is false, the returned persona is nil and confidence is 0.
func (m *NameMatcher) Match(spoken string, personas []Persona) (p *Persona, confidence float64, matched bool) {
	spokenLower := strings.ToLower(strings.TrimSpace(spoken))
	if spokenLower == "" || len(personas) == 0 {
		return nil, 0, false
	}
	spokenTokens := strings.Fields(spokenLower)
	spokenCodes := metaphoneCodes(spokenTokens)

	type candidate struct {
		idx      int
		score    float64
		phonetic bool
	}
	best := candidate{idx: -1}

	for i := range personas {
		for _, label := range []string{personas[i].ID, personas[i].Name} {
			labelLower := strings.ToLower(strings.TrimSpace(label))
			if labelLower == "" {
				continue
			}
			labelTokens := strings.Fields(labelLower)

			phonetic := codesOverlap(spokenCodes, metaphoneCodes(labelTokens))
			score := bestSimilarity(spokenTokens, labelTokens, spokenLower, labelLower)

			if phonetic {
				if score >= m.phoneticThreshold && (!best.phonetic || score > best.score) {
					best = candidate{idx: i, score: score, phonetic: true}
				}
			} else if !best.phonetic && score >= m.fuzzyThreshold && score > best.score {
				best = candidate{idx: i, score: score}
			}
		}
	}

	if best.idx < 0 {
		return nil, 0, false
	}
	return &personas[best.idx], best.score, true
}

// metaphoneCodes returns the union of Double Metaphone codes for the tokens.
// Empty codes are excluded.
func metaphoneCodes(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestSimilarity computes the highest Jaro-Winkler score between the spoken
// phrase and a persona label: full strings, space-stripped strings, and the
// best pairwise token score.
func bestSimilarity(spokenTokens, labelTokens []string, spokenFull, labelFull string) float64 {
	score := matchr.JaroWinkler(spokenFull, labelFull, false)

	if len(spokenTokens) > 1 || len(labelTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(spokenTokens, ""), strings.Join(labelTokens, ""), false); s > score {
			score = s
		}
	}

	for _, st := range spokenTokens {
		for _, lt := range labelTokens {
			if s := matchr.JaroWinkler(st, lt, false); s > score {
				score = s
			}
		}
	}
	return score
}
