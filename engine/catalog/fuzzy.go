package catalog

import (
	"context"
	"sort"
	"strings"
)

// Fuzzy ranking weights. Score = w1*nameSim + w2*categoryMatch +
// w3*packageMatch + w4*patternMatch on a 0–100 scale.
const (
	weightName     = 40.0
	weightCategory = 20.0
	weightPackage  = 15.0
	weightPattern  = 25.0

	// fuzzyScoreFloor drops candidates below this score outright.
	fuzzyScoreFloor = 50.0

	// maxEditDistance bounds the Levenshtein computation; candidates further
	// away than this are not worth scoring.
	maxEditDistance = 5

	// shortQueryLen is the length at or below which substring-prefix bonuses
	// apply, avoiding pathological fuzzy matches on common trigrams.
	shortQueryLen = 5

	// AutoFixThreshold is the normalized score a suggestion needs before the
	// auto-fix engine will act on it.
	AutoFixThreshold = 0.9
)

// Candidate is one catalog entry considered by the fuzzy ranker.
type Candidate struct {
	Type        string
	DisplayName string
	Category    string
	Package     string
}

// Scored pairs a candidate with its fuzzy score (0–100).
type Scored struct {
	Candidate Candidate
	Score     float64
}

// Suggestion is a typo-correction proposal with a normalized confidence.
type Suggestion struct {
	Type       string  `json:"nodeType"`
	Confidence float64 `json:"confidence"`
}

// RankFuzzy scores candidates against the query and returns at most limit
// results with score >= 50, sorted descending (ties by type).
func RankFuzzy(query string, candidates []Candidate, limit int) []Scored {
	full := strings.ToLower(query)
	short := strings.ToLower(shortName(query))
	var out []Scored
	for _, c := range candidates {
		score := fuzzyScore(full, short, c)
		if score >= fuzzyScoreFloor {
			out = append(out, Scored{Candidate: c, Score: score})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Candidate.Type < out[j].Candidate.Type
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func fuzzyScore(full, short string, c Candidate) float64 {
	name := strings.ToLower(shortName(c.Type))
	sim := nameSimilarity(short, name)
	score := weightName * sim
	if c.Category != "" && strings.Contains(full, strings.ToLower(c.Category)) {
		score += weightCategory
	}
	if c.Package != "" && strings.Contains(full, strings.ToLower(c.Package)) {
		score += weightPackage
	}
	if pm := patternMatch(short, name, strings.ToLower(c.DisplayName)); pm > 0 {
		score += weightPattern * pm
	} else {
		// A close edit-distance match still counts as a pattern signal.
		score += weightPattern * sim * 0.9
	}
	return score
}

// nameSimilarity = 1 - editDistance/max(len), with a prefix/substring bonus
// for short queries.
func nameSimilarity(query, name string) float64 {
	if query == name {
		return 1
	}
	if len(query) <= shortQueryLen {
		if strings.HasPrefix(name, query) {
			return 0.95
		}
		if strings.Contains(name, query) {
			return 0.85
		}
	}
	dist := boundedLevenshtein(query, name, maxEditDistance)
	if dist < 0 {
		return 0
	}
	maxLen := len(query)
	if len(name) > maxLen {
		maxLen = len(name)
	}
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(dist)/float64(maxLen)
}

func patternMatch(query, name, display string) float64 {
	switch {
	case strings.Contains(name, query) || strings.Contains(query, name):
		return 1
	case display != "" && strings.Contains(display, query):
		return 0.8
	default:
		return 0
	}
}

// boundedLevenshtein computes edit distance with an early exit: when every
// value in a row exceeds maxDist the result cannot recover, so -1 is returned.
func boundedLevenshtein(a, b string, maxDist int) int {
	if a == b {
		return 0
	}
	la, lb := len(a), len(b)
	if la == 0 {
		return clampDist(lb, maxDist)
	}
	if lb == 0 {
		return clampDist(la, maxDist)
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	if diff > maxDist {
		return -1
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		rowMin := curr[0]
		ai := a[i-1]
		for j := 1; j <= lb; j++ {
			cost := 0
			if ai != b[j-1] {
				cost = 1
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
			if m < rowMin {
				rowMin = m
			}
		}
		if rowMin > maxDist {
			return -1
		}
		prev, curr = curr, prev
	}
	return clampDist(prev[lb], maxDist)
}

func clampDist(d, maxDist int) int {
	if d > maxDist {
		return -1
	}
	return d
}

// Similar returns typo-correction suggestions for an unknown node type with
// normalized confidence. Only suggestions at or above AutoFixThreshold are
// safe for automated correction.
func (s *Store) Similar(ctx context.Context, input string, limit int) ([]Suggestion, error) {
	candidates, err := s.loadCandidates(ctx)
	if err != nil {
		return nil, err
	}
	return SuggestFrom(input, candidates, limit), nil
}

// SuggestFrom ranks candidates for input. Confidence is the name similarity
// on a 0–1 scale: the auto-fix engine acts only on near-certain matches, so a
// candidate's category or package affinity must not inflate its confidence.
func SuggestFrom(input string, candidates []Candidate, limit int) []Suggestion {
	scored := RankFuzzy(input, candidates, limit)
	short := strings.ToLower(shortName(input))
	out := make([]Suggestion, 0, len(scored))
	for _, sc := range scored {
		out = append(out, Suggestion{
			Type:       sc.Candidate.Type,
			Confidence: nameSimilarity(short, strings.ToLower(shortName(sc.Candidate.Type))),
		})
	}
	return out
}
