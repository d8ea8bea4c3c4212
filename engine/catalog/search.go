package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/n8n-cli/n8nctl/pkg/logger"
)

// SearchMode selects how query tokens combine.
type SearchMode string

const (
	ModeOR    SearchMode = "OR"
	ModeAND   SearchMode = "AND"
	ModeFuzzy SearchMode = "FUZZY"
)

// Search methods surfaced in the results envelope so callers (and tests) can
// observe a degraded search path.
const (
	MethodFTS       = "fts"
	MethodSubstring = "substring"
	MethodFuzzy     = "fuzzy"
)

// SearchResult is one ranked hit.
type SearchResult struct {
	Type        string  `json:"nodeType"`
	DisplayName string  `json:"displayName"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score"`
}

// SearchResults is the envelope returned by Search; Method records which
// backend produced the hits.
type SearchResults struct {
	Method  string         `json:"method"`
	Results []SearchResult `json:"results"`
}

// ftsMetaChars is the closed set of FTS5 meta characters neutralized before a
// query string can reach the index.
const ftsMetaChars = "\"(){}[]*+-:^~"

// sanitizeTokens splits the raw query into tokens with every FTS meta
// character stripped. The result is safe to embed as quoted FTS5 strings.
func sanitizeTokens(query string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(ftsMetaChars, r) {
			return ' '
		}
		return r
	}, query)
	return strings.Fields(cleaned)
}

// Search runs a ranked catalog search. FTS with BM25 ranking is preferred;
// when the index is absent or rejects the query the store silently falls back
// to substring matching, surfacing the method used in the envelope.
func (s *Store) Search(ctx context.Context, query string, mode SearchMode, limit int) (*SearchResults, error) {
	if limit <= 0 {
		limit = 20
	}
	if mode == ModeFuzzy {
		results, err := s.fuzzySearch(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		return &SearchResults{Method: MethodFuzzy, Results: results}, nil
	}
	tokens := sanitizeTokens(query)
	if s.hasFTS && len(tokens) > 0 {
		results, err := s.ftsSearch(ctx, tokens, mode, limit)
		if err == nil {
			return &SearchResults{Method: MethodFTS, Results: results}, nil
		}
		logger.FromContext(ctx).Debug("fts search failed, falling back to substring",
			"query", query, "error", err)
	}
	results, err := s.substringSearch(ctx, tokens, limit)
	if err != nil {
		return nil, err
	}
	return &SearchResults{Method: MethodSubstring, Results: results}, nil
}

func (s *Store) ftsSearch(ctx context.Context, tokens []string, mode SearchMode, limit int) ([]SearchResult, error) {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + t + `"`
	}
	joiner := " OR "
	if mode == ModeAND {
		joiner = " AND "
	}
	match := strings.Join(quoted, joiner)
	const q = `
		SELECT node_type, display_name, description,
		       bm25(nodes_fts, 10.0, 5.0, 1.0) AS rank
		FROM nodes_fts
		WHERE nodes_fts MATCH ?
		ORDER BY rank
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, match, limit*4)
	if err != nil {
		return nil, fmt.Errorf("catalog: fts query: %w", err)
	}
	defer rows.Close()
	var hits []SearchResult
	for rows.Next() {
		var hit SearchResult
		var rank float64
		if err := rows.Scan(&hit.Type, &hit.DisplayName, &hit.Description, &rank); err != nil {
			return nil, fmt.Errorf("catalog: scan fts row: %w", err)
		}
		// bm25 ranks ascending (more negative is better); flip for callers.
		hit.Score = -rank
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iter fts rows: %w", err)
	}
	rankHits(hits, tokens)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// rankHits orders hits so that name matches outrank display-name matches,
// which outrank description matches; ties break by BM25 score then type.
func rankHits(hits []SearchResult, tokens []string) {
	fieldRank := func(h SearchResult) int {
		for _, tok := range tokens {
			lower := strings.ToLower(tok)
			if strings.Contains(strings.ToLower(shortName(h.Type)), lower) {
				return 0
			}
		}
		for _, tok := range tokens {
			if strings.Contains(strings.ToLower(h.DisplayName), strings.ToLower(tok)) {
				return 1
			}
		}
		return 2
	}
	sort.SliceStable(hits, func(i, j int) bool {
		ri, rj := fieldRank(hits[i]), fieldRank(hits[j])
		if ri != rj {
			return ri < rj
		}
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Type < hits[j].Type
	})
}

func (s *Store) substringSearch(ctx context.Context, tokens []string, limit int) ([]SearchResult, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	var (
		conds []string
		args  []any
	)
	for _, t := range tokens {
		pattern := "%" + escapeLike(t) + "%"
		conds = append(conds, `(node_type LIKE ? ESCAPE '\' OR display_name LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	q := fmt.Sprintf(`
		SELECT DISTINCT node_type, display_name, description
		FROM nodes
		WHERE %s
		ORDER BY node_type
		LIMIT ?`, strings.Join(conds, " OR "))
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: substring query: %w", err)
	}
	defer rows.Close()
	var hits []SearchResult
	for rows.Next() {
		var hit SearchResult
		if err := rows.Scan(&hit.Type, &hit.DisplayName, &hit.Description); err != nil {
			return nil, fmt.Errorf("catalog: scan substring row: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iter substring rows: %w", err)
	}
	rankHits(hits, tokens)
	return hits, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func (s *Store) fuzzySearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	candidates, err := s.loadCandidates(ctx)
	if err != nil {
		return nil, err
	}
	scored := RankFuzzy(query, candidates, limit)
	out := make([]SearchResult, 0, len(scored))
	for _, sc := range scored {
		out = append(out, SearchResult{
			Type:        sc.Candidate.Type,
			DisplayName: sc.Candidate.DisplayName,
			Score:       sc.Score,
		})
	}
	return out, nil
}

func (s *Store) loadCandidates(ctx context.Context) ([]Candidate, error) {
	const q = `SELECT DISTINCT node_type, display_name, category, package_name FROM nodes`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("catalog: load fuzzy candidates: %w", err)
	}
	defer rows.Close()
	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.Type, &c.DisplayName, &c.Category, &c.Package); err != nil {
			return nil, fmt.Errorf("catalog: scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iter candidates: %w", err)
	}
	return out, nil
}
