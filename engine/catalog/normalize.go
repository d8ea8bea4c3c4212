package catalog

import "strings"

// Type normalization resolves the short, DB, full, and AI-package spellings of
// a node type to the catalog's canonical full form. Resolution is pure and
// deterministic; it never touches the database beyond the loaded indexes.

const (
	basePrefix   = "n8n-nodes-base."
	dbPrefix     = "nodes-base."
	langDBPrefix = "nodes-langchain."
	langPrefix   = "@n8n/n8n-nodes-langchain."
)

// typeIndex holds the lookup structures normalization needs. It is built once
// when the store opens and is safe for concurrent reads.
type typeIndex struct {
	full  map[string]string   // exact full type → canonical
	short map[string][]string // lowercased short name → canonical candidates
}

func newTypeIndex(types []string) *typeIndex {
	idx := &typeIndex{
		full:  make(map[string]string, len(types)),
		short: make(map[string][]string),
	}
	for _, t := range types {
		idx.full[t] = t
		short := strings.ToLower(shortName(t))
		idx.short[short] = append(idx.short[short], t)
	}
	return idx
}

func shortName(fullType string) string {
	if i := strings.LastIndexByte(fullType, '.'); i >= 0 {
		return fullType[i+1:]
	}
	return fullType
}

// Normalize resolves input to a canonical full type. Resolution order: exact
// full-type match, DB-form expansion, then case-insensitive short-name lookup
// preferring non-trigger variants unless the caller asked for a trigger form.
// The second return reports success.
func (idx *typeIndex) Normalize(input string) (string, bool) {
	if input == "" {
		return "", false
	}
	if canonical, ok := idx.full[input]; ok {
		return canonical, true
	}
	if expanded, ok := idx.expandDBForm(input); ok {
		return expanded, true
	}
	return idx.resolveShort(input)
}

func (idx *typeIndex) expandDBForm(input string) (string, bool) {
	switch {
	case strings.HasPrefix(input, dbPrefix):
		candidate := basePrefix + strings.TrimPrefix(input, dbPrefix)
		if canonical, ok := idx.full[candidate]; ok {
			return canonical, true
		}
	case strings.HasPrefix(input, langDBPrefix):
		candidate := langPrefix + strings.TrimPrefix(input, langDBPrefix)
		if canonical, ok := idx.full[candidate]; ok {
			return canonical, true
		}
	}
	return "", false
}

func (idx *typeIndex) resolveShort(input string) (string, bool) {
	lower := strings.ToLower(shortName(input))
	candidates := idx.short[lower]
	if len(candidates) == 0 {
		return "", false
	}
	wantTrigger := strings.HasSuffix(lower, "trigger")
	var trigger, regular string
	for _, c := range candidates {
		if strings.HasSuffix(strings.ToLower(c), "trigger") {
			if trigger == "" || c < trigger {
				trigger = c
			}
		} else {
			if regular == "" || c < regular {
				regular = c
			}
		}
	}
	if wantTrigger && trigger != "" {
		return trigger, true
	}
	if regular != "" {
		return regular, true
	}
	return trigger, trigger != ""
}
