package catalog

import (
	"context"
	"fmt"
)

// Static is an in-memory Provider built from a fixed record set. It backs
// tests and tooling that run without the bundled database.
type Static struct {
	records map[string]*Record
	schemas map[string]map[string]any
	idx     *typeIndex
}

// NewStatic builds a provider over the given records.
func NewStatic(records []*Record) *Static {
	s := &Static{
		records: make(map[string]*Record, len(records)),
		schemas: make(map[string]map[string]any),
	}
	types := make([]string, 0, len(records))
	for _, r := range records {
		s.records[r.Type] = r
		types = append(types, r.Type)
	}
	s.idx = newTypeIndex(types)
	return s
}

// SetSchema registers a property schema for a (type, version) pair.
func (s *Static) SetSchema(nodeType, version string, schema map[string]any) {
	s.schemas[nodeType+"@"+version] = schema
}

// NormalizeType resolves any accepted spelling to the canonical full form.
func (s *Static) NormalizeType(input string) (string, bool) {
	return s.idx.Normalize(input)
}

func (s *Static) Lookup(_ context.Context, nodeType string) (*Record, error) {
	canonical, ok := s.idx.Normalize(nodeType)
	if !ok {
		return nil, fmt.Errorf("%q: %w", nodeType, ErrNotFound)
	}
	rec, ok := s.records[canonical]
	if !ok {
		return nil, fmt.Errorf("%q: %w", nodeType, ErrNotFound)
	}
	return rec, nil
}

func (s *Static) PropertySchema(_ context.Context, nodeType, version string) (map[string]any, error) {
	canonical, ok := s.idx.Normalize(nodeType)
	if !ok {
		return nil, fmt.Errorf("%q: %w", nodeType, ErrNotFound)
	}
	schema, ok := s.schemas[canonical+"@"+version]
	if !ok {
		return nil, fmt.Errorf("%s@%s: %w", nodeType, version, ErrNotFound)
	}
	return schema, nil
}

func (s *Static) Similar(_ context.Context, input string, limit int) ([]Suggestion, error) {
	candidates := make([]Candidate, 0, len(s.records))
	for _, r := range s.records {
		candidates = append(candidates, Candidate{
			Type:        r.Type,
			DisplayName: r.DisplayName,
			Category:    r.Category,
			Package:     r.Package,
		})
	}
	return SuggestFrom(input, candidates, limit), nil
}
