package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/n8n-cli/n8nctl/engine/core"
)

// ErrNotFound reports a node type absent from the catalog.
var ErrNotFound = errors.New("node type not found in catalog")

// Provider is the read surface the validator, auto-fix, and diff engines
// consume. The SQLite store and the in-memory Static provider implement it.
type Provider interface {
	Lookup(ctx context.Context, nodeType string) (*Record, error)
	PropertySchema(ctx context.Context, nodeType, version string) (map[string]any, error)
	Similar(ctx context.Context, input string, limit int) ([]Suggestion, error)
}

// Store is the read-only catalog backed by the bundled SQLite file. It is
// safe for concurrent reads; no writer exists at runtime.
type Store struct {
	db     *sql.DB
	idx    *typeIndex
	hasFTS bool
}

// Open opens the catalog database read-only and loads the type index. A file
// carrying neither the nodes table nor the FTS view violates a packaging
// invariant and is reported as an internal error.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=query_only(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	hasNodes, err := s.tableExists(ctx, "nodes")
	if err != nil {
		return err
	}
	s.hasFTS, err = s.tableExists(ctx, "nodes_fts")
	if err != nil {
		return err
	}
	if !hasNodes && !s.hasFTS {
		return core.NewKindError(core.KindInternal, nil, "CATALOG_INVALID",
			"catalog database has neither the nodes table nor the FTS view", nil)
	}
	if !hasNodes {
		return core.NewKindError(core.KindInternal, nil, "CATALOG_INVALID",
			"catalog database is missing the nodes table", nil)
	}
	types, err := s.loadTypes(ctx)
	if err != nil {
		return err
	}
	s.idx = newTypeIndex(types)
	return nil
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	const q = `SELECT count(*) FROM sqlite_master WHERE name = ?`
	var n int
	if err := s.db.QueryRowContext(ctx, q, name).Scan(&n); err != nil {
		return false, fmt.Errorf("catalog: probe table %s: %w", name, err)
	}
	return n > 0, nil
}

func (s *Store) loadTypes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT node_type FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("catalog: load types: %w", err)
	}
	defer rows.Close()
	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("catalog: scan type: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iter types: %w", err)
	}
	return types, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// NormalizeType resolves any accepted spelling of a node type to its
// canonical full form.
func (s *Store) NormalizeType(input string) (string, bool) {
	return s.idx.Normalize(input)
}

// Lookup returns the record for a node type in any accepted spelling.
func (s *Store) Lookup(ctx context.Context, nodeType string) (*Record, error) {
	canonical, ok := s.idx.Normalize(nodeType)
	if !ok {
		return nil, fmt.Errorf("%q: %w", nodeType, ErrNotFound)
	}
	const q = `
		SELECT version, display_name, category, package_name, description,
		       is_ai_tool, is_trigger, is_webhook, outputs, required_properties
		FROM nodes WHERE node_type = ?`
	rows, err := s.db.QueryContext(ctx, q, canonical)
	if err != nil {
		return nil, fmt.Errorf("catalog: lookup %s: %w", canonical, err)
	}
	defer rows.Close()
	rec := &Record{Type: canonical}
	found := false
	latest := ""
	for rows.Next() {
		var (
			version, displayName, category, pkg, description string
			isAITool, isTrigger, isWebhook                   bool
			outputsJSON, requiredJSON                        sql.NullString
		)
		if err := rows.Scan(&version, &displayName, &category, &pkg, &description,
			&isAITool, &isTrigger, &isWebhook, &outputsJSON, &requiredJSON); err != nil {
			return nil, fmt.Errorf("catalog: scan %s: %w", canonical, err)
		}
		found = true
		rec.Versions = append(rec.Versions, version)
		if latest == "" || CompareVersions(version, latest) > 0 {
			latest = version
			rec.DisplayName = displayName
			rec.Category = category
			rec.Package = pkg
			rec.Description = description
			rec.IsAITool = isAITool
			rec.IsTrigger = isTrigger
			rec.IsWebhook = isWebhook
			applyOutputs(rec, outputsJSON.String)
			applyRequired(rec, requiredJSON.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iter %s: %w", canonical, err)
	}
	if !found {
		return nil, fmt.Errorf("%q: %w", nodeType, ErrNotFound)
	}
	sort.Slice(rec.Versions, func(i, j int) bool {
		return CompareVersions(rec.Versions[i], rec.Versions[j]) < 0
	})
	return rec, nil
}

// applyOutputs decodes the stored outputs JSON column, e.g.
// {"classes":["main"],"count":2,"variadic":false}.
func applyOutputs(rec *Record, raw string) {
	if raw == "" {
		rec.OutputClasses = []string{"main"}
		rec.OutputCount = 1
		return
	}
	for _, c := range gjson.Get(raw, "classes").Array() {
		rec.OutputClasses = append(rec.OutputClasses, c.String())
	}
	if len(rec.OutputClasses) == 0 {
		rec.OutputClasses = []string{"main"}
	}
	if n := gjson.Get(raw, "count"); n.Exists() {
		rec.OutputCount = int(n.Int())
	} else {
		rec.OutputCount = 1
	}
	rec.VariadicOutputs = gjson.Get(raw, "variadic").Bool()
}

func applyRequired(rec *Record, raw string) {
	if raw == "" {
		return
	}
	for _, p := range gjson.Parse(raw).Array() {
		rec.RequiredProperties = append(rec.RequiredProperties, p.String())
	}
}

// ListByCategory returns every record in the given category, ordered by type.
func (s *Store) ListByCategory(ctx context.Context, category string) ([]*Record, error) {
	const q = `SELECT DISTINCT node_type FROM nodes WHERE category = ? ORDER BY node_type`
	rows, err := s.db.QueryContext(ctx, q, category)
	if err != nil {
		return nil, fmt.Errorf("catalog: list category %s: %w", category, err)
	}
	defer rows.Close()
	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("catalog: scan category row: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iter category rows: %w", err)
	}
	out := make([]*Record, 0, len(types))
	for _, t := range types {
		rec, err := s.Lookup(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Versions returns the ordered version list for a node type.
func (s *Store) Versions(ctx context.Context, nodeType string) ([]string, error) {
	rec, err := s.Lookup(ctx, nodeType)
	if err != nil {
		return nil, err
	}
	return rec.Versions, nil
}

// PropertySchema returns the per-version property schema as a decoded tree.
func (s *Store) PropertySchema(ctx context.Context, nodeType, version string) (map[string]any, error) {
	canonical, ok := s.idx.Normalize(nodeType)
	if !ok {
		return nil, fmt.Errorf("%q: %w", nodeType, ErrNotFound)
	}
	const q = `SELECT properties FROM nodes WHERE node_type = ? AND version = ?`
	var raw sql.NullString
	if err := s.db.QueryRowContext(ctx, q, canonical, version).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s@%s: %w", nodeType, version, ErrNotFound)
		}
		return nil, fmt.Errorf("catalog: property schema %s@%s: %w", canonical, version, err)
	}
	if !raw.Valid || raw.String == "" {
		return map[string]any{}, nil
	}
	parsed, ok := gjson.Parse(raw.String).Value().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("catalog: property schema %s@%s is not an object", canonical, version)
	}
	return parsed, nil
}
