package migration

import (
	"fmt"

	"github.com/n8n-cli/n8nctl/engine/catalog"
	"github.com/n8n-cli/n8nctl/engine/workflow"
)

// Wildcard matches every node type in a registry entry.
const Wildcard = "*"

// ChangeKind classifies what a version bump did to a property.
type ChangeKind string

const (
	ChangeAdded              ChangeKind = "added"
	ChangeRemoved            ChangeKind = "removed"
	ChangeRenamed            ChangeKind = "renamed"
	ChangeTypeChanged        ChangeKind = "type_changed"
	ChangeRequirementChanged ChangeKind = "requirement_changed"
	ChangeDefaultChanged     ChangeKind = "default_changed"
)

// Strategy names the automatic rewrite available for a change, if any.
type Strategy string

const (
	StrategyAddProperty    Strategy = "add_property"
	StrategyRemoveProperty Strategy = "remove_property"
	StrategyRenameProperty Strategy = "rename_property"
	StrategySetDefault     Strategy = "set_default"
)

// BreakingChange records one property-level difference between two
// typeVersions of a node type.
type BreakingChange struct {
	NodeType    string
	FromVersion string
	ToVersion   string
	Property    string
	Kind        ChangeKind
	Breaking    bool
	Hint        string
	// Migratable changes carry a Strategy; the rest need a human.
	Migratable bool
	Strategy   Strategy
	NewName    string
	Default    any
}

// AppliedMigration describes one rewrite Migrate performed on a node.
type AppliedMigration struct {
	Property string `json:"property"`
	Action   string `json:"action"`
	OldValue any    `json:"oldValue,omitempty"`
	NewValue any    `json:"newValue,omitempty"`
}

// Registry holds the known breaking changes across node versions.
type Registry struct {
	changes []BreakingChange
}

func NewRegistry(changes []BreakingChange) *Registry {
	return &Registry{changes: changes}
}

// DefaultRegistry seeds the registry with the documented changes for the
// bundled node set.
func DefaultRegistry() *Registry {
	return NewRegistry([]BreakingChange{
		{
			NodeType: Wildcard, FromVersion: "0", ToVersion: "999",
			Property: "continueOnFail", Kind: ChangeRenamed, Breaking: true,
			Hint:       "continueOnFail was replaced by onError",
			Migratable: true, Strategy: StrategyRenameProperty, NewName: "onError",
		},
		{
			NodeType: "n8n-nodes-base.set", FromVersion: "2", ToVersion: "3",
			Property: "values", Kind: ChangeRenamed, Breaking: true,
			Hint:       "field assignments moved from values to assignments",
			Migratable: true, Strategy: StrategyRenameProperty, NewName: "assignments",
		},
		{
			NodeType: "n8n-nodes-base.switch", FromVersion: "2", ToVersion: "3",
			Property: "rules", Kind: ChangeTypeChanged, Breaking: true,
			Hint: "rule conditions use the filter format in v3; rewrite rules.values manually",
		},
		{
			NodeType: "n8n-nodes-base.httpRequest", FromVersion: "3", ToVersion: "4",
			Property: "responseFormat", Kind: ChangeRemoved, Breaking: true,
			Hint:       "responseFormat moved under options.response.response.responseFormat",
			Migratable: true, Strategy: StrategyRemoveProperty,
		},
		{
			NodeType: "n8n-nodes-base.httpRequest", FromVersion: "3", ToVersion: "4",
			Property: "queryParametersUi", Kind: ChangeRenamed, Breaking: true,
			Hint:       "query parameters were renamed to queryParameters",
			Migratable: true, Strategy: StrategyRenameProperty, NewName: "queryParameters",
		},
		{
			NodeType: "n8n-nodes-base.if", FromVersion: "1", ToVersion: "2",
			Property: "conditions", Kind: ChangeTypeChanged, Breaking: true,
			Hint: "conditions use the typed filter format in v2; rewrite manually",
		},
		{
			NodeType: "n8n-nodes-base.code", FromVersion: "1", ToVersion: "2",
			Property: "mode", Kind: ChangeAdded, Breaking: false,
			Hint:       "v2 defaults mode to runOnceForAllItems",
			Migratable: true, Strategy: StrategySetDefault, Default: "runOnceForAllItems",
		},
		{
			NodeType: "n8n-nodes-base.webhook", FromVersion: "1", ToVersion: "2",
			Property: "responseMode", Kind: ChangeDefaultChanged, Breaking: false,
			Hint: "default response mode changed to onReceived",
		},
	})
}

// ChangesFor returns the changes that apply when moving nodeType from one
// version to another. Wildcard entries always apply when from < to.
func (r *Registry) ChangesFor(nodeType, from, to string) []BreakingChange {
	if catalog.CompareVersions(from, to) >= 0 {
		return nil
	}
	var out []BreakingChange
	for _, c := range r.changes {
		if c.NodeType != Wildcard && c.NodeType != nodeType {
			continue
		}
		// A change fires when the jump crosses its from..to boundary.
		if catalog.CompareVersions(from, c.ToVersion) < 0 && catalog.CompareVersions(to, c.FromVersion) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// BreakingFor filters ChangesFor down to the breaking subset.
func (r *Registry) BreakingFor(nodeType, from, to string) []BreakingChange {
	var out []BreakingChange
	for _, c := range r.ChangesFor(nodeType, from, to) {
		if c.Breaking {
			out = append(out, c)
		}
	}
	return out
}

// Migrate rewrites node parameters for an upgrade to the target version.
// It returns what it changed and the hints for changes it could not apply.
func (r *Registry) Migrate(node *workflow.Node, target string) (applied []AppliedMigration, manual []string) {
	from := catalog.FormatVersion(node.TypeVersion)
	for _, c := range r.ChangesFor(node.Type, from, target) {
		if !c.Migratable {
			if c.Breaking {
				manual = append(manual, fmt.Sprintf("%s: %s", c.Property, c.Hint))
			}
			continue
		}
		if am, ok := applyOne(node, c); ok {
			applied = append(applied, am)
		}
	}
	return applied, manual
}

func applyOne(node *workflow.Node, c BreakingChange) (AppliedMigration, bool) {
	if c.Property == "continueOnFail" {
		return migrateContinueOnFail(node)
	}
	if node.Parameters == nil {
		node.Parameters = map[string]any{}
	}
	switch c.Strategy {
	case StrategyRenameProperty:
		old, ok := node.Parameters[c.Property]
		if !ok {
			return AppliedMigration{}, false
		}
		delete(node.Parameters, c.Property)
		node.Parameters[c.NewName] = old
		return AppliedMigration{Property: c.Property, Action: "renamed to " + c.NewName, OldValue: old, NewValue: old}, true
	case StrategyRemoveProperty:
		old, ok := node.Parameters[c.Property]
		if !ok {
			return AppliedMigration{}, false
		}
		delete(node.Parameters, c.Property)
		return AppliedMigration{Property: c.Property, Action: "removed", OldValue: old}, true
	case StrategySetDefault:
		if _, ok := node.Parameters[c.Property]; ok {
			return AppliedMigration{}, false
		}
		node.Parameters[c.Property] = c.Default
		return AppliedMigration{Property: c.Property, Action: "defaulted", NewValue: c.Default}, true
	case StrategyAddProperty:
		if _, ok := node.Parameters[c.Property]; ok {
			return AppliedMigration{}, false
		}
		node.Parameters[c.Property] = c.Default
		return AppliedMigration{Property: c.Property, Action: "added", NewValue: c.Default}, true
	}
	return AppliedMigration{}, false
}

// migrateContinueOnFail rewrites the legacy node-level flag into onError.
func migrateContinueOnFail(node *workflow.Node) (AppliedMigration, bool) {
	if node.ContinueOnFail == nil {
		return AppliedMigration{}, false
	}
	old := *node.ContinueOnFail
	node.ContinueOnFail = nil
	if node.OnError == "" {
		if old {
			node.OnError = workflow.OnErrorContinueRegularOutput
		} else {
			node.OnError = workflow.OnErrorStopWorkflow
		}
	}
	return AppliedMigration{Property: "continueOnFail", Action: "renamed to onError", OldValue: old, NewValue: node.OnError}, true
}
