package autofix

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/n8n-cli/n8nctl/engine/core"
	"github.com/n8n-cli/n8nctl/engine/workflow"
)

// apply replays the fixes on a deep copy of the workflow, grouped by node
// and ordered by field path. The input workflow is left intact.
func (e *Engine) apply(_ context.Context, wf *workflow.Workflow, fixes []Fix) (*workflow.Workflow, error) {
	modified, err := wf.Clone()
	if err != nil {
		return nil, core.NewError(err, "CLONE_FAILED", nil)
	}
	byNode := map[string][]Fix{}
	var order []string
	for _, f := range fixes {
		if f.InfoOnly && (e.applyAdvisory == nil || !e.applyAdvisory(f)) {
			continue
		}
		if _, seen := byNode[f.NodeName]; !seen {
			order = append(order, f.NodeName)
		}
		byNode[f.NodeName] = append(byNode[f.NodeName], f)
	}
	for _, name := range order {
		group := byNode[name]
		// Node ids are stable across renames; the name is the fallback.
		var node *workflow.Node
		if id := group[0].NodeID; id != "" {
			node = modified.NodeByID(id)
		}
		if node == nil {
			node = modified.NodeByName(name)
		}
		if node == nil {
			continue
		}
		sortFixesByField(group)
		for _, f := range group {
			if err := e.applyFix(node, f); err != nil {
				return nil, core.NewError(err, "FIX_APPLY_FAILED", map[string]any{
					"node":  name,
					"field": f.Field,
					"type":  string(f.Type),
				})
			}
		}
	}
	return modified, nil
}

// applyFix mutates one node according to a fix. Node-level fields are
// handled explicitly; everything under parameters goes through the path
// walker, which creates intermediate containers on demand.
func (e *Engine) applyFix(node *workflow.Node, f Fix) error {
	switch f.Type {
	case FixWebhookMissingPath:
		return applyWebhookPath(node, f)
	case FixTypeVersionUpgrade:
		return e.applyUpgrade(node, f)
	case FixVersionMigration:
		// Reachable only through an advisory-applier override.
		target, _ := f.After.(string)
		if target == "" {
			return fmt.Errorf("migration fix carries no target version")
		}
		e.registry.Migrate(node, target)
		return setTypeVersion(node, target)
	}
	switch f.Field {
	case "type":
		after, ok := f.After.(string)
		if !ok {
			return fmt.Errorf("node type fix carries no replacement")
		}
		node.Type = after
		return nil
	case "typeVersion":
		return setTypeVersion(node, f.After)
	case "onError":
		if !f.Absent {
			after, _ := f.After.(string)
			node.OnError = after
			return nil
		}
		node.OnError = ""
		return nil
	}
	if f.MoveTo != "" {
		return moveParameter(node, f.Field, f.MoveTo)
	}
	if f.Absent {
		return deleteParameter(node, f.Field)
	}
	return setParameter(node, f.Field, f.After)
}

func applyWebhookPath(node *workflow.Node, f Fix) error {
	path, ok := f.After.(string)
	if !ok || path == "" {
		return fmt.Errorf("webhook path fix carries no path")
	}
	if err := setParameter(node, f.Field, path); err != nil {
		return err
	}
	if node.WebhookID == "" {
		node.WebhookID = path
	}
	if node.TypeVersion < 2 {
		node.TypeVersion = 2
	}
	return nil
}

// applyUpgrade bumps the version and replays the migration pipeline on the
// node. The registry is deterministic, so the replay applies exactly the
// rewrites the fix recorded.
func (e *Engine) applyUpgrade(node *workflow.Node, f Fix) error {
	if f.TargetVersion == "" {
		return fmt.Errorf("upgrade fix carries no target version")
	}
	e.registry.Migrate(node, f.TargetVersion)
	return setTypeVersion(node, f.TargetVersion)
}

func setTypeVersion(node *workflow.Node, after any) error {
	switch v := after.(type) {
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("typeVersion %q is not numeric", v)
		}
		node.TypeVersion = parsed
	case float64:
		node.TypeVersion = v
	case int:
		node.TypeVersion = float64(v)
	default:
		return fmt.Errorf("typeVersion fix carries no version")
	}
	return nil
}

func parameterPath(field string) (core.FieldPath, error) {
	rel, ok := strings.CutPrefix(field, "parameters.")
	if !ok {
		return nil, fmt.Errorf("field %q is not under parameters", field)
	}
	return core.ParsePath(rel)
}

func setParameter(node *workflow.Node, field string, value any) error {
	path, err := parameterPath(field)
	if err != nil {
		return err
	}
	if node.Parameters == nil {
		node.Parameters = map[string]any{}
	}
	return core.SetPath(node.Parameters, path, value)
}

func deleteParameter(node *workflow.Node, field string) error {
	path, err := parameterPath(field)
	if err != nil {
		return err
	}
	if node.Parameters == nil {
		return nil
	}
	return core.DeletePath(node.Parameters, path)
}

func moveParameter(node *workflow.Node, from, to string) error {
	fromPath, err := parameterPath(from)
	if err != nil {
		return err
	}
	if node.Parameters == nil {
		return nil
	}
	value, ok := core.GetPath(node.Parameters, fromPath)
	if !ok {
		return nil
	}
	if err := deleteParameter(node, from); err != nil {
		return err
	}
	return setParameter(node, to, value)
}
