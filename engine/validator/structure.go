package validator

import (
	"context"
	"fmt"

	"github.com/n8n-cli/n8nctl/engine/catalog"
	"github.com/n8n-cli/n8nctl/engine/workflow"
)

// checkStructure verifies document shape: required top-level properties,
// node identity, catalog-known types and versions, and connection endpoints.
func (v *Validator) checkStructure(ctx context.Context, wf *workflow.Workflow, c *collector) {
	if wf == nil {
		c.add(Diagnostic{
			Code: CodeMissingRequiredProperty, Severity: SeverityError, Category: CategoryCritical,
			Message: "workflow document is empty",
		})
		return
	}
	if wf.Name == "" {
		c.add(Diagnostic{
			Code: CodeMissingRequiredProperty, Severity: SeverityError, Category: CategoryCritical,
			Message:  "workflow is missing the name property",
			Location: &Location{Path: "name"},
		})
	}
	if wf.Nodes == nil {
		c.add(Diagnostic{
			Code: CodeMissingRequiredProperty, Severity: SeverityError, Category: CategoryCritical,
			Message:  "workflow is missing the nodes array",
			Location: &Location{Path: "nodes"},
		})
	}
	if wf.Connections == nil {
		c.add(Diagnostic{
			Code: CodeMissingRequiredProperty, Severity: SeverityError, Category: CategoryCritical,
			Message:  "workflow is missing the connections object",
			Location: &Location{Path: "connections"},
		})
	}

	seen := make(map[string]bool, len(wf.Nodes))
	for _, n := range wf.Nodes {
		if n == nil {
			continue
		}
		if seen[n.Name] {
			c.nodeIssue(n, Diagnostic{
				Code: CodeDuplicateNodeName, Severity: SeverityError, Category: CategoryCritical,
				Message: fmt.Sprintf("node name %q is used more than once", n.Name),
			})
		}
		seen[n.Name] = true
		v.checkNodeShape(ctx, n, c)
	}
	v.checkConnections(ctx, wf, c)
}

func (v *Validator) checkNodeShape(ctx context.Context, n *workflow.Node, c *collector) {
	if n.Name == "" {
		c.nodeIssue(n, Diagnostic{
			Code: CodeMissingNodeProperty, Severity: SeverityError, Category: CategoryCritical,
			Message: "node is missing the name property",
			Context: map[string]any{"property": "name"},
		})
	}
	if n.Type == "" {
		c.nodeIssue(n, Diagnostic{
			Code: CodeMissingNodeProperty, Severity: SeverityError, Category: CategoryCritical,
			Message: "node is missing the type property",
			Context: map[string]any{"property": "type"},
		})
		return
	}
	if !n.ValidPosition() {
		c.nodeIssue(n, Diagnostic{
			Code: CodeInvalidPosition, Severity: SeverityWarning, Category: CategoryRuntime,
			Message:  "node position must be a pair of finite numbers",
			Location: &Location{Path: "position"},
		})
	}

	rec, err := v.lookup(ctx, n.Type)
	if err != nil {
		c.nodeIssue(n, Diagnostic{
			Code: CodeCheckerFailed, Severity: SeverityInfo, Category: CategoryInternal,
			Message: "catalog lookup failed: " + err.Error(),
		})
		return
	}
	if rec == nil {
		c.nodeIssue(n, Diagnostic{
			Code: CodeUnknownNodeType, Severity: SeverityError, Category: CategoryCritical,
			Message: fmt.Sprintf("node type %q is not in the catalog", n.Type),
			Context: map[string]any{"nodeType": n.Type},
			Hint:    "check the spelling or run nodes search to find the right type",
		})
		return
	}
	declared := catalog.FormatVersion(n.TypeVersion)
	if latest := rec.LatestVersion(); latest != "" && catalog.CompareVersions(declared, latest) > 0 {
		c.nodeIssue(n, Diagnostic{
			Code: CodeTypeVersionExceedsMax, Severity: SeverityError, Category: CategoryCritical,
			Message: fmt.Sprintf("typeVersion %s exceeds maximum %s", declared, latest),
			Context: map[string]any{"declared": declared, "maximum": latest},
		})
	}
}

// checkConnections verifies that every endpoint names an existing node and
// that branch indexes stay inside the declared output arity.
func (v *Validator) checkConnections(ctx context.Context, wf *workflow.Workflow, c *collector) {
	for source, classes := range wf.Connections {
		src := wf.NodeByName(source)
		if src == nil {
			c.add(Diagnostic{
				Code: CodeInvalidConnection, Severity: SeverityError, Category: CategoryCritical,
				Message:  fmt.Sprintf("connection source %q does not exist", source),
				Location: &Location{Path: "connections." + source},
			})
			continue
		}
		var rec *catalog.Record
		if r, err := v.lookup(ctx, src.Type); err == nil {
			rec = r
		}
		// Nodes routing errors to their own branch get one slot past the
		// declared main outputs.
		maxBranch := func(rec *catalog.Record) int {
			if src.OnError == workflow.OnErrorContinueErrorOutput {
				return rec.OutputCount + 1
			}
			return rec.OutputCount
		}
		for class, branches := range classes {
			for branch, endpoints := range branches {
				if class == workflow.ClassMain && rec != nil && !rec.VariadicOutputs &&
					rec.OutputCount > 0 && branch >= maxBranch(rec) {
					c.add(Diagnostic{
						Code: CodeBranchOutOfRange, Severity: SeverityError, Category: CategoryCritical,
						Message: fmt.Sprintf("branch %d of %q is out of range, node has %d outputs",
							branch, source, rec.OutputCount),
						Location: &Location{NodeName: source, Path: fmt.Sprintf("connections.%s.%s[%d]", source, class, branch)},
						Context:  map[string]any{"branch": branch, "outputs": rec.OutputCount},
					})
				}
				for _, ep := range endpoints {
					if !wf.HasNode(ep.Node) {
						c.add(Diagnostic{
							Code: CodeInvalidConnection, Severity: SeverityError, Category: CategoryCritical,
							Message:  fmt.Sprintf("connection from %q targets missing node %q", source, ep.Node),
							Location: &Location{NodeName: source, Path: fmt.Sprintf("connections.%s.%s[%d]", source, class, branch)},
							Context:  map[string]any{"target": ep.Node},
						})
					}
				}
			}
		}
	}
}

// checkNodeProperties enforces per-node required parameters from the catalog
// and flags the doubled values collection shape.
func (v *Validator) checkNodeProperties(ctx context.Context, wf *workflow.Workflow, c *collector) {
	if wf == nil {
		return
	}
	for _, n := range wf.Nodes {
		if n == nil || n.Type == "" {
			continue
		}
		rec, err := v.lookup(ctx, n.Type)
		if err != nil || rec == nil {
			continue
		}
		for _, prop := range rec.RequiredProperties {
			if _, ok := n.Parameters[prop]; !ok {
				c.nodeIssue(n, Diagnostic{
					Code: CodeMissingNodeProperty, Severity: SeverityError, Category: CategoryCritical,
					Message:  fmt.Sprintf("required parameter %q is missing", prop),
					Location: &Location{Path: "parameters." + prop},
					Context:  map[string]any{"property": prop},
				})
			}
		}
		checkNestedValues(n, c)
	}
}

// checkNestedValues flags the classic fixedCollection mistake where a
// values object wraps another values object.
func checkNestedValues(n *workflow.Node, c *collector) {
	for key, val := range n.Parameters {
		outer, ok := val.(map[string]any)
		if !ok {
			continue
		}
		inner, ok := outer["values"].(map[string]any)
		if !ok {
			continue
		}
		if _, doubled := inner["values"]; doubled {
			c.nodeIssue(n, Diagnostic{
				Code: CodeNestedValuesCollection, Severity: SeverityError, Category: CategoryRuntime,
				Message:  fmt.Sprintf("parameter %q nests values inside values", key),
				Location: &Location{Path: "parameters." + key + ".values.values"},
				Hint:     "unwrap the inner values object",
			})
		}
	}
}
