package diff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/n8n-cli/n8nctl/engine/catalog"
	"github.com/n8n-cli/n8nctl/engine/core"
	"github.com/n8n-cli/n8nctl/engine/workflow"
	"github.com/n8n-cli/n8nctl/pkg/logger"
)

// Engine applies surgical operations to workflow documents. The catalog
// resolves symbolic branch references.
type Engine struct {
	catalog catalog.Provider
}

func New(provider catalog.Provider) *Engine {
	return &Engine{catalog: provider}
}

// Apply runs the operations against a deep copy of the workflow. Default
// mode is all-or-nothing: every operation is applied to a scratch copy
// first, and the scratch becomes the result only when all of them passed.
// ContinueOnError applies each operation independently and records
// failures. The input workflow is never mutated.
func (e *Engine) Apply(ctx context.Context, wf *workflow.Workflow, ops []Operation, opts Options) (*Result, error) {
	if wf == nil {
		return nil, core.NewError(errors.New("workflow is nil"), "INVALID_INPUT", nil)
	}
	for i, op := range ops {
		if !knownOps[op.Type] {
			return nil, core.NewError(fmt.Errorf("operation %d has unknown type %q", i, op.Type), "UNKNOWN_OPERATION", map[string]any{
				"index": i,
			})
		}
	}
	scratch, err := wf.Clone()
	if err != nil {
		return nil, core.NewError(err, "CLONE_FAILED", nil)
	}
	res := &Result{DryRun: opts.DryRun}
	for i, op := range ops {
		if err := e.applyOne(ctx, scratch, op); err != nil {
			opErr := OpError{Index: i, Type: op.Type, Message: err.Error()}
			if !opts.ContinueOnError {
				return nil, core.NewError(opErr, "OPERATION_FAILED", map[string]any{
					"index":     i,
					"operation": string(op.Type),
				})
			}
			res.Errors = append(res.Errors, opErr)
			continue
		}
		res.Applied++
	}
	res.Workflow = scratch
	logger.FromContext(ctx).Debug("diff applied",
		"operations", len(ops), "applied", res.Applied, "failed", len(res.Errors), "dryRun", opts.DryRun)
	return res, nil
}

func (e *Engine) applyOne(ctx context.Context, wf *workflow.Workflow, op Operation) error {
	switch op.Type {
	case OpAddNode:
		return applyAddNode(wf, op)
	case OpRemoveNode:
		return applyRemoveNode(wf, op)
	case OpUpdateNode:
		return applyUpdateNode(wf, op)
	case OpMoveNode:
		return applyMoveNode(wf, op)
	case OpEnableNode:
		return setDisabled(wf, op, false)
	case OpDisableNode:
		return setDisabled(wf, op, true)
	case OpAddConnection:
		return e.applyAddConnection(ctx, wf, op)
	case OpRemoveConnection:
		return e.applyRemoveConnection(ctx, wf, op)
	case OpRewireConnection:
		return e.applyRewireConnection(ctx, wf, op)
	case OpCleanStaleConnections:
		wf.PruneStaleConnections()
		return nil
	case OpReplaceConnections:
		return applyReplaceConnections(wf, op)
	case OpUpdateSettings:
		return applyUpdateSettings(wf, op)
	case OpUpdateName:
		if op.Name == "" {
			return errors.New("updateName needs a name")
		}
		wf.Name = op.Name
		return nil
	case OpAddTag:
		return applyAddTag(wf, op)
	case OpRemoveTag:
		return applyRemoveTag(wf, op)
	case OpActivateWorkflow:
		active := true
		wf.Active = &active
		return nil
	case OpDeactivateWorkflow:
		active := false
		wf.Active = &active
		return nil
	}
	return fmt.Errorf("unknown operation type %q", op.Type)
}

func applyAddNode(wf *workflow.Workflow, op Operation) error {
	if op.Node == nil || op.Node.Name == "" {
		return errors.New("addNode needs a node with a name")
	}
	if wf.HasNode(op.Node.Name) {
		return fmt.Errorf("node %q already exists", op.Node.Name)
	}
	node, err := core.DeepCopy(op.Node)
	if err != nil {
		return err
	}
	wf.Nodes = append(wf.Nodes, node)
	return nil
}

func applyRemoveNode(wf *workflow.Workflow, op Operation) error {
	name := op.NodeName
	idx := -1
	for i, n := range wf.Nodes {
		if n != nil && n.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("node %q does not exist", name)
	}
	wf.Nodes = append(wf.Nodes[:idx], wf.Nodes[idx+1:]...)
	wf.RemoveNodeConnections(name)
	return nil
}

// applyUpdateNode patches parameters by dotted path and optionally renames
// the node, rewriting every connection that referenced the old name.
func applyUpdateNode(wf *workflow.Workflow, op Operation) error {
	node := wf.NodeByName(op.NodeName)
	if node == nil {
		return fmt.Errorf("node %q does not exist", op.NodeName)
	}
	for key, value := range op.Parameters {
		path, err := core.ParsePath(key)
		if err != nil {
			return fmt.Errorf("parameter path %q: %w", key, err)
		}
		if node.Parameters == nil {
			node.Parameters = map[string]any{}
		}
		if value == nil {
			if err := core.DeletePath(node.Parameters, path); err != nil {
				return err
			}
			continue
		}
		// Object values must not alias the operation's map.
		if m, ok := value.(map[string]any); ok {
			copied, err := core.DeepCopyMap(m)
			if err != nil {
				return err
			}
			value = copied
		}
		if err := core.SetPath(node.Parameters, path, value); err != nil {
			return err
		}
	}
	if op.NewName != "" && op.NewName != node.Name {
		if wf.HasNode(op.NewName) {
			return fmt.Errorf("cannot rename to %q, the name is taken", op.NewName)
		}
		wf.RenameNode(node.Name, op.NewName)
	}
	return nil
}

func applyMoveNode(wf *workflow.Workflow, op Operation) error {
	node := wf.NodeByName(op.NodeName)
	if node == nil {
		return fmt.Errorf("node %q does not exist", op.NodeName)
	}
	if len(op.Position) != 2 {
		return errors.New("moveNode needs a position pair")
	}
	node.Position = []float64{op.Position[0], op.Position[1]}
	return nil
}

func setDisabled(wf *workflow.Workflow, op Operation, disabled bool) error {
	node := wf.NodeByName(op.NodeName)
	if node == nil {
		return fmt.Errorf("node %q does not exist", op.NodeName)
	}
	node.Disabled = disabled
	return nil
}

func (e *Engine) applyAddConnection(ctx context.Context, wf *workflow.Workflow, op Operation) error {
	if err := checkEndpoints(wf, op.Source, op.Target); err != nil {
		return err
	}
	class := op.Class
	if class == "" {
		class = workflow.ClassMain
	}
	index, err := e.resolveSourceIndex(ctx, wf, op, class)
	if err != nil {
		return err
	}
	wf.AddConnection(op.Source, class, index, workflow.Endpoint{
		Node: op.Target, Type: class, Index: op.TargetIndex,
	})
	return nil
}

func (e *Engine) applyRemoveConnection(ctx context.Context, wf *workflow.Workflow, op Operation) error {
	class := op.Class
	if class == "" {
		class = workflow.ClassMain
	}
	index, err := e.resolveSourceIndex(ctx, wf, op, class)
	if err != nil {
		return err
	}
	if !wf.RemoveConnection(op.Source, class, index, op.Target) {
		return fmt.Errorf("no connection from %q[%d] to %q", op.Source, index, op.Target)
	}
	return nil
}

// applyRewireConnection atomically moves an existing connection to a new
// target.
func (e *Engine) applyRewireConnection(ctx context.Context, wf *workflow.Workflow, op Operation) error {
	if op.NewTarget == "" {
		return errors.New("rewireConnection needs a newTarget")
	}
	if !wf.HasNode(op.NewTarget) {
		return fmt.Errorf("node %q does not exist", op.NewTarget)
	}
	class := op.Class
	if class == "" {
		class = workflow.ClassMain
	}
	index, err := e.resolveSourceIndex(ctx, wf, op, class)
	if err != nil {
		return err
	}
	if !wf.RemoveConnection(op.Source, class, index, op.Target) {
		return fmt.Errorf("no connection from %q[%d] to %q", op.Source, index, op.Target)
	}
	wf.AddConnection(op.Source, class, index, workflow.Endpoint{
		Node: op.NewTarget, Type: class, Index: op.TargetIndex,
	})
	return nil
}

func applyReplaceConnections(wf *workflow.Workflow, op Operation) error {
	if op.Connections == nil {
		return errors.New("replaceConnections needs a connections object")
	}
	for source, classes := range op.Connections {
		if !wf.HasNode(source) {
			return fmt.Errorf("connection source %q does not exist", source)
		}
		for _, branches := range classes {
			for _, endpoints := range branches {
				for _, ep := range endpoints {
					if !wf.HasNode(ep.Node) {
						return fmt.Errorf("connection target %q does not exist", ep.Node)
					}
				}
			}
		}
	}
	replaced, err := core.DeepCopy(op.Connections)
	if err != nil {
		return err
	}
	wf.Connections = replaced
	return nil
}

func applyUpdateSettings(wf *workflow.Workflow, op Operation) error {
	if op.Settings == nil {
		return errors.New("updateSettings needs a settings object")
	}
	if wf.Settings == nil {
		wf.Settings = map[string]any{}
	}
	for k, v := range op.Settings {
		if v == nil {
			delete(wf.Settings, k)
			continue
		}
		wf.Settings[k] = v
	}
	return nil
}

func applyAddTag(wf *workflow.Workflow, op Operation) error {
	if op.Tag == "" {
		return errors.New("addTag needs a tag")
	}
	for _, t := range wf.Tags {
		if t == op.Tag {
			return nil
		}
	}
	wf.Tags = append(wf.Tags, op.Tag)
	return nil
}

func applyRemoveTag(wf *workflow.Workflow, op Operation) error {
	if op.Tag == "" {
		return errors.New("removeTag needs a tag")
	}
	for i, t := range wf.Tags {
		if t == op.Tag {
			wf.Tags = append(wf.Tags[:i], wf.Tags[i+1:]...)
			return nil
		}
	}
	return nil
}

func checkEndpoints(wf *workflow.Workflow, source, target string) error {
	if !wf.HasNode(source) {
		return fmt.Errorf("node %q does not exist", source)
	}
	if !wf.HasNode(target) {
		return fmt.Errorf("node %q does not exist", target)
	}
	return nil
}

// resolveSourceIndex turns an explicit index or a symbolic branch reference
// into a concrete output index. Symbols are validated against the catalog:
// true/false resolve on if-nodes, case N on switch-nodes within the declared
// arity.
func (e *Engine) resolveSourceIndex(ctx context.Context, wf *workflow.Workflow, op Operation, class string) (int, error) {
	symbolic := op.Branch != "" || op.Case != nil
	if op.SourceIndex != nil {
		if symbolic {
			return 0, errors.New("sourceIndex and a symbolic branch are mutually exclusive")
		}
		if *op.SourceIndex < 0 {
			return 0, fmt.Errorf("sourceIndex %d is negative", *op.SourceIndex)
		}
		return *op.SourceIndex, nil
	}
	if !symbolic {
		return 0, nil
	}
	if class != workflow.ClassMain {
		return 0, fmt.Errorf("symbolic branches only apply to %s connections", workflow.ClassMain)
	}
	node := wf.NodeByName(op.Source)
	if node == nil {
		return 0, fmt.Errorf("node %q does not exist", op.Source)
	}
	short := shortType(node.Type)
	if op.Branch != "" {
		if op.Case != nil {
			return 0, errors.New("branch and case are mutually exclusive")
		}
		if short != "if" {
			return 0, fmt.Errorf("branch %q only resolves on if nodes, %q is %s", op.Branch, op.Source, short)
		}
		switch op.Branch {
		case "true":
			return 0, nil
		case "false":
			return 1, nil
		}
		return 0, fmt.Errorf("branch must be true or false, got %q", op.Branch)
	}
	if short != "switch" {
		return 0, fmt.Errorf("case only resolves on switch nodes, %q is %s", op.Source, short)
	}
	n := *op.Case
	if n < 0 {
		return 0, fmt.Errorf("case %d is negative", n)
	}
	rec, err := e.catalog.Lookup(ctx, node.Type)
	if err == nil && !rec.VariadicOutputs && rec.OutputCount > 0 && n >= rec.OutputCount {
		return 0, fmt.Errorf("case %d is out of range, %q declares %d outputs", n, op.Source, rec.OutputCount)
	}
	return n, nil
}

func shortType(nodeType string) string {
	if i := strings.LastIndex(nodeType, "."); i >= 0 {
		return nodeType[i+1:]
	}
	return nodeType
}
