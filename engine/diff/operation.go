package diff

import (
	"encoding/json"
	"fmt"

	"github.com/n8n-cli/n8nctl/engine/workflow"
)

// OpType is the closed set of surgical operations.
type OpType string

const (
	OpAddNode               OpType = "addNode"
	OpRemoveNode            OpType = "removeNode"
	OpUpdateNode            OpType = "updateNode"
	OpMoveNode              OpType = "moveNode"
	OpEnableNode            OpType = "enableNode"
	OpDisableNode           OpType = "disableNode"
	OpAddConnection         OpType = "addConnection"
	OpRemoveConnection      OpType = "removeConnection"
	OpRewireConnection      OpType = "rewireConnection"
	OpCleanStaleConnections OpType = "cleanStaleConnections"
	OpReplaceConnections    OpType = "replaceConnections"
	OpUpdateSettings        OpType = "updateSettings"
	OpUpdateName            OpType = "updateName"
	OpAddTag                OpType = "addTag"
	OpRemoveTag             OpType = "removeTag"
	OpActivateWorkflow      OpType = "activateWorkflow"
	OpDeactivateWorkflow    OpType = "deactivateWorkflow"
)

var knownOps = map[OpType]bool{
	OpAddNode: true, OpRemoveNode: true, OpUpdateNode: true, OpMoveNode: true,
	OpEnableNode: true, OpDisableNode: true, OpAddConnection: true,
	OpRemoveConnection: true, OpRewireConnection: true, OpCleanStaleConnections: true,
	OpReplaceConnections: true, OpUpdateSettings: true, OpUpdateName: true,
	OpAddTag: true, OpRemoveTag: true, OpActivateWorkflow: true, OpDeactivateWorkflow: true,
}

// Operation is the tagged union. Only the fields the Type needs are read;
// the rest are ignored.
type Operation struct {
	Type OpType `json:"type"`

	// Node operations.
	Node       *workflow.Node `json:"node,omitempty"`
	NodeName   string         `json:"nodeName,omitempty"`
	NewName    string         `json:"newName,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Position   []float64      `json:"position,omitempty"`

	// Connection operations. Branch and Case are symbolic alternatives to
	// SourceIndex; at most one of the three may be set.
	Source      string `json:"source,omitempty"`
	Target      string `json:"target,omitempty"`
	NewTarget   string `json:"newTarget,omitempty"`
	Class       string `json:"class,omitempty"`
	SourceIndex *int   `json:"sourceIndex,omitempty"`
	TargetIndex int    `json:"targetIndex,omitempty"`
	Branch      string `json:"branch,omitempty"`
	Case        *int   `json:"case,omitempty"`

	// Workflow-level operations.
	Connections workflow.Connections `json:"connections,omitempty"`
	Settings    map[string]any       `json:"settings,omitempty"`
	Name        string               `json:"name,omitempty"`
	Tag         string               `json:"tag,omitempty"`
}

// ParseOperations decodes an operation list and rejects unknown types up
// front.
func ParseOperations(data []byte) ([]Operation, error) {
	var ops []Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("operations document is not valid JSON: %w", err)
	}
	for i, op := range ops {
		if !knownOps[op.Type] {
			return nil, fmt.Errorf("operation %d has unknown type %q", i, op.Type)
		}
	}
	return ops, nil
}

// OpError records one failed operation.
type OpError struct {
	Index   int    `json:"index"`
	Type    OpType `json:"type"`
	Message string `json:"message"`
}

func (e OpError) Error() string {
	return fmt.Sprintf("operation %d (%s): %s", e.Index, e.Type, e.Message)
}

// Options control application mode.
type Options struct {
	DryRun          bool
	ContinueOnError bool
}

// Result reports what an application run did. Workflow is the mutated copy;
// the input document is never changed.
type Result struct {
	Workflow *workflow.Workflow `json:"workflow"`
	Applied  int                `json:"applied"`
	Errors   []OpError          `json:"errors,omitempty"`
	DryRun   bool               `json:"dryRun,omitempty"`
}
