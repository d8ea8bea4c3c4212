package workflow

import (
	"fmt"
	"math"

	"github.com/n8n-cli/n8nctl/engine/core"
)

// OnError enumerates the per-node error policies the server understands.
const (
	OnErrorStopWorkflow          = "stopWorkflow"
	OnErrorContinueRegularOutput = "continueRegularOutput"
	OnErrorContinueErrorOutput   = "continueErrorOutput"
)

// ClassMain is the default connection class carrying regular items.
const ClassMain = "main"

// Endpoint is one target of a connection branch.
type Endpoint struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// Connections maps source node name → output class → branches → fan-out
// endpoints. The outer slice index is the source output branch.
type Connections map[string]map[string][][]Endpoint

// Node is a single step of a workflow.
type Node struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	TypeVersion float64        `json:"typeVersion,omitempty"`
	Position    []float64      `json:"position,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Credentials map[string]any `json:"credentials,omitempty"`
	OnError     string         `json:"onError,omitempty"`
	// ContinueOnFail is the legacy spelling of the error policy; migrations
	// rewrite it into OnError.
	ContinueOnFail *bool  `json:"continueOnFail,omitempty"`
	Disabled       bool   `json:"disabled,omitempty"`
	WebhookID      string `json:"webhookId,omitempty"`
}

// Workflow is the in-memory representation of a workflow document.
type Workflow struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Active      *bool          `json:"active,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
	Nodes       []*Node        `json:"nodes"`
	Connections Connections    `json:"connections"`
	Tags        []string       `json:"tags,omitempty"`
}

// NodeByName returns the node with the given name, or nil.
func (w *Workflow) NodeByName(name string) *Node {
	for _, n := range w.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// NodeByID returns the node with the given opaque id, or nil.
func (w *Workflow) NodeByID(id string) *Node {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// HasNode reports whether a node with the given name exists.
func (w *Workflow) HasNode(name string) bool {
	return w.NodeByName(name) != nil
}

// Clone returns a deep copy; the receiver is never shared with the result.
func (w *Workflow) Clone() (*Workflow, error) {
	cloned, err := core.DeepCopy(w)
	if err != nil {
		return nil, fmt.Errorf("clone workflow: %w", err)
	}
	return cloned, nil
}

// CheckInvariants verifies the structural invariants the rest of the engine
// assumes: unique node names and connection endpoints referencing existing
// nodes. It returns the first violation found.
func (w *Workflow) CheckInvariants() error {
	seen := make(map[string]struct{}, len(w.Nodes))
	for _, n := range w.Nodes {
		if n.Name == "" {
			return fmt.Errorf("node with id %q has an empty name", n.ID)
		}
		if _, dup := seen[n.Name]; dup {
			return fmt.Errorf("duplicate node name %q", n.Name)
		}
		seen[n.Name] = struct{}{}
	}
	for source, classes := range w.Connections {
		if _, ok := seen[source]; !ok {
			return fmt.Errorf("connection source %q references a missing node", source)
		}
		for class, branches := range classes {
			for _, branch := range branches {
				for _, ep := range branch {
					if _, ok := seen[ep.Node]; !ok {
						return fmt.Errorf("connection %s.%s references missing node %q", source, class, ep.Node)
					}
				}
			}
		}
	}
	return nil
}

// ValidPosition reports whether the node position holds exactly two finite numbers.
func (n *Node) ValidPosition() bool {
	if len(n.Position) != 2 {
		return false
	}
	for _, v := range n.Position {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
