package autofix

import (
	"context"
	"fmt"

	"github.com/n8n-cli/n8nctl/engine/workflow"
)

// MigrationStatus summarizes how far an upgrade got automatically.
type MigrationStatus string

const (
	MigrationComplete       MigrationStatus = "complete"
	MigrationPartial        MigrationStatus = "partial"
	MigrationManualRequired MigrationStatus = "manual_required"
)

// Priority ranks a follow-up action for the user.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// GuidanceAction is one thing the user should do after fixes were applied.
type GuidanceAction struct {
	Priority    Priority `json:"priority"`
	Description string   `json:"description"`
}

// PostUpdateGuidance is an advisory record per fixed node. Generation is
// best-effort; a node whose guidance cannot be built simply has none.
type PostUpdateGuidance struct {
	NodeName             string           `json:"nodeName"`
	MigrationStatus      MigrationStatus  `json:"migrationStatus"`
	Actions              []GuidanceAction `json:"actions,omitempty"`
	DeprecatedProperties []string         `json:"deprecatedProperties,omitempty"`
	BehaviorChanges      []string         `json:"behaviorChanges,omitempty"`
	MigrationSteps       []string         `json:"migrationSteps,omitempty"`
	Confidence           string           `json:"confidence"`
	EstimatedTime        string           `json:"estimatedTime"`
}

// Curated behavior changes users hit in practice when crossing major node
// versions.
var behaviorChangesByType = map[string][]string{
	"n8n-nodes-base.set": {
		"v3 ignores unassigned incoming fields unless includeOtherFields is set",
	},
	"n8n-nodes-base.switch": {
		"v3 evaluates rules with typed comparisons, loose string matches no longer pass",
	},
	"n8n-nodes-base.httpRequest": {
		"v4 returns the parsed response body directly instead of wrapping it in data",
	},
	"n8n-nodes-base.if": {
		"v2 uses typed filter conditions, untyped equality from v1 is not preserved",
	},
}

// buildGuidance emits one advisory record per node that received fixes.
func (e *Engine) buildGuidance(_ context.Context, wf *workflow.Workflow, fixes []Fix) []PostUpdateGuidance {
	byNode := map[string][]Fix{}
	var order []string
	for _, f := range fixes {
		if f.InfoOnly {
			continue
		}
		if _, seen := byNode[f.NodeName]; !seen {
			order = append(order, f.NodeName)
		}
		byNode[f.NodeName] = append(byNode[f.NodeName], f)
	}
	var out []PostUpdateGuidance
	for _, name := range order {
		if g, ok := guidanceForNode(wf, name, byNode[name]); ok {
			out = append(out, g)
		}
	}
	return out
}

func guidanceForNode(wf *workflow.Workflow, name string, fixes []Fix) (g PostUpdateGuidance, ok bool) {
	// Guidance never blocks a fix run.
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	node := wf.NodeByName(name)
	if node == nil {
		return g, false
	}
	g = PostUpdateGuidance{
		NodeName:        name,
		MigrationStatus: MigrationComplete,
		Confidence:      "HIGH",
	}
	var manualCount int
	for _, f := range fixes {
		switch f.Type {
		case FixTypeVersionUpgrade:
			for _, m := range f.Migrations {
				g.MigrationSteps = append(g.MigrationSteps, fmt.Sprintf("%s %s", m.Property, m.Action))
				g.DeprecatedProperties = append(g.DeprecatedProperties, m.Property)
			}
			for _, issue := range f.ManualIssues {
				manualCount++
				g.Actions = append(g.Actions, GuidanceAction{Priority: PriorityCritical, Description: issue})
			}
			g.BehaviorChanges = append(g.BehaviorChanges, behaviorChangesByType[node.Type]...)
		case FixNodeTypeCorrection:
			g.Actions = append(g.Actions, GuidanceAction{
				Priority:    PriorityHigh,
				Description: "review parameters, the corrected node type may expect a different shape",
			})
		case FixErrorOutputConfig:
			g.Actions = append(g.Actions, GuidanceAction{
				Priority:    PriorityMedium,
				Description: "reconnect an error branch if error routing is still wanted",
			})
		case FixExpressionFormat, FixSwitchOptions, FixWebhookMissingPath:
			g.Actions = append(g.Actions, GuidanceAction{
				Priority:    PriorityLow,
				Description: "verify the node still behaves as intended",
			})
		}
		if f.Confidence == ConfidenceLow {
			g.Confidence = "LOW"
		} else if f.Confidence == ConfidenceMedium && g.Confidence == "HIGH" {
			g.Confidence = "MEDIUM"
		}
	}
	switch {
	case manualCount > 0:
		g.MigrationStatus = MigrationManualRequired
	case len(g.Actions) > 0:
		g.MigrationStatus = MigrationPartial
	}
	g.EstimatedTime = estimateTime(g.Actions)
	return g, true
}

// estimateTime buckets the weighted action count into a rough duration.
func estimateTime(actions []GuidanceAction) string {
	weights := map[Priority]int{
		PriorityCritical: 10,
		PriorityHigh:     5,
		PriorityMedium:   2,
		PriorityLow:      1,
	}
	total := 0
	for _, a := range actions {
		total += weights[a.Priority]
	}
	switch {
	case total == 0:
		return "none"
	case total < 5:
		return "under 5 minutes"
	case total < 15:
		return "5-15 minutes"
	default:
		return "over 15 minutes"
	}
}
