package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/n8n-cli/n8nctl/engine/catalog"
	"github.com/n8n-cli/n8nctl/engine/workflow"
)

// AI connection classes used by the langchain node family.
const (
	classLanguageModel = "ai_languageModel"
	classMemory        = "ai_memory"
	classOutputParser  = "ai_outputParser"
	classTool          = "ai_tool"
)

// incomingIndex counts connections arriving at each node per class.
type incomingIndex map[string]map[string]int

func buildIncomingIndex(wf *workflow.Workflow) incomingIndex {
	idx := incomingIndex{}
	for _, classes := range wf.Connections {
		for class, branches := range classes {
			for _, endpoints := range branches {
				for _, ep := range endpoints {
					if idx[ep.Node] == nil {
						idx[ep.Node] = map[string]int{}
					}
					idx[ep.Node][class]++
				}
			}
		}
	}
	return idx
}

func isAgentNode(nodeType string) bool {
	return strings.Contains(nodeType, "langchain") && shortTypeName(nodeType) == "agent"
}

// checkAITopology verifies the connection shape around AI agent nodes and
// the configuration of AI tool nodes.
func (v *Validator) checkAITopology(ctx context.Context, wf *workflow.Workflow, c *collector) {
	if wf == nil {
		return
	}
	incoming := buildIncomingIndex(wf)
	for _, n := range wf.Nodes {
		if n == nil {
			continue
		}
		if isAgentNode(n.Type) {
			v.checkAgentNode(n, wf, incoming, c)
			continue
		}
		rec, err := v.lookup(ctx, n.Type)
		if err == nil && rec != nil && rec.IsAITool {
			if desc, _ := n.Parameters["toolDescription"].(string); strings.TrimSpace(desc) == "" {
				c.nodeIssue(n, Diagnostic{
					Code: CodeAIToolNoDescription, Severity: SeverityWarning, Category: CategoryBestPractice,
					Message:  "AI tool has no toolDescription, the model cannot decide when to call it",
					Location: &Location{Path: "parameters.toolDescription"},
				})
			}
		}
	}
}

func (v *Validator) checkAgentNode(n *workflow.Node, wf *workflow.Workflow, incoming incomingIndex, c *collector) {
	counts := incoming[n.Name]
	models := counts[classLanguageModel]
	needsFallback, _ := n.Parameters["needsFallback"].(bool)

	switch {
	case models == 0:
		c.nodeIssue(n, Diagnostic{
			Code: CodeAIMissingLanguageModel, Severity: SeverityError, Category: CategoryCritical,
			Message: "agent has no language-model connection",
		})
	case needsFallback && models < 2:
		c.nodeIssue(n, Diagnostic{
			Code: CodeAIFallbackMissingModel, Severity: SeverityError, Category: CategoryRuntime,
			Message: "needsFallback requires a second language-model connection",
			Context: map[string]any{"connected": models},
		})
	case !needsFallback && models > 1, needsFallback && models > 2:
		c.nodeIssue(n, Diagnostic{
			Code: CodeAIExtraLanguageModel, Severity: SeverityError, Category: CategoryRuntime,
			Message: fmt.Sprintf("agent has %d language-model connections, at most %d are used", models, expectedModels(needsFallback)),
			Context: map[string]any{"connected": models},
		})
	}

	if hasParser, _ := n.Parameters["hasOutputParser"].(bool); hasParser && counts[classOutputParser] == 0 {
		c.nodeIssue(n, Diagnostic{
			Code: CodeAIMissingOutputParser, Severity: SeverityError, Category: CategoryRuntime,
			Message: "hasOutputParser is set but no output parser is connected",
		})
	}
	if counts[classMemory] > 1 {
		c.nodeIssue(n, Diagnostic{
			Code: CodeAIMultipleMemory, Severity: SeverityError, Category: CategoryRuntime,
			Message: fmt.Sprintf("agent has %d memory connections, only one is used", counts[classMemory]),
		})
	}
	if streamingEnabled(n) && hasMainOutput(n.Name, wf) {
		c.nodeIssue(n, Diagnostic{
			Code: CodeAIStreamingWithMain, Severity: SeverityError, Category: CategoryRuntime,
			Message: "streaming agents cannot feed a main output connection",
		})
	}
	if promptType, _ := n.Parameters["promptType"].(string); promptType == "define" {
		if text, _ := n.Parameters["text"].(string); strings.TrimSpace(text) == "" {
			c.nodeIssue(n, Diagnostic{
				Code: CodeAIEmptyPrompt, Severity: SeverityError, Category: CategoryRuntime,
				Message:  "promptType is define but the prompt text is empty",
				Location: &Location{Path: "parameters.text"},
			})
		}
	}
}

func expectedModels(needsFallback bool) int {
	if needsFallback {
		return 2
	}
	return 1
}

func streamingEnabled(n *workflow.Node) bool {
	if enabled, _ := n.Parameters["enableStreaming"].(bool); enabled {
		return true
	}
	opts, _ := n.Parameters["options"].(map[string]any)
	enabled, _ := opts["enableStreaming"].(bool)
	return enabled
}

func hasMainOutput(name string, wf *workflow.Workflow) bool {
	for _, endpoints := range wf.Connections[name][workflow.ClassMain] {
		if len(endpoints) > 0 {
			return true
		}
	}
	return false
}

// checkVersioning reports outdated typeVersions and breaking changes waiting
// in the upgrade path.
func (v *Validator) checkVersioning(ctx context.Context, wf *workflow.Workflow, c *collector) {
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
		latest := rec.LatestVersion()
		declared := catalog.FormatVersion(n.TypeVersion)
		if latest == "" || catalog.CompareVersions(declared, latest) >= 0 {
			continue
		}
		c.nodeIssue(n, Diagnostic{
			Code: CodeTypeVersionOutdated, Severity: SeverityWarning, Category: CategoryDeprecation,
			Message: fmt.Sprintf("typeVersion %s is outdated, latest is %s", declared, latest),
			Context: map[string]any{"declared": declared, "latest": latest},
		})
		breaking := v.registry.BreakingFor(n.Type, declared, latest)
		if len(breaking) == 0 {
			continue
		}
		hints := make([]string, 0, len(breaking))
		for _, b := range breaking {
			hints = append(hints, b.Hint)
		}
		c.nodeIssue(n, Diagnostic{
			Code: CodeBreakingChangeAhead, Severity: SeverityInfo, Category: CategoryDeprecation,
			Message: fmt.Sprintf("upgrading from %s to %s crosses %d breaking change(s)", declared, latest, len(breaking)),
			Context: map[string]any{"declared": declared, "latest": latest, "hints": hints},
		})
	}
}
