package autofix

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/n8n-cli/n8nctl/engine/catalog"
	"github.com/n8n-cli/n8nctl/engine/core"
	"github.com/n8n-cli/n8nctl/engine/migration"
	"github.com/n8n-cli/n8nctl/engine/validator"
	"github.com/n8n-cli/n8nctl/engine/workflow"
	"github.com/n8n-cli/n8nctl/pkg/logger"
)

// Engine turns validator diagnostics into concrete fixes and optionally
// applies them to a copy of the workflow.
type Engine struct {
	catalog  catalog.Provider
	registry *migration.Registry
	// applyAdvisory decides whether an info-only fix may be applied anyway.
	// The default applies none.
	applyAdvisory func(Fix) bool
}

func New(provider catalog.Provider) *Engine {
	return &Engine{catalog: provider, registry: migration.DefaultRegistry()}
}

// WithAdvisoryApplier overrides the predicate deciding whether info-only
// fixes are applied. Absent an override they never are.
func (e *Engine) WithAdvisoryApplier(pred func(Fix) bool) *Engine {
	e.applyAdvisory = pred
	return e
}

// WithRegistry swaps the default migration registry.
func (e *Engine) WithRegistry(reg *migration.Registry) *Engine {
	e.registry = reg
	return e
}

// Result is one auto-fix run. Modified is set only when fixes were applied;
// the input workflow is never touched.
type Result struct {
	Fixes    []Fix                `json:"fixes"`
	Stats    Stats                `json:"stats"`
	Summary  string               `json:"summary"`
	Modified *workflow.Workflow   `json:"modifiedWorkflow,omitempty"`
	Guidance []PostUpdateGuidance `json:"guidance,omitempty"`
}

// GenerateFixes runs every detector in a stable order, filters by the
// config, and applies the surviving fixes when requested. A nil diagnostics
// slice triggers a full strict validation pass first.
func (e *Engine) GenerateFixes(ctx context.Context, wf *workflow.Workflow, diags []validator.Diagnostic, cfg Config) (*Result, error) {
	if wf == nil {
		return nil, core.NewError(errors.New("workflow is nil"), "INVALID_INPUT", nil)
	}
	if diags == nil {
		v := validator.New(e.catalog).WithRegistry(e.registry)
		diags = v.Validate(ctx, wf, validator.Options{
			Profile: validator.ProfileStrict,
			Mode:    validator.ModeFull,
		}).Issues
	}
	for _, t := range cfg.FixTypes {
		if !ValidFixType(t) {
			return nil, core.NewError(fmt.Errorf("unknown fix type %q", t), "INVALID_FIX_TYPE", map[string]any{
				"fixType": string(t),
			})
		}
	}

	fixes := e.detectExpressionFormat(diags)
	fixes = append(fixes, e.detectSwitchOptions(wf)...)
	fixes = append(fixes, e.detectWebhookMissingPath(wf)...)
	fixes = append(fixes, e.detectNodeTypeCorrection(ctx, wf, diags)...)
	fixes = append(fixes, e.detectTypeVersionCorrection(wf, diags)...)
	fixes = append(fixes, e.detectErrorOutputConfig(ctx, wf)...)
	if cfg.UpgradeVersions {
		fixes = append(fixes, e.detectTypeVersionUpgrade(ctx, wf)...)
	}
	fixes = append(fixes, e.detectVersionMigration(ctx, wf)...)

	fixes = filterFixes(fixes, cfg)

	res := &Result{Fixes: fixes}
	for _, f := range fixes {
		res.Stats.record(f)
	}
	res.Summary = res.Stats.summary()

	if cfg.ApplyFixes {
		modified, err := e.apply(ctx, wf, fixes)
		if err != nil {
			return nil, err
		}
		res.Modified = modified
	}
	res.Guidance = e.buildGuidance(ctx, wf, fixes)
	logger.FromContext(ctx).Debug("auto-fix run complete", "fixes", res.Stats.Total, "applied", cfg.ApplyFixes)
	return res, nil
}

func filterFixes(fixes []Fix, cfg Config) []Fix {
	allowed := map[FixType]bool{}
	for _, t := range cfg.FixTypes {
		allowed[t] = true
	}
	minRank := cfg.ConfidenceThreshold.rank()
	maxFixes := cfg.MaxFixes
	if maxFixes <= 0 {
		maxFixes = DefaultMaxFixes
	}
	out := make([]Fix, 0, len(fixes))
	for _, f := range fixes {
		if len(allowed) > 0 && !allowed[f.Type] {
			continue
		}
		if minRank > 0 && f.Confidence.rank() < minRank {
			continue
		}
		if len(out) == maxFixes {
			break
		}
		out = append(out, f)
	}
	return out
}

// detectExpressionFormat proposes the = prefix for every unprefixed
// expression the validator found.
func (e *Engine) detectExpressionFormat(diags []validator.Diagnostic) []Fix {
	var out []Fix
	for _, d := range diags {
		if d.Code != validator.CodeExpressionMissingPrefix || d.Location == nil {
			continue
		}
		before, _ := d.Context["value"].(string)
		if before == "" {
			continue
		}
		out = append(out, Fix{
			Type:        FixExpressionFormat,
			Confidence:  ConfidenceHigh,
			NodeName:    d.Location.NodeName,
			NodeID:      d.Location.NodeID,
			Field:       d.Location.Path,
			Before:      before,
			After:       "=" + before,
			Description: "prefix the expression with =",
		})
	}
	return out
}

// detectSwitchOptions cleans up switch and if configuration: empty options
// objects, missing condition options on v3+, and fallbackOutput living under
// rules instead of options.
func (e *Engine) detectSwitchOptions(wf *workflow.Workflow) []Fix {
	var out []Fix
	for _, n := range wf.Nodes {
		if n == nil {
			continue
		}
		short := shortType(n.Type)
		if short != "switch" && short != "if" {
			continue
		}
		if opts, ok := n.Parameters["options"].(map[string]any); ok && len(opts) == 0 {
			out = append(out, Fix{
				Type:        FixSwitchOptions,
				Confidence:  ConfidenceHigh,
				NodeName:    n.Name,
				NodeID:      n.ID,
				Field:       "parameters.options",
				Before:      opts,
				Absent:      true,
				Description: "remove the empty options object",
			})
		}
		if short == "switch" && n.TypeVersion >= 3 {
			out = append(out, e.switchConditionDefaults(n)...)
			if rules, ok := n.Parameters["rules"].(map[string]any); ok {
				if fallback, ok := rules["fallbackOutput"]; ok {
					out = append(out, Fix{
						Type:        FixSwitchOptions,
						Confidence:  ConfidenceHigh,
						NodeName:    n.Name,
						NodeID:      n.ID,
						Field:       "parameters.rules.fallbackOutput",
						Before:      fallback,
						After:       fallback,
						MoveTo:      "parameters.options.fallbackOutput",
						Description: "move fallbackOutput from rules into options",
					})
				}
			}
		}
	}
	return out
}

func (e *Engine) switchConditionDefaults(n *workflow.Node) []Fix {
	rules, ok := n.Parameters["rules"].(map[string]any)
	if !ok {
		return nil
	}
	values, ok := rules["values"].([]any)
	if !ok {
		return nil
	}
	var out []Fix
	for i, raw := range values {
		rule, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		conditions, ok := rule["conditions"].(map[string]any)
		if !ok {
			continue
		}
		if _, has := conditions["options"]; has {
			continue
		}
		defaults := map[string]any{
			"caseSensitive":  true,
			"leftValue":      "",
			"typeValidation": "strict",
		}
		if n.TypeVersion >= 3.2 {
			defaults["version"] = 2
		}
		out = append(out, Fix{
			Type:        FixSwitchOptions,
			Confidence:  ConfidenceHigh,
			NodeName:    n.Name,
			NodeID:      n.ID,
			Field:       fmt.Sprintf("parameters.rules.values[%d].conditions.options", i),
			After:       defaults,
			Description: "add default condition options",
		})
	}
	return out
}

// detectWebhookMissingPath assigns a fresh path to webhook nodes without
// one. Old typeVersions are bumped to 2 at application time.
func (e *Engine) detectWebhookMissingPath(wf *workflow.Workflow) []Fix {
	var out []Fix
	for _, n := range wf.Nodes {
		if n == nil || shortType(n.Type) != "webhook" {
			continue
		}
		if path, _ := n.Parameters["path"].(string); path != "" {
			continue
		}
		out = append(out, Fix{
			Type:        FixWebhookMissingPath,
			Confidence:  ConfidenceHigh,
			NodeName:    n.Name,
			NodeID:      n.ID,
			Field:       "parameters.path",
			After:       uuid.NewString(),
			Description: "generate a webhook path",
		})
	}
	return out
}

// detectNodeTypeCorrection resolves unknown node types through the catalog
// similarity service. Only near-certain suggestions are accepted.
func (e *Engine) detectNodeTypeCorrection(ctx context.Context, wf *workflow.Workflow, diags []validator.Diagnostic) []Fix {
	var out []Fix
	for _, d := range diags {
		if d.Code != validator.CodeUnknownNodeType || d.Location == nil {
			continue
		}
		n := wf.NodeByName(d.Location.NodeName)
		if n == nil {
			continue
		}
		suggestions, err := e.catalog.Similar(ctx, n.Type, 1)
		if err != nil || len(suggestions) == 0 {
			continue
		}
		best := suggestions[0]
		if best.Confidence < catalog.AutoFixThreshold {
			continue
		}
		out = append(out, Fix{
			Type:        FixNodeTypeCorrection,
			Confidence:  ConfidenceHigh,
			NodeName:    n.Name,
			NodeID:      n.ID,
			Field:       "type",
			Before:      n.Type,
			After:       best.Type,
			Description: fmt.Sprintf("correct node type to %s", best.Type),
		})
	}
	return out
}

// detectTypeVersionCorrection lowers declared versions that exceed the
// catalog maximum.
func (e *Engine) detectTypeVersionCorrection(wf *workflow.Workflow, diags []validator.Diagnostic) []Fix {
	var out []Fix
	for _, d := range diags {
		if d.Code != validator.CodeTypeVersionExceedsMax || d.Location == nil {
			continue
		}
		n := wf.NodeByName(d.Location.NodeName)
		if n == nil {
			continue
		}
		maximum, _ := d.Context["maximum"].(string)
		if maximum == "" {
			continue
		}
		out = append(out, Fix{
			Type:        FixTypeVersionCorrection,
			Confidence:  ConfidenceMedium,
			NodeName:    n.Name,
			NodeID:      n.ID,
			Field:       "typeVersion",
			Before:      catalog.FormatVersion(n.TypeVersion),
			After:       maximum,
			Description: fmt.Sprintf("lower typeVersion to the catalog maximum %s", maximum),
		})
	}
	return out
}

// detectErrorOutputConfig removes onError=continueErrorOutput from nodes
// with no error branch wired in the graph.
func (e *Engine) detectErrorOutputConfig(ctx context.Context, wf *workflow.Workflow) []Fix {
	var out []Fix
	for _, n := range wf.Nodes {
		if n == nil || n.OnError != workflow.OnErrorContinueErrorOutput {
			continue
		}
		mainOutputs := 1
		if rec, err := e.catalog.Lookup(ctx, n.Type); err == nil && rec.OutputCount > 0 {
			mainOutputs = rec.OutputCount
		}
		if wf.HasErrorOutput(n.Name, mainOutputs) {
			continue
		}
		out = append(out, Fix{
			Type:        FixErrorOutputConfig,
			Confidence:  ConfidenceMedium,
			NodeName:    n.Name,
			NodeID:      n.ID,
			Field:       "onError",
			Before:      n.OnError,
			Absent:      true,
			Description: "remove onError, no error output is connected",
		})
	}
	return out
}

// detectTypeVersionUpgrade migrates outdated nodes to the latest catalog
// version on a throwaway clone, then reports what the real application
// would do.
func (e *Engine) detectTypeVersionUpgrade(ctx context.Context, wf *workflow.Workflow) []Fix {
	var out []Fix
	for _, n := range wf.Nodes {
		if n == nil || n.Type == "" {
			continue
		}
		rec, err := e.catalog.Lookup(ctx, n.Type)
		if err != nil {
			continue
		}
		latest := rec.LatestVersion()
		declared := catalog.FormatVersion(n.TypeVersion)
		if latest == "" || catalog.CompareVersions(declared, latest) >= 0 {
			continue
		}
		clone, err := core.DeepCopy(n)
		if err != nil {
			continue
		}
		applied, manual := e.registry.Migrate(clone, latest)
		breaking := e.registry.BreakingFor(n.Type, declared, latest)
		// Any breaking change pins the confidence at medium; the manual-work
		// count only matters when the jump is non-breaking.
		confidence := ConfidenceHigh
		switch {
		case len(breaking) > 0:
			confidence = ConfidenceMedium
		case len(manual) > 2:
			confidence = ConfidenceLow
		case len(manual) > 0:
			confidence = ConfidenceMedium
		}
		out = append(out, Fix{
			Type:          FixTypeVersionUpgrade,
			Confidence:    confidence,
			NodeName:      n.Name,
			NodeID:        n.ID,
			Field:         "typeVersion",
			Before:        declared,
			After:         latest,
			TargetVersion: latest,
			Migrations:    applied,
			ManualIssues:  manual,
			Description:   fmt.Sprintf("upgrade typeVersion from %s to %s", declared, latest),
		})
	}
	return out
}

// detectVersionMigration emits advisory summaries of registry changes in
// each node's version range. These are never applied.
func (e *Engine) detectVersionMigration(ctx context.Context, wf *workflow.Workflow) []Fix {
	var out []Fix
	for _, n := range wf.Nodes {
		if n == nil || n.Type == "" {
			continue
		}
		rec, err := e.catalog.Lookup(ctx, n.Type)
		if err != nil {
			continue
		}
		latest := rec.LatestVersion()
		declared := catalog.FormatVersion(n.TypeVersion)
		if latest == "" || catalog.CompareVersions(declared, latest) >= 0 {
			continue
		}
		changes := e.registry.ChangesFor(n.Type, declared, latest)
		if len(changes) == 0 {
			continue
		}
		hints := make([]string, 0, len(changes))
		for _, ch := range changes {
			hints = append(hints, fmt.Sprintf("%s: %s", ch.Property, ch.Hint))
		}
		out = append(out, Fix{
			Type:        FixVersionMigration,
			Confidence:  ConfidenceLow,
			NodeName:    n.Name,
			NodeID:      n.ID,
			Field:       "typeVersion",
			Before:      declared,
			After:       latest,
			InfoOnly:    true,
			Description: "version changes to review: " + strings.Join(hints, "; "),
		})
	}
	return out
}

func shortType(nodeType string) string {
	if i := strings.LastIndex(nodeType, "."); i >= 0 {
		return nodeType[i+1:]
	}
	return nodeType
}

// sortFixesByField orders the fixes of one node by field path so
// application is deterministic.
func sortFixesByField(fixes []Fix) {
	sort.SliceStable(fixes, func(i, j int) bool {
		return fixes[i].Field < fixes[j].Field
	})
}
