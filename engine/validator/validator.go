package validator

import (
	"context"
	"errors"
	"fmt"

	"github.com/n8n-cli/n8nctl/engine/catalog"
	"github.com/n8n-cli/n8nctl/engine/migration"
	"github.com/n8n-cli/n8nctl/engine/workflow"
	"github.com/n8n-cli/n8nctl/pkg/logger"
)

// Validator runs the diagnostic phases against a workflow. It never mutates
// its input and never panics on user data.
type Validator struct {
	catalog  catalog.Provider
	registry *migration.Registry
}

// Options selects the filtering profile and the inspection depth.
type Options struct {
	Profile Profile
	Mode    Mode
}

func New(provider catalog.Provider) *Validator {
	return &Validator{catalog: provider, registry: migration.DefaultRegistry()}
}

// WithRegistry overrides the breaking-change registry, mainly for tests.
func (v *Validator) WithRegistry(r *migration.Registry) *Validator {
	v.registry = r
	return v
}

type phase struct {
	name string
	run  func(ctx context.Context, wf *workflow.Workflow, c *collector)
}

// Validate runs the phases the mode selects, in a fixed order, then filters
// by profile. Later phases may assume earlier ones ran: AI topology checks
// rely on node existence established structurally.
func (v *Validator) Validate(ctx context.Context, wf *workflow.Workflow, opts Options) *Result {
	if opts.Profile == "" {
		opts.Profile = ProfileRuntime
	}
	if opts.Mode == "" {
		opts.Mode = ModeFull
	}
	c := &collector{}
	phases := []phase{{"structure", v.checkStructure}}
	if opts.Mode == ModeOperation || opts.Mode == ModeFull {
		phases = append(phases,
			phase{"node-properties", v.checkNodeProperties},
			phase{"expressions", v.checkExpressions},
			phase{"node-specific", v.checkNodeSpecific},
		)
	}
	if opts.Mode == ModeFull {
		phases = append(phases,
			phase{"ai-topology", v.checkAITopology},
			phase{"versioning", v.checkVersioning},
		)
	}
	log := logger.FromContext(ctx)
	for _, p := range phases {
		v.runPhase(ctx, wf, c, p)
		log.Debug("validation phase complete", "phase", p.name, "issues", len(c.issues))
	}

	res := &Result{Valid: true}
	for _, d := range c.issues {
		if !opts.Profile.keeps(d) {
			continue
		}
		res.Issues = append(res.Issues, d)
		switch d.Severity {
		case SeverityError:
			res.Stats.Errors++
			res.Valid = false
		case SeverityWarning:
			res.Stats.Warnings++
		default:
			res.Stats.Infos++
		}
	}
	if wf != nil {
		res.Stats.NodesChecked = len(wf.Nodes)
	}
	return res
}

// runPhase isolates a checker so an internal failure becomes a diagnostic
// instead of a crash.
func (v *Validator) runPhase(ctx context.Context, wf *workflow.Workflow, c *collector, p phase) {
	defer func() {
		if r := recover(); r != nil {
			c.add(Diagnostic{
				Code:     CodeCheckerFailed,
				Severity: SeverityInfo,
				Category: CategoryInternal,
				Message:  fmt.Sprintf("checker %s failed: %v", p.name, r),
				Context:  map[string]any{"checker": p.name},
			})
		}
	}()
	p.run(ctx, wf, c)
}

type collector struct {
	issues []Diagnostic
}

func (c *collector) add(d Diagnostic) {
	c.issues = append(c.issues, d)
}

func (c *collector) nodeIssue(n *workflow.Node, d Diagnostic) {
	if d.Location == nil {
		d.Location = &Location{}
	}
	d.Location.NodeName = n.Name
	d.Location.NodeID = n.ID
	c.add(d)
}

// lookup resolves a node type against the catalog. A nil record with a nil
// error means the type is unknown; other errors are catalog trouble the
// caller reports as internal.
func (v *Validator) lookup(ctx context.Context, nodeType string) (*catalog.Record, error) {
	rec, err := v.catalog.Lookup(ctx, nodeType)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}
