package diff

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n8n-cli/n8nctl/engine/catalog"
	"github.com/n8n-cli/n8nctl/engine/workflow"
)

func testProvider() catalog.Provider {
	return catalog.NewStatic([]*catalog.Record{
		{Type: "n8n-nodes-base.webhook", Versions: []string{"2"}, IsTrigger: true, OutputCount: 1},
		{Type: "n8n-nodes-base.httpRequest", Versions: []string{"4.2"}, OutputCount: 1},
		{Type: "n8n-nodes-base.if", Versions: []string{"2.2"}, OutputCount: 2},
		{Type: "n8n-nodes-base.switch", Versions: []string{"3.2"}, OutputCount: 3},
		{Type: "n8n-nodes-base.set", Versions: []string{"3.4"}, OutputCount: 1},
	})
}

func diffWorkflow() *workflow.Workflow {
	return &workflow.Workflow{
		Name: "pipeline",
		Nodes: []*workflow.Node{
			{ID: "1", Name: "Hook", Type: "n8n-nodes-base.webhook", TypeVersion: 2, Position: []float64{0, 0}, Parameters: map[string]any{"path": "in"}},
			{ID: "2", Name: "Check", Type: "n8n-nodes-base.if", TypeVersion: 2.2, Position: []float64{200, 0}},
			{ID: "3", Name: "Fetch", Type: "n8n-nodes-base.httpRequest", TypeVersion: 4.2, Position: []float64{400, 0}, Parameters: map[string]any{"url": "https://example.com"}},
			{ID: "4", Name: "Store", Type: "n8n-nodes-base.set", TypeVersion: 3.4, Position: []float64{400, 200}},
		},
		Connections: workflow.Connections{
			"Hook":  {"main": {{{Node: "Check", Type: "main", Index: 0}}}},
			"Check": {"main": {{{Node: "Fetch", Type: "main", Index: 0}}, {{Node: "Store", Type: "main", Index: 0}}}},
		},
		Tags: []string{"prod"},
	}
}

func apply(t *testing.T, wf *workflow.Workflow, ops []Operation, opts Options) *Result {
	t.Helper()
	res, err := New(testProvider()).Apply(context.Background(), wf, ops, opts)
	require.NoError(t, err)
	return res
}

func intPtr(v int) *int { return &v }

func TestNodeOperations(t *testing.T) {
	t.Run("Should add a node from a copy of the payload", func(t *testing.T) {
		wf := diffWorkflow()
		node := &workflow.Node{ID: "5", Name: "Extra", Type: "n8n-nodes-base.set", TypeVersion: 3.4, Position: []float64{600, 0}}
		res := apply(t, wf, []Operation{{Type: OpAddNode, Node: node}}, Options{})
		require.NotNil(t, res.Workflow.NodeByName("Extra"))
		node.Position[0] = 999
		assert.Equal(t, float64(600), res.Workflow.NodeByName("Extra").Position[0])
	})
	t.Run("Should reject adding a duplicate node name", func(t *testing.T) {
		wf := diffWorkflow()
		_, err := New(testProvider()).Apply(context.Background(), wf, []Operation{
			{Type: OpAddNode, Node: &workflow.Node{Name: "Fetch", Type: "n8n-nodes-base.set"}},
		}, Options{})
		assert.Error(t, err)
	})
	t.Run("Should remove a node together with its connections", func(t *testing.T) {
		wf := diffWorkflow()
		res := apply(t, wf, []Operation{{Type: OpRemoveNode, NodeName: "Fetch"}}, Options{})
		assert.Nil(t, res.Workflow.NodeByName("Fetch"))
		for _, classes := range res.Workflow.Connections {
			for _, branches := range classes {
				for _, endpoints := range branches {
					for _, ep := range endpoints {
						assert.NotEqual(t, "Fetch", ep.Node)
					}
				}
			}
		}
	})
	t.Run("Should patch parameters by dotted path", func(t *testing.T) {
		wf := diffWorkflow()
		res := apply(t, wf, []Operation{{
			Type: OpUpdateNode, NodeName: "Fetch",
			Parameters: map[string]any{"options.timeout": 5000, "url": nil},
		}}, Options{})
		node := res.Workflow.NodeByName("Fetch")
		opts := node.Parameters["options"].(map[string]any)
		assert.Equal(t, 5000, opts["timeout"])
		assert.NotContains(t, node.Parameters, "url")
	})
	t.Run("Should detach object parameter values from the operation", func(t *testing.T) {
		wf := diffWorkflow()
		payload := map[string]any{"retries": 2}
		res := apply(t, wf, []Operation{{
			Type: OpUpdateNode, NodeName: "Fetch",
			Parameters: map[string]any{"options": payload},
		}}, Options{})
		payload["retries"] = 99
		opts := res.Workflow.NodeByName("Fetch").Parameters["options"].(map[string]any)
		assert.Equal(t, 2, opts["retries"])
	})
	t.Run("Should propagate a rename through all connections", func(t *testing.T) {
		wf := diffWorkflow()
		res := apply(t, wf, []Operation{{Type: OpUpdateNode, NodeName: "Check", NewName: "Gate"}}, Options{})
		assert.Nil(t, res.Workflow.NodeByName("Check"))
		require.NotNil(t, res.Workflow.NodeByName("Gate"))
		assert.Contains(t, res.Workflow.Connections, "Gate")
		assert.NotContains(t, res.Workflow.Connections, "Check")
		assert.Equal(t, "Gate", res.Workflow.Connections["Hook"]["main"][0][0].Node)
	})
	t.Run("Should reject renaming onto an existing name", func(t *testing.T) {
		wf := diffWorkflow()
		_, err := New(testProvider()).Apply(context.Background(), wf, []Operation{
			{Type: OpUpdateNode, NodeName: "Check", NewName: "Fetch"},
		}, Options{})
		assert.Error(t, err)
	})
	t.Run("Should move, disable, and enable nodes", func(t *testing.T) {
		wf := diffWorkflow()
		res := apply(t, wf, []Operation{
			{Type: OpMoveNode, NodeName: "Fetch", Position: []float64{640, 80}},
			{Type: OpDisableNode, NodeName: "Store"},
			{Type: OpEnableNode, NodeName: "Store"},
		}, Options{})
		assert.Equal(t, []float64{640, 80}, res.Workflow.NodeByName("Fetch").Position)
		assert.False(t, res.Workflow.NodeByName("Store").Disabled)
		assert.Equal(t, 3, res.Applied)
	})
}

func TestConnectionOperations(t *testing.T) {
	t.Run("Should add a connection with an explicit index", func(t *testing.T) {
		wf := diffWorkflow()
		res := apply(t, wf, []Operation{{
			Type: OpAddConnection, Source: "Fetch", Target: "Store", SourceIndex: intPtr(0),
		}}, Options{})
		eps := res.Workflow.Connections["Fetch"]["main"][0]
		require.Len(t, eps, 1)
		assert.Equal(t, "Store", eps[0].Node)
	})
	t.Run("Should resolve the false branch of an if node to index 1", func(t *testing.T) {
		wf := diffWorkflow()
		res := apply(t, wf, []Operation{{
			Type: OpAddConnection, Source: "Check", Target: "Hook", Branch: "false",
		}}, Options{})
		eps := res.Workflow.Connections["Check"]["main"][1]
		require.Len(t, eps, 2)
		assert.Equal(t, "Hook", eps[1].Node)
	})
	t.Run("Should resolve case N on switch nodes and enforce arity", func(t *testing.T) {
		wf := diffWorkflow()
		wf.Nodes = append(wf.Nodes, &workflow.Node{ID: "5", Name: "Route", Type: "n8n-nodes-base.switch", TypeVersion: 3.2, Position: []float64{600, 0}})
		res := apply(t, wf, []Operation{{
			Type: OpAddConnection, Source: "Route", Target: "Store", Case: intPtr(2),
		}}, Options{})
		assert.Len(t, res.Workflow.Connections["Route"]["main"], 3)

		_, err := New(testProvider()).Apply(context.Background(), res.Workflow, []Operation{{
			Type: OpAddConnection, Source: "Route", Target: "Store", Case: intPtr(3),
		}}, Options{})
		assert.Error(t, err)
	})
	t.Run("Should reject symbolic branches on the wrong node type", func(t *testing.T) {
		wf := diffWorkflow()
		_, err := New(testProvider()).Apply(context.Background(), wf, []Operation{{
			Type: OpAddConnection, Source: "Fetch", Target: "Store", Branch: "true",
		}}, Options{})
		assert.Error(t, err)
	})
	t.Run("Should reject mixing sourceIndex with a symbolic branch", func(t *testing.T) {
		wf := diffWorkflow()
		_, err := New(testProvider()).Apply(context.Background(), wf, []Operation{{
			Type: OpAddConnection, Source: "Check", Target: "Store", SourceIndex: intPtr(0), Branch: "true",
		}}, Options{})
		assert.Error(t, err)
	})
	t.Run("Should remove and rewire connections", func(t *testing.T) {
		wf := diffWorkflow()
		res := apply(t, wf, []Operation{
			{Type: OpRewireConnection, Source: "Check", Target: "Fetch", NewTarget: "Store", Branch: "true"},
			{Type: OpRemoveConnection, Source: "Check", Target: "Store", SourceIndex: intPtr(1)},
		}, Options{})
		trueBranch := res.Workflow.Connections["Check"]["main"][0]
		require.Len(t, trueBranch, 1)
		assert.Equal(t, "Store", trueBranch[0].Node)
		assert.Empty(t, res.Workflow.Connections["Check"]["main"][1])
	})
	t.Run("Should fail removing a connection that does not exist", func(t *testing.T) {
		wf := diffWorkflow()
		_, err := New(testProvider()).Apply(context.Background(), wf, []Operation{{
			Type: OpRemoveConnection, Source: "Hook", Target: "Store",
		}}, Options{})
		assert.Error(t, err)
	})
	t.Run("Should prune stale connections", func(t *testing.T) {
		wf := diffWorkflow()
		wf.Connections["Ghost"] = map[string][][]workflow.Endpoint{"main": {{{Node: "Fetch", Type: "main", Index: 0}}}}
		res := apply(t, wf, []Operation{{Type: OpCleanStaleConnections}}, Options{})
		assert.NotContains(t, res.Workflow.Connections, "Ghost")
	})
	t.Run("Should replace the whole connection map after validating it", func(t *testing.T) {
		wf := diffWorkflow()
		res := apply(t, wf, []Operation{{
			Type: OpReplaceConnections,
			Connections: workflow.Connections{
				"Hook": {"main": {{{Node: "Fetch", Type: "main", Index: 0}}}},
			},
		}}, Options{})
		assert.Len(t, res.Workflow.Connections, 1)

		_, err := New(testProvider()).Apply(context.Background(), wf, []Operation{{
			Type: OpReplaceConnections,
			Connections: workflow.Connections{
				"Hook": {"main": {{{Node: "Nowhere", Type: "main", Index: 0}}}},
			},
		}}, Options{})
		assert.Error(t, err)
	})
}

func TestWorkflowOperations(t *testing.T) {
	t.Run("Should update settings, name, tags, and activation", func(t *testing.T) {
		wf := diffWorkflow()
		res := apply(t, wf, []Operation{
			{Type: OpUpdateSettings, Settings: map[string]any{"timezone": "UTC"}},
			{Type: OpUpdateName, Name: "renamed"},
			{Type: OpAddTag, Tag: "beta"},
			{Type: OpRemoveTag, Tag: "prod"},
			{Type: OpActivateWorkflow},
		}, Options{})
		out := res.Workflow
		assert.Equal(t, "UTC", out.Settings["timezone"])
		assert.Equal(t, "renamed", out.Name)
		assert.Equal(t, []string{"beta"}, out.Tags)
		require.NotNil(t, out.Active)
		assert.True(t, *out.Active)
	})
	t.Run("Should not duplicate an existing tag", func(t *testing.T) {
		wf := diffWorkflow()
		res := apply(t, wf, []Operation{{Type: OpAddTag, Tag: "prod"}}, Options{})
		assert.Equal(t, []string{"prod"}, res.Workflow.Tags)
	})
	t.Run("Should deactivate a workflow", func(t *testing.T) {
		wf := diffWorkflow()
		res := apply(t, wf, []Operation{{Type: OpDeactivateWorkflow}}, Options{})
		require.NotNil(t, res.Workflow.Active)
		assert.False(t, *res.Workflow.Active)
	})
}

func TestAtomicity(t *testing.T) {
	t.Run("Should leave the input untouched on failure in atomic mode", func(t *testing.T) {
		wf := diffWorkflow()
		_, err := New(testProvider()).Apply(context.Background(), wf, []Operation{
			{Type: OpUpdateName, Name: "changed"},
			{Type: OpRemoveNode, NodeName: "Missing"},
		}, Options{})
		require.Error(t, err)
		assert.Equal(t, "pipeline", wf.Name)
	})
	t.Run("Should never mutate the input even on success", func(t *testing.T) {
		wf := diffWorkflow()
		res := apply(t, wf, []Operation{{Type: OpUpdateName, Name: "changed"}}, Options{})
		assert.Equal(t, "pipeline", wf.Name)
		assert.Equal(t, "changed", res.Workflow.Name)
	})
	t.Run("Should record failures and continue in continueOnError mode", func(t *testing.T) {
		wf := diffWorkflow()
		res := apply(t, wf, []Operation{
			{Type: OpUpdateName, Name: "first"},
			{Type: OpRemoveNode, NodeName: "Missing"},
			{Type: OpAddTag, Tag: "kept"},
		}, Options{ContinueOnError: true})
		assert.Equal(t, 2, res.Applied)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 1, res.Errors[0].Index)
		assert.Equal(t, "first", res.Workflow.Name)
		assert.Contains(t, res.Workflow.Tags, "kept")
	})
	t.Run("Should reject unknown operation types up front", func(t *testing.T) {
		wf := diffWorkflow()
		_, err := New(testProvider()).Apply(context.Background(), wf, []Operation{
			{Type: "teleportNode"},
		}, Options{ContinueOnError: true})
		assert.Error(t, err)
	})
	t.Run("Should produce identical output for identical input", func(t *testing.T) {
		ops := []Operation{
			{Type: OpUpdateNode, NodeName: "Check", NewName: "Gate"},
			{Type: OpAddConnection, Source: "Fetch", Target: "Store"},
			{Type: OpAddTag, Tag: "beta"},
		}
		a := apply(t, diffWorkflow(), ops, Options{})
		b := apply(t, diffWorkflow(), ops, Options{})
		aJSON, err := workflow.Serialize(a.Workflow)
		require.NoError(t, err)
		bJSON, err := workflow.Serialize(b.Workflow)
		require.NoError(t, err)
		assert.Equal(t, string(aJSON), string(bJSON))
	})
	t.Run("Should parse an operations document and reject unknown types", func(t *testing.T) {
		ops, err := ParseOperations([]byte(`[{"type":"updateName","name":"x"}]`))
		require.NoError(t, err)
		assert.Equal(t, OpUpdateName, ops[0].Type)
		_, err = ParseOperations([]byte(`[{"type":"explodeNode"}]`))
		assert.Error(t, err)
	})
}
