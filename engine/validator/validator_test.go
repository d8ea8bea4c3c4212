package validator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n8n-cli/n8nctl/engine/catalog"
	"github.com/n8n-cli/n8nctl/engine/workflow"
)

func testProvider() catalog.Provider {
	return catalog.NewStatic([]*catalog.Record{
		{
			Type: "n8n-nodes-base.httpRequest", DisplayName: "HTTP Request",
			Versions: []string{"1", "2", "3", "4.2"}, OutputCount: 1,
			RequiredProperties: []string{"url"},
		},
		{
			Type: "n8n-nodes-base.webhook", DisplayName: "Webhook",
			Versions: []string{"1", "2"}, IsTrigger: true, IsWebhook: true, OutputCount: 1,
		},
		{
			Type: "n8n-nodes-base.if", DisplayName: "If",
			Versions: []string{"2.2"}, OutputCount: 2,
		},
		{
			Type: "n8n-nodes-base.switch", DisplayName: "Switch",
			Versions: []string{"3.2"}, OutputCount: 4, VariadicOutputs: true,
		},
		{
			Type: "n8n-nodes-base.code", DisplayName: "Code",
			Versions: []string{"1", "2"}, OutputCount: 1,
		},
		{
			Type: "n8n-nodes-base.set", DisplayName: "Edit Fields",
			Versions: []string{"2", "3.4"}, OutputCount: 1,
		},
		{
			Type: "n8n-nodes-base.postgres", DisplayName: "Postgres",
			Versions: []string{"2.6"}, OutputCount: 1,
		},
		{
			Type: "@n8n/n8n-nodes-langchain.agent", DisplayName: "AI Agent",
			Versions: []string{"1.7"}, OutputCount: 1,
		},
		{
			Type: "@n8n/n8n-nodes-langchain.toolCalculator", DisplayName: "Calculator",
			Versions: []string{"1"}, IsAITool: true,
		},
		{
			Type: "@n8n/n8n-nodes-langchain.lmChatOpenAi", DisplayName: "OpenAI Chat Model",
			Versions: []string{"1"},
		},
	})
}

func baseWorkflow() *workflow.Workflow {
	return &workflow.Workflow{
		Name: "test",
		Nodes: []*workflow.Node{
			{
				ID: "1", Name: "Webhook", Type: "n8n-nodes-base.webhook",
				TypeVersion: 2, Position: []float64{0, 0},
				Parameters: map[string]any{"path": "abc"},
			},
			{
				ID: "2", Name: "Request", Type: "n8n-nodes-base.httpRequest",
				TypeVersion: 4.2, Position: []float64{200, 0},
				Parameters: map[string]any{"url": "https://example.com"},
			},
		},
		Connections: workflow.Connections{
			"Webhook": {"main": {{{Node: "Request", Type: "main", Index: 0}}}},
		},
	}
}

func validate(t *testing.T, wf *workflow.Workflow, opts Options) *Result {
	t.Helper()
	return New(testProvider()).Validate(context.Background(), wf, opts)
}

func codesOf(res *Result) []string {
	out := make([]string, 0, len(res.Issues))
	for _, d := range res.Issues {
		out = append(out, d.Code)
	}
	return out
}

func TestValidateStructure(t *testing.T) {
	t.Run("Should pass a well-formed workflow", func(t *testing.T) {
		res := validate(t, baseWorkflow(), Options{Profile: ProfileStrict, Mode: ModeFull})
		assert.True(t, res.Valid, "issues: %v", res.Issues)
		assert.Equal(t, 2, res.Stats.NodesChecked)
	})
	t.Run("Should report missing top-level properties", func(t *testing.T) {
		res := validate(t, &workflow.Workflow{}, Options{Mode: ModeStructure})
		assert.False(t, res.Valid)
		codes := codesOf(res)
		assert.Contains(t, codes, CodeMissingRequiredProperty)
		assert.GreaterOrEqual(t, res.Stats.Errors, 3)
	})
	t.Run("Should report duplicate node names", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes = append(wf.Nodes, &workflow.Node{
			ID: "3", Name: "Request", Type: "n8n-nodes-base.httpRequest",
			TypeVersion: 4.2, Position: []float64{400, 0},
			Parameters: map[string]any{"url": "https://example.com"},
		})
		res := validate(t, wf, Options{Mode: ModeStructure})
		assert.Contains(t, codesOf(res), CodeDuplicateNodeName)
	})
	t.Run("Should report an unknown node type with its location", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes[1].Type = "n8n-nodes-base.htppRequest"
		res := validate(t, wf, Options{Mode: ModeStructure})
		var found *Diagnostic
		for i := range res.Issues {
			if res.Issues[i].Code == CodeUnknownNodeType {
				found = &res.Issues[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, "Request", found.Location.NodeName)
	})
	t.Run("Should report a typeVersion above the catalog maximum", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes[1].TypeVersion = 9
		res := validate(t, wf, Options{Mode: ModeStructure})
		var found *Diagnostic
		for i := range res.Issues {
			if res.Issues[i].Code == CodeTypeVersionExceedsMax {
				found = &res.Issues[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, "9", found.Context["declared"])
		assert.Equal(t, "4.2", found.Context["maximum"])
	})
	t.Run("Should report connections pointing at missing nodes", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Connections["Webhook"]["main"][0][0].Node = "Ghost"
		res := validate(t, wf, Options{Mode: ModeStructure})
		assert.Contains(t, codesOf(res), CodeInvalidConnection)
	})
	t.Run("Should report a branch index beyond the output arity", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes = append(wf.Nodes, &workflow.Node{
			ID: "3", Name: "Route", Type: "n8n-nodes-base.if",
			TypeVersion: 2.2, Position: []float64{400, 0},
		})
		wf.Connections["Route"] = map[string][][]workflow.Endpoint{
			"main": {{}, {}, {{Node: "Request", Type: "main", Index: 0}}},
		}
		res := validate(t, wf, Options{Mode: ModeStructure})
		assert.Contains(t, codesOf(res), CodeBranchOutOfRange)
	})
	t.Run("Should not flag branches on variadic-output nodes", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes = append(wf.Nodes, &workflow.Node{
			ID: "3", Name: "Route", Type: "n8n-nodes-base.switch",
			TypeVersion: 3.2, Position: []float64{400, 0},
		})
		wf.Connections["Route"] = map[string][][]workflow.Endpoint{
			"main": {{}, {}, {}, {}, {}, {{Node: "Request", Type: "main", Index: 0}}},
		}
		res := validate(t, wf, Options{Mode: ModeStructure})
		assert.NotContains(t, codesOf(res), CodeBranchOutOfRange)
	})
}

func TestValidateOperation(t *testing.T) {
	t.Run("Should report a missing required parameter", func(t *testing.T) {
		wf := baseWorkflow()
		delete(wf.Nodes[1].Parameters, "url")
		res := validate(t, wf, Options{Mode: ModeOperation})
		var found *Diagnostic
		for i := range res.Issues {
			if res.Issues[i].Code == CodeMissingNodeProperty {
				found = &res.Issues[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, "url", found.Context["property"])
	})
	t.Run("Should report the doubled values collection shape", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes[1].Parameters["rules"] = map[string]any{
			"values": map[string]any{"values": []any{}},
		}
		res := validate(t, wf, Options{Mode: ModeOperation})
		assert.Contains(t, codesOf(res), CodeNestedValuesCollection)
	})
	t.Run("Should report an expression without the = prefix", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes[1].Parameters["url"] = "{{ $json.url }}"
		res := validate(t, wf, Options{Mode: ModeOperation})
		var found *Diagnostic
		for i := range res.Issues {
			if res.Issues[i].Code == CodeExpressionMissingPrefix {
				found = &res.Issues[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, "parameters.url", found.Location.Path)
		assert.Equal(t, 1.0, found.Context["confidence"])
	})
	t.Run("Should accept a prefixed expression", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes[1].Parameters["url"] = "={{ $json.url }}"
		res := validate(t, wf, Options{Mode: ModeOperation})
		assert.NotContains(t, codesOf(res), CodeExpressionMissingPrefix)
	})
	t.Run("Should report unbalanced and empty expressions", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes[1].Parameters["url"] = "={{ $json.url"
		wf.Nodes[1].Parameters["headers"] = map[string]any{"x": "={{ }}"}
		res := validate(t, wf, Options{Mode: ModeOperation})
		codes := codesOf(res)
		assert.Contains(t, codes, CodeExpressionUnbalanced)
		assert.Contains(t, codes, CodeExpressionEmpty)
	})
	t.Run("Should report template-literal syntax", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes[1].Parameters["url"] = "https://example.com/${id}"
		res := validate(t, wf, Options{Profile: ProfileStrict, Mode: ModeOperation})
		assert.Contains(t, codesOf(res), CodeExpressionTemplateLiteral)
	})
	t.Run("Should find expressions nested deep in parameter trees", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes[1].Parameters["options"] = map[string]any{
			"list": []any{map[string]any{"value": "{{ $json.x }}"}},
		}
		res := validate(t, wf, Options{Mode: ModeOperation})
		var found *Diagnostic
		for i := range res.Issues {
			if res.Issues[i].Code == CodeExpressionMissingPrefix {
				found = &res.Issues[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, "parameters.options.list[0].value", found.Location.Path)
	})
	t.Run("Should warn when the parameter tree exceeds the depth cap", func(t *testing.T) {
		wf := baseWorkflow()
		deep := map[string]any{"leaf": "{{ x }}"}
		for i := 0; i < maxParameterDepth+5; i++ {
			deep = map[string]any{"level": deep}
		}
		wf.Nodes[1].Parameters["deep"] = deep
		res := validate(t, wf, Options{Profile: ProfileStrict, Mode: ModeOperation})
		assert.Contains(t, codesOf(res), CodeDepthLimitExceeded)
	})
	t.Run("Should terminate on self-referential parameter trees", func(t *testing.T) {
		wf := baseWorkflow()
		loop := map[string]any{}
		loop["self"] = loop
		wf.Nodes[1].Parameters["loop"] = loop
		res := validate(t, wf, Options{Mode: ModeOperation})
		assert.NotNil(t, res)
	})
}

func TestValidateNodeSpecific(t *testing.T) {
	codeNode := func(params map[string]any) *workflow.Workflow {
		wf := baseWorkflow()
		wf.Nodes = append(wf.Nodes, &workflow.Node{
			ID: "3", Name: "Code", Type: "n8n-nodes-base.code",
			TypeVersion: 2, Position: []float64{400, 0}, Parameters: params,
		})
		return wf
	}
	t.Run("Should report forbidden python imports", func(t *testing.T) {
		wf := codeNode(map[string]any{
			"language":   "python",
			"pythonCode": "import os\nfrom json import loads\nprint(os.environ)",
		})
		res := validate(t, wf, Options{Mode: ModeOperation})
		var found *Diagnostic
		for i := range res.Issues {
			if res.Issues[i].Code == CodeForbiddenImport {
				found = &res.Issues[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, "os", found.Context["module"])
	})
	t.Run("Should report dangerous javascript patterns", func(t *testing.T) {
		wf := codeNode(map[string]any{"jsCode": "return eval(input)"})
		res := validate(t, wf, Options{Mode: ModeOperation})
		assert.Contains(t, codesOf(res), CodeDangerousPattern)
	})
	t.Run("Should report mixed indentation", func(t *testing.T) {
		wf := codeNode(map[string]any{
			"language":   "python",
			"pythonCode": "def f():\n\treturn 1\ndef g():\n    return 2",
		})
		res := validate(t, wf, Options{Profile: ProfileStrict, Mode: ModeOperation})
		assert.Contains(t, codesOf(res), CodeMixedIndentation)
	})
	t.Run("Should report interpolated SQL as injection risk", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes = append(wf.Nodes, &workflow.Node{
			ID: "3", Name: "DB", Type: "n8n-nodes-base.postgres",
			TypeVersion: 2.6, Position: []float64{400, 0},
			Parameters: map[string]any{"query": "SELECT * FROM users WHERE id = {{ $json.id }}"},
		})
		res := validate(t, wf, Options{Mode: ModeOperation})
		assert.Contains(t, codesOf(res), CodeSQLInjectionRisk)
	})
}

func TestValidateAITopology(t *testing.T) {
	agentWorkflow := func(params map[string]any) *workflow.Workflow {
		wf := baseWorkflow()
		wf.Nodes = append(wf.Nodes, &workflow.Node{
			ID: "3", Name: "Agent", Type: "@n8n/n8n-nodes-langchain.agent",
			TypeVersion: 1.7, Position: []float64{400, 0}, Parameters: params,
		})
		return wf
	}
	connectModel := func(wf *workflow.Workflow, name string) {
		wf.Nodes = append(wf.Nodes, &workflow.Node{
			ID: fmt.Sprintf("m-%s", name), Name: name, Type: "@n8n/n8n-nodes-langchain.lmChatOpenAi",
			TypeVersion: 1, Position: []float64{400, 200},
		})
		wf.Connections[name] = map[string][][]workflow.Endpoint{
			classLanguageModel: {{{Node: "Agent", Type: classLanguageModel, Index: 0}}},
		}
	}
	t.Run("Should require a language-model connection", func(t *testing.T) {
		res := validate(t, agentWorkflow(nil), Options{Mode: ModeFull})
		assert.Contains(t, codesOf(res), CodeAIMissingLanguageModel)
	})
	t.Run("Should accept a single connected model", func(t *testing.T) {
		wf := agentWorkflow(nil)
		connectModel(wf, "Model")
		res := validate(t, wf, Options{Mode: ModeFull})
		assert.NotContains(t, codesOf(res), CodeAIMissingLanguageModel)
		assert.NotContains(t, codesOf(res), CodeAIExtraLanguageModel)
	})
	t.Run("Should reject a second model without needsFallback", func(t *testing.T) {
		wf := agentWorkflow(nil)
		connectModel(wf, "Model")
		connectModel(wf, "Backup")
		res := validate(t, wf, Options{Mode: ModeFull})
		assert.Contains(t, codesOf(res), CodeAIExtraLanguageModel)
	})
	t.Run("Should require a second model when needsFallback is set", func(t *testing.T) {
		wf := agentWorkflow(map[string]any{"needsFallback": true})
		connectModel(wf, "Model")
		res := validate(t, wf, Options{Mode: ModeFull})
		assert.Contains(t, codesOf(res), CodeAIFallbackMissingModel)
	})
	t.Run("Should require an output parser when hasOutputParser is set", func(t *testing.T) {
		wf := agentWorkflow(map[string]any{"hasOutputParser": true})
		connectModel(wf, "Model")
		res := validate(t, wf, Options{Mode: ModeFull})
		assert.Contains(t, codesOf(res), CodeAIMissingOutputParser)
	})
	t.Run("Should reject streaming combined with a main output", func(t *testing.T) {
		wf := agentWorkflow(map[string]any{"enableStreaming": true})
		connectModel(wf, "Model")
		wf.Connections["Agent"] = map[string][][]workflow.Endpoint{
			"main": {{{Node: "Request", Type: "main", Index: 0}}},
		}
		res := validate(t, wf, Options{Mode: ModeFull})
		assert.Contains(t, codesOf(res), CodeAIStreamingWithMain)
	})
	t.Run("Should reject an empty defined prompt", func(t *testing.T) {
		wf := agentWorkflow(map[string]any{"promptType": "define", "text": "  "})
		connectModel(wf, "Model")
		res := validate(t, wf, Options{Mode: ModeFull})
		assert.Contains(t, codesOf(res), CodeAIEmptyPrompt)
	})
	t.Run("Should hint at missing tool descriptions", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes = append(wf.Nodes, &workflow.Node{
			ID: "3", Name: "Calc", Type: "@n8n/n8n-nodes-langchain.toolCalculator",
			TypeVersion: 1, Position: []float64{400, 0},
		})
		res := validate(t, wf, Options{Profile: ProfileAIFriendly, Mode: ModeFull})
		assert.Contains(t, codesOf(res), CodeAIToolNoDescription)
	})
}

func TestValidateVersioning(t *testing.T) {
	t.Run("Should flag an outdated typeVersion", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes[1].TypeVersion = 3
		res := validate(t, wf, Options{Profile: ProfileStrict, Mode: ModeFull})
		assert.Contains(t, codesOf(res), CodeTypeVersionOutdated)
	})
	t.Run("Should surface breaking changes on the upgrade path", func(t *testing.T) {
		wf := baseWorkflow()
		wf.Nodes = append(wf.Nodes, &workflow.Node{
			ID: "3", Name: "Set", Type: "n8n-nodes-base.set",
			TypeVersion: 2, Position: []float64{400, 0},
			Parameters: map[string]any{"values": map[string]any{}},
		})
		res := validate(t, wf, Options{Profile: ProfileStrict, Mode: ModeFull})
		var found *Diagnostic
		for i := range res.Issues {
			if res.Issues[i].Code == CodeBreakingChangeAhead {
				found = &res.Issues[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, "Set", found.Location.NodeName)
	})
}

func TestProfilesAndModes(t *testing.T) {
	mixed := func() *workflow.Workflow {
		wf := baseWorkflow()
		// critical error, runtime error, deprecation warning in one document
		wf.Nodes[1].Type = "n8n-nodes-base.htppRequest"
		wf.Nodes[0].Parameters["path"] = "{{ $json.p }}"
		wf.Nodes[0].TypeVersion = 1
		return wf
	}
	t.Run("Should keep only critical errors under minimal", func(t *testing.T) {
		res := validate(t, mixed(), Options{Profile: ProfileMinimal, Mode: ModeFull})
		for _, d := range res.Issues {
			assert.Equal(t, SeverityError, d.Severity)
			assert.Equal(t, CategoryCritical, d.Category)
		}
		assert.Contains(t, codesOf(res), CodeUnknownNodeType)
	})
	t.Run("Should keep runtime errors and deprecation warnings under runtime", func(t *testing.T) {
		res := validate(t, mixed(), Options{Profile: ProfileRuntime, Mode: ModeFull})
		codes := codesOf(res)
		assert.Contains(t, codes, CodeExpressionMissingPrefix)
		assert.Contains(t, codes, CodeTypeVersionOutdated)
	})
	t.Run("Should keep everything under strict", func(t *testing.T) {
		strict := validate(t, mixed(), Options{Profile: ProfileStrict, Mode: ModeFull})
		runtime := validate(t, mixed(), Options{Profile: ProfileRuntime, Mode: ModeFull})
		assert.GreaterOrEqual(t, len(strict.Issues), len(runtime.Issues))
	})
	t.Run("Should skip expression checks in structure mode", func(t *testing.T) {
		res := validate(t, mixed(), Options{Profile: ProfileStrict, Mode: ModeStructure})
		assert.NotContains(t, codesOf(res), CodeExpressionMissingPrefix)
	})
	t.Run("Should skip AI and versioning checks in operation mode", func(t *testing.T) {
		res := validate(t, mixed(), Options{Profile: ProfileStrict, Mode: ModeOperation})
		assert.NotContains(t, codesOf(res), CodeTypeVersionOutdated)
	})
	t.Run("Should default to runtime profile and full mode", func(t *testing.T) {
		p, err := ParseProfile("")
		require.NoError(t, err)
		assert.Equal(t, ProfileRuntime, p)
		m, err := ParseMode("")
		require.NoError(t, err)
		assert.Equal(t, ModeFull, m)
	})
	t.Run("Should reject unknown profile and mode names", func(t *testing.T) {
		_, err := ParseProfile("pedantic")
		assert.Error(t, err)
		_, err = ParseMode("deep")
		assert.Error(t, err)
	})
}
