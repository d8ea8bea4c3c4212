package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/n8n-cli/n8nctl/engine/workflow"
)

// Modules the sandboxed Python runtime does not provide.
var forbiddenPythonModules = []string{"os", "sys", "subprocess", "shutil", "socket", "ctypes"}

var (
	pythonImportRe = regexp.MustCompile(`(?m)^\s*(?:import\s+(\w+)|from\s+(\w+)\s+import)`)
	jsDangerousRe  = regexp.MustCompile(`\beval\s*\(|new\s+Function\s*\(|child_process|\bexecSync?\s*\(`)
	sqlInterpRe    = regexp.MustCompile(`\{\{[^}]*\}\}|\$\{[^}]*\}`)
)

var sqlNodeShortNames = map[string]bool{
	"postgres":     true,
	"mySql":        true,
	"microsoftSql": true,
	"snowflake":    true,
	"crateDb":      true,
	"questDb":      true,
}

// checkNodeSpecific inspects code and SQL parameters for patterns that fail
// or misbehave at run time.
func (v *Validator) checkNodeSpecific(_ context.Context, wf *workflow.Workflow, c *collector) {
	if wf == nil {
		return
	}
	for _, n := range wf.Nodes {
		if n == nil {
			continue
		}
		switch {
		case strings.HasSuffix(n.Type, ".code"):
			checkCodeNode(n, c)
		case sqlNodeShortNames[shortTypeName(n.Type)]:
			checkSQLNode(n, c)
		}
	}
}

func shortTypeName(nodeType string) string {
	if i := strings.LastIndex(nodeType, "."); i >= 0 {
		return nodeType[i+1:]
	}
	return nodeType
}

func checkCodeNode(n *workflow.Node, c *collector) {
	lang, _ := n.Parameters["language"].(string)
	if strings.EqualFold(lang, "python") || strings.EqualFold(lang, "pythonNative") {
		code, _ := n.Parameters["pythonCode"].(string)
		checkPythonCode(n, code, c)
		return
	}
	code, _ := n.Parameters["jsCode"].(string)
	checkJavaScriptCode(n, code, c)
}

func checkPythonCode(n *workflow.Node, code string, c *collector) {
	for _, m := range pythonImportRe.FindAllStringSubmatch(code, -1) {
		mod := m[1]
		if mod == "" {
			mod = m[2]
		}
		for _, forbidden := range forbiddenPythonModules {
			if mod == forbidden {
				c.nodeIssue(n, Diagnostic{
					Code: CodeForbiddenImport, Severity: SeverityError, Category: CategorySecurity,
					Message:  fmt.Sprintf("python module %q is not available in the sandbox", mod),
					Location: &Location{Path: "parameters.pythonCode"},
					Context:  map[string]any{"module": mod},
				})
			}
		}
	}
	checkIndentation(n, code, "parameters.pythonCode", c)
}

func checkJavaScriptCode(n *workflow.Node, code string, c *collector) {
	if m := jsDangerousRe.FindString(code); m != "" {
		c.nodeIssue(n, Diagnostic{
			Code: CodeDangerousPattern, Severity: SeverityWarning, Category: CategorySecurity,
			Message:  fmt.Sprintf("code uses a dangerous pattern: %s", strings.TrimSpace(m)),
			Location: &Location{Path: "parameters.jsCode"},
			Context:  map[string]any{"pattern": strings.TrimSpace(m)},
		})
	}
	checkIndentation(n, code, "parameters.jsCode", c)
}

// checkIndentation flags files that mix tab and space indentation, which is
// fatal for Python and confusing everywhere else.
func checkIndentation(n *workflow.Node, code, path string, c *collector) {
	var tabs, spaces bool
	for _, line := range strings.Split(code, "\n") {
		if strings.HasPrefix(line, "\t") {
			tabs = true
		} else if strings.HasPrefix(line, " ") {
			spaces = true
		}
	}
	if tabs && spaces {
		c.nodeIssue(n, Diagnostic{
			Code: CodeMixedIndentation, Severity: SeverityWarning, Category: CategoryRuntime,
			Message:  "code mixes tab and space indentation",
			Location: &Location{Path: path},
		})
	}
}

func checkSQLNode(n *workflow.Node, c *collector) {
	query, _ := n.Parameters["query"].(string)
	if query == "" {
		return
	}
	if sqlInterpRe.MatchString(query) {
		c.nodeIssue(n, Diagnostic{
			Code: CodeSQLInjectionRisk, Severity: SeverityWarning, Category: CategorySecurity,
			Message:  "query interpolates expressions directly, prefer query parameters",
			Location: &Location{Path: "parameters.query"},
			Hint:     "bind values through queryReplacement instead of templating them into SQL",
		})
	}
}
