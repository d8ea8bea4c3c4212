package validator

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/n8n-cli/n8nctl/engine/workflow"
)

// maxParameterDepth bounds parameter-tree recursion. Exceeding it produces a
// warning diagnostic, never a crash.
const maxParameterDepth = 100

var (
	emptyExpressionRe = regexp.MustCompile(`\{\{\s*\}\}`)
	nestedOpenRe      = regexp.MustCompile(`\{\{[^}]*\{\{`)
)

// checkExpressions walks every string parameter and enforces the expression
// format rules. The rules hold for all node types.
func (v *Validator) checkExpressions(_ context.Context, wf *workflow.Workflow, c *collector) {
	if wf == nil {
		return
	}
	for _, n := range wf.Nodes {
		if n == nil || len(n.Parameters) == 0 {
			continue
		}
		node := n
		ok := walkStrings(n.Parameters, "parameters", 0, map[uintptr]struct{}{}, func(path, s string) {
			checkExpressionString(node, path, s, c)
		})
		if !ok {
			c.nodeIssue(n, Diagnostic{
				Code: CodeDepthLimitExceeded, Severity: SeverityWarning, Category: CategoryRuntime,
				Message: fmt.Sprintf("parameter tree deeper than %d levels was not fully checked", maxParameterDepth),
			})
		}
	}
}

func checkExpressionString(n *workflow.Node, path, s string, c *collector) {
	opens := strings.Count(s, "{{")
	closes := strings.Count(s, "}}")
	loc := &Location{Path: path}
	if opens == 0 && closes == 0 {
		// ${var} outside an expression never interpolates.
		if strings.Contains(s, "${") {
			c.nodeIssue(n, Diagnostic{
				Code: CodeExpressionTemplateLiteral, Severity: SeverityWarning, Category: CategoryRuntime,
				Message:  "template-literal syntax has no effect, use {{ }} with a = prefix",
				Location: loc,
				Context:  map[string]any{"value": s},
			})
		}
		return
	}
	if opens != closes {
		c.nodeIssue(n, Diagnostic{
			Code: CodeExpressionUnbalanced, Severity: SeverityError, Category: CategoryRuntime,
			Message:  "expression braces are unbalanced",
			Location: loc,
			Context:  map[string]any{"value": s},
		})
		return
	}
	if emptyExpressionRe.MatchString(s) {
		c.nodeIssue(n, Diagnostic{
			Code: CodeExpressionEmpty, Severity: SeverityError, Category: CategoryRuntime,
			Message:  "expression is empty",
			Location: loc,
			Context:  map[string]any{"value": s},
		})
	}
	if nestedOpenRe.MatchString(s) {
		c.nodeIssue(n, Diagnostic{
			Code: CodeExpressionNested, Severity: SeverityError, Category: CategoryRuntime,
			Message:  "expressions cannot nest",
			Location: loc,
			Context:  map[string]any{"value": s},
		})
	}
	if !strings.HasPrefix(s, "=") {
		c.nodeIssue(n, Diagnostic{
			Code: CodeExpressionMissingPrefix, Severity: SeverityError, Category: CategoryRuntime,
			Message:  "string contains an expression but lacks the = prefix",
			Location: loc,
			Context:  map[string]any{"value": s, "confidence": 1.0},
			Hint:     "prefix the value with =",
		})
	}
}

// walkStrings visits every string in a decoded JSON tree in deterministic
// order. The visited set guards against aliased containers; the return value
// is false when the depth cap was hit.
func walkStrings(value any, path string, depth int, visited map[uintptr]struct{}, fn func(path, s string)) bool {
	if depth > maxParameterDepth {
		return false
	}
	switch tv := value.(type) {
	case string:
		fn(path, tv)
	case map[string]any:
		ptr := reflect.ValueOf(tv).Pointer()
		if _, seen := visited[ptr]; seen {
			return true
		}
		visited[ptr] = struct{}{}
		keys := make([]string, 0, len(tv))
		for k := range tv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ok := true
		for _, k := range keys {
			if !walkStrings(tv[k], path+"."+k, depth+1, visited, fn) {
				ok = false
			}
		}
		delete(visited, ptr)
		return ok
	case []any:
		if len(tv) == 0 {
			return true
		}
		ptr := reflect.ValueOf(tv).Pointer()
		if _, seen := visited[ptr]; seen {
			return true
		}
		visited[ptr] = struct{}{}
		ok := true
		for i, item := range tv {
			if !walkStrings(item, fmt.Sprintf("%s[%d]", path, i), depth+1, visited, fn) {
				ok = false
			}
		}
		delete(visited, ptr)
		return ok
	}
	return true
}
