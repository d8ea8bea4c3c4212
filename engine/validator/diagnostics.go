package validator

import "fmt"

// Severity orders diagnostics by how strongly they block a workflow.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category groups diagnostics for profile filtering.
type Category string

const (
	CategoryCritical     Category = "critical"
	CategoryRuntime      Category = "runtime"
	CategorySecurity     Category = "security"
	CategoryDeprecation  Category = "deprecation"
	CategoryBestPractice Category = "best-practice"
	CategoryInternal     Category = "internal"
)

// Profile selects which diagnostics survive filtering.
type Profile string

const (
	ProfileMinimal    Profile = "minimal"
	ProfileRuntime    Profile = "runtime"
	ProfileAIFriendly Profile = "ai-friendly"
	ProfileStrict     Profile = "strict"
)

// Mode selects how deep inspection goes.
type Mode string

const (
	ModeStructure Mode = "structure"
	ModeOperation Mode = "operation"
	ModeFull      Mode = "full"
)

// Diagnostic codes are stable identifiers; the auto-fix engine dispatches
// on them.
const (
	CodeMissingRequiredProperty = "MISSING_REQUIRED_PROPERTY"
	CodeMissingNodeProperty     = "MISSING_NODE_PROPERTY"
	CodeDuplicateNodeName       = "DUPLICATE_NODE_NAME"
	CodeUnknownNodeType         = "UNKNOWN_NODE_TYPE"
	CodeTypeVersionExceedsMax   = "TYPEVERSION_EXCEEDS_MAX"
	CodeInvalidPosition         = "INVALID_POSITION"
	CodeInvalidConnection       = "INVALID_CONNECTION"
	CodeBranchOutOfRange        = "BRANCH_OUT_OF_RANGE"
	CodeNestedValuesCollection  = "NESTED_VALUES_COLLECTION"

	CodeExpressionMissingPrefix   = "EXPRESSION_MISSING_PREFIX"
	CodeExpressionUnbalanced      = "EXPRESSION_UNBALANCED"
	CodeExpressionEmpty           = "EXPRESSION_EMPTY"
	CodeExpressionNested          = "EXPRESSION_NESTED"
	CodeExpressionTemplateLiteral = "EXPRESSION_TEMPLATE_LITERAL"

	CodeForbiddenImport  = "CODE_FORBIDDEN_IMPORT"
	CodeDangerousPattern = "CODE_DANGEROUS_PATTERN"
	CodeMixedIndentation = "CODE_MIXED_INDENTATION"
	CodeSQLInjectionRisk = "SQL_INJECTION_RISK"

	CodeAIMissingLanguageModel = "AI_MISSING_LANGUAGE_MODEL"
	CodeAIExtraLanguageModel   = "AI_EXTRA_LANGUAGE_MODEL"
	CodeAIFallbackMissingModel = "AI_FALLBACK_MISSING_MODEL"
	CodeAIMissingOutputParser  = "AI_MISSING_OUTPUT_PARSER"
	CodeAIStreamingWithMain    = "AI_STREAMING_WITH_MAIN"
	CodeAIMultipleMemory       = "AI_MULTIPLE_MEMORY"
	CodeAIToolNoDescription    = "AI_TOOL_NO_DESCRIPTION"
	CodeAIEmptyPrompt          = "AI_EMPTY_PROMPT"

	CodeTypeVersionOutdated = "TYPEVERSION_OUTDATED"
	CodeBreakingChangeAhead = "BREAKING_CHANGE_AHEAD"
	CodeDepthLimitExceeded  = "DEPTH_LIMIT_EXCEEDED"
	CodeCheckerFailed       = "CHECKER_FAILED"
)

// Location points a diagnostic at a place in the workflow document.
type Location struct {
	NodeName string `json:"nodeName,omitempty"`
	NodeID   string `json:"nodeId,omitempty"`
	Path     string `json:"path,omitempty"`
}

// Diagnostic is one finding about a workflow.
type Diagnostic struct {
	Code     string         `json:"code"`
	Severity Severity       `json:"severity"`
	Category Category       `json:"category"`
	Message  string         `json:"message"`
	Location *Location      `json:"location,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
	Hint     string         `json:"hint,omitempty"`
}

// Stats summarizes a validation run.
type Stats struct {
	Errors       int `json:"errors"`
	Warnings     int `json:"warnings"`
	Infos        int `json:"infos"`
	NodesChecked int `json:"nodesChecked"`
}

// Result is the validator output. Valid means no error-severity issue
// survived the profile filter.
type Result struct {
	Valid  bool         `json:"valid"`
	Issues []Diagnostic `json:"issues"`
	Stats  Stats        `json:"stats"`
}

// ParseProfile maps a user-supplied profile name to a Profile.
func ParseProfile(s string) (Profile, error) {
	switch Profile(s) {
	case ProfileMinimal, ProfileRuntime, ProfileAIFriendly, ProfileStrict:
		return Profile(s), nil
	case "":
		return ProfileRuntime, nil
	}
	return "", fmt.Errorf("unknown validation profile %q", s)
}

// ParseMode maps a user-supplied mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStructure, ModeOperation, ModeFull:
		return Mode(s), nil
	case "":
		return ModeFull, nil
	}
	return "", fmt.Errorf("unknown validation mode %q", s)
}

// keeps reports whether the profile retains a diagnostic. Internal checker
// failures are never filtered out.
func (p Profile) keeps(d Diagnostic) bool {
	if d.Category == CategoryInternal {
		return true
	}
	switch p {
	case ProfileMinimal:
		return d.Severity == SeverityError && d.Category == CategoryCritical
	case ProfileRuntime:
		if d.Severity == SeverityError {
			return true
		}
		return d.Severity == SeverityWarning &&
			(d.Category == CategorySecurity || d.Category == CategoryDeprecation)
	case ProfileAIFriendly:
		if d.Severity == SeverityError || d.Category == CategoryBestPractice {
			return true
		}
		return d.Severity == SeverityWarning &&
			(d.Category == CategorySecurity || d.Category == CategoryDeprecation)
	default:
		return true
	}
}
