package autofix

import (
	"fmt"

	"github.com/n8n-cli/n8nctl/engine/migration"
)

// FixType is the closed set of automatic corrections the engine produces.
type FixType string

const (
	FixExpressionFormat      FixType = "expression-format"
	FixTypeVersionCorrection FixType = "typeversion-correction"
	FixErrorOutputConfig     FixType = "error-output-config"
	FixNodeTypeCorrection    FixType = "node-type-correction"
	FixWebhookMissingPath    FixType = "webhook-missing-path"
	FixSwitchOptions         FixType = "switch-options"
	FixTypeVersionUpgrade    FixType = "typeversion-upgrade"
	FixVersionMigration      FixType = "version-migration"
)

// AllFixTypes lists every type in detector order.
var AllFixTypes = []FixType{
	FixExpressionFormat,
	FixSwitchOptions,
	FixWebhookMissingPath,
	FixNodeTypeCorrection,
	FixTypeVersionCorrection,
	FixErrorOutputConfig,
	FixTypeVersionUpgrade,
	FixVersionMigration,
}

func ValidFixType(t FixType) bool {
	for _, ft := range AllFixTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// Confidence bands a fix. Detectors may lower the band for context, never
// raise it above the type default.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// Fix is one proposed correction. Field addresses the target relative to the
// node; Absent marks a deletion. InfoOnly fixes are never applied.
type Fix struct {
	Type        FixType    `json:"type"`
	Confidence  Confidence `json:"confidence"`
	NodeName    string     `json:"nodeName"`
	NodeID      string     `json:"nodeId,omitempty"`
	Field       string     `json:"field"`
	Before      any        `json:"before,omitempty"`
	After       any        `json:"after,omitempty"`
	Absent      bool       `json:"absent,omitempty"`
	MoveTo      string     `json:"moveTo,omitempty"`
	Description string     `json:"description"`
	InfoOnly    bool       `json:"infoOnly,omitempty"`

	// Upgrade bookkeeping for typeversion-upgrade fixes.
	TargetVersion string                       `json:"targetVersion,omitempty"`
	Migrations    []migration.AppliedMigration `json:"migrations,omitempty"`
	ManualIssues  []string                     `json:"manualIssues,omitempty"`
}

// Config controls generation and application.
type Config struct {
	ApplyFixes          bool
	FixTypes            []FixType
	ConfidenceThreshold Confidence
	MaxFixes            int
	UpgradeVersions     bool
}

// DefaultMaxFixes caps a run when the caller does not.
const DefaultMaxFixes = 50

// Stats counts fixes per confidence band and per type.
type Stats struct {
	Total  int             `json:"total"`
	High   int             `json:"high"`
	Medium int             `json:"medium"`
	Low    int             `json:"low"`
	ByType map[FixType]int `json:"byType"`
}

func (s *Stats) record(f Fix) {
	s.Total++
	switch f.Confidence {
	case ConfidenceHigh:
		s.High++
	case ConfidenceMedium:
		s.Medium++
	default:
		s.Low++
	}
	if s.ByType == nil {
		s.ByType = map[FixType]int{}
	}
	s.ByType[f.Type]++
}

func (s *Stats) summary() string {
	return fmt.Sprintf("%d fixes (%d high, %d medium, %d low confidence)",
		s.Total, s.High, s.Medium, s.Low)
}
