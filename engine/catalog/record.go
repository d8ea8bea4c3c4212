package catalog

import (
	"strconv"
	"strings"
)

// Record describes one node type from the bundled catalog. Records are loaded
// from a read-only database and never mutated at runtime.
type Record struct {
	Type               string   `json:"nodeType"`
	DisplayName        string   `json:"displayName"`
	Category           string   `json:"category"`
	Package            string   `json:"package"`
	Description        string   `json:"description"`
	IsAITool           bool     `json:"isAiTool"`
	IsTrigger          bool     `json:"isTrigger"`
	IsWebhook          bool     `json:"isWebhook"`
	Versions           []string `json:"versions"`
	OutputClasses      []string `json:"outputClasses"`
	OutputCount        int      `json:"outputCount"`
	VariadicOutputs    bool     `json:"variadicOutputs"`
	RequiredProperties []string `json:"requiredProperties"`
}

// LatestVersion returns the newest known version, or "" when none is tracked.
func (r *Record) LatestVersion() string {
	if len(r.Versions) == 0 {
		return ""
	}
	latest := r.Versions[0]
	for _, v := range r.Versions[1:] {
		if CompareVersions(v, latest) > 0 {
			latest = v
		}
	}
	return latest
}

// HasVersion reports whether the given version is tracked for this type.
func (r *Record) HasVersion(version string) bool {
	for _, v := range r.Versions {
		if v == version {
			return true
		}
	}
	return false
}

// CompareVersions compares dotted numeric versions component by component.
// Missing components compare as zero, so "3" == "3.0" and "3.2" > "3".
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// FormatVersion renders a numeric typeVersion the way the catalog stores it:
// integral values lose the trailing ".0".
func FormatVersion(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
