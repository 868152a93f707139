package finding

import "strings"

// Severity is the urgency tag Security Command Center attaches to a finding.
// Values arrive in mixed case, so compare with Is rather than ==.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Is reports whether s names the same level as other, ignoring case.
func (s Severity) Is(other Severity) bool {
	return strings.EqualFold(string(s), string(other))
}

// Finding is a Security Command Center finding as delivered in a
// notification. It is treated as read-only input.
type Finding struct {
	Name             string                 `json:"name,omitempty"`
	Parent           string                 `json:"parent,omitempty"`
	ResourceName     string                 `json:"resourceName,omitempty"`
	State            string                 `json:"state,omitempty"`
	Category         string                 `json:"category,omitempty"`
	ExternalURI      string                 `json:"externalUri,omitempty"`
	Severity         Severity               `json:"severity,omitempty"`
	Description      string                 `json:"description,omitempty"`
	EventTime        string                 `json:"eventTime,omitempty"`
	CreateTime       string                 `json:"createTime,omitempty"`
	SourceProperties map[string]interface{} `json:"sourceProperties,omitempty"`
	SecurityMarks    map[string]interface{} `json:"securityMarks,omitempty"`
}

// DisplayName returns the finding name, or "Unknown" when it is missing.
func (f Finding) DisplayName() string {
	if f.Name == "" {
		return "Unknown"
	}
	return f.Name
}

// ShouldAnalyze is the triage filter: only HIGH and CRITICAL findings are
// worth a model call. Missing or unrecognised severities are dropped.
func ShouldAnalyze(f Finding) bool {
	return f.Severity.Is(SeverityHigh) || f.Severity.Is(SeverityCritical)
}
