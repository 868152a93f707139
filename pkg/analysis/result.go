package analysis

import "encoding/json"

// Outcome says how an analysis request ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeEmptyResponse
	OutcomeCallFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmptyResponse:
		return "empty_response"
	case OutcomeCallFault:
		return "call_fault"
	default:
		return "unknown"
	}
}

// FindingSummary is the reduced copy of a finding kept in a result.
type FindingSummary struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Severity string `json:"severity"`
	Resource string `json:"resource"`
}

// Result is the outcome of one analysis request. Successful results carry
// FindingData, AIAnalysis and Timestamp; failed ones carry Error and
// Finding. Err holds the model fault for OutcomeCallFault.
type Result struct {
	FindingData *FindingSummary
	AIAnalysis  string
	Timestamp   string

	Error   string
	Finding string

	Outcome Outcome
	Err     error
}

// OK reports whether the model produced an analysis.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// MarshalJSON writes one of two disjoint shapes: a failed result never has
// an ai_analysis key and a successful one always has timestamp.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.OK() {
		return json.Marshal(struct {
			FindingData *FindingSummary `json:"finding_data"`
			AIAnalysis  string          `json:"ai_analysis"`
			Timestamp   string          `json:"timestamp"`
		}{r.FindingData, r.AIAnalysis, r.Timestamp})
	}
	return json.Marshal(struct {
		Error   string `json:"error"`
		Finding string `json:"finding"`
	}{r.Error, r.Finding})
}

func successResult(fields PromptFields, text, timestamp string) Result {
	return Result{
		FindingData: &FindingSummary{
			Name:     fields.Name,
			Category: fields.Category,
			Severity: fields.Severity,
			Resource: fields.Resource,
		},
		AIAnalysis: text,
		Timestamp:  timestamp,
		Outcome:    OutcomeSuccess,
	}
}

func errorResult(outcome Outcome, msg, name string, err error) Result {
	return Result{
		Error:   msg,
		Finding: name,
		Outcome: outcome,
		Err:     err,
	}
}
