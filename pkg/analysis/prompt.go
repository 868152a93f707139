package analysis

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/user/secmon/pkg/finding"
)

const (
	unknownField   = "Unknown"
	noDescription  = "No description provided"
	errEmptyResult = "Failed to generate analysis"
)

//go:embed prompts/finding_analysis.tmpl
var findingAnalysisPrompt string

//go:embed prompts/connectivity_check.tmpl
var connectivityCheckPrompt string

var (
	findingAnalysisTmpl   = template.Must(template.New("finding_analysis").Parse(findingAnalysisPrompt))
	connectivityCheckTmpl = template.Must(template.New("connectivity_check").Parse(connectivityCheckPrompt))
)

// PromptFields are the five finding fields embedded in a prompt, with
// defaults already applied.
type PromptFields struct {
	Name        string
	Category    string
	Severity    string
	Description string
	Resource    string
}

// FieldsOf extracts the prompt fields from f.
func FieldsOf(f finding.Finding) PromptFields {
	return PromptFields{
		Name:        orDefault(f.Name, unknownField),
		Category:    orDefault(f.Category, unknownField),
		Severity:    orDefault(string(f.Severity), unknownField),
		Description: orDefault(f.Description, noDescription),
		Resource:    orDefault(f.ResourceName, unknownField),
	}
}

// BuildPrompt renders the security assessment prompt for f. Identical
// fields always produce an identical prompt.
func BuildPrompt(f finding.Finding) (string, error) {
	return render(findingAnalysisTmpl, FieldsOf(f))
}

// BuildConnectivityPrompt renders the shorter prompt used to check that
// the model is reachable.
func BuildConnectivityPrompt(f finding.Finding) (string, error) {
	return render(connectivityCheckTmpl, FieldsOf(f))
}

func render(t *template.Template, fields PromptFields) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, fields); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
