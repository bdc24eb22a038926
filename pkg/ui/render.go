package ui

import (
	"bytes"
	"text/template"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"

	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/compliance"
)

// responseTemplate lays a normalized record out as markdown. Sections with no
// content are skipped entirely; the record itself is guaranteed fully shaped
// by the normalizer, so no nil checks are needed here.
const responseTemplate = `{{ .Summary }}
{{- if .QueryType }}

*{{ .QueryType }}*
{{- end }}
{{- if .Citations }}

## Citations
{{ range .Citations }}
- **{{ .Framework }}**{{ if .Section }} ({{ .Section }}){{ end }}
  {{- if .Excerpt }}
  > {{ .Excerpt }}
  {{- end }}
  {{- if .Relevance }}
  _{{ .Relevance }}_
  {{- end }}
{{ end }}
{{- end }}
{{- if .Analysis.DetailedExplanation }}

## Analysis

{{ .Analysis.DetailedExplanation }}
{{- end }}
{{- if .Analysis.CrossReferences }}

## Cross-References
{{ range .Analysis.CrossReferences }}
- **{{ .FrameworkA }} vs {{ .FrameworkB }}**
  - Overlap: {{ .Overlap }}
  {{- if .UniqueToA }}
  - Unique to {{ .FrameworkA }}: {{ .UniqueToA }}
  {{- end }}
  {{- if .UniqueToB }}
  - Unique to {{ .FrameworkB }}: {{ .UniqueToB }}
  {{- end }}
{{ end }}
{{- end }}
{{- if .Analysis.RiskItems }}

## Risks
{{ range .Analysis.RiskItems }}
- **{{ .Risk }}**{{ if .Severity }} [{{ .Severity }}]{{ end }}
  {{- if .Impact }}
  - Impact: {{ .Impact }}
  {{- end }}
  {{- if .Remediation }}
  - Remediation: {{ .Remediation }}
  {{- end }}
{{ end }}
{{- end }}
{{- if .Analysis.ChecklistItems }}

## Checklist
{{ range .Analysis.ChecklistItems }}
- [ ] {{ .Item }}{{ if .Category }} ({{ .Category }}{{ if .Priority }}, {{ .Priority }}{{ end }}){{ end }}{{ if .Status }} -- {{ .Status }}{{ end }}
{{- end }}
{{- end }}
{{- if .Recommendations }}

## Recommendations
{{ range .Recommendations }}
1. {{ . }}
{{- end }}
{{- end }}
`

var compiledResponseTemplate = template.Must(template.New("response").Parse(responseTemplate))

// ResponseMarkdown renders a normalized record as a markdown document.
func ResponseMarkdown(r *compliance.Response) (string, error) {
	var buffer bytes.Buffer
	if err := compiledResponseTemplate.Execute(&buffer, r); err != nil {
		return "", errors.Wrap(err, "failed to render response template")
	}
	return buffer.String(), nil
}

// RenderResponse converts a normalized record into a styled terminal string.
func RenderResponse(r *compliance.Response, width int) (string, error) {
	md, err := ResponseMarkdown(r)
	if err != nil {
		return "", err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", errors.Wrap(err, "failed to create markdown renderer")
	}

	styled, err := renderer.Render(md)
	if err != nil {
		return "", errors.Wrap(err, "failed to render markdown")
	}
	return styled, nil
}
