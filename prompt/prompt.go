// Package prompt renders the templated strings sent to the completion
// provider. Templates are keyed by stage role; their content is opaque to
// the rest of the pipeline.
package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

// System prompts per agent role.
const (
	SystemExplainer = "You are an expert R programming tutor. Explain R code clearly, " +
		"walking through what each statement does and why, at a level suitable for a student."
	SystemSolver = "You are a professional R programming teacher helping students solve " +
		"exercises. Always propose three solutions of increasing sophistication."
	SystemConversation = "You are a friendly R programming assistant. Answer questions " +
		"about R, statistics and data analysis conversationally and accurately."
	SystemAnalyzer = "You are an R code quality expert performing code review and " +
		"quality analysis."
)

var templates = template.Must(template.New("prompts").Parse(`
{{define "explain_code"}}Explain the following R code step by step. Describe what it does, the functions and packages involved, and anything a beginner should watch out for.

Code:
{{.Code}}
{{- if .Analysis}}

Prior analysis of this code:
{{.Analysis}}
{{- end}}{{end}}

{{define "analyze_code"}}Analyze the following R code for structure, complexity and quality. Point out risky constructs and improvement opportunities.

Code:
{{.Code}}{{end}}

{{define "analyze_problem"}}Restate and analyze the following R programming problem. Identify the required inputs, expected outputs and suitable approaches.

Problem:
{{.Problem}}{{end}}

{{define "generate_solutions"}}Solve the following R programming problem with three alternative solutions: a basic one using base R, an intermediate one using the tidyverse, and an advanced high-performance one. For each, give a title, the complete code and an explanation.

Problem:
{{.Problem}}
{{- if .Analysis}}

Problem analysis:
{{.Analysis}}
{{- end}}{{end}}

{{define "converse"}}{{.Message}}{{end}}
`))

// Render fills the named template with the given data.
func Render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
