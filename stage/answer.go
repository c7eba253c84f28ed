package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/avilaj/rassist/core"
	"github.com/avilaj/rassist/demo"
	"github.com/avilaj/rassist/prompt"
	"github.com/avilaj/rassist/provider"
)

// SolutionsOutput is the derived result of the generate_solutions stage.
type SolutionsOutput struct {
	Answer    string          `json:"answer_result"`
	Solutions []core.Solution `json:"solutions"`
}

// ValidationOutput is the derived result of the validate_solutions stage.
// Solutions holds the checked and patched copies; the generate_solutions
// entry stays exactly as its stage wrote it.
type ValidationOutput struct {
	Checked   int             `json:"checked"`
	Fixed     int             `json:"fixed"`
	Solutions []core.Solution `json:"solutions"`
}

// AnalyzeProblem is the first stage of the answer pipeline. It restates the
// problem and identifies inputs, outputs and candidate approaches.
type AnalyzeProblem struct {
	base
	provider provider.Provider
}

// NewAnalyzeProblem constructs the problem analysis stage.
func NewAnalyzeProblem(p provider.Provider) *AnalyzeProblem {
	return &AnalyzeProblem{
		base:     base{name: core.StageAnalyzeProblem, label: "Analyzing the problem..."},
		provider: p,
	}
}

// Process implements core.Stage.
func (s *AnalyzeProblem) Process(ctx context.Context, rec *core.Record) error {
	rendered, err := prompt.Render("analyze_problem", struct{ Problem string }{Problem: rec.UserInput})
	if err != nil {
		return err
	}

	out, err := complete(ctx, s.provider, rec, s.name, provider.Request{
		System:      prompt.SystemSolver,
		Prompt:      rendered,
		Temperature: 0.5,
	}, func() string { return demo.ProblemAnalysis(rec.UserInput) })
	if err != nil {
		return err
	}

	if err := rec.SetResult(s.name, out); err != nil {
		return err
	}
	rec.MarkProcessed(s.name)
	return nil
}

// GenerateSolutions is the second stage of the answer pipeline. It produces
// the raw answer text plus three structured solutions of increasing
// difficulty.
type GenerateSolutions struct {
	base
	provider provider.Provider
}

// NewGenerateSolutions constructs the solution generation stage.
func NewGenerateSolutions(p provider.Provider) *GenerateSolutions {
	return &GenerateSolutions{
		base:     base{name: core.StageGenerateSolutions, label: "Generating solutions..."},
		provider: p,
	}
}

// Process implements core.Stage.
func (s *GenerateSolutions) Process(ctx context.Context, rec *core.Record) error {
	analysis, _ := rec.Result(core.StageAnalyzeProblem)
	analysisText, _ := analysis.(string)

	rendered, err := prompt.Render("generate_solutions", struct {
		Problem  string
		Analysis string
	}{Problem: rec.UserInput, Analysis: analysisText})
	if err != nil {
		return err
	}

	out, err := complete(ctx, s.provider, rec, s.name, provider.Request{
		System:      prompt.SystemSolver,
		Prompt:      rendered,
		Temperature: 0.8,
	}, func() string { return demoAnswer(rec.UserInput) })
	if err != nil {
		return err
	}

	result := SolutionsOutput{
		Answer:    out,
		Solutions: parseSolutions(out, rec.UserInput),
	}
	if err := rec.SetResult(s.name, result); err != nil {
		return err
	}
	rec.MarkProcessed(s.name)
	return nil
}

// demoAnswer joins the canned solutions into a single answer text.
func demoAnswer(problem string) string {
	var sb strings.Builder
	for _, sol := range demo.Solutions(problem) {
		fmt.Fprintf(&sb, "## %s\n\n```r\n%s\n```\n\n%s\n\n", sol.Title, sol.Code, sol.Explanation)
	}
	return sb.String()
}

// parseSolutions extracts three structured solutions from the answer text.
// The model is asked for basic/intermediate/advanced sections; until a
// stricter output contract exists the parser keys the canned scaffolding on
// the problem and attaches the raw answer to each tier.
// TODO: parse fenced code blocks out of the model answer instead of
// reusing the scaffold code.
func parseSolutions(answer, problem string) []core.Solution {
	solutions := demo.Solutions(problem)
	parts := strings.SplitN(answer, "```", 2)
	summary := strings.TrimSpace(parts[0])
	if summary != "" {
		for i := range solutions {
			solutions[i].Explanation = fmt.Sprintf("%s\n\n%s", solutions[i].Explanation, firstLines(summary, 3))
		}
	}
	return solutions
}

func firstLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}

// ValidateSolutions is a transform stage: it checks each generated solution
// for completeness and patches missing metadata instead of failing.
type ValidateSolutions struct {
	base
}

// NewValidateSolutions constructs the validation stage.
func NewValidateSolutions() *ValidateSolutions {
	return &ValidateSolutions{
		base: base{name: core.StageValidateSolutions, label: "Validating solutions..."},
	}
}

// Process implements core.Stage.
func (s *ValidateSolutions) Process(_ context.Context, rec *core.Record) error {
	raw, ok := rec.Result(core.StageGenerateSolutions)
	if !ok {
		return &core.InvariantError{Stage: s.name, Reason: "generate_solutions wrote no result"}
	}
	gen, ok := raw.(SolutionsOutput)
	if !ok {
		return &core.InvariantError{Stage: s.name, Reason: "generate_solutions result has unexpected type"}
	}

	// Patch a copy. Written results are immutable once checkpointed, so the
	// generate_solutions entry must not change under an earlier snapshot.
	checked := make([]core.Solution, len(gen.Solutions))
	copy(checked, gen.Solutions)

	fixed := 0
	for i := range checked {
		sol := &checked[i]
		if sol.Filename == "" {
			sol.Filename = fmt.Sprintf("solution_%d.R", i+1)
			fixed++
		}
		if sol.Code == "" || sol.Explanation == "" {
			rec.AddWarning(s.name, "solution %d (%s) is incomplete", i+1, sol.Title)
		}
	}

	if err := rec.SetResult(s.name, ValidationOutput{Checked: len(checked), Fixed: fixed, Solutions: checked}); err != nil {
		return err
	}
	rec.MarkProcessed(s.name)
	return nil
}
