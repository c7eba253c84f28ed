package stage

import (
	"context"

	"github.com/avilaj/rassist/core"
	"github.com/avilaj/rassist/demo"
	"github.com/avilaj/rassist/prompt"
	"github.com/avilaj/rassist/provider"
)

// AnalyzeCode is the first stage of the explain pipeline. It produces a
// structural and quality analysis of the submitted code.
type AnalyzeCode struct {
	base
	provider provider.Provider
}

// NewAnalyzeCode constructs the code analysis stage.
func NewAnalyzeCode(p provider.Provider) *AnalyzeCode {
	return &AnalyzeCode{
		base:     base{name: core.StageAnalyzeCode, label: "Analyzing code structure..."},
		provider: p,
	}
}

// Process implements core.Stage.
func (s *AnalyzeCode) Process(ctx context.Context, rec *core.Record) error {
	rendered, err := prompt.Render("analyze_code", struct{ Code string }{Code: rec.UserInput})
	if err != nil {
		return err
	}

	out, err := complete(ctx, s.provider, rec, s.name, provider.Request{
		System:      prompt.SystemAnalyzer,
		Prompt:      rendered,
		Temperature: 0.3,
	}, func() string { return demo.Analysis(rec.UserInput) })
	if err != nil {
		return err
	}

	if err := rec.SetResult(s.name, out); err != nil {
		return err
	}
	rec.MarkProcessed(s.name)
	return nil
}

// ExplainCode is the second stage of the explain pipeline. It turns the
// code plus the prior analysis into a student-facing explanation.
type ExplainCode struct {
	base
	provider provider.Provider
}

// NewExplainCode constructs the explanation stage.
func NewExplainCode(p provider.Provider) *ExplainCode {
	return &ExplainCode{
		base:     base{name: core.StageExplainCode, label: "Generating detailed explanation..."},
		provider: p,
	}
}

// Process implements core.Stage.
func (s *ExplainCode) Process(ctx context.Context, rec *core.Record) error {
	analysis, _ := rec.Result(core.StageAnalyzeCode)
	analysisText, _ := analysis.(string)

	rendered, err := prompt.Render("explain_code", struct {
		Code     string
		Analysis string
	}{Code: rec.UserInput, Analysis: analysisText})
	if err != nil {
		return err
	}

	out, err := complete(ctx, s.provider, rec, s.name, provider.Request{
		System:      prompt.SystemExplainer,
		Prompt:      rendered,
		Temperature: 0.7,
	}, func() string { return demo.Explanation(rec.UserInput) })
	if err != nil {
		return err
	}

	if err := rec.SetResult(s.name, out); err != nil {
		return err
	}
	rec.MarkProcessed(s.name)
	return nil
}
