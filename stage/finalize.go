package stage

import (
	"context"

	"github.com/avilaj/rassist/core"
)

// Finalize is the shared terminal stage of every graph. It marks the record
// complete, selects the user-facing payload for the record's request type
// and strips internal diagnostics from it.
type Finalize struct {
	base
}

// NewFinalize constructs the terminal stage.
func NewFinalize() *Finalize {
	return &Finalize{
		base: base{name: core.StageFinalize, label: "Finalizing..."},
	}
}

// Process implements core.Stage.
func (s *Finalize) Process(_ context.Context, rec *core.Record) error {
	payload := map[string]any{"demo": rec.Demo}

	switch rec.RequestType {
	case core.RequestExplain:
		explanation, ok := rec.Result(core.StageExplainCode)
		if !ok {
			return &core.InvariantError{Stage: s.name, Reason: "explain_code wrote no result"}
		}
		payload["explanation"] = explanation
		if analysis, ok := rec.Result(core.StageAnalyzeCode); ok {
			payload["analysis"] = analysis
		}

	case core.RequestAnswer:
		raw, ok := rec.Result(core.StageGenerateSolutions)
		if !ok {
			return &core.InvariantError{Stage: s.name, Reason: "generate_solutions wrote no result"}
		}
		gen, ok := raw.(SolutionsOutput)
		if !ok {
			return &core.InvariantError{Stage: s.name, Reason: "generate_solutions result has unexpected type"}
		}
		payload["answer_result"] = gen.Answer
		solutions := gen.Solutions
		if raw, ok := rec.Result(core.StageValidateSolutions); ok {
			if validated, ok := raw.(ValidationOutput); ok && len(validated.Solutions) > 0 {
				solutions = validated.Solutions
			}
		}
		payload["solutions"] = solutions

	case core.RequestTalk:
		reply, ok := rec.Result(core.StageConverse)
		if !ok {
			return &core.InvariantError{Stage: s.name, Reason: "converse wrote no result"}
		}
		payload["response"] = reply

	default:
		return &core.InvariantError{Stage: s.name, Reason: "unregistered request type " + rec.RequestType.String()}
	}

	if err := rec.SetResult(s.name, payload); err != nil {
		return err
	}
	rec.MarkProcessed(s.name)
	rec.Complete = true
	return nil
}

// Payload returns the finalized user-facing payload from a completed record.
func Payload(rec *core.Record) (map[string]any, bool) {
	raw, ok := rec.Result(core.StageFinalize)
	if !ok {
		return nil, false
	}
	payload, ok := raw.(map[string]any)
	return payload, ok
}
