package core

import "context"

// Stage names registered across the three graphs. Results in a Record are
// keyed by these names.
const (
	StageAnalyzeCode       = "analyze_code"
	StageExplainCode       = "explain_code"
	StageAnalyzeProblem    = "analyze_problem"
	StageGenerateSolutions = "generate_solutions"
	StageValidateSolutions = "validate_solutions"
	StageConverse          = "converse"
	StageEnrichContext     = "enrich_context"
	StageFinalize          = "finalize"
)

// Stage is a single named processing step. Process consumes the record,
// writes exactly one derived result under the stage's own name and appends
// the name to the processing log. A stage may call the completion provider
// (the only blocking operation in a pipeline) and may append warnings for
// recoverable issues instead of failing.
type Stage interface {
	// Name is the registered stage identifier, used as the derived-result key.
	Name() string
	// Label is the human-readable progress message shown while the stage runs.
	Label() string
	// Process mutates the record in place. A returned error halts the graph.
	Process(ctx context.Context, rec *Record) error
}

// Graph is the fixed, ordered stage list executed for one request type. The
// last stage is always the shared finalize step; the stages before it are
// the "working" stages that each get a progress frame.
type Graph []Stage

// Names returns the ordered stage names of the graph.
func (g Graph) Names() []string {
	names := make([]string, len(g))
	for i, s := range g {
		names[i] = s.Name()
	}
	return names
}

// WorkingStages reports the number of stages that receive progress frames,
// i.e. every stage except the terminal finalize step.
func (g Graph) WorkingStages() int {
	if len(g) == 0 {
		return 0
	}
	return len(g) - 1
}
