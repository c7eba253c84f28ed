package stage

import (
	"github.com/avilaj/rassist/core"
	"github.com/avilaj/rassist/provider"
)

// Graphs builds the immutable stage graph registry for the three request
// types. Each graph ends in the shared finalize stage; there is no dynamic
// branching.
func Graphs(p provider.Provider) map[core.RequestType]core.Graph {
	finalize := NewFinalize()
	return map[core.RequestType]core.Graph{
		core.RequestExplain: {
			NewAnalyzeCode(p),
			NewExplainCode(p),
			finalize,
		},
		core.RequestAnswer: {
			NewAnalyzeProblem(p),
			NewGenerateSolutions(p),
			NewValidateSolutions(),
			finalize,
		},
		core.RequestTalk: {
			NewConverse(p),
			NewEnrichContext(),
			finalize,
		},
	}
}
