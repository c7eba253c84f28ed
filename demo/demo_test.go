package demo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolutions_ThreeTiers(t *testing.T) {
	sols := Solutions("compute group means")

	require.Len(t, sols, 3)
	assert.Equal(t, "basic", sols[0].Difficulty)
	assert.Equal(t, "intermediate", sols[1].Difficulty)
	assert.Equal(t, "advanced", sols[2].Difficulty)

	for _, sol := range sols {
		assert.NotEmpty(t, sol.Title)
		assert.NotEmpty(t, sol.Code)
		assert.NotEmpty(t, sol.Explanation)
		assert.NotEmpty(t, sol.Packages)
		assert.NotEmpty(t, sol.Filename)
	}

	// The problem statement is echoed into the basic solution.
	assert.Contains(t, sols[0].Code, "compute group means")
}

func TestTextFallbacksEchoInput(t *testing.T) {
	assert.Contains(t, Analysis("x <- 1"), "Demo analysis")
	assert.Contains(t, Explanation("x <- 1"), "x <- 1")
	assert.Contains(t, ProblemAnalysis("sort it"), `"sort it"`)
	assert.Contains(t, Reply("hello"), `"hello"`)
}
