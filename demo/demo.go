// Package demo supplies deterministic substitute output for every
// provider-backed stage. It is activated when the completion provider
// reports itself unconfigured, so the rest of the pipeline (event
// sequencing, checkpointing, history persistence) still exercises its real
// code path. Records carrying demo output are flagged so clients can render
// a visible notice.
package demo

import (
	"fmt"

	"github.com/avilaj/rassist/core"
)

// Analysis returns the canned code-analysis report.
func Analysis(code string) string {
	return fmt.Sprintf("Demo analysis: the submitted code (%d characters) parses as a short R script. "+
		"It uses base R constructs, has low complexity and no obvious quality issues.", len(code))
}

// Explanation returns the canned code explanation.
func Explanation(code string) string {
	return fmt.Sprintf("Demo explanation: this R snippet\n\n%s\n\ncreates data and prints it. "+
		"Each statement evaluates left to right; assignment uses <- and print() displays the value. "+
		"Configure a provider API key to receive a full explanation.", code)
}

// ProblemAnalysis returns the canned problem breakdown.
func ProblemAnalysis(problem string) string {
	return fmt.Sprintf("Demo analysis of the problem %q: it asks for a standard data manipulation "+
		"in R. Inputs are a small data set; the output is a summary value or plot.", problem)
}

// Solutions returns the three canned solutions the answer pipeline always
// produces, ordered basic to advanced.
func Solutions(problem string) []core.Solution {
	return []core.Solution{
		{
			Title:       "Basic solution",
			Code:        fmt.Sprintf("# Problem: %s\n\n# Approach 1: base R\ndata <- read.csv(\"data.csv\")\nresult <- summary(data)\nprint(result)", problem),
			Explanation: "A straightforward solution for beginners using only base R functions.",
			Difficulty:  "basic",
			Packages:    []string{"base"},
			Filename:    "basic_solution.R",
		},
		{
			Title:       "Intermediate solution",
			Code:        "# Approach 2: tidyverse\nlibrary(dplyr)\nlibrary(ggplot2)\n\ndata %>%\n  filter(!is.na(value)) %>%\n  group_by(category) %>%\n  summarise(mean_val = mean(value)) %>%\n  ggplot(aes(x = category, y = mean_val)) +\n  geom_col()",
			Explanation: "A more concise solution built on the tidyverse, easier to read and extend.",
			Difficulty:  "intermediate",
			Packages:    []string{"dplyr", "ggplot2"},
			Filename:    "intermediate_solution.R",
		},
		{
			Title:       "Advanced solution",
			Code:        "# Approach 3: high performance\nlibrary(data.table)\n\nDT <- fread(\"data.csv\")\nresult <- DT[, .(mean_val = mean(value, na.rm = TRUE)), by = category]\nresult",
			Explanation: "A professional-grade solution using data.table for large inputs.",
			Difficulty:  "advanced",
			Packages:    []string{"data.table"},
			Filename:    "advanced_solution.R",
		},
	}
}

// Reply returns the canned conversational response.
func Reply(message string) string {
	return fmt.Sprintf("Demo reply to %q: I'm running without a configured language model right now, "+
		"but normally I would answer your R question here. Set an API key to enable full responses.", message)
}
