package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rassist",
	Short: "rassist serves the R assistant pipeline engine",
	Long: `rassist routes code explanation, problem solving and conversation
requests through staged pipelines and streams progress to clients over
server-sent events.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "rassist.yaml", "Path to the YAML config file")
}
