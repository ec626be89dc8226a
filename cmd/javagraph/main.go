// Package main provides the entry point for the javagraph CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/javagraph/javagraph/cmd/javagraph/commands"
	"github.com/javagraph/javagraph/pkg/version"
)

var (
	verbose bool
	quiet   bool
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "javagraph",
		Short: "Javagraph static analysis engine for Java codebases",
		Long: `Javagraph builds a typed property graph over a Java codebase and
runs inspectors over it to convergence.

Commands:
  analyze   Run a full analysis pass and serialize the resulting graph
  query     Inspect a previously serialized graph snapshot`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")

	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "javagraph %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
