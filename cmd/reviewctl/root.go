package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"legalreview-backend/internal/shared/telemetry"
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "reviewctl",
	Short: "Review legal documents from the command line",
	Long: `reviewctl analyzes a legal document with the configured provider,
optionally auto-fixes every flagged clause and missing provision, and prints
the report.

Examples:
  reviewctl analyze contract.pdf
  reviewctl analyze nda.docx --context "Mutual NDA" --autofix
  reviewctl analyze lease.txt --json > report.json
  reviewctl events tail --queue-url https://sqs.us-east-1.amazonaws.com/123/review-events`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseFlag {
			telemetry.SetOutput(os.Stderr)
			return
		}
		telemetry.SetOutput(io.Discard)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Write structured logs to stderr")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
