package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"legalreview-backend/internal/bootstrap"
	"legalreview-backend/internal/fixes"
	"legalreview-backend/internal/sessions"
	"legalreview-backend/internal/shared/config"
)

const cliOwner = "user:reviewctl"

var (
	analyzeContextFlag string
	analyzeAutoFixFlag bool
	analyzeJSONFlag    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a document and print the review",
	Long: `Analyze runs all five analyses on a document (PDF, DOCX, plain text or
an image) and prints the summary, flagged clauses, suggestions, missing points
and predicted outcomes. Use "-" to read plain text from stdin.

With --autofix every eligible clause and missing point is fixed in order
before the report is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeContextFlag, "context", "c", "", "Document context, e.g. \"Employment Agreement\"")
	analyzeCmd.Flags().BoolVar(&analyzeAutoFixFlag, "autofix", false, "Propose fixes for every eligible item")
	analyzeCmd.Flags().BoolVar(&analyzeJSONFlag, "json", false, "Print the review as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	in, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	in.Owner = cliOwner
	in.Context = analyzeContextFlag

	app, err := bootstrap.Build(config.Load())
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if app.DB != nil {
		defer app.DB.Close()
	}

	out := cmd.OutOrStdout()
	if !analyzeJSONFlag {
		fmt.Fprintln(out, styleMuted.Render("Analyzing "+in.FileName+"..."))
	}
	sess, err := app.Sessions.Start(ctx, in)
	if err != nil {
		return err
	}

	var summary *fixes.Summary
	if analyzeAutoFixFlag {
		sum, err := app.Sessions.AutoFix(ctx, cliOwner, sess.ID, func(s fixes.Step) {
			if !analyzeJSONFlag {
				fmt.Fprintln(out, renderStep(s))
			}
		})
		if err != nil {
			return err
		}
		summary = &sum
	}

	view := sess.View()
	if analyzeJSONFlag {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			sessions.View
			AutoFix *fixes.Summary `json:"autoFix,omitempty"`
		}{view, summary})
	}
	fmt.Fprint(out, renderReport(view, summary))
	return nil
}

func readInput(stdin io.Reader, path string) (sessions.StartInput, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return sessions.StartInput{}, fmt.Errorf("read stdin: %w", err)
		}
		return sessions.StartInput{FileName: "stdin.txt", Text: string(data)}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sessions.StartInput{}, fmt.Errorf("read document: %w", err)
	}
	return sessions.StartInput{FileName: filepath.Base(path), Data: data}, nil
}
