package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgallion1/lexdoc/internal/domain"
	"github.com/dgallion1/lexdoc/internal/parser"
	"github.com/dgallion1/lexdoc/internal/pipeline"
	"github.com/spf13/cobra"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyse a document and index it",
	Long: `Extracts and classifies the file, runs the risk analysis, simplification and
summary, and stores its chunks in the index so later "ask" calls can use them.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full report as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !parser.IsSupportedExtension(path) {
		return fmt.Errorf("unsupported file type %q (supported: %s)",
			filepath.Ext(path), strings.Join(slices.Sorted(maps.Keys(parser.SupportedExtensions)), ", "))
	}

	a, _, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > a.Config.MaxUploadBytes {
		return fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), a.Config.MaxUploadBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	report, err := a.Pipeline.Ingest(cmd.Context(), pipeline.RawDocument{Filename: filepath.Base(path), Data: data})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(out, report)
	return nil
}

func printReport(w io.Writer, r pipeline.Report) {
	doc := r.Document
	fmt.Fprintf(w, "Document:   %s (%s)\n", doc.Filename, doc.ID)
	fmt.Fprintf(w, "Type:       %s\n", doc.Type.Label())
	fmt.Fprintf(w, "Words:      %d (~%d min read)\n", doc.Stats.WordCount, doc.Stats.ReadingMinutes)
	fmt.Fprintf(w, "Risk score: %d/%d (%s)\n\n", r.Analysis.RiskScore, domain.MaxRiskScore, r.RiskLevel)

	fmt.Fprintln(w, "Summary")
	fmt.Fprintln(w, r.Analysis.Summary)
	fmt.Fprintln(w)

	if len(r.Analysis.RiskFactors) > 0 {
		fmt.Fprintln(w, "Risks")
		for _, f := range r.Analysis.RiskFactors {
			fmt.Fprintf(w, "  [%s] %s: %s\n", strings.ToUpper(string(f.Severity)), f.Category, f.ClauseText)
			if f.Explanation != "" {
				fmt.Fprintf(w, "      %s\n", f.Explanation)
			}
			if f.Suggestion != "" {
				fmt.Fprintf(w, "      Suggestion: %s\n", f.Suggestion)
			}
		}
		fmt.Fprintln(w)
	}
	if r.Analysis.OverallAssessment != "" {
		fmt.Fprintf(w, "Assessment: %s\n\n", r.Analysis.OverallAssessment)
	}

	if len(r.Analysis.KeyPoints) > 0 {
		fmt.Fprintln(w, "Key points")
		for _, p := range r.Analysis.KeyPoints {
			fmt.Fprintf(w, "  - %s\n", p)
		}
		fmt.Fprintln(w)
	}

	if len(r.KeyDates) > 0 {
		fmt.Fprintln(w, "Dates")
		for _, d := range r.KeyDates {
			fmt.Fprintf(w, "  %s: %s\n", d.Date, d.Context)
		}
		fmt.Fprintln(w)
	}
}
