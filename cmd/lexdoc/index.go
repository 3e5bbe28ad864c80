package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/lexdoc/internal/domain"
	"github.com/dgallion1/lexdoc/internal/index"
	"github.com/dgallion1/lexdoc/internal/pipeline"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [doc-id] [question]",
	Short: "Answer a question about an indexed document",
	Long: `Answers from the document's most relevant indexed chunks. The document must
have been analysed earlier with the same index.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

var removeCmd = &cobra.Command{
	Use:   "remove [doc-id]",
	Short: "Purge a document from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(askCmd, removeCmd, statsCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	id := args[0]
	question := strings.TrimSpace(strings.Join(args[1:], " "))
	if question == "" {
		return pipeline.ErrEmptyQuestion
	}

	a, log, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := askIndex(cmd.Context(), a.Index, a.Analyzer, log, id, question, a.Config.ContextChunks)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

type answerer interface {
	Answer(ctx context.Context, question, excerpts string, docType domain.DocumentType) string
}

// askIndex answers from one search of the document's chunks. The library
// does not outlive the process, so the document type comes from the index
// metadata.
func askIndex(ctx context.Context, ix *index.Index, an answerer, log *slog.Logger, id, question string, k int) (string, error) {
	hits := ix.SearchDocument(ctx, id, question, k)
	if len(hits) == 0 {
		return "", fmt.Errorf("%s: %w", id, pipeline.ErrNotFound)
	}
	docType := domain.TypeOther
	if t, ok := domain.ParseDocumentType(hits[0].Metadata[pipeline.MetaDocumentType]); ok {
		docType = t
	}

	excerpts := ix.JoinRelevant(hits)
	log.Debug("retrieved context", "document_id", id, "hits", len(hits), "bytes", len(excerpts))
	return an.Answer(ctx, question, excerpts, docType), nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	a, _, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Index.Remove(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	a, _, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.Index.Stats(cmd.Context())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
