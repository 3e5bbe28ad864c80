// Package index stores document chunks with embeddings and answers
// similarity queries filtered by metadata.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/lexdoc/internal/chunker"
	"github.com/dgallion1/lexdoc/internal/metrics"
)

// Metadata keys every record carries.
const (
	MetaDocumentID = "document_id"
	MetaChunkID    = "chunk_id"
	MetaChunkType  = "chunk_type"
	MetaStart      = "start"
	MetaEnd        = "end"
	MetaTokens     = "tokens"
)

// Defaults for searches that do not specify a size.
const (
	DefaultSearchK      = 3
	DefaultContextLimit = 5
)

// DefaultEmbedBatchSize bounds the texts sent in one embedding request.
const DefaultEmbedBatchSize = 128

// DefaultRelevanceThreshold is the cosine distance a record must stay below
// to count as QA context.
const DefaultRelevanceThreshold = 0.8

// ErrEmptyDocument is returned by Add when the text yields no chunks.
var ErrEmptyDocument = errors.New("document has no indexable text")

// Embedder turns texts into fixed-dimension vectors, one per input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Record is one stored chunk.
type Record struct {
	ID         string
	DocumentID string
	Content    string
	Embedding  []float32
	Metadata   map[string]string
}

// Result is a ranked search hit. Distance is cosine distance; lower is closer.
type Result struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Distance float64           `json:"distance"`
}

// Store persists records for one named collection.
type Store interface {
	// ReplaceDocument atomically swaps all records of documentID for records.
	ReplaceDocument(ctx context.Context, documentID string, records []Record) error
	Query(ctx context.Context, vector []float32, k int, filter *Filter) ([]Result, error)
	// DeleteDocument returns the number of removed records.
	DeleteDocument(ctx context.Context, documentID string) (int, error)
	Count(ctx context.Context) (int, error)
	Collection() string
	Location() string
	Close() error
}

// Options configures an Index.
type Options struct {
	Chunk              chunker.Config
	RelevanceThreshold float64
	// EmbedTimeout applies to each embedding request.
	EmbedTimeout       time.Duration
	EmbedBatchSize     int
}

// Stats describes the backing collection.
type Stats struct {
	TotalRecords int    `json:"total_records"`
	Collection   string `json:"collection"`
	Location     string `json:"location"`
}

// Index chunks, embeds and stores documents. Calls for the same document
// are serialized; calls for different documents run concurrently.
type Index struct {
	store    Store
	embedder Embedder
	opts     Options
	log      *slog.Logger
	metrics  *metrics.Metrics
	locks    *keyedMutex
}

// New creates an Index. Zero options fall back to package defaults.
func New(store Store, embedder Embedder, opts Options, log *slog.Logger, m *metrics.Metrics) *Index {
	if opts.Chunk.ChunkSize <= 0 {
		opts.Chunk = chunker.DefaultConfig()
	}
	if opts.RelevanceThreshold <= 0 {
		opts.RelevanceThreshold = DefaultRelevanceThreshold
	}
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = 30 * time.Second
	}
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = DefaultEmbedBatchSize
	}
	return &Index{
		store:    store,
		embedder: embedder,
		opts:     opts,
		log:      log.With("component", "index", "collection", store.Collection()),
		metrics:  m,
		locks:    newKeyedMutex(),
	}
}

// Add chunks text and stores one record per chunk under
// "{documentID}_{index}". Existing records of the document are replaced only
// after every chunk has been embedded.
func (ix *Index) Add(ctx context.Context, documentID, text string, metadata map[string]string) (err error) {
	defer func() { ix.metrics.IndexOp("add", err) }()

	unlock := ix.locks.Lock(documentID)
	defer unlock()

	log := ix.log.With("document_id", documentID)

	chunks, err := chunker.Split(text, ix.opts.Chunk)
	if err != nil {
		log.Error("chunking failed", "error", err)
		return fmt.Errorf("chunk document: %w", err)
	}
	if len(chunks) == 0 {
		log.Warn("nothing to index")
		return ErrEmptyDocument
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.embed(ctx, texts)
	if err != nil {
		log.Error("embedding failed", "chunks", len(chunks), "error", err)
		return fmt.Errorf("embed chunks: %w", err)
	}

	records := make([]Record, len(chunks))
	for i, c := range chunks {
		id := documentID + "_" + strconv.Itoa(c.Index)
		md := make(map[string]string, len(metadata)+6)
		for k, v := range metadata {
			md[k] = v
		}
		md[MetaDocumentID] = documentID
		md[MetaChunkID] = id
		md[MetaChunkType] = "text"
		md[MetaStart] = strconv.Itoa(c.Start)
		md[MetaEnd] = strconv.Itoa(c.End)
		md[MetaTokens] = strconv.Itoa(c.Tokens)
		records[i] = Record{
			ID:         id,
			DocumentID: documentID,
			Content:    c.Text,
			Embedding:  vectors[i],
			Metadata:   md,
		}
	}

	if err := ix.store.ReplaceDocument(ctx, documentID, records); err != nil {
		log.Error("store write failed", "error", err)
		return fmt.Errorf("store records: %w", err)
	}
	log.Info("indexed document", "chunks", len(records))
	return nil
}

// Search returns the k records closest to query. Failures are logged and
// yield no results.
func (ix *Index) Search(ctx context.Context, query string, k int, filter *Filter) []Result {
	if k <= 0 {
		k = DefaultSearchK
	}
	if docID, ok := filter.documentScope(); ok {
		unlock := ix.locks.Lock(docID)
		defer unlock()
	}

	results, err := ix.search(ctx, query, k, filter)
	ix.metrics.IndexOp("search", err)
	if err != nil {
		ix.log.Error("search failed", "filter", filter.String(), "error", err)
		return nil
	}
	return results
}

func (ix *Index) search(ctx context.Context, query string, k int, filter *Filter) ([]Result, error) {
	vectors, err := ix.embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return ix.store.Query(ctx, vectors[0], k, filter)
}

// SearchDocument searches within one document.
func (ix *Index) SearchDocument(ctx context.Context, documentID, query string, k int) []Result {
	return ix.Search(ctx, query, k, Eq(MetaDocumentID, documentID))
}

// FindSimilar searches every document except excludeDocumentID.
func (ix *Index) FindSimilar(ctx context.Context, clause, excludeDocumentID string, k int) []Result {
	var filter *Filter
	if excludeDocumentID != "" {
		filter = Ne(MetaDocumentID, excludeDocumentID)
	}
	return ix.Search(ctx, clause, k, filter)
}

// Context joins, in rank order, the document's chunks whose distance to
// query is below the relevance threshold. It returns "" when none qualify.
func (ix *Index) Context(ctx context.Context, documentID, query string, maxChunks int) string {
	if maxChunks <= 0 {
		maxChunks = DefaultContextLimit
	}
	return ix.JoinRelevant(ix.SearchDocument(ctx, documentID, query, maxChunks))
}

// JoinRelevant joins the contents of results below the relevance threshold,
// keeping their order.
func (ix *Index) JoinRelevant(results []Result) string {
	var parts []string
	for _, r := range results {
		if r.Distance < ix.opts.RelevanceThreshold {
			parts = append(parts, r.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Remove deletes every record of documentID. Removing an absent document
// succeeds.
func (ix *Index) Remove(ctx context.Context, documentID string) (err error) {
	defer func() { ix.metrics.IndexOp("remove", err) }()

	unlock := ix.locks.Lock(documentID)
	defer unlock()

	n, err := ix.store.DeleteDocument(ctx, documentID)
	if err != nil {
		ix.log.Error("remove failed", "document_id", documentID, "error", err)
		return fmt.Errorf("delete records: %w", err)
	}
	ix.log.Info("removed document", "document_id", documentID, "records", n)
	return nil
}

// Stats reports the collection size and location.
func (ix *Index) Stats(ctx context.Context) (Stats, error) {
	n, err := ix.store.Count(ctx)
	if err != nil {
		ix.log.Error("count failed", "error", err)
		return Stats{}, fmt.Errorf("count records: %w", err)
	}
	return Stats{
		TotalRecords: n,
		Collection:   ix.store.Collection(),
		Location:     ix.store.Location(),
	}, nil
}

// Close releases the store.
func (ix *Index) Close() error {
	return ix.store.Close()
}

// embed sends texts in batches of at most EmbedBatchSize, each under its
// own timeout.
func (ix *Index) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for batch := range slices.Chunk(texts, ix.opts.EmbedBatchSize) {
		out, err := ix.embedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch at %d of %d: %w", len(vectors), len(texts), err)
		}
		vectors = append(vectors, out...)
	}
	return vectors, nil
}

func (ix *Index) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, ix.opts.EmbedTimeout)
	defer cancel()

	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
