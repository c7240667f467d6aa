// Package vectordb adapts the chromem-go embedded vector database to
// the retrieval pipeline: filter construction, nearest-neighbor search
// and capped batch upserts.
package vectordb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"docchat/internal/config"
	"docchat/internal/models"
)

// ErrEmptyBatch is returned when Upsert is called with no vectors.
var ErrEmptyBatch = errors.New("vectors batch cannot be empty")

const (
	defaultTopK     = 5
	upsertBatchSize = 100
)

// Client wraps a chromem collection. Embeddings are always generated
// upstream, so the collection's embedding func only guards against
// accidental provider calls.
type Client struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	limiter    *rate.Limiter
}

// NewClient opens (or creates) the configured collection.
// batchesPerSecond throttles upsert batches to smooth index load.
func NewClient(cfg *config.VectorConfig, batchesPerSecond float64) (*Client, error) {
	var (
		db  *chromem.DB
		err error
	)
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("opening vector database: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, rejectEmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("creating collection %q: %w", cfg.Collection, err)
	}

	if batchesPerSecond <= 0 {
		batchesPerSecond = 10
	}
	return &Client{
		db:         db,
		collection: collection,
		name:       cfg.Collection,
		limiter:    rate.NewLimiter(rate.Limit(batchesPerSecond), 1),
	}, nil
}

func rejectEmbeddingFunc(context.Context, string) ([]float32, error) {
	return nil, errors.New("embeddings must be provided by the caller")
}

// Search runs a nearest-neighbor query and applies the in-set metadata
// predicates built from areas and filters. Results are re-sorted by
// score descending and truncated to topK.
func (c *Client) Search(ctx context.Context, queryVector []float32, areas []string, topK int, filters *models.SearchFilters) (models.QueryResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	predicates := buildPredicates(areas, filters)

	result := models.QueryResult{
		Query:          "search_query",
		IndexUsed:      c.name,
		AreasUsed:      []string{c.name},
		FiltersApplied: predicates,
	}

	count := c.collection.Count()
	if count == 0 {
		return result, nil
	}

	// chromem's where clause is exact-match only, so filtered queries
	// fetch all candidates and apply the in-set predicates here.
	nResults := topK
	if len(predicates) > 0 || nResults > count {
		nResults = count
	}

	hits, err := c.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryVector,
		NResults:       nResults,
	})
	if err != nil {
		return models.QueryResult{}, fmt.Errorf("vector search: %w", err)
	}

	documents := make([]models.DocumentRecord, 0, len(hits))
	for _, hit := range hits {
		if !matchesPredicates(hit.Metadata, predicates) {
			continue
		}
		documents = append(documents, toDocumentRecord(hit))
	}

	// The store returns sorted hits already; re-sort defensively.
	sort.SliceStable(documents, func(i, j int) bool {
		return documents[i].Score > documents[j].Score
	})
	if len(documents) > topK {
		documents = documents[:topK]
	}

	result.Documents = documents
	result.TotalResults = len(documents)
	log.Debug().
		Int("matches", len(documents)).
		Int("candidates", len(hits)).
		Str("collection", c.name).
		Msg("Vector search completed")
	return result, nil
}

// Upsert writes vectors in capped batches, sequentially. A failed
// batch aborts the remainder; earlier batches are not rolled back.
func (c *Client) Upsert(ctx context.Context, vectors []models.EmbeddingVector) error {
	if len(vectors) == 0 {
		return ErrEmptyBatch
	}

	total := (len(vectors) + upsertBatchSize - 1) / upsertBatchSize
	for i := 0; i < len(vectors); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(vectors) {
			end = len(vectors)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		docs := make([]chromem.Document, 0, end-i)
		for _, v := range vectors[i:end] {
			docs = append(docs, chromem.Document{
				ID:        v.ID,
				Content:   v.Metadata["text"],
				Metadata:  v.Metadata,
				Embedding: v.Values,
			})
		}
		if err := c.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("upserting batch %d/%d: %w", i/upsertBatchSize+1, total, err)
		}
		log.Debug().
			Int("batch", i/upsertBatchSize+1).
			Int("batches", total).
			Int("size", end-i).
			Msg("Vector batch upserted")
	}
	return nil
}

// Ping reports whether the configured collection exists and is
// reachable. It never returns an error.
func (c *Client) Ping(context.Context) bool {
	if c == nil || c.db == nil || c.collection == nil {
		return false
	}
	_, ok := c.db.ListCollections()[c.name]
	return ok
}

// buildPredicates turns the non-empty filter dimensions into in-set
// predicates. Absent dimensions are omitted entirely.
func buildPredicates(areas []string, filters *models.SearchFilters) map[string][]string {
	predicates := make(map[string][]string)
	if len(areas) > 0 {
		predicates["area"] = areas
	}
	if filters == nil {
		return predicates
	}
	if len(filters.Category) > 0 {
		predicates["category"] = filters.Category
	}
	if len(filters.Source) > 0 {
		predicates["source"] = filters.Source
	}
	if len(filters.Tags) > 0 {
		predicates["tags"] = filters.Tags
	}
	return predicates
}

// matchesPredicates checks every predicate conjunctively. Multi-valued
// metadata is comma-encoded; a predicate holds when the sets intersect.
func matchesPredicates(metadata map[string]string, predicates map[string][]string) bool {
	for key, wanted := range predicates {
		stored := strings.Split(metadata[key], ",")
		if !intersects(stored, wanted) {
			return false
		}
	}
	return true
}

func intersects(stored, wanted []string) bool {
	for _, s := range stored {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		for _, w := range wanted {
			if s == w {
				return true
			}
		}
	}
	return false
}

func toDocumentRecord(hit chromem.Result) models.DocumentRecord {
	text := hit.Content
	if text == "" {
		text = hit.Metadata["text"]
	}
	source := hit.Metadata["filename"]
	if source == "" {
		source = "unknown"
	}
	return models.DocumentRecord{
		ID:       hit.ID,
		Text:     text,
		Source:   source,
		Page:     pageInfo(hit.Metadata),
		Score:    hit.Similarity,
		ChunkID:  hit.Metadata["chunkIndex"],
		Metadata: hit.Metadata,
	}
}

// pageInfo resolves the page label from metadata, falling back to the
// alternate key and then to "N/A".
func pageInfo(metadata map[string]string) string {
	if p := metadata["page"]; p != "" {
		return p
	}
	if p := metadata["page_number"]; p != "" {
		return p
	}
	return "N/A"
}
