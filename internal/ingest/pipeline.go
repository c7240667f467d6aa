// Package ingest turns extracted document pages into vectors persisted
// in the vector index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"docchat/internal/embedding"
	"docchat/internal/models"
)

var (
	// ErrNoText is returned when no page carries extractable text.
	ErrNoText = errors.New("no text content found in document")

	// ErrChunkMismatch is returned when a page's chunk and embedding
	// counts diverge.
	ErrChunkMismatch = errors.New("chunk and embedding counts differ")
)

// documentProcessor chunks and embeds one page of text.
type documentProcessor interface {
	ProcessDocument(ctx context.Context, text string, opts embedding.ProcessOptions) ([]string, [][]float32, error)
}

// vectorUpserter persists embedding vectors.
type vectorUpserter interface {
	Upsert(ctx context.Context, vectors []models.EmbeddingVector) error
}

// Pipeline orchestrates chunking, embedding, metadata assembly and the
// final vector upsert for one document. Failures are fatal and
// propagate; already-written batches are not rolled back.
type Pipeline struct {
	embedder     documentProcessor
	index        vectorUpserter
	maxChunkSize int
	overlapSize  int
}

func NewPipeline(embedder documentProcessor, index vectorUpserter, maxChunkSize, overlapSize int) *Pipeline {
	return &Pipeline{
		embedder:     embedder,
		index:        index,
		maxChunkSize: maxChunkSize,
		overlapSize:  overlapSize,
	}
}

// Process ingests one document's pages. documentID is assumed valid
// (the boundary layer validates the UUID). Chunk indices increase
// globally across pages; totalChunks is stamped on every vector once
// the final count is known, then everything is upserted in one call.
func (p *Pipeline) Process(ctx context.Context, pages []models.Page, filename, documentID string, meta models.UploadMetadata) (models.UploadResult, error) {
	start := time.Now()

	result, err := p.process(ctx, pages, filename, documentID, meta)
	elapsed := time.Since(start)
	if err != nil {
		log.Error().
			Err(err).
			Str("documentId", documentID).
			Str("filename", filename).
			Dur("processingTime", elapsed).
			Msg("Document ingestion failed")
		return models.UploadResult{}, fmt.Errorf("processing document %s: %w", filename, err)
	}

	result.ProcessingTime = elapsed
	log.Info().
		Str("documentId", documentID).
		Int("chunks", result.ChunksProcessed).
		Int("pages", result.TotalPages).
		Dur("processingTime", elapsed).
		Msg("Document ingested")
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, pages []models.Page, filename, documentID string, meta models.UploadMetadata) (models.UploadResult, error) {
	uploadDate := time.Now().UTC().Format(time.RFC3339)

	var vectors []models.EmbeddingVector
	chunkIndex := 0
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}

		chunks, embeds, err := p.embedder.ProcessDocument(ctx, page.Text, embedding.ProcessOptions{
			MaxChunkSize: p.maxChunkSize,
			OverlapSize:  p.overlapSize,
		})
		if err != nil {
			return models.UploadResult{}, fmt.Errorf("page %d: %w", page.PageNumber, err)
		}
		if len(chunks) != len(embeds) {
			return models.UploadResult{}, fmt.Errorf("page %d: %w: %d chunks, %d embeddings",
				page.PageNumber, ErrChunkMismatch, len(chunks), len(embeds))
		}

		for i, chunk := range chunks {
			vectors = append(vectors, models.EmbeddingVector{
				ID:       fmt.Sprintf("%s_chunk_%d", documentID, chunkIndex),
				Values:   embeds[i],
				Metadata: chunkMetadata(chunk, documentID, filename, uploadDate, chunkIndex, page.PageNumber, meta),
			})
			chunkIndex++
		}
	}

	if len(vectors) == 0 {
		return models.UploadResult{}, ErrNoText
	}

	// Two-phase write: the final count is only known now.
	total := strconv.Itoa(len(vectors))
	for i := range vectors {
		vectors[i].Metadata["totalChunks"] = total
	}

	if err := p.index.Upsert(ctx, vectors); err != nil {
		return models.UploadResult{}, fmt.Errorf("storing vectors: %w", err)
	}

	return models.UploadResult{
		DocumentID:      documentID,
		ChunksProcessed: len(vectors),
		Filename:        filename,
		TotalPages:      len(pages),
	}, nil
}

func chunkMetadata(chunk, documentID, filename, uploadDate string, chunkIndex, pageNumber int, meta models.UploadMetadata) map[string]string {
	page := strconv.Itoa(pageNumber)
	md := map[string]string{
		"documentId":  documentID,
		"filename":    filename,
		"chunkIndex":  strconv.Itoa(chunkIndex),
		"page":        page,
		"page_number": page,
		"text":        Sanitize(chunk),
		"uploadDate":  uploadDate,
	}
	if meta.UserID != "" {
		md["userId"] = Sanitize(meta.UserID)
	}
	putList(md, "area", meta.Area)
	putList(md, "category", meta.Category)
	putList(md, "source", meta.Source)
	putList(md, "tags", meta.Tags)
	return md
}

// putList stores a sanitized, comma-encoded value set; empty lists are
// omitted entirely.
func putList(md map[string]string, key string, values []string) {
	if len(values) == 0 {
		return
	}
	clean := make([]string, 0, len(values))
	for _, v := range values {
		if s := Sanitize(v); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) > 0 {
		md[key] = strings.Join(clean, ",")
	}
}
