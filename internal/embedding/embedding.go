// Package embedding converts text into fixed-dimension vectors through
// an OpenAI-compatible embedding provider.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"docchat/internal/chunker"
	"docchat/internal/config"
)

var (
	// ErrEmptyInput is returned when there is no text to embed.
	ErrEmptyInput = errors.New("text cannot be empty")

	// ErrEmptyBatch is returned for an empty batch of texts.
	ErrEmptyBatch = errors.New("text batch cannot be empty")

	// ErrNoChunks is returned when chunking a document yields nothing.
	ErrNoChunks = errors.New("no valid chunks created from document")
)

// queryEmbedder is the slice of the langchaingo embedder the generator
// depends on.
type queryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator wraps an embedding provider client with input validation
// and rate-limited sequential batching.
type Generator struct {
	embedder queryEmbedder
	limiter  *rate.Limiter
}

// ProcessOptions control chunking inside ProcessDocument.
type ProcessOptions struct {
	MaxChunkSize int
	OverlapSize  int
}

// NewGenerator builds a generator backed by an OpenAI-compatible
// endpoint. callsPerSecond throttles batch embedding to stay inside
// provider rate limits.
func NewGenerator(cfg *config.LLMConfig, callsPerSecond float64) (*Generator, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing embedding provider: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return newGenerator(embedder, callsPerSecond), nil
}

func newGenerator(e queryEmbedder, callsPerSecond float64) *Generator {
	if callsPerSecond <= 0 {
		callsPerSecond = 10
	}
	return &Generator{
		embedder: e,
		limiter:  rate.NewLimiter(rate.Limit(callsPerSecond), 1),
	}
}

// Embed generates an embedding for a single text.
func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyInput
	}
	vector, err := g.embedder.EmbedQuery(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("generating embedding: %w", err)
	}
	if len(vector) == 0 {
		return nil, errors.New("embedding provider returned an empty vector")
	}
	return vector, nil
}

// EmbedBatch embeds texts one at a time to respect provider rate
// limits. The first failure aborts the batch; partial results are
// discarded.
func (g *Generator) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyBatch
	}

	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		vector, err := g.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d/%d: %w", i+1, len(texts), err)
		}
		vectors = append(vectors, vector)
	}
	log.Debug().Int("count", len(vectors)).Msg("Batch embeddings generated")
	return vectors, nil
}

// ProcessDocument chunks text and embeds every chunk. The returned
// slices always have equal length.
func (g *Generator) ProcessDocument(ctx context.Context, text string, opts ProcessOptions) ([]string, [][]float32, error) {
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = 1000
	}
	if opts.OverlapSize < 0 {
		opts.OverlapSize = 0
	}

	chunks := chunker.Chunk(text, opts.MaxChunkSize, opts.OverlapSize)
	if len(chunks) == 0 {
		return nil, nil, ErrNoChunks
	}

	vectors, err := g.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, nil, fmt.Errorf("chunk/embedding count mismatch: %d chunks, %d embeddings", len(chunks), len(vectors))
	}
	return chunks, vectors, nil
}

// Ping reports whether the embedding provider is reachable.
func (g *Generator) Ping(ctx context.Context) bool {
	if _, err := g.embedder.EmbedQuery(ctx, "ping"); err != nil {
		log.Warn().Err(err).Msg("Embedding provider unreachable")
		return false
	}
	return true
}
