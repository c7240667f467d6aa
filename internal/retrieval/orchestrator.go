// Package retrieval answers questions by vector search over ingested
// documents followed by language-model synthesis.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"docchat/internal/models"
)

type queryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Ping(ctx context.Context) bool
}

type vectorSearcher interface {
	Search(ctx context.Context, queryVector []float32, areas []string, topK int, filters *models.SearchFilters) (models.QueryResult, error)
	Ping(ctx context.Context) bool
}

type answerGenerator interface {
	GenerateAnswer(ctx context.Context, question, docContext, systemPrompt string) (string, error)
}

const defaultTopK = 10

// Options tune a single question.
type Options struct {
	Areas        []string
	TopK         int
	Filters      *models.SearchFilters
	SystemPrompt string
}

// Orchestrator runs the retrieval pipeline. It never returns an error
// to its caller: internal failures degrade to an apologetic answer with
// the cause recorded on the Answer itself.
type Orchestrator struct {
	embedder queryEmbedder
	index    vectorSearcher
	model    answerGenerator
}

func NewOrchestrator(embedder queryEmbedder, index vectorSearcher, model answerGenerator) *Orchestrator {
	return &Orchestrator{embedder: embedder, index: index, model: model}
}

// Answer embeds the question, searches the index and synthesizes a
// grounded answer. Zero hits yield the canned no-results answer, not a
// degraded one.
func (o *Orchestrator) Answer(ctx context.Context, question string, opts Options) models.Answer {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}

	queryVector, err := o.embedder.Embed(ctx, question)
	if err != nil {
		return o.degraded(question, "embedding question", err)
	}

	searchResult, err := o.index.Search(ctx, queryVector, opts.Areas, opts.TopK, opts.Filters)
	if err != nil {
		return o.degraded(question, "searching vector index", err)
	}

	if len(searchResult.Documents) == 0 {
		log.Info().Str("question", question).Msg("No relevant documents found")
		return models.Answer{
			Question:    question,
			Answer:      models.NoResultsAnswer,
			QueryResult: searchResult,
		}
	}

	docContext := buildContext(searchResult.Documents)
	answer, err := o.model.GenerateAnswer(ctx, question, docContext, opts.SystemPrompt)
	if err != nil {
		return o.degraded(question, "generating answer", err)
	}

	return models.Answer{
		Question:            question,
		Answer:              strings.TrimSpace(answer),
		QueryResult:         searchResult,
		ContextUsed:         docContext,
		TotalDocumentsFound: len(searchResult.Documents),
	}
}

// HealthCheck probes the embedding provider and the vector index
// concurrently.
func (o *Orchestrator) HealthCheck(ctx context.Context) models.HealthStatus {
	var (
		wg     sync.WaitGroup
		status models.HealthStatus
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		status.Embeddings = o.embedder.Ping(ctx)
	}()
	go func() {
		defer wg.Done()
		status.VectorIndex = o.index.Ping(ctx)
	}()
	wg.Wait()

	status.Overall = status.Embeddings && status.VectorIndex
	return status
}

func (o *Orchestrator) degraded(question, step string, err error) models.Answer {
	log.Error().Err(err).Str("step", step).Str("question", question).Msg("Retrieval failed")
	return models.Answer{
		Question:   question,
		Answer:     models.ProcessingErrorAnswer,
		Degraded:   true,
		Diagnostic: fmt.Sprintf("%s: %v", step, err),
	}
}

// buildContext labels each hit with its source and page so the model
// can cite them.
func buildContext(documents []models.DocumentRecord) string {
	lines := make([]string, 0, len(documents))
	for _, doc := range documents {
		lines = append(lines, fmt.Sprintf("Document %s (Page %s): %s", doc.Source, doc.Page, doc.Text))
	}
	return strings.Join(lines, "\n\n")
}
