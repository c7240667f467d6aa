// Package chat is the question-answering surface: it combines the
// retrieval answer, the resume-question paraphrase and the cached
// download links into one response.
package chat

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"docchat/internal/models"
	"docchat/internal/retrieval"
)

type answerer interface {
	Answer(ctx context.Context, question string, opts retrieval.Options) models.Answer
}

type summarizer interface {
	Summarize(ctx context.Context, question string) (string, error)
}

type documentCache interface {
	Get(id string) *models.ExternalDocument
}

// Service answers chat messages. Like the retrieval pipeline it never
// fails outright; a summarization failure only costs the resume line.
type Service struct {
	orchestrator answerer
	model        summarizer
	cache        documentCache
	systemPrompt string
	topK         int
}

func NewService(orchestrator answerer, model summarizer, cache documentCache, systemPrompt string, topK int) *Service {
	return &Service{
		orchestrator: orchestrator,
		model:        model,
		cache:        cache,
		systemPrompt: systemPrompt,
		topK:         topK,
	}
}

// ProcessMessage answers one user question. The main answer and the
// resume question run concurrently; sources are cross-referenced
// against the document cache for signed download URLs.
func (s *Service) ProcessMessage(ctx context.Context, msg models.ChatMessage) models.ChatResponse {
	var (
		wg     sync.WaitGroup
		answer models.Answer
		resume string
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		answer = s.orchestrator.Answer(ctx, msg.Message, retrieval.Options{
			Areas:        msg.Area,
			TopK:         s.topK,
			Filters:      searchFilters(msg),
			SystemPrompt: s.systemPrompt,
		})
	}()
	go func() {
		defer wg.Done()
		var err error
		resume, err = s.model.Summarize(ctx, msg.Message)
		if err != nil {
			log.Warn().Err(err).Msg("Resume question generation failed")
			resume = ""
		}
	}()
	wg.Wait()

	if answer.Degraded {
		log.Warn().
			Str("userId", msg.UserID).
			Str("diagnostic", answer.Diagnostic).
			Msg("Returning degraded answer")
	}

	return models.ChatResponse{
		Response:       answer.Answer,
		Timestamp:      time.Now(),
		Sources:        s.toSources(answer.QueryResult.Documents),
		ResumeQuestion: resume,
	}
}

// searchFilters builds the filter set from the message's non-empty
// dimensions.
func searchFilters(msg models.ChatMessage) *models.SearchFilters {
	if len(msg.Category) == 0 && len(msg.Source) == 0 && len(msg.Tags) == 0 {
		return nil
	}
	return &models.SearchFilters{
		Category: msg.Category,
		Source:   msg.Source,
		Tags:     msg.Tags,
	}
}

// toSources maps search hits to response sources, resolving each hit's
// signed URL from the cache. Uncached documents get an empty URL.
func (s *Service) toSources(documents []models.DocumentRecord) []models.Source {
	sources := make([]models.Source, 0, len(documents))
	for _, doc := range documents {
		documentID := doc.Metadata["documentId"]
		if documentID == "" {
			documentID = doc.ID
		}

		signedURL := ""
		if cached := s.cache.Get(documentID); cached != nil {
			signedURL = cached.SignedURL
		}

		sources = append(sources, models.Source{
			Page:         doc.Page,
			MatchingText: doc.Text,
			Source:       doc.Source,
			DocumentID:   documentID,
			Score:        strconv.FormatFloat(float64(doc.Score), 'f', -1, 32),
			SignedURL:    signedURL,
		})
	}
	return sources
}
