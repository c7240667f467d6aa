// Package llm is the chat-completion client used for answer synthesis
// and the short question paraphrase.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"docchat/internal/config"
	"docchat/internal/models"
)

// contentGenerator is the slice of the langchaingo model the client
// depends on.
type contentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Client generates grounded answers and terse question summaries.
type Client struct {
	llm contentGenerator
}

// NewClient connects to an OpenAI-compatible chat endpoint.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	llmClient, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing chat model: %w", err)
	}
	return &Client{llm: llmClient}, nil
}

// GenerateAnswer asks the model to answer question using only the
// retrieved context. An empty systemPrompt selects the default.
func (c *Client) GenerateAnswer(ctx context.Context, question, docContext, systemPrompt string) (string, error) {
	if systemPrompt == "" {
		systemPrompt = models.DefaultSystemPrompt
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: systemPrompt}},
		},
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: "CONTEXT:\n" + docContext}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: question}},
		},
	}

	resp, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(0.3))
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return contentOf(resp)
}

// Summarize produces a terse paraphrase of a question, at most five
// words, for display as the conversation resume line.
func (c *Client) Summarize(ctx context.Context, question string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: fmt.Sprintf(models.ResumePromptTemplate, question)}},
		},
	}

	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(20),
	)
	if err != nil {
		return "", fmt.Errorf("summarizing question: %w", err)
	}
	return contentOf(resp)
}

// Ping reports whether the chat endpoint answers at all.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: "ping"}},
		},
	}, llms.WithMaxTokens(1))
	if err != nil {
		log.Warn().Err(err).Msg("Chat model unreachable")
		return false
	}
	return true
}

func contentOf(resp *llms.ContentResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", errors.New("model returned no content")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
