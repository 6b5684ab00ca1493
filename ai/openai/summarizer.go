package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxSummaryInput bounds how much document text is sent to the model.
const maxSummaryInput = 8000

const summarySystemPrompt = "You summarize documents. Reply with a single " +
	"paragraph of at most three sentences describing what the document is " +
	"about. Reply with the summary only, no preamble."

// Summarizer implements ai.Summarizer using OpenAI-compatible chat APIs.
type Summarizer struct {
	client llms.Model
	logger *slog.Logger
}

// newSummarizer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newSummarizer(config *ai.Config) (*Summarizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.SummaryHost),
		openai.WithToken("none"),
		openai.WithModel(config.SummaryModel),
	)
	if err != nil {
		return nil, err
	}

	return &Summarizer{
		client: client,
		logger: slog.Default().With("component", "openai-summarizer"),
	}, nil
}

// NewSummarizer creates a new summarizer using the provided configuration.
//
// Returns ai.Summarizer interface to enforce abstraction.
func NewSummarizer(config *ai.Config) (ai.Summarizer, error) {
	return newSummarizer(config)
}

// Summarize returns a brief summary of the given text.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	text = core.TruncateUTF8(text, maxSummaryInput)

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, summarySystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}

	resp, err := s.client.GenerateContent(ctx, content)
	if err != nil {
		s.logger.Error("summary generation failed", "err", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summary model returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}
