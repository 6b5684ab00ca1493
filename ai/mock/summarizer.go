package mock

import (
	"context"
	"fmt"
	"strings"
)

// Summarizer is a test double for ai.Summarizer.
// It allows custom behavior injection via function fields.
type Summarizer struct {
	// SummarizeFunc is called by Summarize if set.
	// If nil, uses default truncation behavior.
	SummarizeFunc func(ctx context.Context, text string) (string, error)

	callCount int
}

// NewSummarizer creates a mock summarizer with default behavior.
func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

// Summarize produces a deterministic mock summary.
// Default behavior: the first few words of the text, prefixed so tests can
// distinguish summaries from source content.
func (m *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	m.callCount++

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, text)
	}

	words := strings.Fields(text)
	if len(words) > 10 {
		words = words[:10]
	}
	return fmt.Sprintf("Summary: %s", strings.Join(words, " ")), nil
}

// CallCount returns the number of times Summarize was called.
func (m *Summarizer) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *Summarizer) Reset() {
	m.callCount = 0
	m.SummarizeFunc = nil
}
