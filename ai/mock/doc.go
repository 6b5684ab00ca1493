// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Summarizer,
// and ai.Provider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic
// behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewProvider(8)
//	vector, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	embedder := mock.NewEmbedder(8)
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - Embedder: Returns normalized deterministic vectors based on text hash,
//     so identical texts embed identically and similarity is stable
//   - Summarizer: Returns a truncated prefix of the input text
//   - Provider: Aggregates mock embedder and summarizer
package mock
