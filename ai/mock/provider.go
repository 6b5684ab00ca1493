// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package mock

import "github.com/poiesic/corpus/ai"

// Provider is a test double for ai.Provider.
// It aggregates mock embedder and summarizer instances.
type Provider struct {
	embedder   *Embedder
	summarizer *Summarizer
}

// NewProvider creates a new mock provider with default mock services
// producing vectors of the given dimensionality.
//
// Returns ai.Provider interface for consistency with production constructors.
// Use GetEmbedder()/GetSummarizer() to access concrete types for test assertions.
func NewProvider(dim int) ai.Provider {
	return &Provider{
		embedder:   NewEmbedder(dim),
		summarizer: NewSummarizer(),
	}
}

// NewProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewProviderWithServices(embedder *Embedder, summarizer *Summarizer) ai.Provider {
	return &Provider{
		embedder:   embedder,
		summarizer: summarizer,
	}
}

// Embedder returns the mock embedder.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Summarizer returns the mock summarizer.
func (p *Provider) Summarizer() ai.Summarizer {
	return p.summarizer
}

// Close is a no-op for mock provider.
func (p *Provider) Close() error {
	return nil
}

// GetEmbedder returns the underlying mock embedder for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *Provider) GetEmbedder() *Embedder {
	return p.embedder
}

// GetSummarizer returns the underlying mock summarizer for test assertions.
func (p *Provider) GetSummarizer() *Summarizer {
	return p.summarizer
}
