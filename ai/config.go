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


package ai

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// SummaryHost is the base URL for the summary generation service API.
	SummaryHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// SummaryModel is the model identifier to use for summary generation.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	SummaryModel string

	// EmbeddingDimension is the dimensionality of vectors produced by the
	// embedding model. Must match the vector index configuration.
	// Default: 384
	EmbeddingDimension int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithSummaryHost sets the summary service host URL.
func WithSummaryHost(host string) ConfigOption {
	return func(c *Config) {
		c.SummaryHost = host
	}
}

// WithHost sets both embedding and summary hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.SummaryHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithSummaryModel sets the summary model identifier.
func WithSummaryModel(model string) ConfigOption {
	return func(c *Config) {
		c.SummaryModel = model
	}
}

// WithEmbeddingDimension sets the expected embedding dimensionality.
func WithEmbeddingDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingDimension = dim
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services. Both services use the same host by default.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:      defaultHost,
		SummaryHost:        defaultHost,
		EmbeddingModel:     "embeddinggemma",
		SummaryModel:       "qwen2.5:3b",
		EmbeddingDimension: 384,
	}
}

// NewConfig creates a Config with the default values and applies the provided
// options. This is the recommended way to create a Config with custom settings.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/") + "/v1"
	}
	if c.SummaryHost != "" && !strings.HasSuffix(c.SummaryHost, "/v1") {
		c.SummaryHost = strings.TrimSuffix(c.SummaryHost, "/") + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.SummaryHost == "" {
		return errors.New("ai config: SummaryHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.SummaryModel == "" {
		return errors.New("ai config: SummaryModel is required")
	}
	if c.EmbeddingDimension <= 0 {
		return errors.New("ai config: EmbeddingDimension must be positive")
	}
	return nil
}

// Key returns a canonical identity for this configuration. Two configs with
// the same key resolve to the same cached provider instance.
func (c *Config) Key() string {
	c.Normalize()
	return fmt.Sprintf("%s|%s|%s|%s|%d",
		c.EmbeddingHost, c.EmbeddingModel, c.SummaryHost, c.SummaryModel, c.EmbeddingDimension)
}
