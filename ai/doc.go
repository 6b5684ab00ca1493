// Package ai defines the embedding and summary interfaces consumed by the
// ingestion core, their configuration, and a per-process provider cache.
// Concrete implementations live in subpackages: openai for OpenAI-compatible
// services, mock for deterministic test doubles.
package ai
