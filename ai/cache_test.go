package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	closed bool
}

func (p *stubProvider) Embedder() Embedder     { return nil }
func (p *stubProvider) Summarizer() Summarizer { return nil }
func (p *stubProvider) Close() error           { p.closed = true; return nil }

func TestCache_SingleInstancePerConfig(t *testing.T) {
	created := 0
	cache := NewCache(func(config *Config) (Provider, error) {
		created++
		return &stubProvider{}, nil
	})

	first, err := cache.Provider(NewConfig())
	require.NoError(t, err)
	second, err := cache.Provider(NewConfig())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, created)
}

func TestCache_DistinctConfigs(t *testing.T) {
	cache := NewCache(func(config *Config) (Provider, error) {
		return &stubProvider{}, nil
	})

	a, err := cache.Provider(NewConfig())
	require.NoError(t, err)
	b, err := cache.Provider(NewConfig(WithEmbeddingModel("other")))
	require.NoError(t, err)

	assert.NotSame(t, a, b)
}

func TestCache_Invalidate(t *testing.T) {
	created := 0
	cache := NewCache(func(config *Config) (Provider, error) {
		created++
		return &stubProvider{}, nil
	})

	first, err := cache.Provider(NewConfig())
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate())
	assert.True(t, first.(*stubProvider).closed)

	// A stale provider is never served after invalidation
	second, err := cache.Provider(NewConfig())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, created)
}

func TestCache_InvalidConfig(t *testing.T) {
	cache := NewCache(func(config *Config) (Provider, error) {
		return &stubProvider{}, nil
	})

	cfg := NewConfig()
	cfg.EmbeddingHost = ""
	cfg.SummaryHost = ""
	_, err := cache.Provider(cfg)
	assert.Error(t, err)
}
