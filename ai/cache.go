package ai

import (
	"sync"
)

// Factory constructs a Provider for a validated configuration.
type Factory func(config *Config) (Provider, error)

// Cache resolves each configuration to exactly one Provider instance per
// process. It replaces hidden module-level singletons: the cache is created
// once at process start, handed to components explicitly, and torn down at
// shutdown. Changing configuration requires an explicit Invalidate; a stale
// provider is never served for a different config key.
type Cache struct {
	mu        sync.Mutex
	factory   Factory
	providers map[string]Provider
}

// NewCache creates a provider cache using the given factory.
func NewCache(factory Factory) *Cache {
	return &Cache{
		factory:   factory,
		providers: make(map[string]Provider),
	}
}

// Provider returns the cached provider for the configuration, constructing it
// on first use. Distinct configurations get distinct instances.
func (c *Cache) Provider(config *Config) (Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	key := config.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if provider, ok := c.providers[key]; ok {
		return provider, nil
	}

	provider, err := c.factory(config)
	if err != nil {
		return nil, err
	}
	c.providers[key] = provider
	return provider, nil
}

// Invalidate closes every cached provider and empties the cache. The next
// Provider call constructs fresh instances.
func (c *Cache) Invalidate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for key, provider := range c.providers {
		if err := provider.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.providers, key)
	}
	return firstErr
}
