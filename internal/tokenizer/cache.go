package tokenizer

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fractalmind-ai/tokenizerd/internal/fingerprint"
)

// LoadError reports a failed tokenizer load, carrying the offending source.
type LoadError struct {
	Source Source
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load tokenizer from %q: %v", e.Source.Value, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadFunc loads an encoder from a source. With localOnly set the load must
// fail rather than touch the network.
type LoadFunc func(ctx context.Context, source Source, localOnly bool) (Encoder, error)

// Entry is the cache's published view of the resident tokenizer. Entries are
// replaced wholesale; a visible entry always carries a fresh fingerprint.
type Entry struct {
	Encoder     Encoder
	Source      Source
	LocalOnly   bool
	Fingerprint string
}

// Cache memoizes at most one loaded tokenizer, keyed by the resolved
// (source, localOnly) pair. There is no TTL and no eviction beyond full
// replacement when the key changes.
type Cache struct {
	resolver Resolver
	load     LoadFunc
	logger   zerolog.Logger

	mu    sync.Mutex
	entry *Entry
}

// NewCache builds a cache around a resolver and a load function.
func NewCache(resolver Resolver, load LoadFunc, logger zerolog.Logger) *Cache {
	return &Cache{
		resolver: resolver,
		load:     load,
		logger:   logger,
	}
}

// Get returns the tokenizer for the resolved source, loading it only when
// the resolved key differs from the resident entry.
//
// The whole check/load/fingerprint/publish sequence runs as one critical
// section: loading is slow, but the key rarely changes, and a coarse lock
// guarantees no caller ever observes a half-constructed entry. A failed load
// leaves the previous entry untouched.
func (c *Cache) Get(ctx context.Context, override string) (Entry, error) {
	source, localOnly := c.resolver.Resolve(override)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry != nil && c.entry.Source == source && c.entry.LocalOnly == localOnly {
		return *c.entry, nil
	}

	encoder, loadedSource, loadedLocalOnly, err := c.loadWithFallback(ctx, source, localOnly, override)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		Encoder:     encoder,
		Source:      loadedSource,
		LocalOnly:   loadedLocalOnly,
		Fingerprint: fingerprint.Backend(encoder.BackendJSON()),
	}
	c.entry = &entry

	c.logger.Info().
		Str("source", entry.Source.Value).
		Bool("local_only", entry.LocalOnly).
		Str("fingerprint", entry.Fingerprint).
		Msg("tokenizer loaded")
	return entry, nil
}

// loadWithFallback attempts the resolved source first. When a local or
// local-only load fails, nothing globally forces local mode, and the caller
// supplied an explicit override, it retries that override with local-only
// relaxed. A stale local cache directory must not permanently break the
// service while network fallback is legitimate.
func (c *Cache) loadWithFallback(ctx context.Context, source Source, localOnly bool, override string) (Encoder, Source, bool, error) {
	encoder, err := c.load(ctx, source, localOnly)
	if err == nil {
		return encoder, source, localOnly, nil
	}

	if (source.Local || localOnly) && !c.resolver.ForceLocalOnly && override != "" {
		c.logger.Warn().
			Err(err).
			Str("source", source.Value).
			Str("fallback", override).
			Msg("tokenizer load failed, retrying against override repo")

		fallback := Source{Value: override}
		encoder, fallbackErr := c.load(ctx, fallback, false)
		if fallbackErr != nil {
			return nil, Source{}, false, &LoadError{Source: fallback, Err: fallbackErr}
		}
		return encoder, fallback, false, nil
	}

	return nil, Source{}, false, &LoadError{Source: source, Err: err}
}
