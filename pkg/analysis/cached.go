package analysis

import (
	"slices"

	bleveanalysis "github.com/blevesearch/bleve/v2/analysis"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultTokenCacheSize is the number of analyzed inputs kept by NewCached.
const DefaultTokenCacheSize = 4096

// Cached memoises Analyze results. Query builders analyze the same short
// inputs repeatedly, which makes a small LRU worthwhile.
type Cached struct {
	inner Analyzer
	cache *lru.Cache[string, []string]
}

// NewCached wraps inner with an LRU token cache of the given size.
func NewCached(inner Analyzer, size int) *Cached {
	if size <= 0 {
		size = DefaultTokenCacheSize
	}
	cache, _ := lru.New[string, []string](size)
	return &Cached{inner: inner, cache: cache}
}

func (c *Cached) Name() string { return c.inner.Name() }

func (c *Cached) Analyze(field, text string) []string {
	key := field + "\x00" + text
	if tokens, ok := c.cache.Get(key); ok {
		return slices.Clone(tokens)
	}
	tokens := c.inner.Analyze(field, text)
	c.cache.Add(key, tokens)
	return slices.Clone(tokens)
}

// Len returns the number of cached entries.
func (c *Cached) Len() int { return c.cache.Len() }

func (c *Cached) engine() bleveanalysis.Analyzer {
	if ea, ok := c.inner.(engineAnalyzer); ok {
		return ea.engine()
	}
	return &fieldAdapter{inner: c.inner}
}
