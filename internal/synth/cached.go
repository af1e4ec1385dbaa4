package synth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cachedReply struct {
	text string
	ok   bool
}

// CachedSynthesizer wraps a Synthesizer with an LRU keyed by method body and
// endpoint. Long-lived modes see the same bodies repeatedly while a spec is
// being edited. Errors are never cached.
type CachedSynthesizer struct {
	inner Synthesizer
	cache *lru.Cache[string, cachedReply]
}

var _ Synthesizer = (*CachedSynthesizer)(nil)

// NewCachedSynthesizer wraps inner. A non-positive size uses DefaultCacheSize.
func NewCachedSynthesizer(inner Synthesizer, size int) *CachedSynthesizer {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, cachedReply](size)
	return &CachedSynthesizer{inner: inner, cache: cache}
}

func (c *CachedSynthesizer) cacheKey(body string) string {
	sum := sha256.Sum256([]byte(body + "\x00" + c.inner.Endpoint()))
	return hex.EncodeToString(sum[:])
}

// Synthesize returns a cached reply when one exists.
func (c *CachedSynthesizer) Synthesize(ctx context.Context, methodBody string) (string, bool, error) {
	key := c.cacheKey(methodBody)
	if r, ok := c.cache.Get(key); ok {
		return r.text, r.ok, nil
	}

	text, ok, err := c.inner.Synthesize(ctx, methodBody)
	if err != nil {
		return "", false, err
	}
	c.cache.Add(key, cachedReply{text: text, ok: ok})
	return text, ok, nil
}

// Available passes through to the wrapped synthesizer.
func (c *CachedSynthesizer) Available(ctx context.Context) bool {
	return c.inner.Available(ctx)
}

// Endpoint passes through to the wrapped synthesizer.
func (c *CachedSynthesizer) Endpoint() string {
	return c.inner.Endpoint()
}

// Len returns the number of cached replies.
func (c *CachedSynthesizer) Len() int {
	return c.cache.Len()
}

// Purge drops every cached reply.
func (c *CachedSynthesizer) Purge() {
	c.cache.Purge()
}
