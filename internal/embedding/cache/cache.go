// Package cache memoizes embeddings by exact text.
package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"docrag/internal/embedding"
)

// Embedder wraps another embedder with a bounded LRU cache. Since embeddings
// are deterministic per text, a hit returns exactly what the inner embedder
// would have produced.
type Embedder struct {
	inner embedding.Embedder
	cache *lru.Cache[string, []float32]
}

// New wraps inner with a cache holding up to size vectors.
func New(inner embedding.Embedder, size int) (*Embedder, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Embedder{inner: inner, cache: c}, nil
}

func (e *Embedder) Name() string { return e.inner.Name() + "+cache" }

func (e *Embedder) Dimension() int { return e.inner.Dimension() }

// Prepare forwards to the inner embedder and drops cached vectors, which
// were computed against the previous fit.
func (e *Embedder) Prepare(corpus []string) error {
	p, ok := e.inner.(embedding.Preparer)
	if !ok {
		return nil
	}
	e.cache.Purge()
	return p.Prepare(corpus)
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		return clone(v), nil
	}
	v, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(text, clone(v))
	return v, nil
}

// EmbedBatch serves hits from the cache and sends only the distinct misses
// to the inner embedder, in their original order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var misses []string
	pending := make(map[string][]int)
	for i, t := range texts {
		if v, ok := e.cache.Get(t); ok {
			out[i] = clone(v)
			continue
		}
		if _, seen := pending[t]; !seen {
			misses = append(misses, t)
		}
		pending[t] = append(pending[t], i)
	}
	if len(misses) == 0 {
		return out, nil
	}
	vecs, err := e.inner.EmbedBatch(ctx, misses)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(misses) {
		return nil, fmt.Errorf("inner embedder returned %d vectors for %d texts", len(vecs), len(misses))
	}
	for j, t := range misses {
		e.cache.Add(t, clone(vecs[j]))
		for _, i := range pending[t] {
			out[i] = clone(vecs[j])
		}
	}
	return out, nil
}

func clone(v []float32) []float32 { return append([]float32(nil), v...) }
