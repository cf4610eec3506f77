// Package index provides exact nearest-neighbour search over embeddings.
package index

import (
	"fmt"
	"sort"

	"docrag/internal/domain"
)

// Flat is a brute-force index using squared Euclidean distance.
// It is immutable once built and safe for concurrent searches.
type Flat struct {
	dimension int
	vectors   [][]float32
}

// Build copies vectors into a new index. Every vector must have the same
// length; an empty input yields an empty index.
func Build(vectors [][]float32) (*Flat, error) {
	if len(vectors) == 0 {
		return &Flat{}, nil
	}
	dim := len(vectors[0])
	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("build index: vector %d has dimension %d, want %d: %w", i, len(v), dim, domain.ErrDimensionMismatch)
		}
		stored[i] = append([]float32(nil), v...)
	}
	return &Flat{dimension: dim, vectors: stored}, nil
}

func (f *Flat) Len() int { return len(f.vectors) }

func (f *Flat) Dimension() int { return f.dimension }

// Search returns the min(k, Len()) nearest vectors ordered by ascending
// distance, ties broken by ascending position.
func (f *Flat) Search(query []float32, k int) ([]domain.Match, error) {
	if len(f.vectors) == 0 || k <= 0 {
		return []domain.Match{}, nil
	}
	if len(query) != f.dimension {
		return nil, fmt.Errorf("query has dimension %d, index has %d: %w", len(query), f.dimension, domain.ErrDimensionMismatch)
	}
	matches := make([]domain.Match, len(f.vectors))
	for i, v := range f.vectors {
		matches[i] = domain.Match{Position: i, Distance: squaredL2(query, v)}
	}
	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Distance != matches[b].Distance {
			return matches[a].Distance < matches[b].Distance
		}
		return matches[a].Position < matches[b].Position
	})
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

func squaredL2(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
