package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"docrag/internal/corpus"
	"docrag/internal/domain"
	"docrag/internal/embedding"
	"docrag/internal/index"
)

// DefaultTopK is the number of pages retrieved when the caller has no preference.
const DefaultTopK = 3

// ErrNotInitialized is returned by queries issued before Initialize succeeded.
var ErrNotInitialized = errors.New("retrieval service not initialized")

// snapshot is everything a query reads. It is built in full by Initialize and
// published with a single atomic store, so a query never sees a partial rebuild.
type snapshot struct {
	corpus  *corpus.Store
	vectors [][]float32
	index   *index.Flat
	summary string
}

// Stats describes the built corpus and index.
type Stats struct {
	Units     int
	Vectors   int
	Dimension int
}

var _ domain.RetrievalService = (*Retrieval)(nil)

// Retrieval ingests one document at startup and answers top-k relevance queries.
type Retrieval struct {
	extractor    domain.Extractor
	embedder     embedding.Embedder
	summarizer   domain.Summarizer
	maxSentences int
	logger       *slog.Logger
	state        atomic.Pointer[snapshot]
}

// Option customizes a Retrieval service.
type Option func(*Retrieval)

// WithSummarizer enables a corpus summary computed during Initialize.
func WithSummarizer(s domain.Summarizer, maxSentences int) Option {
	return func(r *Retrieval) {
		r.summarizer = s
		r.maxSentences = maxSentences
	}
}

// WithLogger sets the logger used for startup progress.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retrieval) { r.logger = l }
}

func NewRetrieval(extractor domain.Extractor, embedder embedding.Embedder, opts ...Option) *Retrieval {
	r := &Retrieval{extractor: extractor, embedder: embedder, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize loads the corpus from locator, embeds every unit and builds the
// index, in that order. Nothing is published unless every step succeeds.
func (r *Retrieval) Initialize(ctx context.Context, locator string) error {
	start := time.Now()
	store := corpus.NewStore(r.extractor)
	if err := store.Load(ctx, locator); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	r.logger.Info("corpus loaded", "source", locator, "units", store.Len())

	texts := store.Texts()
	if p, ok := r.embedder.(embedding.Preparer); ok {
		if err := p.Prepare(texts); err != nil {
			return fmt.Errorf("initialize: prepare embedder: %w", err)
		}
	}
	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("initialize: embed corpus: %w", err)
	}
	if len(vectors) != store.Len() {
		return fmt.Errorf("initialize: embedder returned %d vectors for %d units", len(vectors), store.Len())
	}
	idx, err := index.Build(vectors)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	r.logger.Info("index built", "embedder", r.embedder.Name(), "vectors", idx.Len(), "dimension", idx.Dimension(), "elapsed", time.Since(start))

	var summary string
	if r.summarizer != nil {
		summary, err = r.summarizer.Summarize(strings.Join(texts, "\n"), r.maxSentences)
		if err != nil {
			return fmt.Errorf("initialize: summarize: %w", err)
		}
	}
	r.state.Store(&snapshot{corpus: store, vectors: vectors, index: idx, summary: summary})
	return nil
}

// Search returns the texts of the k units closest to queryText, nearest
// first. It always returns at least one element: when nothing matches the
// result is the single EmptyResultSentinel.
func (r *Retrieval) Search(ctx context.Context, queryText string, k int) ([]string, error) {
	ranked, err := r.Matches(ctx, queryText, k)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return []string{domain.EmptyResultSentinel}, nil
	}
	out := make([]string, len(ranked))
	for i, u := range ranked {
		out[i] = u.Text
	}
	return out, nil
}

// Matches is Search with ordinals and distances. k <= 0 yields no matches and
// k above the corpus size is clamped to it.
func (r *Retrieval) Matches(ctx context.Context, queryText string, k int) ([]domain.RankedUnit, error) {
	st := r.state.Load()
	if st == nil {
		return nil, ErrNotInitialized
	}
	n := st.corpus.Len()
	if k <= 0 || n == 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}
	query, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := st.index.Search(query, k)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RankedUnit, len(hits))
	for i, h := range hits {
		out[i] = domain.RankedUnit{Unit: st.corpus.Unit(h.Position), Distance: h.Distance}
	}
	return out, nil
}

// Summary returns the corpus summary, empty when no summarizer is configured.
func (r *Retrieval) Summary() string {
	if st := r.state.Load(); st != nil {
		return st.summary
	}
	return ""
}

// Stats reports the size of the built corpus and index.
func (r *Retrieval) Stats() Stats {
	st := r.state.Load()
	if st == nil {
		return Stats{}
	}
	return Stats{Units: st.corpus.Len(), Vectors: len(st.vectors), Dimension: st.index.Dimension()}
}

// Len returns the number of indexed units.
func (r *Retrieval) Len() int { return r.Stats().Units }
