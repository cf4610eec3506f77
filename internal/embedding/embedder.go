package embedding

import "context"

// Embedder converts free text into a fixed-dimension vector. Identical text
// must yield an identical vector for the lifetime of the embedder.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Preparer is implemented by embedders that fit themselves to the corpus
// before the first Embed call.
type Preparer interface {
	Prepare(corpus []string) error
}
