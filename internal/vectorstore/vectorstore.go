// Package vectorstore indexes embedded chunks and answers similarity queries.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/liliang-cn/castle/internal/domain"
	"github.com/liliang-cn/castle/internal/embedding"
)

// Backend names
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// DefaultTopK is the number of chunks retrieved for RAG
const DefaultTopK = 5

const embedBatchSize = 64

// Backend stores vectors and answers nearest-neighbour queries
type Backend interface {
	Name() string
	Add(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error)
	Close() error
}

// Index couples an embedder with a backend
type Index struct {
	embedder embedding.Embedder
	backend  Backend
	closers  []io.Closer
}

// NewIndex creates an index. closers are closed with the index.
func NewIndex(e embedding.Embedder, b Backend, closers ...io.Closer) *Index {
	return &Index{embedder: e, backend: b, closers: closers}
}

// Provider returns the backend name
func (i *Index) Provider() string { return i.backend.Name() }

// AddDocuments embeds and stores chunks, returning the number stored
func (i *Index) AddDocuments(ctx context.Context, chunks []domain.Chunk) (int, error) {
	stored := 0
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}
		vectors, err := i.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return stored, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if err := i.backend.Add(ctx, batch, vectors); err != nil {
			return stored, fmt.Errorf("failed to store chunks: %w", err)
		}
		stored += len(batch)
	}
	return stored, nil
}

// Retrieve returns the k chunks most similar to query
func (i *Index) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	vec, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return i.backend.Search(ctx, vec, k)
}

// Close releases the backend and any attached resources
func (i *Index) Close() error {
	errs := []error{i.backend.Close()}
	for _, c := range i.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// topK sorts by descending score and truncates to k
func topK(results []domain.ScoredChunk, k int) []domain.ScoredChunk {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}
