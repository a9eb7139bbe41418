package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/liliang-cn/castle/internal/domain"
)

type memoryEntry struct {
	chunk  domain.Chunk
	vector []float32
}

// Memory is an ephemeral in-process backend
type Memory struct {
	mu      sync.RWMutex
	entries []memoryEntry
}

// NewMemory creates an empty memory backend
func NewMemory() *Memory {
	return &Memory{}
}

// Name returns the backend name
func (m *Memory) Name() string { return BackendMemory }

// Add appends chunks
func (m *Memory) Add(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks and %d vectors", len(chunks), len(vectors))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range chunks {
		m.entries = append(m.entries, memoryEntry{chunk: c, vector: vectors[i]})
	}
	return nil
}

// Search scores every entry by cosine similarity
func (m *Memory) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]domain.ScoredChunk, 0, len(m.entries))
	for _, e := range m.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, domain.ScoredChunk{Chunk: e.chunk, Score: cosine(vector, e.vector)})
	}
	return topK(results, k), nil
}

// Close is a no-op
func (m *Memory) Close() error { return nil }
