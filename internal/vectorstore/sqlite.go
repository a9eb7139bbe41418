package vectorstore

import (
	"context"

	"github.com/liliang-cn/castle/internal/domain"
	"github.com/liliang-cn/castle/internal/repository"
)

// SQLite is a persistent local backend. Search is a brute-force cosine
// scan over chunks embedded with the same model.
type SQLite struct {
	db    *repository.DB
	repo  *repository.ChunkRepository
	model string
}

// NewSQLite opens or creates the database at path
func NewSQLite(path, model string) (*SQLite, error) {
	db, err := repository.NewDB(path)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: db, repo: repository.NewChunkRepository(db), model: model}, nil
}

// Name returns the backend name
func (s *SQLite) Name() string { return BackendSQLite }

// Add inserts chunks in one transaction
func (s *SQLite) Add(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	_, err := s.repo.Insert(ctx, s.model, chunks, vectors)
	return err
}

// Search scans all rows for the configured model
func (s *SQLite) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	var results []domain.ScoredChunk
	err := s.repo.Scan(ctx, s.model, func(sc repository.StoredChunk) error {
		results = append(results, domain.ScoredChunk{Chunk: sc.Chunk, Score: cosine(vector, sc.Embedding)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return topK(results, k), nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}
