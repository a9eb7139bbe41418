package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/castle/internal/domain"
)

// StoredChunk is a chunk row with its embedding
type StoredChunk struct {
	ID        string
	Chunk     domain.Chunk
	Embedding []float32
	CreatedAt time.Time
}

// ChunkRepository handles chunk persistence
type ChunkRepository struct {
	db *DB
}

// NewChunkRepository creates a new chunk repository
func NewChunkRepository(db *DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// Insert stores chunks with their embeddings in a single transaction and
// returns the generated IDs
func (r *ChunkRepository) Insert(ctx context.Context, model string, chunks []domain.Chunk, vectors [][]float32) ([]string, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("got %d chunks and %d vectors", len(chunks), len(vectors))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, text, metadata, model, dimensions, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	now := time.Now()
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = uuid.New().String()
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, ids[i], c.Text, string(metadataJSON), model,
			len(vectors[i]), encodeEmbedding(vectors[i]), now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Scan calls fn for every chunk embedded with model
func (r *ChunkRepository) Scan(ctx context.Context, model string, fn func(StoredChunk) error) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, text, metadata, embedding, created_at
		FROM chunks WHERE model = ?
	`, model)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sc           StoredChunk
			metadataJSON string
			blob         []byte
		)
		if err := rows.Scan(&sc.ID, &sc.Chunk.Text, &metadataJSON, &blob, &sc.CreatedAt); err != nil {
			return err
		}
		if metadataJSON != "" && metadataJSON != "null" {
			if err := json.Unmarshal([]byte(metadataJSON), &sc.Chunk.Metadata); err != nil {
				return fmt.Errorf("failed to decode metadata for chunk %s: %w", sc.ID, err)
			}
		}
		sc.Embedding = decodeEmbedding(blob)
		if err := fn(sc); err != nil {
			return err
		}
	}
	return rows.Err()
}

func encodeEmbedding(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}
