package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/liliang-cn/castle/internal/domain"
	"github.com/liliang-cn/castle/internal/metrics"
	"github.com/liliang-cn/castle/internal/vectorstore"
)

// RAGContextInstruction opens the system message built from retrieved chunks
const RAGContextInstruction = "Use the following retrieved context to answer. If the context is insufficient, say so clearly."

const maxTopK = 50

// RAG enrichment results
const (
	ragResultSkipped  = "skipped"
	ragResultNoMatch  = "no_match"
	ragResultEnriched = "enriched"
)

// RAGService retrieves stored chunks and injects them into conversations
type RAGService struct {
	store   *vectorstore.Lazy
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRAGService creates a new RAG service
func NewRAGService(store *vectorstore.Lazy, m *metrics.Metrics, logger *zap.Logger) *RAGService {
	return &RAGService{store: store, metrics: m, logger: logger}
}

// Enrich prepends one system message listing the chunks most similar to
// the user turns. messages is never modified; when there is no user text
// or nothing is retrieved it is returned as-is.
func (s *RAGService) Enrich(ctx context.Context, messages []domain.Message) ([]domain.Message, error) {
	var userText []string
	for _, m := range messages {
		if m.Role == domain.RoleUser {
			userText = append(userText, m.Content)
		}
	}
	query := strings.Join(userText, "\n")
	if strings.TrimSpace(query) == "" {
		s.metrics.RAGEnrichmentsTotal.WithLabelValues(ragResultSkipped).Inc()
		return messages, nil
	}

	chunks, err := s.Retrieve(ctx, query, vectorstore.DefaultTopK)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		s.metrics.RAGEnrichmentsTotal.WithLabelValues(ragResultNoMatch).Inc()
		return messages, nil
	}

	enriched := make([]domain.Message, 0, len(messages)+1)
	enriched = append(enriched, domain.Message{
		Role:    domain.RoleSystem,
		Content: RAGContextInstruction + "\n\n" + formatContext(chunks),
	})
	enriched = append(enriched, messages...)

	s.metrics.RAGEnrichmentsTotal.WithLabelValues(ragResultEnriched).Inc()
	s.logger.Debug("Enriched conversation", zap.Int("chunks", len(chunks)))
	return enriched, nil
}

func formatContext(chunks []domain.ScoredChunk) string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		block := fmt.Sprintf("[#%d] %s", i+1, c.Text)
		if src := c.Source(); src != "" {
			block += "\n(source: " + src + ")"
		}
		blocks[i] = block
	}
	return strings.Join(blocks, "\n\n")
}

// Retrieve returns the k chunks most similar to query
func (s *RAGService) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	idx, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector store unavailable: %w", err)
	}
	return idx.Retrieve(ctx, query, min(k, maxTopK))
}

// Query runs a raw similarity search
func (s *RAGService) Query(ctx context.Context, req *domain.QueryRequest) (*domain.QueryResponse, error) {
	chunks, err := s.Retrieve(ctx, req.Query, req.TopK)
	if err != nil {
		return nil, err
	}
	return &domain.QueryResponse{Results: toQueryResults(chunks)}, nil
}

// Upsert stores texts as-is, without splitting
func (s *RAGService) Upsert(ctx context.Context, req *domain.UpsertRequest) (*domain.UpsertResponse, error) {
	idx, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector store unavailable: %w", err)
	}

	chunks := make([]domain.Chunk, len(req.Texts))
	for i, text := range req.Texts {
		md := map[string]any{}
		if i < len(req.Metadatas) && req.Metadatas[i] != nil {
			md = req.Metadatas[i]
		}
		chunks[i] = domain.Chunk{Text: text, Metadata: md}
	}

	n, err := idx.AddDocuments(ctx, chunks)
	if err != nil {
		return nil, err
	}
	s.metrics.ChunksIngestedTotal.WithLabelValues("upsert").Add(float64(n))

	return &domain.UpsertResponse{OK: true, Provider: idx.Provider(), Count: n}, nil
}

func toQueryResults(chunks []domain.ScoredChunk) []domain.QueryResult {
	results := make([]domain.QueryResult, len(chunks))
	for i, c := range chunks {
		results[i] = domain.QueryResult{Text: c.Text, Metadata: c.Metadata, Score: c.Score}
	}
	return results
}
