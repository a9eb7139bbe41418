// Package embedding turns text into vectors for similarity search.
package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/liliang-cn/castle/internal/config"
)

// Embedder produces embedding vectors
type Embedder interface {
	// Model identifies the embedding model, e.g. "openai/text-embedding-3-small"
	Model() string
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// New builds the embedder selected by cfg.Embeddings.Provider
func New(cfg *config.Config, client *http.Client) (Embedder, error) {
	switch cfg.Embeddings.Provider {
	case "ollama":
		return NewOllama(cfg.Ollama.BaseURL, cfg.Embeddings.OllamaModel, client)
	case "openai", "":
		return NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.Embeddings.OpenAIModel, client), nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Embeddings.Provider)
	}
}

func embedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%s: expected 1 embedding, got %d", e.Model(), len(vecs))
	}
	return vecs[0], nil
}
