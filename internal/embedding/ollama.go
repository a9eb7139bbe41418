package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// Ollama embeds text with a local Ollama model
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates an Ollama embedder
func NewOllama(baseURL, model string, httpClient *http.Client) (*Ollama, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Ollama{
		client: api.NewClient(u, httpClient),
		model:  model,
	}, nil
}

// Model returns the model identifier
func (e *Ollama) Model() string { return "ollama/" + e.model }

// EmbedDocuments embeds a batch of texts
func (e *Ollama) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embeddings: expected %d vectors, got %d", len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

// EmbedQuery embeds a single query
func (e *Ollama) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}
