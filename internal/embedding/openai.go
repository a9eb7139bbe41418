package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAI embeds text with the OpenAI embeddings API
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI embedder
func NewOpenAI(apiKey, baseURL, model string, httpClient *http.Client) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Model returns the model identifier
func (e *OpenAI) Model() string { return "openai/" + e.model }

// EmbedDocuments embeds a batch of texts
func (e *OpenAI) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: expected %d vectors, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}

// EmbedQuery embeds a single query
func (e *OpenAI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}
