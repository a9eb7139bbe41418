package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/liliang-cn/castle/internal/domain"
)

// Ollama streams chat completions from an Ollama server
type Ollama struct {
	baseURL string
	client  *http.Client
}

// NewOllama creates an Ollama provider
func NewOllama(baseURL string, client *http.Client) *Ollama {
	if client == nil {
		client = NewHTTPClient()
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Name returns the provider name
func (p *Ollama) Name() string { return NameOllama }

type ollamaRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
	Options  ollamaOptions    `json:"options"`
	Stream   bool             `json:"stream"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChunk struct {
	Message *struct {
		Content *string `json:"content"`
	} `json:"message"`
	OutputText *string `json:"output_text"`
	Error      string  `json:"error"`
}

// text returns message.content, falling back to output_text
func (c *ollamaChunk) text() string {
	if c.Message != nil && c.Message.Content != nil {
		return *c.Message.Content
	}
	if c.OutputText != nil {
		return *c.OutputText
	}
	return ""
}

// StreamChat posts a streaming chat request. Every response line is a
// standalone JSON object.
func (p *Ollama) StreamChat(ctx context.Context, req Request, onToken TokenFunc) error {
	messages := make([]domain.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: req.System})
	}
	messages = append(messages, req.Messages...)

	body, err := json.Marshal(ollamaRequest{
		Model:    req.Model,
		Messages: messages,
		Options:  ollamaOptions{Temperature: req.Temperature},
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("ollama: failed to encode request: %w", err)
	}

	stream, err := openStream(ctx, p.client, "Ollama", p.baseURL+"/api/chat", nil, body)
	if err != nil {
		return err
	}
	defer stream.Close()

	return scanLines(stream, func(line string) (bool, error) {
		return handleOllamaLine(line, onToken)
	})
}

func handleOllamaLine(line string, onToken TokenFunc) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	var chunk ollamaChunk
	if err := json.Unmarshal([]byte(line), &chunk); err != nil {
		return false, nil
	}
	if chunk.Error != "" {
		return true, fmt.Errorf("Ollama error: %s", chunk.Error)
	}
	if text := chunk.text(); text != "" {
		return false, onToken(text)
	}
	return false, nil
}
