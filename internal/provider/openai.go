package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/liliang-cn/castle/internal/domain"
)

// DefaultOpenAISystemPrompt is sent when the request carries no system prompt
const DefaultOpenAISystemPrompt = "You are a helpful assistant."

const openAIDoneMarker = "[DONE]"

// OpenAI streams chat completions from an OpenAI-compatible endpoint
type OpenAI struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAI creates an OpenAI provider
func NewOpenAI(apiKey, baseURL string, client *http.Client) *OpenAI {
	if client == nil {
		client = NewHTTPClient()
	}
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Name returns the provider name
func (p *OpenAI) Name() string { return NameOpenAI }

type openAIMessage struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	Stream      bool            `json:"stream"`
}

type openAIChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// StreamChat posts a streaming chat completion and emits every non-empty
// content delta until the [DONE] marker or the end of the body.
func (p *OpenAI) StreamChat(ctx context.Context, req Request, onToken TokenFunc) error {
	if p.apiKey == "" {
		return errors.New("openai: api key is not configured")
	}

	system := req.System
	if system == "" {
		system = DefaultOpenAISystemPrompt
	}
	messages := make([]openAIMessage, 0, len(req.Messages)+1)
	messages = append(messages, openAIMessage{Role: domain.RoleSystem, Content: system})
	for _, m := range req.Messages {
		messages = append(messages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(openAIRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		Stream:      true,
	})
	if err != nil {
		return fmt.Errorf("openai: failed to encode request: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.apiKey)

	stream, err := openStream(ctx, p.client, "OpenAI", p.baseURL+"/chat/completions", header, body)
	if err != nil {
		return err
	}
	defer stream.Close()

	return scanLines(stream, func(line string) (bool, error) {
		return handleOpenAILine(line, onToken)
	})
}

func handleOpenAILine(line string, onToken TokenFunc) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if line == openAIDoneMarker {
		return true, nil
	}

	data, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return false, nil
	}
	data = strings.TrimSpace(data)
	if data == openAIDoneMarker {
		return true, nil
	}

	var chunk openAIChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return false, nil
	}
	if chunk.Error != nil && chunk.Error.Message != "" {
		return true, fmt.Errorf("OpenAI error: %s", chunk.Error.Message)
	}
	if len(chunk.Choices) == 0 {
		return false, nil
	}
	if text := chunk.Choices[0].Delta.Content; text != "" {
		return false, onToken(text)
	}
	return false, nil
}
