// Package provider streams chat completions from LLM backends and turns
// each backend's incremental wire format into plain token callbacks.
package provider

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/liliang-cn/castle/internal/domain"
)

// Provider names
const (
	NameOpenAI = "openai"
	NameOllama = "ollama"
)

// OpenAIPrefix routes a model identifier to the OpenAI provider
const OpenAIPrefix = NameOpenAI + ":"

// TokenFunc receives each emitted text fragment in order. Returning an
// error stops the stream and is returned from StreamChat.
type TokenFunc func(token string) error

// Request is a provider-local chat request (model prefix already stripped)
type Request struct {
	Model       string
	System      string
	Messages    []domain.Message
	Temperature float64
}

// Provider streams a chat completion
type Provider interface {
	Name() string
	StreamChat(ctx context.Context, req Request, onToken TokenFunc) error
}

// Registry selects a provider from a prefixed model identifier
type Registry struct {
	openai Provider
	ollama Provider
}

// NewRegistry creates a registry over the two supported providers
func NewRegistry(openai, ollama Provider) *Registry {
	return &Registry{openai: openai, ollama: ollama}
}

// Resolve returns the provider for a model identifier together with the
// provider-local model name. "openai:" selects OpenAI; anything else is
// served by Ollama using the text after the first colon.
func (r *Registry) Resolve(model string) (Provider, string) {
	if rest, ok := strings.CutPrefix(model, OpenAIPrefix); ok {
		return r.openai, rest
	}
	if _, rest, ok := strings.Cut(model, ":"); ok {
		return r.ollama, rest
	}
	return r.ollama, model
}

// ByName returns a provider by its name
func (r *Registry) ByName(name string) (Provider, error) {
	switch name {
	case NameOpenAI:
		return r.openai, nil
	case NameOllama:
		return r.ollama, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// Collect runs a stream to completion and returns the concatenated tokens
func Collect(ctx context.Context, p Provider, req Request) (string, error) {
	var b strings.Builder
	err := p.StreamChat(ctx, req, func(token string) error {
		b.WriteString(token)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// NewHTTPClient returns a client suited to long-lived streaming responses:
// connection setup is bounded, the response body is not.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 2 * time.Minute,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   10,
		},
	}
}
