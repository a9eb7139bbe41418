package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/liliang-cn/castle/internal/domain"
	"github.com/liliang-cn/castle/internal/metrics"
	"github.com/liliang-cn/castle/internal/provider"
)

// EventWriter receives the events of one chat stream
type EventWriter interface {
	Event(name string, data any) error
}

// ChatService relays chat completions from a provider to a client as a
// sequence of events: open, zero or more tokens, then done or error.
type ChatService struct {
	registry *provider.Registry
	rag      *RAGService
	prompts  *PromptService
	allowed  map[string]struct{}
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewChatService creates a new chat service. An empty allowedModels
// accepts any model identifier.
func NewChatService(
	registry *provider.Registry,
	rag *RAGService,
	prompts *PromptService,
	allowedModels []string,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ChatService {
	allowed := make(map[string]struct{}, len(allowedModels))
	for _, model := range allowedModels {
		allowed[model] = struct{}{}
	}
	return &ChatService{
		registry: registry,
		rag:      rag,
		prompts:  prompts,
		allowed:  allowed,
		metrics:  m,
		logger:   logger,
	}
}

// Prepare checks the model against the allow list and resolves
// promptName into the system prompt when none was given. It runs before
// the stream is opened so failures can still be reported as 400s.
func (s *ChatService) Prepare(req *domain.ChatRequest) error {
	if len(s.allowed) > 0 {
		if _, ok := s.allowed[req.Model]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrModelNotAllowed, req.Model)
		}
	}
	if req.PromptName != "" && req.System == "" {
		text, err := s.prompts.Text(req.PromptName)
		if err != nil {
			return err
		}
		req.System = text
	}
	return nil
}

// Stream runs one chat request and writes its events to w. Exactly one
// terminal event (done or error) is written after open. The returned
// error is the one reported in the error event, if any.
func (s *ChatService) Stream(ctx context.Context, req *domain.ChatRequest, w EventWriter) error {
	p, model := s.registry.Resolve(req.Model)
	start := time.Now()

	s.metrics.ChatStreamsActive.Inc()
	defer s.metrics.ChatStreamsActive.Dec()

	logger := s.logger.With(
		zap.String("model", req.Model),
		zap.String("provider", p.Name()),
	)

	if err := w.Event(domain.EventOpen, domain.OpenPayload{Model: req.Model}); err != nil {
		s.metrics.RecordChatStream(p.Name(), metrics.OutcomeError, time.Since(start))
		return err
	}

	tokens, err := s.relay(ctx, p, model, req, w)
	if err != nil {
		logger.Warn("Chat stream failed", zap.Int("tokens", tokens), zap.Error(err))
		s.metrics.RecordChatStream(p.Name(), metrics.OutcomeError, time.Since(start))
		// the client may already be gone; nothing more to do if this fails
		_ = w.Event(domain.EventError, domain.ErrorPayload{Error: err.Error()})
		return err
	}

	s.metrics.RecordChatStream(p.Name(), metrics.OutcomeDone, time.Since(start))
	logger.Debug("Chat stream completed",
		zap.Int("tokens", tokens),
		zap.Duration("duration", time.Since(start)),
	)
	return w.Event(domain.EventDone, struct{}{})
}

func (s *ChatService) relay(ctx context.Context, p provider.Provider, model string, req *domain.ChatRequest, w EventWriter) (int, error) {
	messages := req.Messages
	if req.UseRAG {
		enriched, err := s.rag.Enrich(ctx, messages)
		if err != nil {
			return 0, err
		}
		messages = enriched
	}

	tokens := 0
	relayed := s.metrics.TokensRelayedTotal.WithLabelValues(p.Name())
	err := p.StreamChat(ctx, provider.Request{
		Model:       model,
		System:      req.System,
		Messages:    messages,
		Temperature: req.TemperatureOrDefault(),
	}, func(token string) error {
		if err := w.Event(domain.EventToken, domain.TokenPayload{Token: token}); err != nil {
			return fmt.Errorf("failed to write token: %w", err)
		}
		tokens++
		relayed.Inc()
		return nil
	})
	return tokens, err
}
