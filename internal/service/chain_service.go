package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/liliang-cn/castle/internal/config"
	"github.com/liliang-cn/castle/internal/domain"
	"github.com/liliang-cn/castle/internal/metrics"
	"github.com/liliang-cn/castle/internal/provider"
	"github.com/liliang-cn/castle/internal/vectorstore"
)

// Chain names
const (
	ChainSummarize     = "summarize"
	ChainQA            = "qa"
	ChainExplainCode   = "explain-code"
	ChainCreativeWrite = "creative-write"
)

const (
	summarizeConversationTemplate = `Please summarize the following conversation, highlighting key points, decisions, and action items:

Conversation:
{conversation}

Summary:`

	summarizeTextTemplate = `Please write a {length} summary of the following {type}. Focus on the main ideas and list the key points as bullets after the summary.

Text:
{text}

Summary:`

	qaTemplate = `Use the following context to answer the question. If the context doesn't contain enough information to fully answer, say so clearly.

Context:
{context}

Question: {question}

Answer:`

	explainCodeTemplate = `Explain the following {language} in simple terms. Break down what it does, how it works, and any important concepts. Mention its time complexity in Big O notation and any improvements you would suggest.
{context}
Code:
{code}

Explanation:`

	creativeTemplate = `Write a {genre} about: {topic}

Style: {style}
Target length: approximately {length} words

Start with a title on its own line.

Creative piece:`
)

var summaryLengths = map[string]string{
	"brief":    "brief (two or three sentences)",
	"moderate": "moderate (one or two paragraphs)",
	"detailed": "detailed (several paragraphs)",
}

var creativeWordTargets = map[string]int{
	"short":  150,
	"medium": 400,
	"long":   800,
}

// ChainService runs templated single-shot generations
type ChainService struct {
	registry *provider.Registry
	rag      *RAGService
	cfg      config.ChainsConfig
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewChainService creates a new chain service
func NewChainService(
	registry *provider.Registry,
	rag *RAGService,
	cfg config.ChainsConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ChainService {
	return &ChainService{
		registry: registry,
		rag:      rag,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

var templateVar = regexp.MustCompile(`\{(\w+)\}`)

// FillTemplate replaces {name} placeholders with vars. Unknown
// placeholders are left untouched and values are not re-scanned.
func FillTemplate(template string, vars map[string]string) string {
	return templateVar.ReplaceAllStringFunc(template, func(m string) string {
		if v, ok := vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// Execute fills template, sends it as a single user message and returns
// the aggregated completion
func (s *ChainService) Execute(ctx context.Context, chain, template string, vars map[string]string, system string) (*domain.ChainResult, error) {
	name := s.cfg.Provider
	p, err := s.registry.ByName(name)
	if err != nil {
		return nil, err
	}

	model := s.cfg.Model
	if model == "" {
		model = defaultChainModel(name)
	}

	out, err := provider.Collect(ctx, p, provider.Request{
		Model:       model,
		System:      system,
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: FillTemplate(template, vars)}},
		Temperature: s.cfg.Temperature,
	})
	s.metrics.RecordChainRun(chain, err)
	if err != nil {
		s.logger.Warn("Chain failed", zap.String("chain", chain), zap.Error(err))
		return nil, err
	}
	return &domain.ChainResult{Response: strings.TrimSpace(out)}, nil
}

func defaultChainModel(providerName string) string {
	if providerName == provider.NameOllama {
		return "llama2"
	}
	return "gpt-4o-mini"
}

// Summarize summarizes a conversation or a block of text
func (s *ChainService) Summarize(ctx context.Context, req *domain.SummarizeRequest) (*domain.SummarizeResponse, error) {
	var (
		result *domain.ChainResult
		err    error
	)
	switch {
	case len(req.Conversation) > 0:
		lines := make([]string, len(req.Conversation))
		for i, m := range req.Conversation {
			lines[i] = fmt.Sprintf("%s: %s", m.Role, m.Content)
		}
		result, err = s.Execute(ctx, ChainSummarize, summarizeConversationTemplate,
			map[string]string{"conversation": strings.Join(lines, "\n")}, "")
	case strings.TrimSpace(req.Text) != "":
		length := summaryLengths[req.Length]
		if length == "" {
			length = summaryLengths["moderate"]
		}
		docType := req.Type
		if docType == "" || docType == "general" {
			docType = "text"
		}
		result, err = s.Execute(ctx, ChainSummarize, summarizeTextTemplate,
			map[string]string{"length": length, "type": docType, "text": req.Text}, "")
	default:
		return nil, fmt.Errorf("%w: text or conversation is required", domain.ErrInvalidRequest)
	}
	if err != nil {
		return nil, err
	}

	return &domain.SummarizeResponse{
		Summary:   result.Response,
		KeyPoints: ExtractKeyPoints(result.Response),
		WordCount: len(strings.Fields(result.Response)),
	}, nil
}

// QA answers a question from the supplied context, or from the stored
// chunks most similar to the question when no context is given
func (s *ChainService) QA(ctx context.Context, req *domain.QARequest) (*domain.QAResponse, error) {
	contexts := req.Context
	var sources []domain.QueryResult
	if len(contexts) == 0 {
		chunks, err := s.rag.Retrieve(ctx, req.Question, vectorstore.DefaultTopK)
		if err != nil {
			return nil, err
		}
		sources = toQueryResults(chunks)
		for _, c := range chunks {
			contexts = append(contexts, c.Text)
		}
	}

	result, err := s.Execute(ctx, ChainQA, qaTemplate, map[string]string{
		"context":  strings.Join(contexts, "\n\n"),
		"question": req.Question,
	}, "")
	if err != nil {
		return nil, err
	}
	return &domain.QAResponse{Answer: result.Response, Sources: sources}, nil
}

// ExplainCode explains a snippet and derives best-effort complexity and
// suggestions from the explanation text
func (s *ChainService) ExplainCode(ctx context.Context, req *domain.CodeExplainRequest) (*domain.CodeExplainResponse, error) {
	language := "code"
	if req.Language != "" {
		language = req.Language + " code"
	}
	extra := ""
	if req.Context != "" {
		extra = "\nAdditional context: " + req.Context + "\n"
	}

	result, err := s.Execute(ctx, ChainExplainCode, explainCodeTemplate, map[string]string{
		"language": language,
		"context":  extra,
		"code":     req.Code,
	}, "")
	if err != nil {
		return nil, err
	}

	return &domain.CodeExplainResponse{
		Explanation: result.Response,
		KeyPoints:   ExtractKeyPoints(result.Response),
		Complexity:  DetectComplexity(result.Response),
		Suggestions: DetectSuggestions(result.Response),
	}, nil
}

// CreativeWrite generates a piece of writing
func (s *ChainService) CreativeWrite(ctx context.Context, req *domain.CreativeWriteRequest) (*domain.CreativeWriteResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", domain.ErrInvalidRequest)
	}
	words, ok := creativeWordTargets[req.Length]
	if !ok {
		words = creativeWordTargets["medium"]
	}
	style := req.Style
	if style == "" {
		style = "creative"
	}
	genre := req.Genre
	if genre == "" {
		genre = "short piece"
	}

	result, err := s.Execute(ctx, ChainCreativeWrite, creativeTemplate, map[string]string{
		"genre":  genre,
		"topic":  req.Prompt,
		"style":  style,
		"length": fmt.Sprint(words),
	}, "")
	if err != nil {
		return nil, err
	}

	title, content := SplitTitle(result.Response)
	return &domain.CreativeWriteResponse{
		Content:   content,
		Title:     title,
		WordCount: len(strings.Fields(content)),
	}, nil
}
