package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/liliang-cn/castle/internal/config"
	"github.com/liliang-cn/castle/internal/domain"
	"github.com/liliang-cn/castle/internal/loader"
	"github.com/liliang-cn/castle/internal/metrics"
	"github.com/liliang-cn/castle/internal/splitter"
	"github.com/liliang-cn/castle/internal/vectorstore"
)

// IngestService loads, splits and stores documents
type IngestService struct {
	store   *vectorstore.Lazy
	loader  *loader.Loader
	cfg     config.RAGConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(
	store *vectorstore.Lazy,
	docLoader *loader.Loader,
	cfg config.RAGConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		store:   store,
		loader:  docLoader,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// Ingest never returns an error: failures are reported in the response
// with Success false
func (s *IngestService) Ingest(ctx context.Context, req *domain.IngestRequest) *domain.IngestResponse {
	resp, err := s.ingest(ctx, req)
	if err != nil {
		s.logger.Warn("Ingestion failed",
			zap.String("type", req.Type),
			zap.String("source", firstNonEmpty(req.URL, req.Filename, req.Source)),
			zap.Error(err),
		)
		return &domain.IngestResponse{Success: false, Message: err.Error()}
	}
	return resp
}

func (s *IngestService) ingest(ctx context.Context, req *domain.IngestRequest) (*domain.IngestResponse, error) {
	normalizeLegacySource(req)

	doc, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}

	split, err := s.splitterFor(req)
	if err != nil {
		return nil, err
	}
	metadata := doc.Metadata
	if req.Type != domain.IngestTypeText && len(req.Metadata) > 0 {
		metadata = mergeMetadata(req.Metadata, doc.Metadata)
	}
	chunks, err := split.SplitChunks(doc.Text, metadata)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, errors.New("document contains no text")
	}

	idx, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector store unavailable: %w", err)
	}
	n, err := idx.AddDocuments(ctx, chunks)
	if err != nil {
		return nil, err
	}
	s.metrics.ChunksIngestedTotal.WithLabelValues(doc.SourceType).Add(float64(n))

	stats := &domain.LoadStats{
		TotalChunks:     n,
		TotalCharacters: utf8.RuneCountInString(doc.Text),
		SourceType:      doc.SourceType,
		FileName:        doc.FileName,
	}
	s.logger.Info("Document ingested",
		zap.String("source_type", stats.SourceType),
		zap.Int("chunks", stats.TotalChunks),
		zap.Int("characters", stats.TotalCharacters),
	)

	return &domain.IngestResponse{
		Success:       true,
		Message:       fmt.Sprintf("Successfully ingested %d chunks", n),
		DocumentCount: n,
		Stats:         stats,
	}, nil
}

// normalizeLegacySource maps the single-field {source} form onto a typed
// request: http(s) URLs are fetched, anything else is a file path
func normalizeLegacySource(req *domain.IngestRequest) {
	if req.Type != "" || req.Source == "" {
		return
	}
	if strings.HasPrefix(req.Source, "http://") || strings.HasPrefix(req.Source, "https://") {
		req.Type = domain.IngestTypeURL
		req.URL = req.Source
		return
	}
	req.Type = domain.IngestTypeFile
	req.Filename = req.Source
}

func (s *IngestService) load(ctx context.Context, req *domain.IngestRequest) (loader.Document, error) {
	switch req.Type {
	case domain.IngestTypeText:
		if strings.TrimSpace(req.Content) == "" {
			return loader.Document{}, errors.New("content is required for text ingestion")
		}
		return s.loader.LoadText(req.Content, req.Metadata), nil
	case domain.IngestTypeURL:
		url := firstNonEmpty(req.URL, req.Content)
		if url == "" {
			return loader.Document{}, errors.New("url is required for url ingestion")
		}
		return s.loader.LoadURL(ctx, url)
	case domain.IngestTypeFile:
		if req.Filename == "" {
			return loader.Document{}, errors.New("filename is required for file ingestion")
		}
		if req.Content != "" {
			return s.loader.LoadContent(req.Filename, req.Content)
		}
		return s.loader.LoadFile(req.Filename)
	case "":
		return loader.Document{}, errors.New("type or source is required")
	default:
		return loader.Document{}, fmt.Errorf("unsupported ingest type %q", req.Type)
	}
}

// splitterFor applies per-request chunk settings over the configured ones.
// When only the size is overridden the configured overlap shrinks to fit it.
func (s *IngestService) splitterFor(req *domain.IngestRequest) (*splitter.Splitter, error) {
	size := s.cfg.ChunkSize
	if req.ChunkSize > 0 {
		size = req.ChunkSize
	}
	overlap := s.cfg.ChunkOverlap
	if req.ChunkOverlap != nil {
		overlap = *req.ChunkOverlap
	} else if overlap >= size {
		overlap = size / 5
	}
	return splitter.New(size, overlap)
}

// mergeMetadata layers provenance over caller metadata
func mergeMetadata(caller, provenance map[string]any) map[string]any {
	md := make(map[string]any, len(caller)+len(provenance))
	for k, v := range caller {
		md[k] = v
	}
	for k, v := range provenance {
		md[k] = v
	}
	return md
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
