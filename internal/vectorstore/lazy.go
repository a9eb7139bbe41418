package vectorstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/liliang-cn/castle/internal/config"
	"github.com/liliang-cn/castle/internal/embedding"
)

// Builder constructs an index
type Builder func(ctx context.Context) (*Index, error)

// Lazy builds the shared index on first use. A failed build is not
// remembered; the next Get tries again.
type Lazy struct {
	mu    sync.Mutex
	build Builder
	idx   *Index
}

// NewLazy creates a lazy handle around build
func NewLazy(build Builder) *Lazy {
	return &Lazy{build: build}
}

// Get returns the index, building it if needed
func (l *Lazy) Get(ctx context.Context) (*Index, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.idx != nil {
		return l.idx, nil
	}
	idx, err := l.build(ctx)
	if err != nil {
		return nil, err
	}
	l.idx = idx
	return idx, nil
}

// Close closes the index if it was built
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.idx == nil {
		return nil
	}
	err := l.idx.Close()
	l.idx = nil
	return err
}

// NewBuilder returns a Builder for the embedder, cache and backend
// selected by cfg
func NewBuilder(cfg *config.Config, client *http.Client, logger *zap.Logger) Builder {
	return func(ctx context.Context) (*Index, error) {
		var closers []io.Closer

		embedder, err := embedding.New(cfg, client)
		if err != nil {
			return nil, err
		}
		if cfg.Cache.RedisURL != "" {
			store, err := embedding.NewRedisStore(ctx, cfg.Cache.RedisURL)
			if err != nil {
				return nil, err
			}
			closers = append(closers, store)
			embedder = embedding.NewCached(embedder, store, cfg.Cache.TTL, logger)
			logger.Info("Embedding cache enabled", zap.Duration("ttl", cfg.Cache.TTL))
		}

		backend, err := openBackend(cfg, embedder.Model())
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
			return nil, err
		}

		logger.Info("Vector store ready",
			zap.String("backend", backend.Name()),
			zap.String("embeddings", embedder.Model()),
		)
		return NewIndex(embedder, backend, closers...), nil
	}
}

func openBackend(cfg *config.Config, model string) (Backend, error) {
	switch name := cfg.VectorBackend(); name {
	case BackendQdrant:
		return NewQdrant(cfg.VectorStore.QdrantURL, cfg.VectorStore.QdrantAPIKey, cfg.VectorStore.Collection)
	case BackendSQLite:
		return NewSQLite(cfg.VectorStore.Path, model)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", name)
	}
}
