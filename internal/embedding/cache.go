package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "castle:emb:"

// Store is the key-value store behind a Cached embedder. A nil entry in
// the result of GetMany is a miss.
type Store interface {
	GetMany(ctx context.Context, keys []string) ([][]byte, error)
	SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error
}

// Cached wraps an embedder with a shared cache keyed by model and text.
// Cache failures are logged and fall through to the wrapped embedder.
type Cached struct {
	inner  Embedder
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewCached creates a caching embedder
func NewCached(inner Embedder, store Store, ttl time.Duration, logger *zap.Logger) *Cached {
	return &Cached{inner: inner, store: store, ttl: ttl, logger: logger}
}

// Model returns the wrapped model identifier
func (c *Cached) Model() string { return c.inner.Model() }

// EmbedDocuments returns cached vectors and embeds only the misses
func (c *Cached) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	out := make([][]float32, len(texts))
	cached, err := c.store.GetMany(ctx, keys)
	if err != nil {
		c.logger.Warn("Embedding cache read failed", zap.Error(err))
		cached = nil
	}
	for i, raw := range cached {
		if i >= len(out) || raw == nil {
			continue
		}
		if vec, ok := decodeVector(raw); ok {
			out[i] = vec
		}
	}

	var missIdx []int
	var missTexts []string
	for i, vec := range out {
		if vec == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.inner.EmbedDocuments(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("%s: expected %d vectors, got %d", c.inner.Model(), len(missTexts), len(fresh))
	}

	entries := make(map[string][]byte, len(fresh))
	for j, i := range missIdx {
		out[i] = fresh[j]
		entries[keys[i]] = encodeVector(fresh[j])
	}
	if err := c.store.SetMany(ctx, entries, c.ttl); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.Error(err))
	}

	c.logger.Debug("Embedded documents",
		zap.Int("total", len(texts)),
		zap.Int("cache_misses", len(missTexts)),
	)
	return out, nil
}

// EmbedQuery embeds a single query through the cache
func (c *Cached) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, c, text)
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + c.inner.Model() + ":" + hex.EncodeToString(sum[:])
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, bool) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, false
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, true
}

// RedisStore is a Store backed by Redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redisURL and verifies the connection
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// GetMany fetches keys with a single MGET
func (s *RedisStore) GetMany(ctx context.Context, keys []string) ([][]byte, error) {
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[i] = []byte(str)
		}
	}
	return out, nil
}

// SetMany writes entries in one pipeline
func (s *RedisStore) SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range entries {
			p.Set(ctx, k, v, ttl)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// Close closes the redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
