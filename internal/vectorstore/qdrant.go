package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/liliang-cn/castle/internal/domain"
)

const (
	qdrantTextKey  = "text"
	qdrantRESTPort = 6333
	qdrantGRPCPort = 6334
)

// Qdrant stores chunks in an external Qdrant collection. The collection
// is created on first write with the dimension of the first vector.
type Qdrant struct {
	client     *qdrant.Client
	collection string

	mu     sync.Mutex
	exists bool
}

// NewQdrant connects to the Qdrant server at rawURL. A REST URL
// (port 6333) is mapped to the gRPC port.
func NewQdrant(rawURL, apiKey, collection string) (*Qdrant, error) {
	cfg, err := qdrantConfig(rawURL, apiKey)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	return &Qdrant{client: client, collection: collection}, nil
}

func qdrantConfig(rawURL, apiKey string) (*qdrant.Config, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid qdrant url %q", rawURL)
	}
	port := qdrantGRPCPort
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port %q", p)
		}
		if n != qdrantRESTPort {
			port = n
		}
	}
	return &qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: u.Scheme == "https",
	}, nil
}

// Name returns the backend name
func (q *Qdrant) Name() string { return BackendQdrant }

func (q *Qdrant) ensureCollection(ctx context.Context, size int, create bool) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.exists {
		return true, nil
	}
	ok, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", q.collection, err)
	}
	if ok {
		q.exists = true
		return true, nil
	}
	if !create {
		return false, nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(size),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return false, fmt.Errorf("failed to create collection %s: %w", q.collection, err)
	}
	q.exists = true
	return true, nil
}

// Add upserts chunks as points with random UUIDs
func (q *Qdrant) Add(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks and %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}
	if _, err := q.ensureCollection(ctx, len(vectors[0]), true); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		payload, err := qdrant.TryValueMap(chunkPayload(c))
		if err != nil {
			return fmt.Errorf("unsupported metadata value: %w", err)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.New().String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		}
	}

	wait := true
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search queries the collection. A missing collection has no results.
func (q *Qdrant) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	ok, err := q.ensureCollection(ctx, 0, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}

	results := make([]domain.ScoredChunk, 0, len(points))
	for _, p := range points {
		results = append(results, domain.ScoredChunk{
			Chunk: chunkFromPayload(p.GetPayload()),
			Score: float64(p.GetScore()),
		})
	}
	return results, nil
}

// Close closes the gRPC connection
func (q *Qdrant) Close() error {
	return q.client.Close()
}

// chunkPayload flattens metadata next to the text, the same layout
// other indexers write (text, source, ...)
func chunkPayload(c domain.Chunk) map[string]any {
	payload := make(map[string]any, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		payload[k] = v
	}
	payload[qdrantTextKey] = c.Text
	return payload
}

func chunkFromPayload(payload map[string]*qdrant.Value) domain.Chunk {
	c := domain.Chunk{Metadata: map[string]any{}}
	for k, v := range payload {
		if k == qdrantTextKey {
			c.Text = v.GetStringValue()
			continue
		}
		c.Metadata[k] = valueToAny(v)
	}
	return c
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_StructValue:
		m := make(map[string]any, len(kind.StructValue.GetFields()))
		for k, fv := range kind.StructValue.GetFields() {
			m[k] = valueToAny(fv)
		}
		return m
	case *qdrant.Value_ListValue:
		list := make([]any, 0, len(kind.ListValue.GetValues()))
		for _, lv := range kind.ListValue.GetValues() {
			list = append(list, valueToAny(lv))
		}
		return list
	default:
		return nil
	}
}
