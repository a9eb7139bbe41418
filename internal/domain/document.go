package domain

// Metadata keys attached to stored chunks
const (
	MetadataKeySource   = "source"
	MetadataKeyFileName = "fileName"
	MetadataKeyType     = "type"
)

// Source types reported by the document loader
const (
	SourceTypeText = "text"
	SourceTypeWeb  = "web"
	SourceTypePDF  = "pdf"
	SourceTypeDOCX = "docx"
)

// Chunk is a piece of ingested text together with its provenance
type Chunk struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Source returns the source metadata value, if any
func (c Chunk) Source() string {
	if c.Metadata == nil {
		return ""
	}
	s, _ := c.Metadata[MetadataKeySource].(string)
	return s
}

// ScoredChunk is a chunk returned by a similarity search
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// LoadStats describes the outcome of loading and splitting a document
type LoadStats struct {
	TotalChunks     int    `json:"totalChunks"`
	TotalCharacters int    `json:"totalCharacters"`
	SourceType      string `json:"sourceType"`
	FileName        string `json:"fileName,omitempty"`
}

// Ingest source types accepted by the ingest endpoint
const (
	IngestTypeURL  = "url"
	IngestTypeText = "text"
	IngestTypeFile = "file"
)

// IngestRequest is the request to load, split and store a document.
// Source is the legacy single-field form. A nil ChunkOverlap keeps the
// configured overlap; an explicit 0 disables overlap.
type IngestRequest struct {
	Type         string         `json:"type,omitempty" binding:"omitempty,oneof=url text file"`
	Content      string         `json:"content,omitempty"`
	URL          string         `json:"url,omitempty"`
	Filename     string         `json:"filename,omitempty"`
	Source       string         `json:"source,omitempty"`
	ChunkSize    int            `json:"chunkSize,omitempty" binding:"omitempty,min=1"`
	ChunkOverlap *int           `json:"chunkOverlap,omitempty" binding:"omitempty,min=0"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// IngestResponse is the response of the ingest endpoint
type IngestResponse struct {
	Success       bool       `json:"success"`
	Message       string     `json:"message"`
	DocumentCount int        `json:"documentCount,omitempty"`
	Stats         *LoadStats `json:"stats,omitempty"`
}

// UpsertRequest stores raw texts without splitting
type UpsertRequest struct {
	Texts     []string         `json:"texts" binding:"required,min=1,dive,min=1"`
	Metadatas []map[string]any `json:"metadatas,omitempty"`
}

// UpsertResponse is the response of the upsert endpoint
type UpsertResponse struct {
	OK       bool   `json:"ok"`
	Provider string `json:"provider"`
	Count    int    `json:"count"`
}

// QueryRequest is a raw similarity search
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"topK,omitempty" binding:"omitempty,min=1,max=50"`
}

// QueryResult is a single similarity search hit
type QueryResult struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

// QueryResponse is the response of the query endpoint
type QueryResponse struct {
	Results []QueryResult `json:"results"`
}
