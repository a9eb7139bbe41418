package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 3001 {
		t.Errorf("expected port 3001, got %d", cfg.Server.Port)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("unexpected ollama url %s", cfg.Ollama.BaseURL)
	}
	if cfg.RAG.ChunkSize != 1000 || cfg.RAG.ChunkOverlap != 200 {
		t.Errorf("unexpected chunking %+v", cfg.RAG)
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("unexpected cache ttl %v", cfg.Cache.TTL)
	}
	if len(cfg.Chat.AllowedModels) == 0 {
		t.Error("expected default allowed models")
	}
	if cfg.VectorBackend() != "memory" {
		t.Errorf("expected memory backend without qdrant url, got %s", cfg.VectorBackend())
	}
	if cfg.Address() != "0.0.0.0:3001" {
		t.Errorf("unexpected address %s", cfg.Address())
	}
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OLLAMA_BASE", "http://ollama:11434")
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("expected api key from OPENAI_API_KEY, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.Ollama.BaseURL != "http://ollama:11434" {
		t.Errorf("unexpected ollama url %s", cfg.Ollama.BaseURL)
	}
	if cfg.VectorBackend() != "qdrant" {
		t.Errorf("expected qdrant backend, got %s", cfg.VectorBackend())
	}
	if strings.Join(cfg.Server.AllowOrigins, "|") != "http://a.test|http://b.test" {
		t.Errorf("unexpected origins %v", cfg.Server.AllowOrigins)
	}
}

func TestLoadPrefixedEnvWins(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("CASTLE_SERVER_PORT", "9090")
	t.Setenv("CASTLE_CHAINS_PROVIDER", "ollama")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected prefixed variable to win, got %d", cfg.Server.Port)
	}
	if cfg.Chains.Provider != "ollama" {
		t.Errorf("expected ollama chains provider, got %s", cfg.Chains.Provider)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "castle.yaml")
	content := `
server:
  port: 4000
  api_key: secret
vector_store:
  provider: sqlite
  path: /tmp/castle.db
rag:
  chunk_size: 500
  chunk_overlap: 50
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 4000 || cfg.Server.APIKey != "secret" {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.VectorBackend() != "sqlite" || cfg.VectorStore.Path != "/tmp/castle.db" {
		t.Errorf("unexpected vector store config %+v", cfg.VectorStore)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.ChunkOverlap != 50 {
		t.Errorf("unexpected rag config %+v", cfg.RAG)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Embeddings:  EmbeddingsConfig{Provider: "openai"},
			VectorStore: VectorStoreConfig{Provider: "auto"},
			RAG:         RAGConfig{ChunkSize: 1000, ChunkOverlap: 200},
			Chains:      ChainsConfig{Provider: "openai", Temperature: 0.7},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.RAG.ChunkSize = 0 }},
		{"overlap equals size", func(c *Config) { c.RAG.ChunkOverlap = 1000 }},
		{"negative overlap", func(c *Config) { c.RAG.ChunkOverlap = -1 }},
		{"temperature too high", func(c *Config) { c.Chains.Temperature = 2.5 }},
		{"unknown chains provider", func(c *Config) { c.Chains.Provider = "anthropic" }},
		{"unknown embeddings provider", func(c *Config) { c.Embeddings.Provider = "cohere" }},
		{"unknown vector store", func(c *Config) { c.VectorStore.Provider = "pinecone" }},
		{"qdrant without url", func(c *Config) { c.VectorStore.Provider = "qdrant" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
