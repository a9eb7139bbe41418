package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for Castle
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	Ollama      OllamaConfig      `mapstructure:"ollama"`
	Chat        ChatConfig        `mapstructure:"chat"`
	Embeddings  EmbeddingsConfig  `mapstructure:"embeddings"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`
	Cache       CacheConfig       `mapstructure:"cache"`
	RAG         RAGConfig         `mapstructure:"rag"`
	Chains      ChainsConfig      `mapstructure:"chains"`
	Prompts     PromptsConfig     `mapstructure:"prompts"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	AllowOrigins []string `mapstructure:"allow_origins"`
	APIKey       string   `mapstructure:"api_key"`
	StaticDir    string   `mapstructure:"static_dir"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// OllamaConfig holds Ollama server configuration
type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// ChatConfig holds chat relay configuration
type ChatConfig struct {
	AllowedModels []string `mapstructure:"allowed_models"`
}

// EmbeddingsConfig selects the embedding model
type EmbeddingsConfig struct {
	Provider    string `mapstructure:"provider"`
	OpenAIModel string `mapstructure:"openai_model"`
	OllamaModel string `mapstructure:"ollama_model"`
}

// VectorStoreConfig selects and configures the vector index backend
type VectorStoreConfig struct {
	Provider     string `mapstructure:"provider"`
	Path         string `mapstructure:"path"`
	QdrantURL    string `mapstructure:"qdrant_url"`
	QdrantAPIKey string `mapstructure:"qdrant_api_key"`
	Collection   string `mapstructure:"collection"`
}

// CacheConfig holds the optional embedding cache configuration
type CacheConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RAGConfig holds chunking configuration
type RAGConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
}

// ChainsConfig holds the provider settings used by templated chains
type ChainsConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

// PromptsConfig holds the prompt store location
type PromptsConfig struct {
	Path string `mapstructure:"path"`
}

// legacyEnv maps config keys to the plain environment variables earlier
// deployments used
var legacyEnv = map[string]string{
	"server.port":             "PORT",
	"server.allow_origins":    "ALLOWED_ORIGINS",
	"openai.api_key":          "OPENAI_API_KEY",
	"ollama.base_url":         "OLLAMA_BASE",
	"embeddings.provider":     "EMBEDDINGS_PROVIDER",
	"embeddings.openai_model": "OPENAI_EMBED_MODEL",
	"embeddings.ollama_model": "OLLAMA_EMBED_MODEL",
	"vector_store.qdrant_url": "QDRANT_URL",
	"vector_store.collection": "QDRANT_COLLECTION",
	"cache.redis_url":         "REDIS_URL",
}

// Load loads configuration from .env, file and environment
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("CASTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		prefixed := "CASTLE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	// Read config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.static_dir", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ollama.base_url", "http://localhost:11434")

	v.SetDefault("chat.allowed_models", []string{
		"openai:gpt-4o-mini",
		"openai:gpt-4o",
		"openai:gpt-3.5-turbo",
		"openai:gpt-4.1",
		"ollama:llama2",
		"ollama:llama3.1",
		"ollama:mistral",
		"ollama:neural-chat",
	})

	v.SetDefault("embeddings.provider", "openai")
	v.SetDefault("embeddings.openai_model", "text-embedding-3-small")
	v.SetDefault("embeddings.ollama_model", "nomic-embed-text")

	v.SetDefault("vector_store.provider", "auto")
	v.SetDefault("vector_store.path", "./data/vectors.db")
	v.SetDefault("vector_store.qdrant_url", "")
	v.SetDefault("vector_store.qdrant_api_key", "")
	v.SetDefault("vector_store.collection", "castle_mvp")

	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("rag.chunk_size", 1000)
	v.SetDefault("rag.chunk_overlap", 200)

	v.SetDefault("chains.provider", "openai")
	v.SetDefault("chains.model", "")
	v.SetDefault("chains.temperature", 0.7)

	v.SetDefault("prompts.path", "./data/prompts.json")
}

// Validate checks values that would otherwise fail deep inside a request
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, chunk_size), got %d", c.RAG.ChunkOverlap)
	}
	if c.Chains.Temperature < 0 || c.Chains.Temperature > 2 {
		return fmt.Errorf("chains.temperature must be in [0, 2], got %v", c.Chains.Temperature)
	}
	switch c.Chains.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("chains.provider must be openai or ollama, got %q", c.Chains.Provider)
	}
	switch c.Embeddings.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("embeddings.provider must be openai or ollama, got %q", c.Embeddings.Provider)
	}
	switch c.VectorStore.Provider {
	case "auto", "memory", "sqlite", "qdrant":
	default:
		return fmt.Errorf("vector_store.provider must be auto, memory, sqlite or qdrant, got %q", c.VectorStore.Provider)
	}
	if c.VectorStore.Provider == "qdrant" && c.VectorStore.QdrantURL == "" {
		return errors.New("vector_store.qdrant_url is required for the qdrant provider")
	}
	return nil
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// VectorBackend resolves the "auto" provider to a concrete backend name
func (c *Config) VectorBackend() string {
	if c.VectorStore.Provider != "auto" {
		return c.VectorStore.Provider
	}
	if c.VectorStore.QdrantURL != "" {
		return "qdrant"
	}
	return "memory"
}
