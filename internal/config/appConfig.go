package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig is the runtime configuration. Values come from the optional yaml file,
// then the process environment (a .env file is loaded first when present).
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Models      ModelConfig       `yaml:"models"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Redis       RedisConfig       `yaml:"redis"`
}

type ServerConfig struct {
	ListenAddr   string `yaml:"listen_addr" validate:"required"`
	AuthToken    string `yaml:"auth_token" validate:"required_without=NoAuthBypass"`
	NoAuthBypass bool   `yaml:"no_auth_bypass"`
	RateLimit    bool   `yaml:"rate_limit"`
}

type LogConfig struct {
	IsProd bool   `yaml:"is_prod"`
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// ModelConfig configures the model gateway.
type ModelConfig struct {
	Provider           string  `yaml:"provider" validate:"oneof=openai gemini anthropic"`
	EmbeddingProvider  string  `yaml:"embedding_provider" validate:"oneof=openai gemini"`
	ChatModel          string  `yaml:"chat_model" validate:"required"`
	Temperature        float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens          int     `yaml:"max_tokens" validate:"gt=0"`
	EmbeddingModel     string  `yaml:"embedding_model" validate:"required"`
	EmbeddingDimension int     `yaml:"embedding_dimension" validate:"gt=0"`
	SystemPrompt       string  `yaml:"system_prompt"`
	OpenAIAPIKey       string  `yaml:"openai_api_key"`
	OpenAIBaseURL      string  `yaml:"openai_base_url" validate:"omitempty,url"`
	GeminiAPIKey       string  `yaml:"gemini_api_key"`
	AnthropicAPIKey    string  `yaml:"anthropic_api_key"`
	TimeoutSecs        int     `yaml:"timeout_secs" validate:"gt=0"`
	MaxRetries         int     `yaml:"max_retries" validate:"gte=0"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size" validate:"gt=0"`
	Overlap int `yaml:"overlap" validate:"gte=0,ltfield=Size"`
}

type RetrievalConfig struct {
	K int `yaml:"k" validate:"gt=0"`
}

type VectorStoreConfig struct {
	Backend    string         `yaml:"backend" validate:"oneof=memory qdrant pgvector"`
	Collection string         `yaml:"collection" validate:"required"`
	Qdrant     QdrantConfig   `yaml:"qdrant"`
	Pgvector   PgvectorConfig `yaml:"pgvector"`
}

type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	UseTLS bool   `yaml:"use_tls"`
	APIKey string `yaml:"api_key"`
}

type PgvectorConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

// Timeout returns the bounded duration applied to every model call.
func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSecs) * time.Second
}

// Load resolves the configuration. A missing yaml file or .env file is not an error.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &AppConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)
	applyConfigDefaults(cfg)

	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid config: %s", formatProblems(problems))
	}
	return cfg, nil
}

func DefaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ServerListenAddr
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
		if cfg.Log.IsProd {
			cfg.Log.Level = "info"
		}
	}

	m := &cfg.Models
	if m.Provider == "" {
		m.Provider = DefaultLLMProvider
	}
	if m.EmbeddingProvider == "" {
		m.EmbeddingProvider = DefaultEmbeddingProvider
	}
	if m.ChatModel == "" {
		switch m.Provider {
		case "gemini":
			m.ChatModel = GeminiModelName
		case "anthropic":
			m.ChatModel = AnthropicModelName
		default:
			m.ChatModel = DefaultChatModel
		}
	}
	if m.Temperature == 0 {
		m.Temperature = DefaultTemperature
	}
	if m.MaxTokens == 0 {
		m.MaxTokens = DefaultMaxTokens
	}
	if m.EmbeddingModel == "" {
		m.EmbeddingModel = DefaultEmbeddingModel
		if m.EmbeddingProvider == "gemini" {
			m.EmbeddingModel = GoogleEmbeddingModel
		}
	}
	if m.EmbeddingDimension == 0 {
		m.EmbeddingDimension = DefaultEmbeddingDimension
	}
	if m.SystemPrompt == "" {
		m.SystemPrompt = DefaultSystemPrompt
	}
	if m.TimeoutSecs == 0 {
		m.TimeoutSecs = int(DefaultModelCallTimeout / time.Second)
	}
	if m.MaxRetries == 0 {
		m.MaxRetries = DefaultModelCallRetries
	}

	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = DefaultChunkSize
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = DefaultChunkOverlap
	}
	if cfg.Retrieval.K == 0 {
		cfg.Retrieval.K = DefaultRetrievalK
	}

	vs := &cfg.VectorStore
	if vs.Backend == "" {
		vs.Backend = DefaultVectorBackend
	}
	if vs.Collection == "" {
		vs.Collection = DefaultVectorCollection
	}
	if vs.Qdrant.Host == "" {
		vs.Qdrant.Host = QdrantHost
	}
	if vs.Qdrant.Port == 0 {
		vs.Qdrant.Port = QdrantGrpcPort
	}
	if vs.Pgvector.Table == "" {
		vs.Pgvector.Table = DefaultPgvectorTableName
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = RedisAddr
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	setString(&cfg.Server.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.Server.AuthToken, "AUTH_TOKEN")
	setBool(&cfg.Server.NoAuthBypass, "NO_AUTH_BYPASS")
	setBool(&cfg.Server.RateLimit, "RATE_LIMIT")
	setBool(&cfg.Log.IsProd, "IS_PROD")
	setString(&cfg.Log.Level, "LOG_LEVEL")

	m := &cfg.Models
	setString(&m.Provider, "LLM_PROVIDER")
	setString(&m.EmbeddingProvider, "EMBEDDING_PROVIDER")
	setString(&m.ChatModel, "OPENAI_CHAT_MODEL")
	setFloat(&m.Temperature, "CHAT_LLM_TEMPERATURE")
	setInt(&m.MaxTokens, "CHAT_LLM_MAX_TOKENS")
	setString(&m.EmbeddingModel, "OPENAI_EMBEDDINGS_MODEL")
	setInt(&m.EmbeddingDimension, "OPENAI_EMBEDDINGS_DIMENSIONS")
	setString(&m.SystemPrompt, "SYSTEM_PROMPT")
	setString(&m.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&m.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&m.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&m.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setInt(&m.TimeoutSecs, "MODEL_TIMEOUT_SECS")

	setInt(&cfg.Chunking.Size, "CHUNK_SIZE")
	setInt(&cfg.Chunking.Overlap, "CHUNK_OVERLAP")
	setInt(&cfg.Retrieval.K, "RETRIEVAL_K")

	vs := &cfg.VectorStore
	setString(&vs.Backend, "VECTOR_BACKEND")
	setString(&vs.Collection, "VECTOR_COLLECTION")
	setString(&vs.Qdrant.Host, "QDRANT_HOST")
	setInt(&vs.Qdrant.Port, "QDRANT_PORT")
	setString(&vs.Qdrant.APIKey, "QDRANT_API_KEY")
	setString(&vs.Pgvector.DSN, "PGVECTOR_DSN")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate returns field -> problem for every invalid setting.
func (c *AppConfig) Validate() map[string]string {
	problems := map[string]string{}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			problems["config"] = err.Error()
			return problems
		}
		for _, fe := range verrs {
			problems[fe.Namespace()] = fmt.Sprintf("failed %q (%v)", fe.Tag(), fe.Value())
		}
	}

	switch c.VectorStore.Backend {
	case "pgvector":
		if c.VectorStore.Pgvector.DSN == "" {
			problems["AppConfig.VectorStore.Pgvector.DSN"] = "required for the pgvector backend"
		}
	case "qdrant":
		if c.VectorStore.Qdrant.Port <= 0 {
			problems["AppConfig.VectorStore.Qdrant.Port"] = "must be positive"
		}
	}
	if c.Models.EmbeddingProvider == "gemini" && c.Models.GeminiAPIKey == "" {
		problems["AppConfig.Models.GeminiAPIKey"] = "required for the gemini embedding provider"
	}
	return problems
}

func formatProblems(problems map[string]string) string {
	parts := make([]string, 0, len(problems))
	for field, msg := range problems {
		parts = append(parts, field+": "+msg)
	}
	slices.Sort(parts)
	return strings.Join(parts, "; ")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}
