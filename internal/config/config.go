package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App      AppConfig      `toml:"app"`
	Auth     AuthConfig     `toml:"auth"`
	LLM      LLMConfig      `toml:"llm"`
	RAG      RAGConfig      `toml:"rag"`
	Agent    AgentConfig    `toml:"agent"`
	Pinecone PineconeConfig `toml:"pinecone"`
	Storage  StorageConfig  `toml:"storage"`
	MySQL    MySQLConfig    `toml:"mysql"`
	Redis    RedisConfig    `toml:"redis"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
}

type AppConfig struct {
	Name         string `toml:"name"`
	Env          string `toml:"env"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	GinMode      string `toml:"gin_mode"`
	LogLevel     string `toml:"log_level"`
	SkipTokenLog bool   `toml:"skip_token_log"`
}

type AuthConfig struct {
	// JWTSecret guards the hero upsert endpoint. Empty leaves it open.
	JWTSecret string `toml:"jwt_secret"`
}

type LLMConfig struct {
	BaseURL                 string `toml:"base_url"`
	APIKey                  string `toml:"api_key"`
	Model                   string `toml:"model"`
	EmbeddingModel          string `toml:"embedding_model"`
	EmbeddingBatchSize      int    `toml:"embedding_batch_size"`
	TimeoutSeconds          int    `toml:"timeout_seconds"`
	MaxRetries              int    `toml:"max_retries"`
	BreakerFailureThreshold int    `toml:"breaker_failure_threshold"`
	BreakerOpenSeconds      int    `toml:"breaker_open_seconds"`
	BreakerHalfOpenMaxCalls int    `toml:"breaker_half_open_max_calls"`
}

type RAGConfig struct {
	UseEmbeddings         bool   `toml:"use_embeddings"`
	AutoRefreshEmbeddings bool   `toml:"auto_refresh_embeddings"`
	HeroLimit             int    `toml:"hero_limit"`
	HeroesFile            string `toml:"heroes_file"`
	HeroEmbeddingsFile    string `toml:"hero_embeddings_file"`
}

type AgentConfig struct {
	UseEmbeddings         bool   `toml:"use_embeddings"`
	AutoRefreshEmbeddings bool   `toml:"auto_refresh_embeddings"`
	Limit                 int    `toml:"limit"`
	KBFile                string `toml:"kb_file"`
	EmbeddingsFile        string `toml:"embeddings_file"`
	KBSourceMarkdown      string `toml:"kb_source_markdown"`
}

type PineconeConfig struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	IndexHost      string `toml:"index_host"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UpsertBatch    int    `toml:"upsert_batch"`
}

const (
	KnowledgeDriverJSON  = "json"
	KnowledgeDriverMySQL = "mysql"

	EmbeddingDriverFile  = "file"
	EmbeddingDriverRedis = "redis"
)

type StorageConfig struct {
	KnowledgeDriver string `toml:"knowledge_driver"`
	EmbeddingDriver string `toml:"embedding_driver"`
}

type MySQLConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DB       string `toml:"db"`
	Params   string `toml:"params"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// RabbitMQConfig enables the embedding refresh queue when URL is set.
type RabbitMQConfig struct {
	URL          string `toml:"url"`
	RefreshQueue string `toml:"refresh_queue"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.MySQL.User,
		c.MySQL.Password,
		c.MySQL.Host,
		c.MySQL.Port,
		c.MySQL.DB,
		c.MySQL.Params,
	)
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) PineconeTimeout() time.Duration {
	return time.Duration(c.Pinecone.TimeoutSeconds) * time.Second
}

// RemoteIndexEnabled reports whether the remote index tier may be used.
func (c *Config) RemoteIndexEnabled() bool {
	return c.Pinecone.Enabled && c.Pinecone.APIKey != "" && c.Pinecone.IndexHost != ""
}

func (c *Config) validate() error {
	switch c.Storage.KnowledgeDriver {
	case KnowledgeDriverJSON, KnowledgeDriverMySQL:
	default:
		return fmt.Errorf("unknown storage.knowledge_driver %q", c.Storage.KnowledgeDriver)
	}
	switch c.Storage.EmbeddingDriver {
	case EmbeddingDriverFile, EmbeddingDriverRedis:
	default:
		return fmt.Errorf("unknown storage.embedding_driver %q", c.Storage.EmbeddingDriver)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "marvel-rag",
			Env:      "dev",
			Host:     "0.0.0.0",
			Port:     8082,
			GinMode:  "debug",
			LogLevel: "info",
		},
		LLM: LLMConfig{
			BaseURL:                 "https://api.openai.com/v1",
			Model:                   "gpt-4o-mini",
			EmbeddingModel:          "text-embedding-3-small",
			EmbeddingBatchSize:      10,
			TimeoutSeconds:          20,
			MaxRetries:              3,
			BreakerFailureThreshold: 3,
			BreakerOpenSeconds:      30,
			BreakerHalfOpenMaxCalls: 1,
		},
		RAG: RAGConfig{
			HeroLimit:          5,
			HeroesFile:         "storage/knowledge/heroes.json",
			HeroEmbeddingsFile: "storage/embeddings/heroes.json",
		},
		Agent: AgentConfig{
			Limit:            3,
			KBFile:           "storage/marvel_agent_kb.json",
			EmbeddingsFile:   "storage/embeddings/agent.json",
			KBSourceMarkdown: "docs/marvel_agent_knowledge.md",
		},
		Pinecone: PineconeConfig{
			TimeoutSeconds: 10,
			UpsertBatch:    100,
		},
		Storage: StorageConfig{
			KnowledgeDriver: KnowledgeDriverJSON,
			EmbeddingDriver: EmbeddingDriverFile,
		},
		MySQL: MySQLConfig{
			Host:   "127.0.0.1",
			Port:   3306,
			User:   "root",
			DB:     "marvel_rag",
			Params: "parseTime=true&loc=Local&charset=utf8mb4",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		RabbitMQ: RabbitMQConfig{
			RefreshQueue: "rag.embedding.refresh",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.SkipTokenLog = getEnvAsBool("SKIP_TOKEN_LOG", cfg.App.SkipTokenLog)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("OPENAI_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.EmbeddingModel = getEnv("LLM_EMBEDDING_MODEL", cfg.LLM.EmbeddingModel)
	cfg.LLM.TimeoutSeconds = getEnvAsInt("LLM_TIMEOUT_SECONDS", cfg.LLM.TimeoutSeconds)
	cfg.LLM.MaxRetries = getEnvAsInt("LLM_MAX_RETRIES", cfg.LLM.MaxRetries)
	cfg.LLM.BreakerFailureThreshold = getEnvAsInt("CB_FAILURE_THRESHOLD", cfg.LLM.BreakerFailureThreshold)
	cfg.LLM.BreakerOpenSeconds = getEnvAsInt("CB_OPEN_TTL_SECONDS", cfg.LLM.BreakerOpenSeconds)
	cfg.LLM.BreakerHalfOpenMaxCalls = getEnvAsInt("CB_HALF_OPEN_MAX_CALLS", cfg.LLM.BreakerHalfOpenMaxCalls)

	cfg.RAG.UseEmbeddings = getEnvAsBool("RAG_USE_EMBEDDINGS", cfg.RAG.UseEmbeddings)
	cfg.RAG.AutoRefreshEmbeddings = getEnvAsBool("RAG_EMBEDDINGS_AUTOREFRESH", cfg.RAG.AutoRefreshEmbeddings)
	cfg.RAG.HeroesFile = getEnv("RAG_HEROES_FILE", cfg.RAG.HeroesFile)
	cfg.RAG.HeroEmbeddingsFile = getEnv("RAG_EMBEDDINGS_FILE", cfg.RAG.HeroEmbeddingsFile)

	cfg.Agent.UseEmbeddings = getEnvAsBool("AGENT_USE_EMBEDDINGS", cfg.Agent.UseEmbeddings)
	cfg.Agent.AutoRefreshEmbeddings = getEnvAsBool("AGENT_EMBEDDINGS_AUTOREFRESH", cfg.Agent.AutoRefreshEmbeddings)
	cfg.Agent.KBFile = getEnv("AGENT_KB_FILE", cfg.Agent.KBFile)
	cfg.Agent.EmbeddingsFile = getEnv("AGENT_EMBEDDINGS_FILE", cfg.Agent.EmbeddingsFile)

	cfg.Pinecone.Enabled = getEnvAsBool("PINECONE_MODE", cfg.Pinecone.Enabled)
	cfg.Pinecone.APIKey = getEnv("PINECONE_API_KEY", cfg.Pinecone.APIKey)
	cfg.Pinecone.IndexHost = getEnv("PINECONE_INDEX_HOST", cfg.Pinecone.IndexHost)

	cfg.Storage.KnowledgeDriver = strings.ToLower(getEnv("KNOWLEDGE_DRIVER", cfg.Storage.KnowledgeDriver))
	cfg.Storage.EmbeddingDriver = strings.ToLower(getEnv("EMBEDDING_DRIVER", cfg.Storage.EmbeddingDriver))

	cfg.MySQL.Host = getEnv("MYSQL_HOST", cfg.MySQL.Host)
	cfg.MySQL.Port = getEnvAsInt("MYSQL_PORT", cfg.MySQL.Port)
	cfg.MySQL.User = getEnv("MYSQL_USER", cfg.MySQL.User)
	cfg.MySQL.Password = getEnv("MYSQL_PASSWORD", cfg.MySQL.Password)
	cfg.MySQL.DB = getEnv("MYSQL_DB", cfg.MySQL.DB)
	cfg.MySQL.Params = getEnv("MYSQL_PARAMS", cfg.MySQL.Params)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.RefreshQueue = getEnv("RABBITMQ_REFRESH_QUEUE", cfg.RabbitMQ.RefreshQueue)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}
