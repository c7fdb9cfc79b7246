// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Admin         AdminConfig         `mapstructure:"admin"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	OpenAI        OpenAIConfig        `mapstructure:"openai"`
	Gemini        GeminiConfig        `mapstructure:"gemini"`
	VectorStore   VectorStoreConfig   `mapstructure:"vector_store"`
	Pinecone      PineconeConfig      `mapstructure:"pinecone"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Indexer       IndexerConfig       `mapstructure:"indexer"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// AdminConfig 存储运维账号的配置，密码以 bcrypt 哈希形式保存。
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// EmbeddingConfig 选择并配置向量化模型。
// provider 决定激活哪一条实现（openai 或 gemini），dimensions 必须与
// 向量索引创建时的维度一致。
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// OpenAIConfig 存储 OpenAI 兼容 API 的配置。
type OpenAIConfig struct {
	APIKey     string           `mapstructure:"api_key"`
	BaseURL    string           `mapstructure:"base_url"`
	Model      string           `mapstructure:"model"`
	Generation GenerationConfig `mapstructure:"generation"`
}

// GeminiConfig 存储 Google Gemini API 的配置。
type GeminiConfig struct {
	APIKey         string           `mapstructure:"api_key"`
	BaseURL        string           `mapstructure:"base_url"`
	Model          string           `mapstructure:"model"`
	EmbeddingModel string           `mapstructure:"embedding_model"`
	Generation     GenerationConfig `mapstructure:"generation"`
}

// GenerationConfig 配置生成相关参数（可选，零值表示使用服务端默认）。
type GenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	TopK        int     `mapstructure:"top_k"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// VectorStoreConfig 选择激活的向量存储后端。
type VectorStoreConfig struct {
	Type string `mapstructure:"type"` // pinecone 或 elasticsearch
}

// PineconeConfig 存储 Pinecone 向量索引的配置。
type PineconeConfig struct {
	APIKey     string `mapstructure:"api_key"`
	IndexName  string `mapstructure:"index_name"`
	Cloud      string `mapstructure:"cloud"`
	Region     string `mapstructure:"region"`
	ControlURL string `mapstructure:"control_url"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// IndexerConfig 配置网站内容扫描与索引。
type IndexerConfig struct {
	PagesRoot      string   `mapstructure:"pages_root"`
	MarkdownFiles  []string `mapstructure:"markdown_files"`
	SiteBaseURL    string   `mapstructure:"site_base_url"`
	ChunkSize      int      `mapstructure:"chunk_size"`
	UpsertDelayMs  int      `mapstructure:"upsert_delay_ms"`
	ExcludeDirs    []string `mapstructure:"exclude_dirs"`
	PageExtensions []string `mapstructure:"page_extensions"`
}

// PipelineConfig 配置文档处理管道。
type PipelineConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	OverlapWords int `mapstructure:"overlap_words"`
}

// Load 初始化配置加载，从指定的路径读取 YAML 文件并解析。
// API Key 等敏感项允许通过环境变量覆盖（.env 文件若存在则先行加载）。
func Load(configPath string) (*Config, error) {
	// .env 不存在时静默忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// bindEnvKeys 将运维侧约定的环境变量名绑定到配置键。
func bindEnvKeys(v *viper.Viper) {
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("openai.model", "OPENAI_MODEL")
	_ = v.BindEnv("openai.generation.temperature", "OPENAI_TEMPERATURE")
	_ = v.BindEnv("openai.generation.top_p", "OPENAI_TOP_P")
	_ = v.BindEnv("openai.generation.max_tokens", "OPENAI_MAX_TOKENS")
	_ = v.BindEnv("gemini.api_key", "GOOGLE_API_KEY")
	_ = v.BindEnv("gemini.model", "GEMINI_MODEL")
	_ = v.BindEnv("gemini.embedding_model", "GEMINI_EMBEDDING_MODEL")
	_ = v.BindEnv("gemini.generation.temperature", "GEMINI_TEMPERATURE")
	_ = v.BindEnv("gemini.generation.top_p", "GEMINI_TOP_P")
	_ = v.BindEnv("gemini.generation.top_k", "GEMINI_TOP_K")
	_ = v.BindEnv("gemini.generation.max_tokens", "GEMINI_MAX_TOKENS")
	_ = v.BindEnv("pinecone.api_key", "PINECONE_API_KEY")
	_ = v.BindEnv("pinecone.index_name", "PINECONE_INDEX_NAME")
	_ = v.BindEnv("pinecone.cloud", "PINECONE_CLOUD")
	_ = v.BindEnv("pinecone.region", "PINECONE_REGION")
}

// applyDefaults 为未配置的键填充缺省值。
func applyDefaults(cfg *Config) {
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.Gemini.BaseURL == "" {
		cfg.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-1.5-flash"
	}
	if cfg.Gemini.EmbeddingModel == "" {
		cfg.Gemini.EmbeddingModel = "text-embedding-004"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "gemini"
	}
	// gemini 路径的模型名走 gemini.embedding_model，这里只兜底 openai 路径
	if cfg.Embedding.Model == "" && cfg.Embedding.Provider == "openai" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		if cfg.Embedding.Provider == "openai" {
			cfg.Embedding.Dimensions = 1536
		} else {
			cfg.Embedding.Dimensions = 768
		}
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "pinecone"
	}
	if cfg.Pinecone.ControlURL == "" {
		cfg.Pinecone.ControlURL = "https://api.pinecone.io"
	}
	if cfg.Pinecone.Cloud == "" {
		cfg.Pinecone.Cloud = "aws"
	}
	if cfg.Pinecone.Region == "" {
		cfg.Pinecone.Region = "us-east-1"
	}
	if cfg.Pipeline.ChunkSize == 0 {
		cfg.Pipeline.ChunkSize = 1000
	}
	if cfg.Pipeline.OverlapWords == 0 {
		cfg.Pipeline.OverlapWords = 100
	}
	if cfg.Indexer.ChunkSize == 0 {
		cfg.Indexer.ChunkSize = 1000
	}
	if cfg.Indexer.UpsertDelayMs == 0 {
		cfg.Indexer.UpsertDelayMs = 200
	}
	if len(cfg.Indexer.ExcludeDirs) == 0 {
		cfg.Indexer.ExcludeDirs = []string{"api"}
	}
	if len(cfg.Indexer.PageExtensions) == 0 {
		cfg.Indexer.PageExtensions = []string{".tsx", ".jsx"}
	}
}
