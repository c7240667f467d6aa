package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes Go duration strings like "168h" from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Key     string `yaml:"key"`
	Model   string `yaml:"model"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type VectorConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	InMemory   bool   `yaml:"in_memory"`
}

type StorageConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Bucket    string        `yaml:"bucket"`
	UseSSL    bool          `yaml:"use_ssl"`
	URLTTL    Duration `yaml:"url_ttl"`
}

type RAGConfig struct {
	ChunkSize    int     `yaml:"chunk_size"`
	ChunkOverlap int     `yaml:"chunk_overlap"`
	TopK         int     `yaml:"top_k"`
	SystemPrompt string  `yaml:"system_prompt"`
	EmbedRate    float64 `yaml:"embed_rate"`
	UpsertRate   float64 `yaml:"upsert_rate"`
}

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	Database DatabaseConfig `yaml:"database"`
	Vector   VectorConfig   `yaml:"vector"`
	Storage  StorageConfig  `yaml:"storage"`
	RAG      RAGConfig      `yaml:"rag"`
}

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 100
	defaultTopK         = 10
	defaultEmbedRate    = 10 // calls per second against the embedding provider
	defaultUpsertRate   = 10 // batches per second against the vector index
	defaultURLTTL       = 7 * 24 * time.Hour
)

// LoadConfig reads a YAML config file, expanding ${ENV} references.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ChunkOverlap <= 0 {
		c.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = defaultTopK
	}
	if c.RAG.EmbedRate <= 0 {
		c.RAG.EmbedRate = defaultEmbedRate
	}
	if c.RAG.UpsertRate <= 0 {
		c.RAG.UpsertRate = defaultUpsertRate
	}
	if c.Storage.URLTTL <= 0 {
		c.Storage.URLTTL = Duration(defaultURLTTL)
	}
	if c.Vector.Collection == "" {
		c.Vector.Collection = "documents"
	}
	if c.Vector.Path == "" {
		c.Vector.Path = "./chromemdb"
	}
}
