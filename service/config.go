package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/ragpipe/chunker"
	"github.com/viant/ragpipe/pipeline"
	"github.com/viant/ragpipe/vectordb"
	"github.com/viant/scy/cred/secret"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read by the CLI when --config is not given.
const DefaultConfigPath = "~/.ragpipe/config.yaml"

// Config is the YAML configuration of the pipeline and its capabilities.
type Config struct {
	Chunk     ChunkConfig     `yaml:"chunk"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	Store     StoreConfig     `yaml:"store"`
	MCPServer MCPServerConfig `yaml:"mcpServer"`
}

// ChunkConfig defines chunking and embedding batch settings.
type ChunkConfig struct {
	Size int `yaml:"size"`
	// Overlap is chunker.DefaultOverlap when unset; an explicit 0 disables it.
	Overlap   *int `yaml:"overlap,omitempty"`
	BatchSize int  `yaml:"batchSize"`
}

// OverlapOrDefault returns the configured overlap or chunker.DefaultOverlap.
func (c *ChunkConfig) OverlapOrDefault() int {
	if c.Overlap == nil {
		return chunker.DefaultOverlap
	}
	return *c.Overlap
}

// RetrievalConfig defines query settings.
type RetrievalConfig struct {
	K int `yaml:"k"`
	// EmptyContext is "shortCircuit" (default) or "generate".
	EmptyContext string `yaml:"emptyContext"`
}

// EmbedderConfig selects the embedding provider.
type EmbedderConfig struct {
	Provider  string `yaml:"provider"` // simple, openai, ollama, vertexai
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"baseURL"`
	Dimension int    `yaml:"dimension"`
	APIKeyEnv string `yaml:"apiKeyEnv"`
	ProjectID string `yaml:"projectID"`
	Location  string `yaml:"location"`
	// QueryCacheSize keeps recent query vectors; 0 disables the cache.
	QueryCacheSize int `yaml:"queryCacheSize"`
}

// GeneratorConfig selects the language model.
type GeneratorConfig struct {
	Provider       string `yaml:"provider"` // openai, ollama
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"baseURL"`
	APIKeyEnv      string `yaml:"apiKeyEnv"`
	APIKey         string `yaml:"apiKey,omitempty"`
	Secret         string `yaml:"secret,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// StoreConfig defines the vector store.
type StoreConfig struct {
	Driver      string `yaml:"driver"` // sqlite, bolt, memory, postgres
	Path        string `yaml:"path"`
	DSN         string `yaml:"dsn"`
	Secret      string `yaml:"secret,omitempty"`
	Collection  string `yaml:"collection"`
	IndexSearch bool   `yaml:"indexSearch"`
}

// MCPServerConfig defines MCP server settings.
type MCPServerConfig struct {
	Addr string `yaml:"addr"`
	Port int    `yaml:"port"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset values.
func (c *Config) ApplyDefaults() {
	if c.Chunk.Size == 0 {
		c.Chunk.Size = chunker.DefaultSize
	}
	if c.Chunk.Overlap == nil {
		overlap := chunker.DefaultOverlap
		c.Chunk.Overlap = &overlap
	}
	if c.Retrieval.K == 0 {
		c.Retrieval.K = pipeline.DefaultTopK
	}
	if c.Embedder.Provider == "" {
		c.Embedder.Provider = "openai"
	}
	if c.Embedder.APIKeyEnv == "" {
		c.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Generator.Provider == "" {
		c.Generator.Provider = "openai"
	}
	if c.Generator.APIKeyEnv == "" {
		c.Generator.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Path == "" && c.Store.DSN == "" {
		switch c.Store.Driver {
		case "sqlite":
			c.Store.Path = "~/.ragpipe/rag.sqlite"
		case "bolt":
			c.Store.Path = "~/.ragpipe/rag.db"
		}
	}
	if c.Store.Collection == "" {
		c.Store.Collection = vectordb.DefaultCollection
	}
}

// Validate checks the settings that would otherwise fail on first use.
func (c *Config) Validate() error {
	if err := chunker.Validate(c.Chunk.Size, c.Chunk.OverlapOrDefault()); err != nil {
		return fmt.Errorf("config: chunk: %w", err)
	}
	if c.Retrieval.K <= 0 {
		return fmt.Errorf("config: retrieval.k %d: %w", c.Retrieval.K, vectordb.ErrInvalidK)
	}
	switch c.Retrieval.EmptyContext {
	case "", "shortCircuit", "generate":
	default:
		return fmt.Errorf("config: unsupported retrieval.emptyContext %q", c.Retrieval.EmptyContext)
	}
	switch c.Embedder.Provider {
	case "simple", "openai", "ollama":
	case "vertexai":
		if c.Embedder.ProjectID == "" {
			return errors.New("config: embedder.projectID is required for vertexai")
		}
	default:
		return fmt.Errorf("config: unsupported embedder.provider %q", c.Embedder.Provider)
	}
	switch c.Generator.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("config: unsupported generator.provider %q", c.Generator.Provider)
	}
	switch c.Store.Driver {
	case "sqlite", "bolt":
		if c.Store.Path == "" && c.Store.DSN == "" {
			return fmt.Errorf("config: store.path is required for %s", c.Store.Driver)
		}
	case "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("config: store.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("config: unsupported store.driver %q", c.Store.Driver)
	}
	return nil
}

// String renders the configuration as YAML with the credential redacted.
func (c *Config) String() string {
	clone := *c
	if clone.Generator.APIKey != "" {
		clone.Generator.APIKey = "***"
	}
	data, err := yaml.Marshal(&clone)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}

// LoadConfig reads a YAML file, applies defaults and expands paths and
// secrets.
func LoadConfig(path string) (*Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Expand(context.Background()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadConfig reads a YAML file and applies defaults without expanding
// paths or secrets, so callers can override values first.
func ReadConfig(path string) (*Config, error) {
	path, err := expandUserPath(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Expand resolves ~ in store locations and secret placeholders in the DSN.
func (c *Config) Expand(ctx context.Context) error {
	var err error
	if c.Store.Path, err = expandUserPath(c.Store.Path); err != nil {
		return err
	}
	if c.Store.DSN, err = expandStoreDSN(c.Store.DSN, c.Store.Driver); err != nil {
		return err
	}
	if c.Store.Secret != "" {
		if c.Store.DSN, err = ExpandWithSecret(ctx, c.Store.DSN, c.Store.Secret); err != nil {
			return err
		}
	}
	return nil
}

// ResolveAPIKey returns the generation credential: an explicit apiKey
// (expanded with the secret when one is configured), else the environment
// variable named by apiKeyEnv.
func (c *GeneratorConfig) ResolveAPIKey(ctx context.Context) (string, error) {
	if c.Secret != "" {
		template := c.APIKey
		if template == "" {
			template = "${Password}"
		}
		return ExpandWithSecret(ctx, template, c.Secret)
	}
	if c.APIKey != "" {
		return c.APIKey, nil
	}
	if c.APIKeyEnv != "" {
		return os.Getenv(c.APIKeyEnv), nil
	}
	return "", nil
}

// StoreLocation returns the DSN or path the store opens.
func (c *StoreConfig) StoreLocation() string {
	if c.DSN != "" {
		return c.DSN
	}
	return c.Path
}

func expandUserPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed[0] != '~' {
		return path, nil
	}
	if trimmed != "~" && !strings.HasPrefix(trimmed, "~/") {
		return "", fmt.Errorf("config: unsupported ~user path: %s", path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(trimmed, "~")), nil
}

func expandStoreDSN(dsn, driver string) (string, error) {
	if dsn == "" {
		return dsn, nil
	}
	if driver == "sqlite" || driver == "bolt" || dsn[0] == '~' {
		return expandUserPath(dsn)
	}
	return dsn, nil
}

// ExpandWithSecret loads a scy secret and expands its placeholders in text.
func ExpandWithSecret(ctx context.Context, text, secretRef string) (string, error) {
	secretRef = strings.TrimSpace(secretRef)
	if secretRef == "" {
		return text, nil
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("secret %q provided but the value to expand is empty", secretRef)
	}
	svc := secret.New()
	sec, err := svc.Lookup(ctx, secret.Resource(secretRef))
	if err != nil {
		return "", err
	}
	return sec.Expand(text), nil
}
