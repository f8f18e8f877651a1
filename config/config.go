package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"grounder/internal/domain"
)

// Config holds all configuration for the grounded answering pipeline.
type Config struct {
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Gate      GateConfig      `yaml:"gate"`
	Planner   PlannerConfig   `yaml:"planner"`
	Search    SearchConfig    `yaml:"search"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Rank      RankConfig      `yaml:"rank"`
	Merge     MergeConfig     `yaml:"merge"`
	Ingest    IngestConfig    `yaml:"ingest"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RetrievalConfig controls the extended web retrieval path as a whole.
type RetrievalConfig struct {
	Extended bool `yaml:"extended"` // feature flag for the web branch
	MaxMS    int  `yaml:"max_ms"`   // overall deadline for search+fetch
}

// GateConfig holds sufficiency gate thresholds.
type GateConfig struct {
	MinLocalHits    int `yaml:"min_local_hits"`
	MinPassageChars int `yaml:"min_passage_chars"`
}

// PlannerConfig holds query planning configuration.
type PlannerConfig struct {
	// AnchorTerms are domain-relevant entity tokens. When two or more
	// appear in one query the planner emits an extra entity-pair variant.
	AnchorTerms []string `yaml:"anchor_terms"`
}

// SearchConfig holds search provider configuration.
type SearchConfig struct {
	Provider        string `yaml:"provider"`    // "tavily" or "" (fallback only)
	APIKeyEnv       string `yaml:"api_key_env"` // environment variable for the key
	MaxQueries      int    `yaml:"max_queries"`
	MaxResults      int    `yaml:"max_results"` // per variant
	TimeoutMS       int    `yaml:"timeout_ms"`  // per provider call
	CacheSize       int    `yaml:"cache_size"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
}

// FetchConfig holds page fetching and passage extraction configuration.
type FetchConfig struct {
	MaxPages        int `yaml:"max_pages"`
	MaxWebPassages  int `yaml:"max_web_passages"`
	Concurrency     int `yaml:"concurrency"`
	TimeoutMS       int `yaml:"timeout_ms"` // per page
	WindowChars     int `yaml:"window_chars"`
	OverlapChars    int `yaml:"overlap_chars"`
	MinPassageChars int `yaml:"min_passage_chars"`
	CacheTTLMinutes int `yaml:"cache_ttl_minutes"` // fetched-page cache
}

// RankConfig holds evidence ranking configuration.
type RankConfig struct {
	TopK int `yaml:"top_k"`
}

// MergeConfig holds context merging configuration.
type MergeConfig struct {
	MergeTop        int `yaml:"merge_top"`
	MaxContextChars int `yaml:"max_context_chars"`
}

// IngestConfig holds local knowledge ingestion configuration.
type IngestConfig struct {
	Includes   []string `yaml:"includes"`
	Excludes   []string `yaml:"excludes"`
	ChunkChars int      `yaml:"chunk_chars"`
	MaxChunks  int      `yaml:"max_chunks"` // per source
	LocalTopK  int      `yaml:"local_top_k"`
}

// LLMConfig holds generator configuration.
type LLMConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Retrieval: RetrievalConfig{
			Extended: true,
			MaxMS:    8000,
		},
		Gate: GateConfig{
			MinLocalHits:    3,
			MinPassageChars: 200,
		},
		Planner: PlannerConfig{},
		Search: SearchConfig{
			Provider:        "tavily",
			APIKeyEnv:       "SEARCH_API_KEY",
			MaxQueries:      3,
			MaxResults:      8,
			TimeoutMS:       10000,
			CacheSize:       100,
			CacheTTLMinutes: 5,
		},
		Fetch: FetchConfig{
			MaxPages:        6,
			MaxWebPassages:  16,
			Concurrency:     6,
			TimeoutMS:       12000,
			WindowChars:     800,
			OverlapChars:    200,
			MinPassageChars: 200,
			CacheTTLMinutes: 30,
		},
		Rank: RankConfig{
			TopK: 10,
		},
		Merge: MergeConfig{
			MergeTop:        8,
			MaxContextChars: 6000,
		},
		Ingest: IngestConfig{
			Includes:   []string{"**/*.txt", "**/*.md"},
			Excludes:   []string{"**/node_modules/**", "**/.git/**", "**/.grounder/**"},
			ChunkChars: 500,
			MaxChunks:  256,
			LocalTopK:  5,
		},
		LLM: LLMConfig{
			Enabled:     false,
			Model:       "gpt-4o-mini",
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.1,
			MaxTokens:   1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Budget builds the stage budget from the loaded configuration.
func (c *Config) Budget() domain.Budget {
	return domain.Budget{
		MaxQueries:      c.Search.MaxQueries,
		MaxPages:        c.Fetch.MaxPages,
		MaxMS:           c.Retrieval.MaxMS,
		MaxWebPassages:  c.Fetch.MaxWebPassages,
		MaxContextChars: c.Merge.MaxContextChars,
	}
}

// SearchAPIKey resolves the provider key from the configured environment
// variable. An empty result means the provider is unconfigured.
func (c *Config) SearchAPIKey() string {
	if c.Search.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Search.APIKeyEnv)
}

// LLMAPIKey resolves the generator key from the configured environment
// variable.
func (c *Config) LLMAPIKey() string {
	if c.LLM.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.LLM.APIKeyEnv)
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for grounder.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "grounder.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".grounder", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the local evidence database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".grounder", "index.db")
}

// EnsureDataDir ensures the .grounder directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".grounder"), 0755)
}
