package model

import "time"

// ThemeStrategy selects how theme constraints are derived from a claim
type ThemeStrategy string

const (
	ThemeStrategyIssues ThemeStrategy = "issues" // Issue categories expanded through the issue→theme map
	ThemeStrategyDirect ThemeStrategy = "direct" // Curated themes picked directly, with fuzzy recovery
)

// SelectionPolicy selects how chunks are chosen from the index
type SelectionPolicy string

const (
	SelectionNearest SelectionPolicy = "nearest" // Exact k nearest neighbours
	SelectionMMR     SelectionPolicy = "mmr"     // Maximal marginal relevance
)

// Config is the complete runtime configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Corpus       CorpusConfig       `yaml:"corpus"`
	Extraction   ExtractionConfig   `yaml:"extraction"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	LLM          LLMConfig          `yaml:"llm"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
	Cache        CacheConfig        `yaml:"cache"`
	Output       OutputConfig       `yaml:"output"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// HTTPConfig holds settings for article and title fetches
type HTTPConfig struct {
	TitleTimeout   time.Duration `yaml:"title_timeout"`
	ArticleTimeout time.Duration `yaml:"article_timeout"`
	UserAgent      string        `yaml:"user_agent"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	RespectRobots  bool          `yaml:"respect_robots"`
	HTTPProxy      string        `yaml:"http_proxy,omitempty"`
	HTTPSProxy     string        `yaml:"https_proxy,omitempty"`
	NoProxy        string        `yaml:"no_proxy,omitempty"`
}

// CorpusConfig holds settings for the GKG query service
type CorpusConfig struct {
	ProjectID       string   `yaml:"project_id"`
	Table           string   `yaml:"table"`
	Limit           int      `yaml:"limit"`
	LookbackDays    int      `yaml:"lookback_days"`
	MaxScanBytes    int64    `yaml:"max_scan_bytes"`
	ExcludedSources []string `yaml:"excluded_sources,omitempty"`
}

// ExtractionConfig holds settings for entity and theme extraction
type ExtractionConfig struct {
	ThemeStrategy   ThemeStrategy `yaml:"theme_strategy"`
	FuzzyThreshold  float64       `yaml:"fuzzy_threshold"`
	VocabularyURL   string        `yaml:"vocabulary_url"`
	VocabularyMinCt int           `yaml:"vocabulary_min_count"`
}

// RetrievalConfig holds settings for pre-ranking, chunking and selection
type RetrievalConfig struct {
	TitleTopN         int             `yaml:"title_top_n"`
	MinTitleLength    int             `yaml:"min_title_length"`
	SentencesPerChunk int             `yaml:"sentences_per_chunk"`
	MinChunkWords     int             `yaml:"min_chunk_words"`
	TopK              int             `yaml:"top_k"`
	Policy            SelectionPolicy `yaml:"policy"`
	MMRLambda         float64         `yaml:"mmr_lambda"`
	MMRCandidates     int             `yaml:"mmr_candidates"`
}

// LLMConfig holds settings for the generation provider
type LLMConfig struct {
	Provider  string `yaml:"provider"` // openai, anthropic, ollama
	Model     string `yaml:"model"`
	APIKey    string `yaml:"-"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Timeout   int    `yaml:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens"`
	Breaker   bool   `yaml:"breaker"`
}

// EmbeddingConfig holds settings for the embedding service
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // openai, ollama
	Model     string `yaml:"model"`
	APIKey    string `yaml:"-"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Timeout   int    `yaml:"timeout"`    // seconds
	BatchSize int    `yaml:"batch_size"` // texts per embedding request
}

// ConcurrencyConfig holds fan-out limits
type ConcurrencyConfig struct {
	TitleWorkers   int `yaml:"title_workers"`
	ArticleWorkers int `yaml:"article_workers"`
	ClaimWorkers   int `yaml:"claim_workers"` // 1 keeps claims strictly sequential
}

// RateLimitingConfig holds per-domain politeness settings
type RateLimitingConfig struct {
	RequestsPerSecond float64            `yaml:"requests_per_second"`
	BurstSize         int                `yaml:"burst_size"`
	HostRates         map[string]float64 `yaml:"host_rates,omitempty"` // per-host requests per second
}

// CacheConfig holds settings for the reference vocabulary cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// OutputConfig holds settings for result artifacts
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Verbose   bool   `yaml:"verbose"`
	SaveIndex string `yaml:"save_index,omitempty"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console, json
}

// MetricsConfig holds the optional metrics listener
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"` // e.g. ":9090"; empty disables the listener
}

// DefaultConfig returns the standard configuration
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			TitleTimeout:   5 * time.Second,
			ArticleTimeout: 10 * time.Second,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			MaxBodyBytes:   2_000_000,
			RespectRobots:  true,
		},
		Corpus: CorpusConfig{
			Table:        "gdelt-bq.gdeltv2.gkg_partitioned",
			Limit:        500,
			LookbackDays: 90,
			MaxScanBytes: 100 << 30,
		},
		Extraction: ExtractionConfig{
			ThemeStrategy:   ThemeStrategyIssues,
			FuzzyThreshold:  0.6,
			VocabularyURL:   "http://data.gdeltproject.org/api/v2/guides/LOOKUP-GKGTHEMES.TXT",
			VocabularyMinCt: 10000,
		},
		Retrieval: RetrievalConfig{
			TitleTopN:         30,
			MinTitleLength:    6,
			SentencesPerChunk: 4,
			MinChunkWords:     20,
			TopK:              10,
			Policy:            SelectionNearest,
			MMRLambda:         0.7,
			MMRCandidates:     50,
		},
		LLM: LLMConfig{
			Provider:  "ollama",
			Model:     "llama3.1:8b",
			Timeout:   120,
			MaxTokens: 1000,
			Breaker:   true,
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "all-minilm",
			Timeout:   60,
			BatchSize: 128,
		},
		Concurrency: ConcurrencyConfig{
			TitleWorkers:   500,
			ArticleWorkers: 30,
			ClaimWorkers:   1,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".factsift-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		Output: OutputConfig{
			Dir: "./factsift-results",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
