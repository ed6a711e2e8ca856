package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/factsift/internal/logging"
	"github.com/ppiankov/factsift/internal/metrics"
	"github.com/ppiankov/factsift/internal/model"
)

// loadConfig layers the config file, FACTSIFT_* variables and flags over
// the defaults, then reads API keys from the environment
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	overrideString(&cfg.Logging.Level, "logging.level")
	overrideString(&cfg.Logging.Format, "logging.format")
	overrideString(&cfg.Metrics.Addr, "metrics.addr")
	overrideString(&cfg.Corpus.ProjectID, "corpus.project_id")
	overrideString(&cfg.LLM.Provider, "llm.provider")
	overrideString(&cfg.LLM.Model, "llm.model")
	overrideString(&cfg.LLM.BaseURL, "llm.base_url")
	overrideString(&cfg.Embedding.Provider, "embedding.provider")
	overrideString(&cfg.Embedding.Model, "embedding.model")
	overrideString(&cfg.Embedding.BaseURL, "embedding.base_url")
	overrideString(&cfg.HTTP.HTTPProxy, "http.http_proxy")
	overrideString(&cfg.HTTP.HTTPSProxy, "http.https_proxy")
	overrideString(&cfg.HTTP.NoProxy, "http.no_proxy")
	overrideString(&cfg.Output.Dir, "output.dir")
	if viper.IsSet("embedding.batch_size") {
		cfg.Embedding.BatchSize = viper.GetInt("embedding.batch_size")
	}
	if viper.IsSet("extraction.theme_strategy") {
		cfg.Extraction.ThemeStrategy = model.ThemeStrategy(viper.GetString("extraction.theme_strategy"))
	}
	if viper.IsSet("retrieval.policy") {
		cfg.Retrieval.Policy = model.SelectionPolicy(viper.GetString("retrieval.policy"))
	}
	cfg.Output.Verbose = cfg.Output.Verbose || viper.GetBool("verbose")

	if cfg.Corpus.ProjectID == "" {
		cfg.Corpus.ProjectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}

	var err error
	if cfg.LLM.APIKey, err = apiKey(cfg.LLM.Provider, "FACTSIFT_LLM_API_KEY"); err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	if cfg.Embedding.APIKey, err = apiKey(cfg.Embedding.Provider, "FACTSIFT_EMBEDDING_API_KEY"); err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if base := os.Getenv("OLLAMA_BASE_URL"); base != "" {
		if isOllama(cfg.LLM.Provider) && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = base
		}
		if isOllama(cfg.Embedding.Provider) && cfg.Embedding.BaseURL == "" {
			cfg.Embedding.BaseURL = base
		}
	}

	return cfg, nil
}

func overrideString(dst *string, key string) {
	if viper.IsSet(key) {
		*dst = viper.GetString(key)
	}
}

func isOllama(provider string) bool {
	p := strings.ToLower(provider)
	return p == "ollama" || p == ""
}

// apiKey prefers the factsift-specific variable, then the provider's own
func apiKey(provider, override string) (string, error) {
	if key := os.Getenv(override); key != "" {
		return key, nil
	}

	var env string
	switch strings.ToLower(provider) {
	case "openai":
		env = "OPENAI_API_KEY"
	case "anthropic", "claude":
		env = "ANTHROPIC_API_KEY"
	default:
		return "", nil
	}

	key := os.Getenv(env)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", env)
	}
	return key, nil
}

func newLogger(cfg *model.Config) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if cfg.Output.Verbose && level == "info" {
		level = "debug"
	}
	return logging.New(level, cfg.Logging.Format)
}

// startMetrics serves /metrics in the background when an address is configured
func startMetrics(ctx context.Context, cfg *model.Config, logger *zap.Logger) {
	if cfg.Metrics.Addr == "" {
		return
	}
	metrics.Init()
	go func() {
		if err := metrics.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
			logger.Warn("metrics listener stopped", zap.Error(err))
		}
	}()
}
