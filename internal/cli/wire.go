package cli

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/cache"
	"github.com/ppiankov/factsift/internal/chunk"
	"github.com/ppiankov/factsift/internal/corpus"
	"github.com/ppiankov/factsift/internal/embed"
	"github.com/ppiankov/factsift/internal/extract"
	"github.com/ppiankov/factsift/internal/fetch"
	"github.com/ppiankov/factsift/internal/index"
	"github.com/ppiankov/factsift/internal/llm"
	"github.com/ppiankov/factsift/internal/metrics"
	"github.com/ppiankov/factsift/internal/model"
	"github.com/ppiankov/factsift/internal/pipeline"
	"github.com/ppiankov/factsift/internal/rank"
	"github.com/ppiankov/factsift/internal/refdata"
	"github.com/ppiankov/factsift/internal/util"
	"github.com/ppiankov/factsift/internal/worker"
)

// closers releases resources in reverse order of acquisition
type closers []func() error

func (c closers) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		_ = c[i]()
	}
}

// newProvider builds the generation provider shared by theme extraction and judgment
func newProvider(cfg *model.Config, logger *zap.Logger) (llm.Provider, error) {
	llmConfig := llm.ConfigFromModel(cfg.LLM, cfg.HTTP)
	llmConfig.Logger = logger
	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	return provider, nil
}

// buildPipeline assembles every collaborator of the retrieval pipeline.
// The returned closers must be closed by the caller.
func buildPipeline(ctx context.Context, cfg *model.Config, provider llm.Provider, saveIndex string, logger *zap.Logger) (*pipeline.Pipeline, closers, error) {
	var cleanup closers

	tables, err := refdata.Default()
	if err != nil {
		return nil, nil, fmt.Errorf("reference data: %w", err)
	}

	analyzer, err := buildAnalyzer(ctx, cfg, tables, provider, logger)
	if err != nil {
		return nil, nil, err
	}

	backend, err := corpus.NewBigQueryBackend(ctx, cfg.Corpus.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	cleanup = append(cleanup, backend.Close)

	client, err := corpus.NewClient(backend, corpus.Options{
		Table:        cfg.Corpus.Table,
		MaxScanBytes: cfg.Corpus.MaxScanBytes,
		Logger:       logger,
		Observe: func(bytes int64) {
			metrics.CorpusBytesEstimated.Observe(float64(bytes))
		},
	})
	if err != nil {
		cleanup.Close()
		return nil, nil, err
	}

	fetchOpts := fetch.Options{
		TitleTimeout:   cfg.HTTP.TitleTimeout,
		ArticleTimeout: cfg.HTTP.ArticleTimeout,
		UserAgent:      cfg.HTTP.UserAgent,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		MinTitleLength: cfg.Retrieval.MinTitleLength,
		Throttle:       newLimiter(cfg.RateLimiting),
		HTTPProxy:      cfg.HTTP.HTTPProxy,
		HTTPSProxy:     cfg.HTTP.HTTPSProxy,
		NoProxy:        cfg.HTTP.NoProxy,
		Logger:         logger,
	}
	if cfg.HTTP.RespectRobots {
		fetchOpts.Robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.TitleTimeout, logger)
	}

	embedConfig := embed.ConfigFromModel(cfg.Embedding, cfg.HTTP)
	embedConfig.Logger = logger
	embedder, err := embed.NewEmbedder(embedConfig)
	if err != nil {
		cleanup.Close()
		return nil, nil, fmt.Errorf("embedder: %w", err)
	}

	deps := pipeline.Deps{
		Analyzer: analyzer,
		Corpus:   client,
		Fetcher:  fetch.NewFetcher(fetchOpts),
		Embedder: embedder,
		Ranker:   rank.NewTitleRanker(embedder, cfg.Retrieval.TitleTopN, logger),
		Chunker:  chunk.NewChunker(chunk.ProseSegmenter{}, cfg.Retrieval.SentencesPerChunk, cfg.Retrieval.MinChunkWords, logger),
		LLM:      provider,
		Logger:   logger,
	}

	if saveIndex != "" {
		store, err := index.OpenStore(saveIndex)
		if err != nil {
			cleanup.Close()
			return nil, nil, err
		}
		cleanup = append(cleanup, store.Close)
		deps.Store = store
	}

	p, err := pipeline.NewPipeline(deps, pipeline.OptionsFromConfig(cfg))
	if err != nil {
		cleanup.Close()
		return nil, nil, err
	}
	return p, cleanup, nil
}

// newLimiter applies the default politeness rate and any per-host overrides
func newLimiter(cfg model.RateLimitingConfig) *worker.Limiter {
	limiter := worker.NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
	for host, rps := range cfg.HostRates {
		limiter.SetHostRate(host, rps, cfg.BurstSize)
	}
	return limiter
}

func buildAnalyzer(ctx context.Context, cfg *model.Config, tables *refdata.Tables, provider llm.Provider, logger *zap.Logger) (*extract.Analyzer, error) {
	entities := extract.NewEntityExtractor(extract.NewProseRecognizer(), tables, logger)

	var (
		issues *extract.IssueClassifier
		themes *extract.ThemeSelector
	)
	switch cfg.Extraction.ThemeStrategy {
	case model.ThemeStrategyDirect:
		vocabulary := loadVocabulary(ctx, cfg, logger)
		themes = extract.NewThemeSelector(provider, tables, vocabulary, cfg.Extraction.FuzzyThreshold, logger)
	default:
		issues = extract.NewIssueClassifier(provider, tables, logger)
	}

	return extract.NewAnalyzer(cfg.Extraction.ThemeStrategy, entities, issues, themes, logger)
}

// loadVocabulary fetches the corpus theme list for fuzzy recovery. Without
// it the direct strategy still works, only invalid themes are dropped.
func loadVocabulary(ctx context.Context, cfg *model.Config, logger *zap.Logger) []string {
	var c cache.Cache
	if cfg.Cache.Enabled {
		c = cache.NewLayeredCache(cfg.Cache.MemoryTTL, filepath.Join(cfg.Cache.Dir, "vocabulary"), cfg.Cache.DiskTTL)
	}

	client := &http.Client{
		Timeout:   cfg.HTTP.ArticleTimeout * 3,
		Transport: &http.Transport{Proxy: util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)},
	}
	loader := extract.NewVocabularyLoader(cfg.Extraction.VocabularyURL, cfg.Extraction.VocabularyMinCt, client, c, cfg.Cache.DiskTTL, logger)

	vocabulary, err := loader.Load(ctx)
	if err != nil {
		logger.Warn("theme vocabulary unavailable, fuzzy recovery disabled", zap.Error(err))
		return nil
	}
	return vocabulary
}
