// Package pipeline checks one claim end to end: analysis, corpus filtering,
// title pre-ranking, article fetch, chunk retrieval and the final judgment.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/answer"
	"github.com/ppiankov/factsift/internal/corpus"
	"github.com/ppiankov/factsift/internal/embed"
	"github.com/ppiankov/factsift/internal/extract"
	"github.com/ppiankov/factsift/internal/filter"
	"github.com/ppiankov/factsift/internal/index"
	"github.com/ppiankov/factsift/internal/llm"
	"github.com/ppiankov/factsift/internal/logging"
	"github.com/ppiankov/factsift/internal/metrics"
	"github.com/ppiankov/factsift/internal/model"
	"github.com/ppiankov/factsift/internal/rank"
)

// ErrNoEvidence marks a claim that ended before any text reached the model
var ErrNoEvidence = errors.New("no evidence found")

// Analyzer derives themes from the formulated query and entities from the
// claim text
type Analyzer interface {
	Analyze(ctx context.Context, query, claimText string) (extract.Analysis, error)
}

// Fetcher retrieves titles and articles for candidate rows
type Fetcher interface {
	FetchTitles(ctx context.Context, rows []model.CandidateRow, workers int) []model.ScoredTitle
	FetchDocuments(ctx context.Context, rows []model.CandidateRow, workers int) []model.Document
}

// Ranker keeps the titles nearest to the query vector
type Ranker interface {
	Rank(ctx context.Context, query []float32, titles []model.ScoredTitle) ([]model.ScoredTitle, error)
}

// Chunker splits documents into unique chunks
type Chunker interface {
	ChunkDocuments(docs []model.Document) []model.TextChunk
}

// Deps are the collaborators of a pipeline. Store is optional.
type Deps struct {
	Analyzer Analyzer
	Corpus   corpus.Searcher
	Fetcher  Fetcher
	Embedder embed.Embedder
	Ranker   Ranker
	Chunker  Chunker
	LLM      llm.Provider
	Store    *index.Store
	Logger   *zap.Logger
}

// Options holds the per-claim limits
type Options struct {
	Strategy        model.ThemeStrategy
	ExcludedSources []string
	Limit           int
	LookbackDays    int
	TitleWorkers    int
	ArticleWorkers  int
	TopK            int
	Policy          model.SelectionPolicy
	MMRLambda       float64
	MMRCandidates   int
}

// OptionsFromConfig maps the runtime configuration onto pipeline options
func OptionsFromConfig(cfg *model.Config) Options {
	return Options{
		Strategy:        cfg.Extraction.ThemeStrategy,
		ExcludedSources: cfg.Corpus.ExcludedSources,
		Limit:           cfg.Corpus.Limit,
		LookbackDays:    cfg.Corpus.LookbackDays,
		TitleWorkers:    cfg.Concurrency.TitleWorkers,
		ArticleWorkers:  cfg.Concurrency.ArticleWorkers,
		TopK:            cfg.Retrieval.TopK,
		Policy:          cfg.Retrieval.Policy,
		MMRLambda:       cfg.Retrieval.MMRLambda,
		MMRCandidates:   cfg.Retrieval.MMRCandidates,
	}
}

func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = model.ThemeStrategyIssues
	}
	if o.Limit <= 0 {
		o.Limit = corpus.DefaultLimit
	}
	if o.LookbackDays <= 0 {
		o.LookbackDays = 90
	}
	if o.TitleWorkers <= 0 {
		o.TitleWorkers = 500
	}
	if o.ArticleWorkers <= 0 {
		o.ArticleWorkers = 30
	}
	if o.TopK <= 0 {
		o.TopK = 10
	}
	if o.Policy == "" {
		o.Policy = model.SelectionNearest
	}
	if o.MMRLambda <= 0 || o.MMRLambda > 1 {
		o.MMRLambda = index.DefaultLambda
	}
	if o.MMRCandidates < o.TopK {
		o.MMRCandidates = 5 * o.TopK
	}
	return o
}

// Pipeline orchestrates the check of a single claim
type Pipeline struct {
	deps    Deps
	builder *filter.Builder
	opts    Options
	logger  *zap.Logger
}

// NewPipeline creates a pipeline. Every collaborator except Store is required.
func NewPipeline(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Analyzer == nil:
		return nil, fmt.Errorf("pipeline needs an analyzer")
	case deps.Corpus == nil:
		return nil, fmt.Errorf("pipeline needs a corpus client")
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("pipeline needs a fetcher")
	case deps.Embedder == nil:
		return nil, fmt.Errorf("pipeline needs an embedder")
	case deps.Chunker == nil:
		return nil, fmt.Errorf("pipeline needs a chunker")
	case deps.LLM == nil:
		return nil, fmt.Errorf("pipeline needs an LLM provider")
	}

	logger := logging.OrNop(deps.Logger)
	if deps.Ranker == nil {
		deps.Ranker = rank.NewTitleRanker(deps.Embedder, rank.DefaultTopN, logger)
	}

	return &Pipeline{
		deps:    deps,
		builder: filter.NewBuilder(logger),
		opts:    opts.withDefaults(),
		logger:  logger,
	}, nil
}

// Check runs every stage for one claim. The returned result is never nil;
// the error is set for failed external calls and wraps ErrNoEvidence when
// nothing could be retrieved.
func (p *Pipeline) Check(ctx context.Context, claim model.Claim) (*model.ClaimResult, error) {
	start := time.Now()
	result := &model.ClaimResult{
		ClaimID:        claim.ID,
		Statement:      claim.Statement,
		TrueLabel:      claim.Label,
		PredictedLabel: model.LabelUnparseable,
		Query:          FormulateQuery(claim),
	}
	logger := p.logger.With(zap.String("claim", claim.ID))

	err := p.run(ctx, logger, claim, result)

	result.TimeTaken = time.Since(start)
	if err != nil && result.Outcome == "" {
		result.Outcome = model.OutcomeFailed
	}
	if err != nil {
		result.Reason = err.Error()
	}
	metrics.ClaimOutcomes.WithLabelValues(string(result.Outcome)).Inc()

	logger.Info("claim finished",
		zap.String("outcome", string(result.Outcome)),
		zap.String("predicted", string(result.PredictedLabel)),
		zap.Duration("took", result.TimeTaken))
	return result, err
}

func (p *Pipeline) run(ctx context.Context, logger *zap.Logger, claim model.Claim, result *model.ClaimResult) error {
	// 1. Analyze
	stage := time.Now()
	analysis, err := p.deps.Analyzer.Analyze(ctx, result.Query, EntityText(claim))
	metrics.ObserveStage("analyze", stage)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	result.Entities = analysis.Entities
	logger.Info("claim analyzed",
		zap.Int("entities", analysis.Entities.Count()),
		zap.Bool("themes", !analysis.Themes.IsEmpty()))

	// 2. Filter and query, relaxing once on an empty result
	rows, err := p.search(ctx, logger, result, analysis.Entities, analysis.Themes, filter.Strict)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		metrics.FilterRelaxations.Inc()
		logger.Info("no candidates under strict filter, relaxing")
		entities, themes := filter.Relax(analysis.Entities, analysis.Themes)
		result.Relaxed = true
		rows, err = p.search(ctx, logger, result, entities, themes, filter.Loose)
		if err != nil {
			return err
		}
	}
	result.Candidates = len(rows)
	if len(rows) == 0 {
		return p.noEvidence(result, "corpus returned no candidates")
	}

	// 3. Titles
	stage = time.Now()
	titles := p.deps.Fetcher.FetchTitles(ctx, rows, p.opts.TitleWorkers)
	metrics.ObserveStage("titles", stage)
	result.Titles = len(titles)
	if len(titles) == 0 {
		return p.noEvidence(result, "no titles could be fetched")
	}

	// 4. Query vector, shared by title ranking and chunk retrieval
	stage = time.Now()
	query, err := embed.EmbedOne(ctx, p.deps.Embedder, result.Query)
	metrics.ObserveStage("embed_query", stage)
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}

	// 5. Pre-rank
	stage = time.Now()
	ranked, err := p.deps.Ranker.Rank(ctx, query, titles)
	metrics.ObserveStage("rank", stage)
	if err != nil {
		return fmt.Errorf("rank titles: %w", err)
	}
	for _, t := range ranked {
		logger.Debug("selected title", zap.String("title", t.Title), zap.String("url", t.URL), zap.Float32("distance", t.Distance))
	}
	if len(ranked) == 0 {
		return p.noEvidence(result, "no titles selected")
	}

	// 6. Articles
	stage = time.Now()
	docs := p.deps.Fetcher.FetchDocuments(ctx, rank.Rows(ranked), p.opts.ArticleWorkers)
	metrics.ObserveStage("documents", stage)
	result.Documents = len(docs)
	if len(docs) == 0 {
		return p.noEvidence(result, "no articles could be fetched")
	}

	// 7. Chunk and index
	stage = time.Now()
	chunks := p.deps.Chunker.ChunkDocuments(docs)
	metrics.ObserveStage("chunk", stage)
	metrics.ChunksIndexed.Observe(float64(len(chunks)))
	if len(chunks) == 0 {
		return p.noEvidence(result, "no usable chunks")
	}

	ix, err := p.index(ctx, chunks, len(query))
	if err != nil {
		return err
	}
	logger.Info("chunks indexed", zap.Int("chunks", ix.Len()), zap.Int("documents", len(docs)))

	if p.deps.Store != nil {
		snap := index.Snapshot{
			ClaimID: result.ClaimID,
			Query:   result.Query,
			Model:   p.deps.Embedder.Name(),
			Chunks:  chunks,
			Index:   ix,
		}
		if err := p.deps.Store.Save(ctx, snap); err != nil {
			logger.Warn("save index failed", zap.Error(err))
		}
	}

	// 8. Retrieve
	stage = time.Now()
	var retrieved []model.TextChunk
	if p.opts.Policy == model.SelectionMMR {
		retrieved = index.RetrieveMMR(ix, chunks, query, p.opts.TopK, p.opts.MMRCandidates, p.opts.MMRLambda)
	} else {
		retrieved = index.Retrieve(ix, chunks, query, p.opts.TopK)
	}
	metrics.ObserveStage("retrieve", stage)
	result.Chunks = retrieved
	if len(retrieved) == 0 {
		return p.noEvidence(result, "no chunks retrieved")
	}

	// 9. Generate and parse
	stage = time.Now()
	reply, err := llm.Complete(ctx, p.deps.LLM, answer.BuildPrompt(result.Query, retrieved))
	metrics.ObserveStage("generate", stage)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	parsed := answer.Parse(reply)
	result.PredictedLabel = parsed.Label
	result.Justification = parsed.Justification
	if parsed.Label.IsValid() {
		result.Outcome = model.OutcomeLabelled
	} else {
		result.Outcome = model.OutcomeUnparsed
	}
	return nil
}

func (p *Pipeline) search(ctx context.Context, logger *zap.Logger, result *model.ClaimResult, entities model.EntitySet, themes model.ThemeSelection, mode filter.Mode) ([]model.CandidateRow, error) {
	expr := p.builder.Build(entities, themes, filter.Options{
		Strategy:        p.opts.Strategy,
		Mode:            mode,
		ExcludedSources: p.opts.ExcludedSources,
	})
	result.Filter = expr.SQL
	if expr.Unfiltered {
		logger.Warn("claim produced no constraints, relying on the scan budget", zap.String("mode", mode.String()))
	}

	stage := time.Now()
	rows, err := p.deps.Corpus.Search(ctx, corpus.Query{
		Filter:       expr.SQL,
		Limit:        p.opts.Limit,
		LookbackDays: p.opts.LookbackDays,
	})
	metrics.ObserveStage("query", stage)
	if err != nil {
		return nil, fmt.Errorf("corpus search (%s): %w", mode, err)
	}
	logger.Info("corpus searched", zap.String("mode", mode.String()), zap.Int("rows", len(rows)))
	return rows, nil
}

func (p *Pipeline) index(ctx context.Context, chunks []model.TextChunk, dim int) (*index.FlatL2, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	stage := time.Now()
	defer metrics.ObserveStage("embed_chunks", stage)

	vecs, err := p.deps.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	ix, err := index.Build(vecs)
	if err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}
	if ix.Dim() != dim {
		return nil, fmt.Errorf("query dimension %d does not match chunk dimension %d", dim, ix.Dim())
	}
	return ix, nil
}

func (p *Pipeline) noEvidence(result *model.ClaimResult, reason string) error {
	result.Outcome = model.OutcomeNoEvidence
	return fmt.Errorf("%w: %s", ErrNoEvidence, reason)
}
