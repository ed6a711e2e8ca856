// Package rank orders candidate articles by how close their titles are to
// the claim, so only the most promising ones are fetched in full.
package rank

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/embed"
	"github.com/ppiankov/factsift/internal/index"
	"github.com/ppiankov/factsift/internal/logging"
	"github.com/ppiankov/factsift/internal/model"
)

// DefaultTopN is how many titles survive pre-ranking
const DefaultTopN = 30

// TitleRanker keeps the titles nearest to the claim
type TitleRanker struct {
	embedder embed.Embedder
	topN     int
	logger   *zap.Logger
}

// NewTitleRanker creates a ranker keeping topN titles
func NewTitleRanker(embedder embed.Embedder, topN int, logger *zap.Logger) *TitleRanker {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &TitleRanker{embedder: embedder, topN: topN, logger: logging.OrNop(logger)}
}

// Rank embeds the titles and returns at most topN of them in ascending
// squared-L2 distance to query, with Distance set. query must come from the
// same embedder.
func (r *TitleRanker) Rank(ctx context.Context, query []float32, titles []model.ScoredTitle) ([]model.ScoredTitle, error) {
	if len(titles) == 0 {
		return []model.ScoredTitle{}, nil
	}

	texts := make([]string, len(titles))
	for i, t := range titles {
		texts[i] = t.Title
	}

	vecs, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed titles: %w", err)
	}

	ix, err := index.Build(vecs)
	if err != nil {
		return nil, fmt.Errorf("index titles: %w", err)
	}
	if ix.Dim() != len(query) {
		return nil, fmt.Errorf("query dimension %d does not match title dimension %d", len(query), ix.Dim())
	}

	k := r.topN
	if k > ix.Len() {
		k = ix.Len()
	}
	distances, positions := ix.Search(query, k)

	ranked := make([]model.ScoredTitle, 0, k)
	for slot, pos := range positions {
		if pos == index.NoMatch {
			continue
		}
		t := titles[pos]
		t.Distance = distances[slot]
		ranked = append(ranked, t)
	}

	r.logger.Info("titles ranked", zap.Int("titles", len(titles)), zap.Int("kept", len(ranked)))
	for i, t := range ranked {
		r.logger.Debug("ranked title",
			zap.Int("rank", i+1),
			zap.String("title", t.Title),
			zap.String("url", t.URL),
			zap.Float32("distance", t.Distance))
	}
	return ranked, nil
}

// Rows returns the corpus rows of ranked titles, in rank order
func Rows(titles []model.ScoredTitle) []model.CandidateRow {
	rows := make([]model.CandidateRow, len(titles))
	for i, t := range titles {
		rows[i] = t.Row
	}
	return rows
}
