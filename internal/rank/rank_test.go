package rank

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factsift/internal/model"
)

// tableEmbedder maps each known text to a fixed vector
type tableEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e tableEmbedder) Name() string { return "table" }

func (e tableEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vectors[t]
	}
	return out, nil
}

func titles(names ...string) []model.ScoredTitle {
	out := make([]model.ScoredTitle, len(names))
	for i, n := range names {
		out[i] = model.ScoredTitle{URL: "https://news.example/" + n, Title: n, Row: model.CandidateRow{DocumentIdentifier: "https://news.example/" + n}}
	}
	return out
}

func TestRankKeepsNearestTopN(t *testing.T) {
	e := tableEmbedder{vectors: map[string][]float32{
		"far":    {10, 0},
		"near":   {1, 0},
		"nearer": {0.5, 0},
		"mid":    {3, 0},
	}}
	ranked, err := NewTitleRanker(e, 3, nil).Rank(context.Background(), []float32{0, 0}, titles("far", "near", "nearer", "mid"))
	require.NoError(t, err)

	require.Len(t, ranked, 3)
	assert.Equal(t, "nearer", ranked[0].Title)
	assert.Equal(t, "near", ranked[1].Title)
	assert.Equal(t, "mid", ranked[2].Title)
	assert.Equal(t, float32(0.25), ranked[0].Distance)
	assert.Equal(t, "https://news.example/nearer", Rows(ranked)[0].DocumentIdentifier)
}

func TestRankFewerTitlesThanTopN(t *testing.T) {
	e := tableEmbedder{vectors: map[string][]float32{"a": {1}, "b": {2}}}
	ranked, err := NewTitleRanker(e, 0, nil).Rank(context.Background(), []float32{0}, titles("b", "a"))
	require.NoError(t, err)
	assert.Len(t, ranked, 2)
	assert.Equal(t, "a", ranked[0].Title)
}

func TestRankEmptyAndErrors(t *testing.T) {
	r := NewTitleRanker(tableEmbedder{err: errors.New("down")}, 5, nil)

	ranked, err := r.Rank(context.Background(), []float32{0}, nil)
	require.NoError(t, err)
	assert.Empty(t, ranked)

	_, err = r.Rank(context.Background(), []float32{0}, titles("a"))
	assert.ErrorContains(t, err, "down")

	mismatch := NewTitleRanker(tableEmbedder{vectors: map[string][]float32{"a": {1, 2}}}, 5, nil)
	_, err = mismatch.Rank(context.Background(), []float32{0}, titles("a"))
	assert.Error(t, err)
}
