package index

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factsift/internal/model"
)

func chunksN(n int) []model.TextChunk {
	out := make([]model.TextChunk, n)
	for i := range out {
		out[i] = model.TextChunk{
			Text:        fmt.Sprintf("chunk %d", i),
			SourceTitle: "title",
			SourceURL:   fmt.Sprintf("https://news.example/%d", i),
			SourceDate:  "20240301000000",
		}
	}
	return out
}

func lineVectors(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i), 0}
	}
	return out
}

func TestFlatL2SearchOrdersByDistance(t *testing.T) {
	ix, err := Build([][]float32{{5, 0}, {1, 0}, {3, 0}, {1, 0}})
	require.NoError(t, err)

	dists, pos := ix.Search([]float32{0, 0}, 3)
	assert.Equal(t, []int{1, 3, 2}, pos, "ties keep insertion order")
	assert.Equal(t, []float32{1, 1, 9}, dists)
}

func TestFlatL2SearchPadsWithNoMatch(t *testing.T) {
	ix, err := Build([][]float32{{1, 1}})
	require.NoError(t, err)

	dists, pos := ix.Search([]float32{0, 0}, 3)
	assert.Equal(t, []int{0, NoMatch, NoMatch}, pos)
	assert.True(t, math.IsInf(float64(dists[2]), 1))
}

func TestFlatL2RejectsWrongDimension(t *testing.T) {
	ix := NewFlatL2(2)
	assert.Error(t, ix.Add([]float32{1, 2, 3}))
	assert.Zero(t, ix.Len())

	_, err := Build([][]float32{{1, 2}, {1}})
	assert.Error(t, err)
}

func TestRetrieveRespectsK(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{0, 1, 5, 12} {
		vecs := make([][]float32, n)
		for i := range vecs {
			vecs[i] = []float32{rng.Float32(), rng.Float32(), rng.Float32()}
		}
		ix, err := Build(vecs)
		require.NoError(t, err)
		chunks := chunksN(n)

		for _, k := range []int{1, 3, 10, 20} {
			got := Retrieve(ix, chunks, []float32{0.5, 0.5, 0.5}, k)
			want := k
			if n < want {
				want = n
			}
			require.Len(t, got, want, "n=%d k=%d", n, k)

			seen := map[string]bool{}
			for _, c := range got {
				assert.False(t, seen[c.Text], "repeat %s", c.Text)
				seen[c.Text] = true
				assert.Contains(t, chunks, c)
			}
		}
	}
}

func TestRetrieveNearestFirst(t *testing.T) {
	ix, err := Build(lineVectors(6))
	require.NoError(t, err)

	got := Retrieve(ix, chunksN(6), []float32{4.2, 0}, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "chunk 4", got[0].Text)
	assert.Equal(t, "chunk 5", got[1].Text)
	assert.Equal(t, "chunk 3", got[2].Text)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	got := Retrieve(NewFlatL2(3), nil, []float32{1, 2, 3}, 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// sentinelIndex reports positions the way an approximate index might
type sentinelIndex struct {
	positions []int
}

func (s sentinelIndex) Len() int { return len(s.positions) }

func (s sentinelIndex) Search(_ []float32, k int) ([]float32, []int) {
	return make([]float32, k), s.positions[:k]
}

func TestRetrieveSkipsInvalidPositions(t *testing.T) {
	chunks := chunksN(3)
	got := Retrieve(sentinelIndex{positions: []int{2, NoMatch, 7, 0, 2}}, chunks, nil, 5)

	require.Len(t, got, 2)
	assert.Equal(t, chunks[2], got[0])
	assert.Equal(t, chunks[0], got[1])
}

func TestMMRNeverRepeatsAndBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, n := range []int{0, 1, 4, 25} {
		cands := make([][]float32, n)
		for i := range cands {
			cands[i] = []float32{rng.Float32() - 0.5, rng.Float32() - 0.5, rng.Float32() - 0.5}
		}
		for _, topN := range []int{0, 1, 3, 10, 50} {
			picked := MMR([]float32{1, 0, 0}, cands, topN, DefaultLambda)
			want := topN
			if n < want {
				want = n
			}
			require.Len(t, picked, want)

			seen := map[int]bool{}
			for _, p := range picked {
				assert.False(t, seen[p], "candidate %d picked twice", p)
				assert.True(t, p >= 0 && p < n)
				seen[p] = true
			}
		}
	}
}

func TestMMRPrefersDiversity(t *testing.T) {
	query := []float32{1, 0}
	cands := [][]float32{
		{1, 0.1},    // most relevant
		{1, 0.11},   // near duplicate of 0
		{0.5, -0.8}, // less relevant but different
	}

	assert.Equal(t, []int{0, 1}, MMR(query, cands, 2, 1.0), "lambda 1 is pure relevance")
	assert.Equal(t, []int{0, 2}, MMR(query, cands, 2, 0.5))
}

func TestMMRTiesGoToFirst(t *testing.T) {
	cands := [][]float32{{0, 1}, {1, 0}, {1, 0}}
	picked := MMR([]float32{1, 0}, cands, 1, DefaultLambda)
	assert.Equal(t, []int{1}, picked)
}

func TestRetrieveMMR(t *testing.T) {
	ix, err := Build([][]float32{{1, 0.1}, {1, 0.11}, {0.5, -0.8}, {-1, 0}})
	require.NoError(t, err)
	chunks := chunksN(4)

	got := RetrieveMMR(ix, chunks, []float32{1, 0}, 2, 3, 0.5)
	require.Len(t, got, 2)
	assert.Equal(t, chunks[0], got[0])
	assert.Equal(t, chunks[2], got[1])

	assert.Empty(t, RetrieveMMR(NewFlatL2(2), nil, []float32{1, 0}, 2, 3, 0.5))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 1}, []float32{2, 2}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx", "claims.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ix, err := Build([][]float32{{0.25, -1.5, 3}, {1e-7, 0, 42}})
	require.NoError(t, err)
	chunks := chunksN(2)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Snapshot{ClaimID: "2635.json", Query: "q", Model: "ollama/all-minilm", Chunks: chunks, Index: ix}))
	// saving again replaces rather than duplicates
	require.NoError(t, store.Save(ctx, Snapshot{ClaimID: "2635.json", Query: "q2", Chunks: chunks, Index: ix}))

	snap, err := store.Load(ctx, "2635.json")
	require.NoError(t, err)
	assert.Equal(t, "q2", snap.Query)
	assert.Equal(t, chunks, snap.Chunks)
	require.Equal(t, 2, snap.Index.Len())
	assert.Equal(t, ix.Vector(0), snap.Index.Vector(0))
	assert.Equal(t, ix.Vector(1), snap.Index.Vector(1))

	_, err = store.Load(ctx, "missing")
	assert.Error(t, err)
}

func TestStoreRejectsMismatchedSnapshot(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "claims.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ix, err := Build(lineVectors(2))
	require.NoError(t, err)
	assert.Error(t, store.Save(context.Background(), Snapshot{ClaimID: "x", Chunks: chunksN(3), Index: ix}))
	assert.Error(t, store.Save(context.Background(), Snapshot{ClaimID: "x"}))
}

func TestStoreConcurrentSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.db")
	first, err := OpenStore(path)
	require.NoError(t, err)
	defer func() { _ = first.Close() }()
	second, err := OpenStore(path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	var timeout int
	require.NoError(t, first.db.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout))
	assert.Equal(t, 5000, timeout)

	ix, err := Build(lineVectors(3))
	require.NoError(t, err)
	chunks := chunksN(3)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		store := first
		if i%2 == 1 {
			store = second
		}
		wg.Add(1)
		go func(i int, store *Store) {
			defer wg.Done()
			errs <- store.Save(context.Background(), Snapshot{ClaimID: fmt.Sprintf("%d.json", i), Chunks: chunks, Index: ix})
		}(i, store)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	for i := 0; i < 16; i++ {
		snap, err := second.Load(context.Background(), fmt.Sprintf("%d.json", i))
		require.NoError(t, err)
		assert.Len(t, snap.Chunks, 3)
	}
}
