package index

import (
	"math"

	"github.com/ppiankov/factsift/internal/model"
)

// DefaultLambda weighs relevance against redundancy in MMR
const DefaultLambda = 0.7

// MMR greedily picks up to topN candidates maximizing
// lambda*sim(c, query) - (1-lambda)*max sim(c, selected), using cosine
// similarity. It returns candidate positions in selection order; ties go to
// the lower position.
func MMR(query []float32, candidates [][]float32, topN int, lambda float64) []int {
	if topN > len(candidates) {
		topN = len(candidates)
	}
	if topN <= 0 {
		return []int{}
	}

	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = Cosine(c, query)
	}
	// redundancy[i] is the highest similarity of i to anything selected so far
	redundancy := make([]float64, len(candidates))
	selected := make([]bool, len(candidates))
	picked := make([]int, 0, topN)

	for len(picked) < topN {
		best := -1
		bestScore := math.Inf(-1)
		for i := range candidates {
			if selected[i] {
				continue
			}
			score := lambda*relevance[i] - (1-lambda)*redundancy[i]
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}

		selected[best] = true
		picked = append(picked, best)

		for i, c := range candidates {
			if selected[i] {
				continue
			}
			if sim := Cosine(c, candidates[best]); len(picked) == 1 || sim > redundancy[i] {
				redundancy[i] = sim
			}
		}
	}
	return picked
}

// RetrieveMMR narrows the index to the pool nearest neighbours of query and
// reranks them with MMR down to k chunks
func RetrieveMMR(ix *FlatL2, chunks []model.TextChunk, query []float32, k, pool int, lambda float64) []model.TextChunk {
	if ix == nil || ix.Len() == 0 || k <= 0 {
		return []model.TextChunk{}
	}
	if pool < k {
		pool = k
	}
	if pool > ix.Len() {
		pool = ix.Len()
	}

	_, positions := ix.Search(query, pool)

	var (
		candidatePos []int
		candidateVec [][]float32
	)
	for _, pos := range positions {
		if pos == NoMatch || pos >= len(chunks) {
			continue
		}
		candidatePos = append(candidatePos, pos)
		candidateVec = append(candidateVec, ix.Vector(pos))
	}

	picked := MMR(query, candidateVec, k, lambda)
	out := make([]model.TextChunk, 0, len(picked))
	for _, p := range picked {
		out = append(out, chunks[candidatePos[p]])
	}
	return out
}
