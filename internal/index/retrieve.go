package index

import (
	"github.com/ppiankov/factsift/internal/model"
)

// Retrieve returns the k chunks nearest to query in ascending distance
// order. k is clamped to the index size; NoMatch and out-of-range positions
// are skipped. chunks[i] must describe the vector at position i.
func Retrieve(ix Searcher, chunks []model.TextChunk, query []float32, k int) []model.TextChunk {
	if ix == nil || ix.Len() == 0 || k <= 0 {
		return []model.TextChunk{}
	}
	if k > ix.Len() {
		k = ix.Len()
	}

	_, positions := ix.Search(query, k)

	out := make([]model.TextChunk, 0, k)
	seen := make(map[int]bool, k)
	for _, pos := range positions {
		if pos == NoMatch || pos < 0 || pos >= len(chunks) || seen[pos] {
			continue
		}
		seen[pos] = true
		out = append(out, chunks[pos])
	}
	return out
}
