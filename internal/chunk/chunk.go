// Package chunk splits article text into retrievable passages.
package chunk

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/logging"
	"github.com/ppiankov/factsift/internal/model"
)

const (
	DefaultSentencesPerChunk = 4
	DefaultMinWords          = 20
)

// Segmenter splits text into sentences
type Segmenter interface {
	Sentences(text string) ([]string, error)
}

// ProseSegmenter segments with prose's sentence tokenizer
type ProseSegmenter struct{}

// Sentences implements Segmenter
func (ProseSegmenter) Sentences(text string) (sentences []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sentence segmentation: %v", r)
		}
	}()

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithTokenization(false))
	if err != nil {
		return nil, err
	}
	for _, s := range doc.Sentences() {
		sentences = append(sentences, s.Text)
	}
	return sentences, nil
}

// Chunker groups consecutive sentences into chunks
type Chunker struct {
	segmenter    Segmenter
	sentencesPer int
	minWords     int
	logger       *zap.Logger
}

// NewChunker creates a chunker. Non-positive sizes use the defaults.
func NewChunker(segmenter Segmenter, sentencesPerChunk, minWords int, logger *zap.Logger) *Chunker {
	if segmenter == nil {
		segmenter = ProseSegmenter{}
	}
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = DefaultSentencesPerChunk
	}
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	return &Chunker{
		segmenter:    segmenter,
		sentencesPer: sentencesPerChunk,
		minWords:     minWords,
		logger:       logging.OrNop(logger),
	}
}

// Chunk splits text into chunks of sentencesPer consecutive sentences. A
// group under minWords words is dropped, never merged into its neighbour.
// Text the segmenter cannot handle is split on blank lines instead.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences, err := c.segmenter.Sentences(text)
	if err != nil {
		c.logger.Warn("sentence segmentation failed, splitting on blank lines", zap.Error(err))
		return SplitParagraphs(text, c.minWords)
	}

	var (
		chunks []string
		group  []string
		words  int
	)
	flush := func() {
		if len(group) > 0 && words >= c.minWords {
			chunks = append(chunks, strings.TrimSpace(strings.Join(group, " ")))
		}
		group = group[:0]
		words = 0
	}

	for _, s := range sentences {
		group = append(group, s)
		words += len(strings.Fields(s))
		if len(group) >= c.sentencesPer {
			flush()
		}
	}
	flush()

	return chunks
}

// SplitParagraphs splits on blank lines and keeps blocks of at least minWords words
func SplitParagraphs(text string, minWords int) []string {
	var chunks []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" && len(strings.Fields(block)) >= minWords {
			chunks = append(chunks, block)
		}
	}
	return chunks
}

// Accumulator collects chunks across a claim's documents, keeping the first
// occurrence of each distinct chunk text
type Accumulator struct {
	seen   map[string]struct{}
	chunks []model.TextChunk
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{seen: make(map[string]struct{})}
}

// Add records texts as chunks of doc and returns how many were new
func (a *Accumulator) Add(doc model.Document, texts []string) int {
	added := 0
	for _, t := range texts {
		if _, dup := a.seen[t]; dup {
			continue
		}
		a.seen[t] = struct{}{}
		a.chunks = append(a.chunks, model.TextChunk{
			Text:        t,
			SourceTitle: doc.Title,
			SourceURL:   doc.URL,
			SourceDate:  doc.Date,
		})
		added++
	}
	return added
}

// Chunks returns the unique chunks in first-seen order
func (a *Accumulator) Chunks() []model.TextChunk {
	return a.chunks
}

// Texts returns the unique chunk texts in first-seen order
func (a *Accumulator) Texts() []string {
	out := make([]string, len(a.chunks))
	for i, c := range a.chunks {
		out[i] = c.Text
	}
	return out
}

// Len returns the number of unique chunks
func (a *Accumulator) Len() int {
	return len(a.chunks)
}

// ChunkDocuments chunks every document and returns the deduplicated set
func (c *Chunker) ChunkDocuments(docs []model.Document) []model.TextChunk {
	acc := NewAccumulator()
	for _, doc := range docs {
		acc.Add(doc, c.Chunk(doc.RawText))
	}
	c.logger.Debug("documents chunked", zap.Int("documents", len(docs)), zap.Int("chunks", acc.Len()))
	return acc.Chunks()
}
