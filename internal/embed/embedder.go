// Package embed turns text into dense vectors. One Embedder instance serves a
// whole run so claims and chunks share a vector space.
package embed

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/model"
)

// Embedder returns one vector per input text, in input order
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config holds embedding service settings
type Config struct {
	Provider  string // openai, ollama
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   int // seconds
	BatchSize int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string

	Logger *zap.Logger
}

const defaultBatchSize = 128

// NewEmbedder creates an embedder for the configured provider
func NewEmbedder(config Config) (Embedder, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIEmbedder(config)
	case "ollama", "":
		return NewOllamaEmbedder(config)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.EmbeddingConfig to embed.Config
func ConfigFromModel(modelConfig model.EmbeddingConfig, httpConfig model.HTTPConfig) Config {
	return Config{
		Provider:   modelConfig.Provider,
		Model:      modelConfig.Model,
		APIKey:     modelConfig.APIKey,
		BaseURL:    modelConfig.BaseURL,
		Timeout:    modelConfig.Timeout,
		BatchSize:  modelConfig.BatchSize,
		HTTPProxy:  httpConfig.HTTPProxy,
		HTTPSProxy: httpConfig.HTTPSProxy,
		NoProxy:    httpConfig.NoProxy,
	}
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// EmbedOne embeds a single text
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// batches splits texts into consecutive slices of at most size
func batches(texts []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[start:end])
	}
	return out
}

// checkVectors verifies a response has one vector per input and a single dimension
func checkVectors(vecs [][]float32, want int) error {
	if len(vecs) != want {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vecs), want)
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return fmt.Errorf("empty embedding at position %d", i)
		}
		if len(v) != len(vecs[0]) {
			return fmt.Errorf("embedding dimension mismatch at position %d: %d != %d", i, len(v), len(vecs[0]))
		}
	}
	return nil
}
