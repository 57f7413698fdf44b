// Package embedding wraps a langchaingo embedder with the fixed-dimension
// contract the vector store depends on.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-chat/internal/config"
	"document-chat/internal/models"
)

// Provider turns text into fixed-length vectors. A vector of any other
// length coming back from the model is a hard error, never coerced.
type Provider struct {
	embedder  *embeddings.EmbedderImpl
	dimension int
}

// NewProvider builds a Provider for the configured backend.
func NewProvider(cfg *config.LLMConfig, dimension int) (*Provider, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInitialization, err)
	}
	return &Provider{embedder: embedder, dimension: dimension}, nil
}

func newEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	switch cfg.Provider {
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, err
		}
		return embeddings.NewEmbedder(llm)
	default:
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, err
		}
		return embeddings.NewEmbedder(llm)
	}
}

// Dimension is the vector length this provider guarantees.
func (p *Provider) Dimension() int {
	return p.dimension
}

// EmbedQuery embeds a single text.
func (p *Provider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbedding, err)
	}
	if len(vec) != p.dimension {
		return nil, fmt.Errorf("%w: dimension mismatch: got %d, want %d", models.ErrEmbedding, len(vec), p.dimension)
	}
	return vec, nil
}

// EmbedBatch embeds texts in one provider call.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbedding, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", models.ErrEmbedding, len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != p.dimension {
			return nil, fmt.Errorf("%w: dimension mismatch at %d: got %d, want %d", models.ErrEmbedding, i, len(v), p.dimension)
		}
	}
	return vecs, nil
}
