// Package retriever performs tenant-scoped semantic search with a lexical
// fallback when the vector store is unavailable.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"document-chat/internal/config"
	"document-chat/internal/models"
	"document-chat/internal/store"
)

const (
	// MaxK bounds the result-set size regardless of what the caller asks for.
	MaxK = 20
	// MaxContentLength caps each returned chunk's content to bound memory
	// and downstream context size.
	MaxContentLength = 2000
	// maxLexicalTerms is how many query words the lexical fallback matches on.
	maxLexicalTerms = 5
)

// QueryEmbedder is the slice of the embedding provider the retriever needs.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever answers similarity searches against one owner's documents.
type Retriever struct {
	store    store.VectorStore
	embedder QueryEmbedder
	cfg      config.RAGConfig
}

func New(st store.VectorStore, embedder QueryEmbedder, cfg config.RAGConfig) *Retriever {
	return &Retriever{store: st, embedder: embedder, cfg: cfg}
}

// SimilaritySearch embeds the query and matches it against the owner's
// chunks, ordered by descending score. A store failure degrades to a
// lexical containment search with a fixed placeholder score; an embedding
// failure is returned to the caller, which falls through to generation
// without context rather than retrying here.
func (r *Retriever) SimilaritySearch(ctx context.Context, query, ownerID string, k int, threshold float64) ([]models.SimilarityResult, error) {
	if k < 1 {
		k = 1
	}
	if k > MaxK {
		k = MaxK
	}

	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := r.store.Match(ctx, ownerID, embedding, threshold, k)
	if err != nil {
		log.Warn().Err(err).Str("owner_id", ownerID).Msg("vector match failed, falling back to lexical search")
		return r.lexicalSearch(ctx, query, ownerID, k)
	}

	results := make([]models.SimilarityResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, toResult(m, m.Score, models.MatchSemantic))
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

func (r *Retriever) lexicalSearch(ctx context.Context, query, ownerID string, k int) ([]models.SimilarityResult, error) {
	terms := lexicalTerms(query, maxLexicalTerms)
	matches, err := r.store.SearchText(ctx, ownerID, terms, k)
	if err != nil {
		return nil, fmt.Errorf("lexical fallback: %w", err)
	}
	// Lexical matches carry no semantic confidence; every result gets the
	// same placeholder score and is tagged so the assembler can apply the
	// lexical threshold instead of the semantic one.
	results := make([]models.SimilarityResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, toResult(m, r.cfg.LexicalScore, models.MatchLexical))
	}
	return results, nil
}

// lexicalTerms tokenizes the query and keeps the first max distinct words.
func lexicalTerms(query string, max int) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
		if len(terms) == max {
			break
		}
	}
	return terms
}

func toResult(m store.Match, score float64, matchType string) models.SimilarityResult {
	metadata := make(map[string]string, len(m.Metadata)+1)
	for k, v := range m.Metadata {
		metadata[k] = v
	}
	metadata[models.MetaMatchType] = matchType
	return models.SimilarityResult{
		ChunkID:  m.ID,
		Content:  truncateContent(m.Content),
		Source:   m.Source,
		Metadata: metadata,
		Score:    score,
	}
}

func truncateContent(content string) string {
	if len(content) <= MaxContentLength {
		return content
	}
	return content[:MaxContentLength-len(models.TruncationMarker)] + models.TruncationMarker
}
