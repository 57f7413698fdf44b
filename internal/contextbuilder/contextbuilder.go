// Package contextbuilder assembles retrieved chunks into a single bounded,
// prioritized context string for grounded generation.
package contextbuilder

import (
	"fmt"
	"sort"
	"strings"

	"document-chat/internal/config"
	"document-chat/internal/models"
)

// Content length band considered a "sweet spot" for the length bonus:
// long enough to carry substance, short enough not to crowd out other
// documents.
const (
	sweetSpotMin = 200
	sweetSpotMax = 1200
)

// preferredFileTypes are structured-document formats that tend to hold
// higher-signal content than loose text.
var preferredFileTypes = map[string]bool{
	"pdf":  true,
	"docx": true,
	"md":   true,
}

// Builder scores, orders and truncates similarity results into a
// ContextBundle.
type Builder struct {
	cfg config.RAGConfig
}

func New(cfg config.RAGConfig) *Builder {
	return &Builder{cfg: cfg}
}

// BuildContext filters results below threshold, orders the survivors by
// priority, and concatenates at most MaxDocuments labeled sections without
// exceeding MaxContextLength. An empty Text (never an error) signals "no
// relevant documents" to the orchestrator.
func (b *Builder) BuildContext(results []models.SimilarityResult, query string) (models.ContextBundle, error) {
	kept := b.filter(results)
	if len(kept) == 0 {
		return models.ContextBundle{Stats: b.stats("", nil)}, nil
	}

	queryTokens := tokenize(query)
	type scored struct {
		res      models.SimilarityResult
		priority float64
	}
	ranked := make([]scored, len(kept))
	for i, r := range kept {
		ranked[i] = scored{res: r, priority: b.priority(r, queryTokens)}
	}
	// Stable: ties keep retrieval order.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].priority > ranked[j].priority })

	if len(ranked) > b.cfg.MaxDocuments {
		ranked = ranked[:b.cfg.MaxDocuments]
	}

	var sb strings.Builder
	var used []models.SimilarityResult
	for i, s := range ranked {
		section := b.formatSection(i+1, s.res)
		if sb.Len()+len(section) > b.cfg.MaxContextLength {
			break
		}
		sb.WriteString(section)
		used = append(used, s.res)
	}

	text := strings.TrimRight(sb.String(), "\n")
	if len(text) > b.cfg.MaxContextLength {
		text = text[:b.cfg.MaxContextLength-len(models.TruncationMarker)] + models.TruncationMarker
	}

	return models.ContextBundle{
		Documents: used,
		Text:      text,
		Stats:     b.stats(text, used),
	}, nil
}

// Stats is a pure read of an assembled text and its result list.
func (b *Builder) Stats(text string, results []models.SimilarityResult) models.ContextStats {
	return b.stats(text, results)
}

func (b *Builder) filter(results []models.SimilarityResult) []models.SimilarityResult {
	var kept []models.SimilarityResult
	for _, r := range results {
		threshold := b.cfg.SimilarityThreshold
		if r.Metadata[models.MetaMatchType] == models.MatchLexical {
			threshold = b.cfg.LexicalThreshold
		}
		if r.Score >= threshold {
			kept = append(kept, r)
		}
	}
	return kept
}

func (b *Builder) priority(r models.SimilarityResult, queryTokens map[string]bool) float64 {
	w := b.cfg.Weights
	p := r.Score * w.Similarity
	p += float64(keywordOverlap(queryTokens, r.Content)) * w.KeywordOverlap
	p += b.lengthBonus(len(r.Content))
	if preferredFileTypes[r.Metadata[models.MetaFileType]] {
		p += w.TypeBonus
	}
	if r.Metadata[models.MetaPositionIndex] == "0" {
		// First chunk of its document, usually introductory content.
		p += w.PositionBonus
	}
	return p
}

func (b *Builder) lengthBonus(n int) float64 {
	switch {
	case n >= sweetSpotMin && n <= sweetSpotMax:
		return b.cfg.Weights.LengthBonus
	case n > sweetSpotMax:
		return b.cfg.Weights.LengthBonus / 2
	default:
		return 0
	}
}

func (b *Builder) formatSection(index int, r models.SimilarityResult) string {
	content := r.Content
	if len(content) > b.cfg.PerDocumentLength {
		content = content[:b.cfg.PerDocumentLength-len(models.TruncationMarker)] + models.TruncationMarker
	}
	if b.cfg.IncludeScores {
		return fmt.Sprintf("[Document %d] (source: %s, score: %.2f)\n%s\n\n", index, r.Source, r.Score, content)
	}
	return fmt.Sprintf("[Document %d] (source: %s)\n%s\n\n", index, r.Source, content)
}

func (b *Builder) stats(text string, results []models.SimilarityResult) models.ContextStats {
	stats := models.ContextStats{
		Length:   len(text),
		DocCount: len(results),
	}
	if len(results) == 0 {
		return stats
	}
	var sum float64
	seen := make(map[string]bool)
	for _, r := range results {
		sum += r.Score
		stats.OriginalLength += len(r.Content)
		if !seen[r.Source] {
			seen[r.Source] = true
			stats.Sources = append(stats.Sources, r.Source)
		}
	}
	stats.AvgScore = sum / float64(len(results))
	return stats
}

// tokenize lowercases and splits text into a distinct word set.
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if w != "" {
			tokens[w] = true
		}
	}
	return tokens
}

func keywordOverlap(queryTokens map[string]bool, content string) int {
	contentTokens := tokenize(content)
	n := 0
	for t := range queryTokens {
		if contentTokens[t] {
			n++
		}
	}
	return n
}
