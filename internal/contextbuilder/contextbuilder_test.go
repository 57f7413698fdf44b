package contextbuilder

import (
	"strings"
	"testing"

	"document-chat/internal/config"
	"document-chat/internal/models"
)

func testConfig() config.RAGConfig {
	cfg := config.Default().RAG
	cfg.SimilarityThreshold = 0.3
	cfg.LexicalThreshold = 0.1
	cfg.MaxContextLength = 4000
	cfg.MaxDocuments = 5
	cfg.PerDocumentLength = 1500
	return cfg
}

func result(id, content, source string, score float64) models.SimilarityResult {
	return models.SimilarityResult{
		ChunkID:  id,
		Content:  content,
		Source:   source,
		Metadata: map[string]string{},
		Score:    score,
	}
}

func TestBuildContextEmptyInput(t *testing.T) {
	b := New(testConfig())
	bundle, err := b.BuildContext(nil, "anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle.Text != "" {
		t.Fatalf("expected empty text, got %q", bundle.Text)
	}
	if bundle.Stats.DocCount != 0 || bundle.Stats.AvgScore != 0 {
		t.Fatalf("expected zero stats, got %+v", bundle.Stats)
	}
}

func TestBuildContextFiltersBelowThreshold(t *testing.T) {
	b := New(testConfig())
	bundle, err := b.BuildContext([]models.SimilarityResult{
		result("a", "relevant content", "a.txt", 0.8),
		result("b", "noise", "b.txt", 0.1),
	}, "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bundle.Documents) != 1 || bundle.Documents[0].ChunkID != "a" {
		t.Fatalf("expected only result a to survive, got %+v", bundle.Documents)
	}
}

func TestBuildContextAllFilteredReturnsEmpty(t *testing.T) {
	b := New(testConfig())
	bundle, _ := b.BuildContext([]models.SimilarityResult{
		result("a", "x", "a.txt", 0.05),
	}, "query")
	if bundle.Text != "" {
		t.Fatalf("expected empty text when everything is filtered, got %q", bundle.Text)
	}
}

func TestBuildContextLexicalThreshold(t *testing.T) {
	b := New(testConfig())
	lex := result("a", "lexical hit", "a.txt", 0.15)
	lex.Metadata[models.MetaMatchType] = models.MatchLexical
	sem := result("b", "semantic miss", "b.txt", 0.15)

	bundle, _ := b.BuildContext([]models.SimilarityResult{lex, sem}, "query")
	if len(bundle.Documents) != 1 || bundle.Documents[0].ChunkID != "a" {
		t.Fatalf("expected lexical result to pass its own threshold, got %+v", bundle.Documents)
	}
}

func TestBuildContextNeverExceedsLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxContextLength = 500
	cfg.PerDocumentLength = 400
	b := New(cfg)

	big := strings.Repeat("word ", 300)
	var results []models.SimilarityResult
	for _, id := range []string{"a", "b", "c", "d"} {
		results = append(results, result(id, big, id+".txt", 0.9))
	}
	bundle, _ := b.BuildContext(results, "query")
	if len(bundle.Text) > cfg.MaxContextLength {
		t.Fatalf("context length %d exceeds limit %d", len(bundle.Text), cfg.MaxContextLength)
	}
	if bundle.Text == "" {
		t.Fatal("expected at least one section to fit")
	}
}

func TestBuildContextPerDocumentTruncation(t *testing.T) {
	cfg := testConfig()
	cfg.PerDocumentLength = 100
	b := New(cfg)

	bundle, _ := b.BuildContext([]models.SimilarityResult{
		result("a", strings.Repeat("x", 500), "a.txt", 0.9),
	}, "query")
	if !strings.Contains(bundle.Text, models.TruncationMarker) {
		t.Fatal("expected truncation marker in oversized section")
	}
}

func TestBuildContextOrdersByPriority(t *testing.T) {
	b := New(testConfig())
	// Same base score; keyword overlap should rank the matching doc first.
	matching := result("match", "the migration plan covers database changes in detail and more", "plan.md", 0.5)
	other := result("other", "unrelated meeting notes about scheduling and rooms availability", "notes.txt", 0.5)

	bundle, _ := b.BuildContext([]models.SimilarityResult{other, matching}, "database migration plan")
	if len(bundle.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(bundle.Documents))
	}
	if bundle.Documents[0].ChunkID != "match" {
		t.Fatalf("expected keyword-matching doc first, got %s", bundle.Documents[0].ChunkID)
	}
}

func TestBuildContextStableTieBreak(t *testing.T) {
	b := New(testConfig())
	first := result("first", strings.Repeat("same content here ", 20), "a.txt", 0.5)
	second := result("second", strings.Repeat("same content here ", 20), "b.txt", 0.5)

	bundle, _ := b.BuildContext([]models.SimilarityResult{first, second}, "zzz")
	if bundle.Documents[0].ChunkID != "first" {
		t.Fatal("tie should keep original order")
	}
}

func TestBuildContextMaxDocuments(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDocuments = 2
	cfg.MaxContextLength = 100000
	b := New(cfg)

	var results []models.SimilarityResult
	for _, id := range []string{"a", "b", "c", "d"} {
		results = append(results, result(id, "content "+id, id+".txt", 0.9))
	}
	bundle, _ := b.BuildContext(results, "query")
	if len(bundle.Documents) != 2 {
		t.Fatalf("expected 2 documents kept, got %d", len(bundle.Documents))
	}
}

func TestStatsEmpty(t *testing.T) {
	b := New(testConfig())
	stats := b.Stats("", nil)
	if stats.AvgScore != 0 || stats.DocCount != 0 || stats.Length != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestStats(t *testing.T) {
	b := New(testConfig())
	results := []models.SimilarityResult{
		result("a", "aaaa", "a.txt", 0.8),
		result("b", "bbbbbb", "a.txt", 0.4),
		result("c", "cc", "c.txt", 0.6),
	}
	stats := b.Stats("some text", results)
	if stats.DocCount != 3 {
		t.Fatalf("doc count: got %d", stats.DocCount)
	}
	if stats.AvgScore < 0.599 || stats.AvgScore > 0.601 {
		t.Fatalf("avg score: got %f", stats.AvgScore)
	}
	if len(stats.Sources) != 2 {
		t.Fatalf("expected 2 distinct sources, got %v", stats.Sources)
	}
	if stats.OriginalLength != 12 {
		t.Fatalf("original length: got %d", stats.OriginalLength)
	}
	if stats.Length != len("some text") {
		t.Fatalf("length: got %d", stats.Length)
	}
}
