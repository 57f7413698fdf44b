package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig points at the Supabase/Postgres instance backing the
// pgvector store and the processing-status table.
type DatabaseConfig struct {
	URL   string `yaml:"url"`
	Key   string `yaml:"key"`
	Debug bool   `yaml:"debug"`
}

// LLMConfig configures one model endpoint. Provider is "openai" for any
// OpenAI-compatible API (OpenRouter included) or "ollama" for a local server.
type LLMConfig struct {
	Provider      string `yaml:"provider"`
	BaseURL       string `yaml:"base_url"`
	Key           string `yaml:"key"`
	Model         string `yaml:"model"`
	FallbackModel string `yaml:"fallback_model"`
}

// Weights are the context priority-score weights. They are configuration,
// not constants: the defaults encode a relative weighting (similarity
// dominates, the bonuses nudge), nothing more.
type Weights struct {
	Similarity     float64 `yaml:"similarity"`
	KeywordOverlap float64 `yaml:"keyword_overlap"`
	LengthBonus    float64 `yaml:"length_bonus"`
	TypeBonus      float64 `yaml:"type_bonus"`
	PositionBonus  float64 `yaml:"position_bonus"`
}

// RAGConfig is the pipeline configuration surface.
type RAGConfig struct {
	ChunkSize           int     `yaml:"chunk_size"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
	RetrievalK          int     `yaml:"retrieval_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// LexicalThreshold applies to lexical-fallback results, whose fixed
	// placeholder score would otherwise be filtered by a threshold tuned
	// for semantic scores.
	LexicalThreshold           float64 `yaml:"lexical_threshold"`
	LexicalScore               float64 `yaml:"lexical_score"`
	MaxContextLength           int     `yaml:"max_context_length"`
	MaxDocuments               int     `yaml:"max_documents"`
	PerDocumentLength          int     `yaml:"per_document_length"`
	FallbackToGeneralKnowledge bool    `yaml:"fallback_to_general_knowledge"`
	MaxRetries                 int     `yaml:"max_retries"`
	HistoryWindow              int     `yaml:"history_window"`
	EmbeddingBatchSize         int     `yaml:"embedding_batch_size"`
	IncludeScores              bool    `yaml:"include_scores"`
	Weights                    Weights `yaml:"weights"`
}

// StoreConfig selects the vector store backend: "postgres" (Supabase
// pgvector) or "chromem" (embedded, for local mode).
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Store    StoreConfig    `yaml:"store"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
	RAG      RAGConfig      `yaml:"rag"`
}

// Load reads and validates a config file. Unknown keys are rejected so a
// typo in the file fails loudly instead of silently falling back to a
// default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes raw YAML config bytes, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config with every pipeline option at its default.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Backend: "chromem", Path: "./chromemdb"},
		EmbedLLM: LLMConfig{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
			Model:    "all-minilm",
		},
		ChatLLM: LLMConfig{
			Provider: "openai",
			BaseURL:  "https://openrouter.ai/api/v1",
			Model:    "meta-llama/llama-3.1-8b-instruct",
		},
		RAG: RAGConfig{
			ChunkSize:                  1000,
			ChunkOverlap:               200,
			RetrievalK:                 5,
			SimilarityThreshold:        0.3,
			LexicalThreshold:           0.1,
			LexicalScore:               0.5,
			MaxContextLength:           4000,
			MaxDocuments:               5,
			PerDocumentLength:          1500,
			FallbackToGeneralKnowledge: true,
			MaxRetries:                 1,
			HistoryWindow:              6,
			EmbeddingBatchSize:         16,
			Weights:                    DefaultWeights(),
		},
	}
}

// DefaultWeights returns the default context priority-score weighting.
func DefaultWeights() Weights {
	return Weights{
		Similarity:     10,
		KeywordOverlap: 0.5,
		LengthBonus:    0.5,
		TypeBonus:      0.5,
		PositionBonus:  0.3,
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Store.Backend == "" {
		c.Store.Backend = d.Store.Backend
	}
	if c.Store.Path == "" {
		c.Store.Path = d.Store.Path
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = d.RAG.ChunkSize
	}
	if c.RAG.RetrievalK == 0 {
		c.RAG.RetrievalK = d.RAG.RetrievalK
	}
	if c.RAG.LexicalScore == 0 {
		c.RAG.LexicalScore = d.RAG.LexicalScore
	}
	if c.RAG.MaxContextLength == 0 {
		c.RAG.MaxContextLength = d.RAG.MaxContextLength
	}
	if c.RAG.MaxDocuments == 0 {
		c.RAG.MaxDocuments = d.RAG.MaxDocuments
	}
	if c.RAG.PerDocumentLength == 0 {
		c.RAG.PerDocumentLength = d.RAG.PerDocumentLength
	}
	if c.RAG.HistoryWindow == 0 {
		c.RAG.HistoryWindow = d.RAG.HistoryWindow
	}
	if c.RAG.EmbeddingBatchSize == 0 {
		c.RAG.EmbeddingBatchSize = d.RAG.EmbeddingBatchSize
	}
	if c.RAG.Weights == (Weights{}) {
		c.RAG.Weights = d.RAG.Weights
	}
}

// Validate checks cross-field constraints that defaults cannot fix.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 {
		return fmt.Errorf("rag.chunk_overlap must not be negative, got %d", c.RAG.ChunkOverlap)
	}
	if c.RAG.MaxContextLength < 100 {
		return fmt.Errorf("rag.max_context_length too small: %d", c.RAG.MaxContextLength)
	}
	switch c.Store.Backend {
	case "postgres", "chromem":
	default:
		return fmt.Errorf("store.backend must be postgres or chromem, got %q", c.Store.Backend)
	}
	if c.Store.Backend == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("database.url is required for the postgres backend")
	}
	return nil
}
