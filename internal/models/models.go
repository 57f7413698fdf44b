package models

// Chunk is the unit of storage and retrieval: a bounded slice of one
// document's extracted text, owned by exactly one tenant.
type Chunk struct {
	ID            string
	OwnerID       string
	Content       string
	Source        string
	PositionIndex int
	TotalChunks   int
	Embedding     []float32
}

// SimilarityResult is one retrieved chunk with its relevance estimate.
// Score is not guaranteed to be normalized; lexical matches carry a
// fixed placeholder score.
type SimilarityResult struct {
	ChunkID  string
	Content  string
	Source   string
	Metadata map[string]string
	Score    float64
}

// Metadata keys set on stored chunks and carried through retrieval.
const (
	MetaFileType      = "file_type"
	MetaPositionIndex = "position_index"
	MetaTotalChunks   = "total_chunks"
	MetaMatchType     = "match_type"
)

// Values for MetaMatchType.
const (
	MatchSemantic = "semantic"
	MatchLexical  = "lexical"
)

// ContextStats describes an assembled context string.
type ContextStats struct {
	Length         int
	DocCount       int
	AvgScore       float64
	Sources        []string
	OriginalLength int
}

// ContextBundle is the assembled, length-bounded grounding material for
// one generation call. Text is empty when no relevant documents exist.
type ContextBundle struct {
	Documents []SimilarityResult
	Text      string
	Stats     ContextStats
}

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// GenerationRequest is a single user query against one owner's documents.
type GenerationRequest struct {
	Query     string
	OwnerID   string
	ModelTier string
	History   []Message
}

// GenerationResult is the terminal outcome of a query, carried by both
// the blocking and the streaming entry points.
type GenerationResult struct {
	Response  string
	Context   string
	Documents []SimilarityResult
	Stats     ContextStats
	ModelTier string
	Success   bool
	Error     string
}
