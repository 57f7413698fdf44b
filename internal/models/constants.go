package models

const (
	// TruncationMarker is appended wherever content had to be cut to fit
	// a display or context limit.
	TruncationMarker = "..."

	// InsufficientInfoMessage is returned when retrieval found nothing and
	// general-knowledge fallback is disabled.
	InsufficientInfoMessage = "I don't have enough information in your documents to answer that. Try uploading documents related to your question first."

	// NoFilesMessage is returned for an upload request with an empty file list.
	NoFilesMessage = "no files provided"
)

var (
	GroundedSystemPrompt = `You are a helpful assistant answering questions about the user's own documents.
Use the following context extracted from those documents to answer. Prefer the context over
general knowledge, cite the source file when it helps, and say so plainly if the context does
not contain the answer.

Context:
%s`

	GeneralSystemPrompt = `You are a helpful assistant. The user's documents did not contain relevant material
for this question, so answer from general knowledge. Be clear that the answer is not based on
their uploaded documents.`

	// ApologyTemplate embeds a truncated echo of the original query so the
	// canned failure is never an empty or generic string.
	ApologyTemplate = `I'm sorry, I wasn't able to answer "%s" right now. Please try again in a few moments.`
)
