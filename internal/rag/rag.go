// Package rag orchestrates the query lifecycle: retrieval, context
// assembly and generation with tiered fallback, in blocking and streaming
// modes.
package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"document-chat/internal/config"
	"document-chat/internal/helper"
	"document-chat/internal/models"
)

// DocumentRetriever is the retrieval stage dependency.
type DocumentRetriever interface {
	SimilaritySearch(ctx context.Context, query, ownerID string, k int, threshold float64) ([]models.SimilarityResult, error)
}

// ContextBuilder is the context assembly stage dependency.
type ContextBuilder interface {
	BuildContext(results []models.SimilarityResult, query string) (models.ContextBundle, error)
	Stats(text string, results []models.SimilarityResult) models.ContextStats
}

// Generator is the generation provider dependency.
type Generator interface {
	Generate(ctx context.Context, model string, messages []models.Message) (string, error)
	GenerateStream(ctx context.Context, model string, messages []models.Message, onToken func(string)) (string, error)
}

// Generation tiers, ordered from most to least grounded.
type tier int

const (
	tierContextual tier = iota
	tierContextualNoHistory
	tierGeneral
	tierGeneralAlternate
)

// fallbackPlan is the degrade policy as data: which tier to try next when
// generation at a tier fails before producing output. A tier with no entry
// falls through to the deterministic apology. Contextual failure first
// drops the conversation history (isolating whether history caused it),
// then gives up on the context entirely; general-knowledge failure retries
// on the alternate model.
var fallbackPlan = map[tier]tier{
	tierContextual:          tierContextualNoHistory,
	tierContextualNoHistory: tierGeneral,
	tierGeneral:             tierGeneralAlternate,
}

const (
	// raisedThresholdStep makes the degraded retrieval retry more conservative.
	raisedThresholdStep = 0.1
	// naiveContextDocs and naiveContentCap bound the unscored context fallback.
	naiveContextDocs = 3
	naiveContentCap  = 500
	// apologyQueryEcho is how much of the original query the apology repeats.
	apologyQueryEcho = 60
)

// Orchestrator runs queries end to end. It holds no per-query state; each
// call is an independent unit of work.
type Orchestrator struct {
	retriever     DocumentRetriever
	builder       ContextBuilder
	generator     Generator
	cfg           config.RAGConfig
	fallbackModel string
}

func New(retriever DocumentRetriever, builder ContextBuilder, generator Generator, cfg config.RAGConfig, fallbackModel string) *Orchestrator {
	return &Orchestrator{
		retriever:     retriever,
		builder:       builder,
		generator:     generator,
		cfg:           cfg,
		fallbackModel: fallbackModel,
	}
}

// Query answers a request in blocking mode. It does not return an error:
// every failure degrades to a lower tier, ending at worst in the canned
// apology with Success=false.
func (o *Orchestrator) Query(ctx context.Context, req models.GenerationRequest) *models.GenerationResult {
	return o.run(ctx, req, nil)
}

// QueryStream answers a request in streaming mode. Fragments arrive on
// the first channel in generation order; after it closes, the terminal
// result (whose Response is the concatenation of all fragments) arrives
// on the second. Failures before any output yield the same fallback or
// apology text as a single fragment.
func (o *Orchestrator) QueryStream(ctx context.Context, req models.GenerationRequest) (<-chan string, <-chan *models.GenerationResult) {
	fragments := make(chan string, 16)
	terminal := make(chan *models.GenerationResult, 1)
	go func() {
		res := o.run(ctx, req, func(t string) { fragments <- t })
		close(fragments)
		terminal <- res
		close(terminal)
	}()
	return fragments, terminal
}

func (o *Orchestrator) run(ctx context.Context, req models.GenerationRequest, emit func(string)) *models.GenerationResult {
	docs := o.retrieveDocuments(ctx, req)
	bundle := o.buildContext(docs, req.Query)

	res := &models.GenerationResult{
		Context:   bundle.Text,
		Documents: docs,
		Stats:     bundle.Stats,
	}

	var start tier
	switch {
	case bundle.Text != "":
		start = tierContextual
	case o.cfg.FallbackToGeneralKnowledge:
		start = tierGeneral
	default:
		res.Response = models.InsufficientInfoMessage
		if emit != nil {
			emit(res.Response)
		}
		return res
	}

	o.generate(ctx, req, bundle.Text, start, emit, res)
	return res
}

// retrieveDocuments never fails the query: a retrieval error earns one
// degraded retry (reduced k, raised threshold); an embedding error, or a
// repeated failure, proceeds with no documents.
func (o *Orchestrator) retrieveDocuments(ctx context.Context, req models.GenerationRequest) []models.SimilarityResult {
	k := o.cfg.RetrievalK
	threshold := o.cfg.SimilarityThreshold

	docs, err := o.retriever.SimilaritySearch(ctx, req.Query, req.OwnerID, k, threshold)
	if err == nil {
		return docs
	}
	if errors.Is(err, models.ErrEmbedding) {
		log.Warn().Err(err).Str("owner_id", req.OwnerID).Msg("query embedding failed, proceeding without documents")
		return nil
	}

	retries := o.cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	for i := 0; i < retries; i++ {
		k = k / 2
		if k < 1 {
			k = 1
		}
		threshold += raisedThresholdStep
		log.Warn().Err(err).Int("k", k).Float64("threshold", threshold).Msg("retrieval failed, retrying degraded")
		docs, err = o.retriever.SimilaritySearch(ctx, req.Query, req.OwnerID, k, threshold)
		if err == nil {
			return docs
		}
	}
	log.Warn().Err(err).Str("owner_id", req.OwnerID).Msg("retrieval failed after retry, proceeding without documents")
	return nil
}

// buildContext degrades to a naive unscored concatenation if the assembler
// fails, and to an empty context if there is nothing to concatenate.
func (o *Orchestrator) buildContext(docs []models.SimilarityResult, query string) models.ContextBundle {
	bundle, err := o.builder.BuildContext(docs, query)
	if err == nil {
		return bundle
	}
	log.Warn().Err(err).Msg("context assembly failed, using naive fallback")

	n := len(docs)
	if n > naiveContextDocs {
		n = naiveContextDocs
	}
	var text string
	for _, d := range docs[:n] {
		section := fmt.Sprintf("Source: %s\n%s\n\n", d.Source, helper.Truncate(d.Content, naiveContentCap, models.TruncationMarker))
		if len(text)+len(section) > o.cfg.MaxContextLength {
			break
		}
		text += section
	}
	used := docs[:n]
	if text == "" {
		used = nil
	}
	return models.ContextBundle{
		Documents: used,
		Text:      text,
		Stats:     o.builder.Stats(text, used),
	}
}

func (o *Orchestrator) generate(ctx context.Context, req models.GenerationRequest, contextText string, start tier, emit func(string), res *models.GenerationResult) {
	current := start
	emitted := false
	var lastErr error

	for {
		msgs, model := o.messagesFor(current, req, contextText)

		var text string
		var err error
		if emit == nil {
			text, err = o.generator.Generate(ctx, model, msgs)
		} else {
			text, err = o.generator.GenerateStream(ctx, model, msgs, func(t string) {
				emitted = true
				emit(t)
			})
		}
		if err == nil {
			res.Response = text
			res.ModelTier = model
			res.Success = true
			return
		}
		lastErr = err
		log.Warn().Err(err).Int("tier", int(current)).Msg("generation failed")

		if emitted {
			// Output already reached the consumer; retrying would duplicate
			// it. Finish with the partial response.
			res.Response = text
			res.ModelTier = model
			res.Error = err.Error()
			return
		}
		next, ok := fallbackPlan[current]
		if !ok {
			break
		}
		current = next
	}

	res.Response = fmt.Sprintf(models.ApologyTemplate, helper.Truncate(req.Query, apologyQueryEcho, models.TruncationMarker))
	if lastErr != nil {
		res.Error = lastErr.Error()
	}
	if emit != nil {
		emit(res.Response)
	}
}

// messagesFor builds the message sequence and picks the model for a tier:
// one system message, a bounded window of history, then the query.
func (o *Orchestrator) messagesFor(t tier, req models.GenerationRequest, contextText string) ([]models.Message, string) {
	var system string
	withHistory := true
	model := req.ModelTier

	switch t {
	case tierContextual:
		system = fmt.Sprintf(models.GroundedSystemPrompt, contextText)
	case tierContextualNoHistory:
		system = fmt.Sprintf(models.GroundedSystemPrompt, contextText)
		withHistory = false
	case tierGeneral:
		system = models.GeneralSystemPrompt
	case tierGeneralAlternate:
		system = models.GeneralSystemPrompt
		model = o.fallbackModel
	}

	msgs := []models.Message{{Role: models.RoleSystem, Content: system}}
	if withHistory {
		msgs = append(msgs, o.historyWindow(req.History)...)
	}
	msgs = append(msgs, models.Message{Role: models.RoleUser, Content: req.Query})
	return msgs, model
}

// historyWindow keeps the last N turns to cap context-window pressure.
func (o *Orchestrator) historyWindow(history []models.Message) []models.Message {
	if o.cfg.HistoryWindow <= 0 || len(history) <= o.cfg.HistoryWindow {
		return history
	}
	return history[len(history)-o.cfg.HistoryWindow:]
}
