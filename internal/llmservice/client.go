// Package llmservice calls the generation provider through langchaingo.
package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-chat/internal/config"
	"document-chat/internal/models"
)

// Client generates chat completions against an OpenAI-compatible or
// ollama endpoint. The model is chosen per call so the orchestrator can
// retry on an alternate tier.
type Client struct {
	cfg *config.LLMConfig
}

func NewClient(cfg *config.LLMConfig) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) newLLM(model string) (llms.Model, error) {
	if model == "" {
		model = c.cfg.Model
	}
	switch c.cfg.Provider {
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(c.cfg.BaseURL),
			ollama.WithModel(model),
		)
	default:
		return openai.New(
			openai.WithBaseURL(c.cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(c.cfg.Key, "Bearer ")),
			openai.WithModel(model),
		)
	}
}

// Generate returns the complete response for the message sequence.
func (c *Client) Generate(ctx context.Context, model string, messages []models.Message) (string, error) {
	llm, err := c.newLLM(model)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGeneration, err)
	}
	resp, err := llm.GenerateContent(ctx, toMessageContent(messages))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", models.ErrGeneration)
	}
	return resp.Choices[0].Content, nil
}

// GenerateStream calls onToken with each fragment in generation order and
// returns the concatenated response. Fragments already passed to onToken
// stay delivered even if the call ends in an error.
func (c *Client) GenerateStream(ctx context.Context, model string, messages []models.Message, onToken func(string)) (string, error) {
	llm, err := c.newLLM(model)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGeneration, err)
	}
	var full strings.Builder
	_, err = llm.GenerateContent(ctx, toMessageContent(messages),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			full.WriteString(string(chunk))
			onToken(string(chunk))
			return nil
		}),
	)
	if err != nil {
		return full.String(), fmt.Errorf("%w: %v", models.ErrGeneration, err)
	}
	return full.String(), nil
}

func toMessageContent(messages []models.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		var role llms.ChatMessageType
		switch m.Role {
		case models.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case models.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		out = append(out, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextContent{Text: m.Content}},
		})
	}
	return out
}
