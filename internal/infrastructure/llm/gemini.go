package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat-backend/config"
	"chat-backend/internal/domain"

	"google.golang.org/genai"
)

// ErrEmptyReply is returned when the model answered with no text.
var ErrEmptyReply = errors.New("llm: empty reply")

const defaultModel = "gemini-2.5-flash"

// contentGenerator is the slice of *genai.Models the generator needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator implements domain.ReplyGenerator on the Gemini API. The prompt
// already carries the system instruction, so it is sent as a single user
// turn.
type Generator struct {
	models      contentGenerator
	model       string
	temperature float64
	maxTokens   int
}

var _ domain.ReplyGenerator = (*Generator)(nil)

func NewGenerator(ctx context.Context, cfg config.LLMConfig) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return newGenerator(client.Models, cfg), nil
}

func newGenerator(models contentGenerator, cfg config.LLMConfig) *Generator {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Generator{
		models:      models,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Generate returns the trimmed reply text. An answer without text is
// ErrEmptyReply so callers can fall back the same way they do on errors.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, g.buildConfig())
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyReply
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func (g *Generator) buildConfig() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.maxTokens)
	}
	if g.temperature > 0 {
		temp := float32(g.temperature)
		cfg.Temperature = &temp
	}
	return cfg
}
