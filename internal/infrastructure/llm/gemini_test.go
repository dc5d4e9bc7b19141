package llm

import (
	"context"
	"errors"
	"testing"

	"chat-backend/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp     *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func TestGenerator_Generate(t *testing.T) {
	fake := &fakeModels{resp: textResponse("  Hi there!\n")}
	g := newGenerator(fake, config.LLMConfig{Model: "gemini-test", Temperature: 0.5, MaxTokens: 256})

	got, err := g.Generate(context.Background(), "System\nUser: Hello\nAssistant:")
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", got)

	assert.Equal(t, "gemini-test", fake.model)
	require.Len(t, fake.contents, 1)
	assert.Equal(t, "user", fake.contents[0].Role)
	assert.Equal(t, "System\nUser: Hello\nAssistant:", fake.contents[0].Parts[0].Text)
	assert.Equal(t, int32(256), fake.config.MaxOutputTokens)
	require.NotNil(t, fake.config.Temperature)
	assert.InDelta(t, 0.5, *fake.config.Temperature, 1e-6)
}

func TestGenerator_DefaultsModel(t *testing.T) {
	fake := &fakeModels{resp: textResponse("ok")}
	g := newGenerator(fake, config.LLMConfig{})

	_, err := g.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, defaultModel, fake.model)
	assert.Nil(t, fake.config.Temperature)
	assert.Zero(t, fake.config.MaxOutputTokens)
}

func TestGenerator_EmptyReply(t *testing.T) {
	for name, resp := range map[string]*genai.GenerateContentResponse{
		"nil":        nil,
		"blank":      textResponse("   "),
		"candidates": {},
	} {
		t.Run(name, func(t *testing.T) {
			g := newGenerator(&fakeModels{resp: resp}, config.LLMConfig{})
			_, err := g.Generate(context.Background(), "p")
			assert.ErrorIs(t, err, ErrEmptyReply)
		})
	}
}

func TestGenerator_Error(t *testing.T) {
	boom := errors.New("quota exceeded")
	g := newGenerator(&fakeModels{err: boom}, config.LLMConfig{})

	_, err := g.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, boom)
}

func TestNewGenerator_RequiresAPIKey(t *testing.T) {
	_, err := NewGenerator(context.Background(), config.LLMConfig{})
	assert.Error(t, err)
}
