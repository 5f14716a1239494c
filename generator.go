package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/genai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Generator is the text generation boundary. Blocks are sent in order as
// one user turn; the reply comes back as opaque text.
type Generator interface {
	Generate(ctx context.Context, blocks []string) (string, error)
}

// NewGenerator creates the backend selected in settings.
func NewGenerator(settings GeneratorSettings, apiKey string) (Generator, error) {
	if apiKey == "" {
		env := apiKeyEnv[settings.Provider]
		if env == "" {
			env = "the provider's API key variable"
		}
		return nil, fmt.Errorf("API key required: use --api-key flag or %s environment variable", env)
	}

	switch settings.Provider {
	case ProviderOpenAI, "":
		return newOpenAIGenerator(settings, apiKey)
	case ProviderAnthropic:
		return &anthropicGenerator{apiKey: apiKey, settings: settings}, nil
	case ProviderGemini:
		return newGeminiGenerator(settings, apiKey)
	default:
		return nil, fmt.Errorf("unsupported generator provider: %s", settings.Provider)
	}
}

// openAIGenerator sends every block as a separate text part of one
// human message.
type openAIGenerator struct {
	llm      llms.Model
	settings GeneratorSettings
}

func newOpenAIGenerator(settings GeneratorSettings, apiKey string) (*openAIGenerator, error) {
	model, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(settings.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return &openAIGenerator{llm: model, settings: settings}, nil
}

func (g *openAIGenerator) Generate(ctx context.Context, blocks []string) (string, error) {
	parts := make([]llms.ContentPart, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, llms.TextContent{Text: b})
	}
	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	}

	var opts []llms.CallOption
	if g.settings.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.settings.MaxTokens))
	}
	if g.settings.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(g.settings.Temperature))
	}

	response, err := g.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return response.Choices[0].Content, nil
}

// anthropicGenerator joins the blocks into a single user prompt.
type anthropicGenerator struct {
	apiKey   string
	settings GeneratorSettings
}

func (g *anthropicGenerator) Generate(ctx context.Context, blocks []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	maxTokens := g.settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8000
	}
	settings := types.RequestSettings{
		Model:       g.settings.Model,
		MaxTokens:   maxTokens,
		Temperature: g.settings.Temperature,
	}

	userPrompt := strings.Join(blocks, "\n\n")
	response, err := anthropic.PromptWithSettings("", userPrompt, "", g.apiKey, settings)
	if err != nil {
		return "", fmt.Errorf("anthropic prompt: %w", err)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	return response.Content[0].Text, nil
}

// geminiGenerator sends one user content with a text part per block.
type geminiGenerator struct {
	client   *genai.Client
	settings GeneratorSettings
}

func newGeminiGenerator(settings GeneratorSettings, apiKey string) (*geminiGenerator, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &geminiGenerator{client: client, settings: settings}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, blocks []string) (string, error) {
	parts := make([]*genai.Part, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, genai.NewPartFromText(b))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{}
	if g.settings.MaxTokens > 0 {
		config.MaxOutputTokens = int32(g.settings.MaxTokens)
	}
	if g.settings.Temperature > 0 {
		temperature := float32(g.settings.Temperature)
		config.Temperature = &temperature
	}

	result, err := g.client.Models.GenerateContent(ctx, g.settings.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("no text in gemini response")
	}
	return text, nil
}
