package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		name     string
		settings GeneratorSettings
		apiKey   string
		wantErr  string
	}{
		{"missing key", GeneratorSettings{Provider: ProviderOpenAI}, "", "OPENAI_API_KEY"},
		{"missing key unknown provider", GeneratorSettings{Provider: "mystery"}, "", "API key required"},
		{"unknown provider", GeneratorSettings{Provider: "mystery"}, "key", "unsupported generator provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.settings, tt.apiKey)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewGeneratorBackends(t *testing.T) {
	g, err := NewGenerator(GeneratorSettings{Provider: ProviderAnthropic, Model: "claude"}, "key")
	require.NoError(t, err)
	assert.IsType(t, &anthropicGenerator{}, g)

	g, err = NewGenerator(GeneratorSettings{Provider: ProviderOpenAI, Model: "gpt-5-mini"}, "key")
	require.NoError(t, err)
	assert.IsType(t, &openAIGenerator{}, g)
}

func TestAnthropicGeneratorHonorsCancelledContext(t *testing.T) {
	g := &anthropicGenerator{apiKey: "key"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, []string{"prompt"})
	assert.ErrorIs(t, err, context.Canceled)
}
