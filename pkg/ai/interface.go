package ai

import (
	"context"
)

// Request is a single text-generation call handed to a Provider.
type Request struct {
	System      string
	User        string
	Model       string
	Temperature float64
	MaxTokens   int
	// JSON asks the provider to answer with a single JSON object.
	JSON bool
}

// Provider is the interface for a text-generation backend.
// Implement this interface to add new AI providers (OpenAI, Gemini, Ollama, etc.)
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Options tune one completion. Zero values fall back to the client defaults.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Completer is what the content generators depend on.
type Completer interface {
	Complete(ctx context.Context, system, user string, opts Options) (string, error)
	CompleteJSON(ctx context.Context, system, user string, opts Options) (map[string]any, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
