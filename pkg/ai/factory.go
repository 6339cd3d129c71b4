package ai

import (
	"context"
	"fmt"

	"dabble-backend/pkg/gemini"
	"dabble-backend/pkg/logger"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "openai", "gemini", "ollama" or "auto"
	// Fallback optionally names a second provider used when the first is
	// unreachable or out of quota.
	Fallback ProviderType

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	GeminiAPIKey string
	GeminiModel  string

	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"

	Client ClientConfig
}

// NewProvider creates a Provider based on the config. Missing credentials
// yield a config error and no provider, so callers can use fallbacks.
func NewProvider(cfg Config, log *logger.Logger) (Provider, error) {
	primary, err := newSingleProvider(cfg.Provider, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Fallback == "" || cfg.Fallback == cfg.Provider {
		return primary, nil
	}
	secondary, err := newSingleProvider(cfg.Fallback, cfg)
	if err != nil {
		if log != nil {
			log.Warn("Fallback provider unavailable", "fallback", string(cfg.Fallback), "error", err.Error())
		}
		return primary, nil
	}
	if secondary.Name() == primary.Name() {
		return primary, nil
	}
	return NewFallbackProvider(primary, secondary, log), nil
}

func newSingleProvider(kind ProviderType, cfg Config) (Provider, error) {
	switch kind {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, newError(KindConfig, "OPENAI_API_KEY is required for OpenAI provider", nil)
		}
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil

	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, newError(KindConfig, "GEMINI_API_KEY is required for Gemini provider", nil)
		}
		return &geminiProvider{svc: gemini.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel)}, nil

	case ProviderOllama:
		if cfg.OllamaBaseURL == "" {
			return nil, newError(KindConfig, "OLLAMA_BASE_URL is required for Ollama provider", nil)
		}
		return NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	case ProviderAuto, "":
		// Hosted providers need a key; a local Ollama is never assumed.
		if cfg.OpenAIAPIKey != "" {
			return newSingleProvider(ProviderOpenAI, cfg)
		}
		if cfg.GeminiAPIKey != "" {
			return newSingleProvider(ProviderGemini, cfg)
		}
		return nil, newError(KindConfig, "no provider credential configured", nil)

	default:
		return nil, newError(KindConfig, fmt.Sprintf("unknown provider %q", kind), nil)
	}
}

// New builds a ready Client. A *Error of kind config is returned when no
// provider can be used.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	provider, err := NewProvider(cfg, log)
	if err != nil {
		return nil, err
	}
	return NewClient(provider, cfg.Client, log)
}

// geminiProvider adapts the Gemini REST service to Provider.
type geminiProvider struct {
	svc *gemini.GeminiService
}

func (g *geminiProvider) Name() string { return string(ProviderGemini) }

func (g *geminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	return g.svc.GenerateContent(ctx, gemini.GenerateRequest{
		System:      req.System,
		User:        req.User,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		JSON:        req.JSON,
	})
}
