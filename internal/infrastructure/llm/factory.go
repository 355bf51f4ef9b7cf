package llm

import (
	"fmt"
	"log/slog"

	"ResearchPublisher/internal/config"
	"ResearchPublisher/internal/infrastructure/ml"
	"ResearchPublisher/internal/ports"
)

// New builds the configured provider wrapped with rate limiting and retries.
func New(cfg config.LLMConfig, logger *slog.Logger) (ports.TextGenerator, error) {
	var (
		base ports.TextGenerator
		err  error
	)

	switch cfg.Provider {
	case "openai":
		base, err = NewOpenAIGenerator(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.Endpoint,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger)
	case "perplexity":
		base, err = NewPerplexityGenerator(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.Endpoint,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger)
	case "anthropic":
		base, err = NewAnthropicGenerator(AnthropicConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.Endpoint,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger)
	case "inference":
		base, err = ml.NewClient(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewResilient(base, ResilientConfig{
		RequestsPerMinute: cfg.RequestsPerMinute,
		MaxRetries:        cfg.MaxRetries,
	}, logger), nil
}
