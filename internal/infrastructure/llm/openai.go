package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"ResearchPublisher/internal/ports"
)

const (
	openAIDefaultModel = "gpt-4o-mini"
	perplexityBaseURL  = "https://api.perplexity.ai"
)

// OpenAIGenerator implements ports.TextGenerator over any OpenAI-compatible chat API
// (OpenAI itself, Perplexity).
type OpenAIGenerator struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

var _ ports.TextGenerator = (*OpenAIGenerator)(nil)

// OpenAIConfig configures an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewOpenAIGenerator builds the generator. Retries are left to the Resilient wrapper.
func NewOpenAIGenerator(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai generator: API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := cfg.Model
	if model == "" {
		model = openAIDefaultModel
	}

	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger,
	}, nil
}

// NewPerplexityGenerator points the OpenAI client at the Perplexity API.
func NewPerplexityGenerator(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIGenerator, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = perplexityBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "sonar-pro"
	}
	return NewOpenAIGenerator(cfg, logger)
}

// Generate sends the system and user prompt as one chat completion.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, params ports.GenerationParams) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system := strings.TrimSpace(params.System); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	req := openai.ChatCompletionNewParams{
		Model:    g.model,
		Messages: messages,
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = openai.Int(int64(params.MaxTokens))
	}
	if params.Temperature != nil {
		req.Temperature = openai.Float(*params.Temperature)
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}

	if g.logger != nil {
		g.logger.Debug("chat completion done",
			"model", g.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
