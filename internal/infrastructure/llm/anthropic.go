package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"ResearchPublisher/internal/ports"
)

const (
	anthropicDefaultModel     = "claude-sonnet-4-5"
	anthropicDefaultMaxTokens = 2000
)

// AnthropicGenerator implements ports.TextGenerator using the Messages API.
type AnthropicGenerator struct {
	client *anthropic.Client
	model  string
	logger *slog.Logger
}

var _ ports.TextGenerator = (*AnthropicGenerator)(nil)

// AnthropicConfig configures the Anthropic client.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewAnthropicGenerator builds the generator. Retries are left to the Resilient wrapper.
func NewAnthropicGenerator(cfg AnthropicConfig, logger *slog.Logger) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic generator: API key is required")
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
		model = anthropicDefaultModel
	}

	client := anthropic.NewClient(opts...)
	return &AnthropicGenerator{client: &client, model: model, logger: logger}, nil
}

// Generate sends one user turn and concatenates the text blocks of the reply.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string, params ports.GenerationParams) (string, error) {
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system := strings.TrimSpace(params.System); system != "" {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if params.Temperature != nil {
		req.Temperature = anthropic.Float(*params.Temperature)
	}

	start := time.Now()
	message, err := g.client.Messages.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if g.logger != nil {
		g.logger.Debug("anthropic message done",
			"model", g.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"input_tokens", message.Usage.InputTokens,
			"output_tokens", message.Usage.OutputTokens)
	}
	return text.String(), nil
}
