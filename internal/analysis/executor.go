package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ResearchPublisher/internal/domain"
	"ResearchPublisher/internal/ports"
	"ResearchPublisher/internal/prompts"
)

// DefaultStageTimeout bounds a single generator call.
const DefaultStageTimeout = 60 * time.Second

// Renderer renders named prompt templates.
type Renderer interface {
	Render(name string, subs map[string]prompts.Substitution) (string, error)
	SystemPrompt() string
}

// ExecutorDeps wires the stage executor.
type ExecutorDeps struct {
	Generator ports.TextGenerator
	Templates Renderer
	// Defaults apply when a stage leaves temperature or max tokens unset.
	Defaults ports.GenerationParams
	Timeout  time.Duration
	Logger   *slog.Logger
}

// StageExecutor runs one stage and always yields a StageResult.
type StageExecutor struct {
	generator ports.TextGenerator
	templates Renderer
	defaults  ports.GenerationParams
	timeout   time.Duration
	logger    *slog.Logger
}

// NewStageExecutor validates the dependencies.
func NewStageExecutor(deps ExecutorDeps) (*StageExecutor, error) {
	if deps.Generator == nil {
		return nil, fmt.Errorf("stage executor: generator is required")
	}
	if deps.Templates == nil {
		return nil, fmt.Errorf("stage executor: templates are required")
	}

	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}

	return &StageExecutor{
		generator: deps.Generator,
		templates: deps.Templates,
		defaults:  deps.Defaults,
		timeout:   timeout,
		logger:    deps.Logger,
	}, nil
}

// Execute renders the stage prompt from the context and calls the generator.
// Render errors, generator errors, blank replies and panics all become Failed results.
func (e *StageExecutor) Execute(ctx context.Context, stage Stage, actx *AnalysisContext) (result domain.StageResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = domain.Failed(stage.Name, fmt.Sprintf("panic: %v", r), time.Since(start))
		}
		e.logResult(actx.Item(), result)
	}()

	prompt, err := e.templates.Render(stage.template(), actx.Substitutions())
	if err != nil {
		return domain.Failed(stage.Name, err.Error(), time.Since(start))
	}

	stageCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.generator.Generate(stageCtx, prompt, e.params(stage))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return domain.Failed(stage.Name, fmt.Sprintf("timed out after %s: %v", e.timeout, err), time.Since(start))
		}
		return domain.Failed(stage.Name, err.Error(), time.Since(start))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Failed(stage.Name, ErrEmptyResponse.Error(), time.Since(start))
	}
	return domain.Completed(stage.Name, text, time.Since(start))
}

func (e *StageExecutor) params(stage Stage) ports.GenerationParams {
	params := e.defaults
	params.System = e.templates.SystemPrompt()
	if stage.Temperature != nil {
		params.Temperature = stage.Temperature
	}
	if stage.MaxTokens > 0 {
		params.MaxTokens = stage.MaxTokens
	}
	return params
}

func (e *StageExecutor) logResult(item domain.Item, result domain.StageResult) {
	if e.logger == nil {
		return
	}
	if result.OK() {
		e.logger.Info("stage completed", "item_id", item.ID, "stage", result.Stage, "duration", result.Duration, "chars", len(result.Text))
		return
	}
	e.logger.Warn("stage failed", "item_id", item.ID, "stage", result.Stage, "duration", result.Duration, "reason", result.Reason)
}
