package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ResearchPublisher/internal/domain"
)

// Orchestrator drives one item through a stage plan.
type Orchestrator struct {
	executor *StageExecutor
	logger   *slog.Logger
	clock    func() time.Time
	newID    func() string
}

// NewOrchestrator binds the executor used for every stage.
func NewOrchestrator(executor *StageExecutor, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		executor: executor,
		logger:   logger,
		clock:    time.Now,
		newID:    uuid.NewString,
	}
}

// Analyze runs the plan strictly in order and always returns an Analysis.
// Stages not started because ctx was cancelled are recorded as skipped failures.
func (o *Orchestrator) Analyze(ctx context.Context, item domain.Item, plan Plan) domain.Analysis {
	runID := o.newID()
	started := o.clock()
	actx := NewAnalysisContext(item)

	for _, stage := range plan.stages {
		if err := ctx.Err(); err != nil {
			actx.Record(stage, domain.Failed(stage.Name, "skipped: "+context.Cause(ctx).Error(), 0))
			continue
		}
		actx.Record(stage, o.executor.Execute(ctx, stage, actx))
	}

	analysis := actx.Freeze(runID, started, o.clock())
	if o.logger != nil {
		o.logger.Info("analysis finished",
			"run_id", runID,
			"item_id", item.ID,
			"completed", len(analysis.CompletedStages),
			"failed", len(analysis.FailedStages),
			"success", analysis.OverallSuccess,
		)
	}
	return analysis
}
