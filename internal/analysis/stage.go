package analysis

import (
	"errors"
	"fmt"
	"strings"

	"ResearchPublisher/internal/prompts"
)

var (
	// ErrInvalidPlan reports a stage plan that cannot run.
	ErrInvalidPlan = errors.New("invalid stage plan")
	// ErrEmptyResponse marks a generator reply with no usable text.
	ErrEmptyResponse = errors.New("empty response from generator")
)

// Stage is one named text-generation step.
type Stage struct {
	Name     string
	Template string
	// Optional stages may fail without failing the whole analysis.
	Optional bool
	// Temperature overrides the executor default when set; zero is a valid value.
	Temperature *float64
	MaxTokens   int
}

func (s Stage) template() string {
	if s.Template != "" {
		return s.Template
	}
	return s.Name
}

// Plan is an ordered, validated list of stages.
type Plan struct {
	stages []Stage
}

// NewPlan rejects empty plans, unnamed stages, duplicate names and names that
// shadow a built-in substitution key.
func NewPlan(stages ...Stage) (Plan, error) {
	if len(stages) == 0 {
		return Plan{}, fmt.Errorf("%w: no stages", ErrInvalidPlan)
	}

	seen := make(map[string]struct{}, len(stages))
	out := make([]Stage, 0, len(stages))
	for i, stage := range stages {
		stage.Name = strings.TrimSpace(stage.Name)
		if stage.Name == "" {
			return Plan{}, fmt.Errorf("%w: stage %d has no name", ErrInvalidPlan, i)
		}
		if IsReservedKey(stage.Name) {
			return Plan{}, fmt.Errorf("%w: stage name %q is a reserved template key", ErrInvalidPlan, stage.Name)
		}
		if _, dup := seen[stage.Name]; dup {
			return Plan{}, fmt.Errorf("%w: duplicate stage %q", ErrInvalidPlan, stage.Name)
		}
		seen[stage.Name] = struct{}{}
		out = append(out, stage)
	}
	return Plan{stages: out}, nil
}

// DefaultPlan is the credibility-focused pipeline: four optional analytic stages,
// the required long and short form, and an optional self-review.
func DefaultPlan() Plan {
	plan, err := NewPlan(
		Stage{Name: prompts.FactExtraction, Optional: true},
		Stage{Name: prompts.EngineerSummary, Optional: true},
		Stage{Name: prompts.ImpactAnalysis, Optional: true},
		Stage{Name: prompts.ApplicationMapping, Optional: true},
		Stage{Name: prompts.BlogSynthesis, MaxTokens: 3000},
		Stage{Name: prompts.LinkedInFormatting, MaxTokens: 500},
		Stage{Name: prompts.CredibilityCheck, Optional: true},
	)
	if err != nil {
		panic(err)
	}
	return plan
}

// Stages returns a copy of the ordered stages.
func (p Plan) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// Len returns the number of stages.
func (p Plan) Len() int {
	return len(p.stages)
}

// Validate checks every stage template against the registry.
func (p Plan) Validate(templates interface{ Has(name string) bool }) error {
	for _, stage := range p.stages {
		if !templates.Has(stage.template()) {
			return fmt.Errorf("%w: stage %q uses unknown template %q", ErrInvalidPlan, stage.Name, stage.template())
		}
	}
	return nil
}
