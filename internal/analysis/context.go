package analysis

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"ResearchPublisher/internal/domain"
	"ResearchPublisher/internal/prompts"
)

// reservedKeys are the substitutions filled from the item and the accumulated outputs.
// Stage names must not collide with them.
var reservedKeys = map[string]struct{}{
	"id":               {},
	"title":            {},
	"url":              {},
	"summary":          {},
	"source":           {},
	"source_priority":  {},
	"engagement":       {},
	"content":          {},
	"published":        {},
	"authors":          {},
	"category":         {},
	"analyzed_content": {},
	"generated_output": {},
}

// IsReservedKey reports whether name is a built-in template substitution.
func IsReservedKey(name string) bool {
	_, ok := reservedKeys[name]
	return ok
}

// AnalysisContext accumulates stage results for one item. It only grows.
type AnalysisContext struct {
	item           domain.Item
	outputs        []domain.StageOutput
	completed      []string
	failed         []domain.StageFailure
	results        []domain.StageResult
	requiredFailed bool
}

// NewAnalysisContext starts an empty context for the item.
func NewAnalysisContext(item domain.Item) *AnalysisContext {
	return &AnalysisContext{item: item}
}

// Item returns the item under analysis.
func (c *AnalysisContext) Item() domain.Item {
	return c.item
}

// Record appends a stage result.
func (c *AnalysisContext) Record(stage Stage, result domain.StageResult) {
	c.results = append(c.results, result)
	if result.OK() {
		c.outputs = append(c.outputs, domain.StageOutput{Stage: stage.Name, Text: result.Text})
		c.completed = append(c.completed, stage.Name)
		return
	}

	c.failed = append(c.failed, domain.StageFailure{Stage: stage.Name, Reason: result.Reason})
	if !stage.Optional {
		c.requiredFailed = true
	}
}

// Output returns the text of a completed stage.
func (c *AnalysisContext) Output(stage string) (string, bool) {
	for _, out := range c.outputs {
		if out.Stage == stage {
			return out.Text, true
		}
	}
	return "", false
}

// Substitutions exposes item fields and prior stage outputs to a template.
func (c *AnalysisContext) Substitutions() map[string]prompts.Substitution {
	it := c.item
	subs := map[string]prompts.Substitution{
		"id":              prompts.Present(it.ID),
		"title":           prompts.Present(it.Title),
		"url":             prompts.Present(it.URL),
		"summary":         prompts.Present(it.Summary),
		"source":          prompts.Present(string(it.Source)),
		"source_priority": prompts.Present(string(it.SourcePriority)),
		"engagement":      prompts.Present(fmt.Sprintf("%g", it.EngagementScore)),
		"content":         prompts.Present(prepareContent(it)),
		"published":       prompts.Missing(),
		"authors":         prompts.Missing(),
		"category":        prompts.Missing(),
	}
	if !it.PublishedAt.IsZero() {
		subs["published"] = prompts.Present(it.PublishedAt.Format(time.DateOnly))
	}
	if len(it.Authors) > 0 {
		subs["authors"] = prompts.Present(strings.Join(it.Authors, ", "))
	}
	if it.Category != "" {
		subs["category"] = prompts.Present(it.Category)
	}

	for _, result := range c.results {
		if result.OK() {
			subs[result.Stage] = prompts.Present(result.Text)
		} else {
			subs[result.Stage] = prompts.Missing()
		}
	}

	subs["analyzed_content"] = prompts.Missing()
	subs["generated_output"] = prompts.Missing()
	if len(c.outputs) > 0 {
		subs["analyzed_content"] = prompts.Present(formatOutputs(c.outputs))
		subs["generated_output"] = prompts.Present(c.outputs[len(c.outputs)-1].Text)
	}
	return subs
}

// Freeze turns the context into an immutable Analysis.
func (c *AnalysisContext) Freeze(runID string, started, finished time.Time) domain.Analysis {
	return domain.Analysis{
		RunID:           runID,
		Item:            c.item,
		StageOutputs:    append([]domain.StageOutput(nil), c.outputs...),
		CompletedStages: append([]string(nil), c.completed...),
		FailedStages:    append([]domain.StageFailure(nil), c.failed...),
		Results:         append([]domain.StageResult(nil), c.results...),
		OverallSuccess:  !c.requiredFailed,
		StartedAt:       started,
		FinishedAt:      finished,
	}
}

func prepareContent(it domain.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", orNA(it.Title))
	fmt.Fprintf(&b, "Source: %s\n", orNA(string(it.Source)))
	fmt.Fprintf(&b, "URL: %s", orNA(it.URL))
	if len(it.Authors) > 0 {
		fmt.Fprintf(&b, "\nAuthors: %s", strings.Join(it.Authors, ", "))
	}
	if !it.PublishedAt.IsZero() {
		fmt.Fprintf(&b, "\nPublished: %s", it.PublishedAt.Format(time.DateOnly))
	}
	if it.Category != "" {
		fmt.Fprintf(&b, "\nCategory: %s", it.Category)
	}
	if it.EngagementScore > 0 {
		fmt.Fprintf(&b, "\nEngagement: %g", it.EngagementScore)
	}
	if it.Summary != "" {
		fmt.Fprintf(&b, "\n\nContent:\n%s", it.Summary)
	}
	return b.String()
}

func formatOutputs(outputs []domain.StageOutput) string {
	sections := make([]string, 0, len(outputs))
	for _, out := range outputs {
		sections = append(sections, "## "+stageTitle(out.Stage)+"\n"+out.Text)
	}
	return strings.Join(sections, "\n\n")
}

// stageTitle turns "fact_extraction" into "Fact Extraction".
func stageTitle(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
