package domain

import "time"

// StageStatus tags a StageResult.
type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
)

// StageResult is Completed(Text) or Failed(Reason) for one stage invocation.
type StageResult struct {
	Stage    string        `json:"stage"`
	Status   StageStatus   `json:"status"`
	Text     string        `json:"text,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Completed builds a successful stage result.
func Completed(stage, text string, took time.Duration) StageResult {
	return StageResult{Stage: stage, Status: StageCompleted, Text: text, Duration: took}
}

// Failed builds a failed stage result.
func Failed(stage, reason string, took time.Duration) StageResult {
	return StageResult{Stage: stage, Status: StageFailed, Reason: reason, Duration: took}
}

// OK reports whether the stage produced output.
func (r StageResult) OK() bool {
	return r.Status == StageCompleted
}

// StageOutput is one entry of the insertion-ordered output list.
type StageOutput struct {
	Stage string `json:"stage"`
	Text  string `json:"text"`
}

// StageFailure records why a stage produced no output.
type StageFailure struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// Analysis is the immutable result of running a stage plan over one Item.
// Downstream formatters read it; the core makes no assumption about partial results.
type Analysis struct {
	RunID           string         `json:"run_id"`
	Item            Item           `json:"item"`
	StageOutputs    []StageOutput  `json:"stage_outputs"`
	CompletedStages []string       `json:"completed_stages"`
	FailedStages    []StageFailure `json:"failed_stages"`
	Results         []StageResult  `json:"results"`
	OverallSuccess  bool           `json:"overall_success"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
}

// Output returns the text a stage produced, if it completed.
func (a Analysis) Output(stage string) (string, bool) {
	for _, out := range a.StageOutputs {
		if out.Stage == stage {
			return out.Text, true
		}
	}
	return "", false
}

// HasFailed reports whether the named stage is among the failures.
func (a Analysis) HasFailed(stage string) bool {
	for _, f := range a.FailedStages {
		if f.Stage == stage {
			return true
		}
	}
	return false
}
