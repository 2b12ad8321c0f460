// Package models defines the domain types shared by the deep-think pipeline.
package models

import "sync"

// Stage identifies one phase of the reasoning pipeline.
type Stage string

const (
	StagePlan       Stage = "plan"
	StageSolve      Stage = "solve"
	StageSynthesize Stage = "synthesize"
	StageReview     Stage = "review"
)

// Subtask priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Default scores substituted when the model omits or mangles a value.
const (
	DefaultConfidence   = 0.7
	DefaultQualityScore = 0.75
)

// Subtask is one decomposed unit of the original question. Immutable once
// the Planner has built it.
type Subtask struct {
	ID           int    `json:"id"`
	Description  string `json:"description"`
	Priority     string `json:"priority"`
	Dependencies []int  `json:"dependencies,omitempty"`
}

// Plan is the Planner's output: a clarified question and an ordered list of
// subtasks, capped at the configured maximum.
type Plan struct {
	ClarifiedQuestion string    `json:"clarified_question"`
	Subtasks          []Subtask `json:"subtasks"`
	PlanText          string    `json:"plan_text"`
	ReasoningApproach string    `json:"reasoning_approach,omitempty"`
}

// SubtaskResult is the Solver's output for one subtask.
type SubtaskResult struct {
	SubtaskID              int      `json:"subtask_id"`
	Description            string   `json:"description"`
	Analysis               string   `json:"analysis"`
	IntermediateConclusion string   `json:"intermediate_conclusion"`
	Confidence             float64  `json:"confidence"`
	Limitations            []string `json:"limitations,omitempty"`
	NeedsExternalInfo      bool     `json:"needs_external_info"`
	SuggestedTools         []string `json:"suggested_tools,omitempty"`
}

// ReviewResult is the Reviewer's quality assessment of the final answer.
type ReviewResult struct {
	IssuesFound            []string `json:"issues_found"`
	ImprovementSuggestions []string `json:"improvement_suggestions"`
	OverallQualityScore    float64  `json:"overall_quality_score"`
	ReviewNotes            string   `json:"review_notes"`
}

// DeepThinkResult is the terminal artifact of one pipeline run. Immutable
// once returned.
type DeepThinkResult struct {
	OriginalQuestion       string          `json:"original_question"`
	FinalAnswer            string          `json:"final_answer"`
	Plan                   Plan            `json:"plan"`
	SubtaskResults         []SubtaskResult `json:"subtask_results"`
	Review                 *ReviewResult   `json:"review,omitempty"`
	TotalLLMCalls          int             `json:"total_llm_calls"`
	ThinkingProcessSummary string          `json:"thinking_process_summary"`
}

// StageContext carries the shared execution parameters for one run. It is
// owned by the orchestrator; the only mutation after construction is the
// call counter, which solver goroutines increment concurrently.
type StageContext struct {
	Model             string
	SystemInstruction string
	Temperature       *float64
	TopP              *float64
	MaxTokens         int
	Verbose           bool

	mu       sync.Mutex
	llmCalls int
}

// AddCalls records n gateway invocations against the run.
func (c *StageContext) AddCalls(n int) {
	c.mu.Lock()
	c.llmCalls += n
	c.mu.Unlock()
}

// LLMCalls returns the number of gateway invocations made so far.
func (c *StageContext) LLMCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.llmCalls
}

// StageResult is the envelope around a single stage processor's outcome.
// It is consumed immediately by the orchestrator and never persisted.
// Success with a non-nil Err means the stage degraded to its fallback
// payload; Err is kept for diagnostics only.
type StageResult struct {
	Stage    Stage
	Success  bool
	Payload  any
	Err      error
	LLMCalls int
}

// ClampScore forces v into [0,1].
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
