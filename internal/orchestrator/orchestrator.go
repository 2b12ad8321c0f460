// Package orchestrator drives the deep-think pipeline: plan, solve,
// synthesize, and optionally review. A run always produces a DeepThinkResult;
// stage failures degrade the payload instead of aborting the run.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/deepthink/internal/cache"
	"github.com/example/deepthink/internal/gateway"
	"github.com/example/deepthink/internal/models"
	"github.com/example/deepthink/internal/prompts"
	"github.com/example/deepthink/internal/stages"
	"github.com/example/deepthink/internal/tools"
)

// State tracks where a run is in the pipeline.
type State string

const (
	StateInit         State = "init"
	StatePlanning     State = "planning"
	StateSolving      State = "solving"
	StateSynthesizing State = "synthesizing"
	StateReviewing    State = "reviewing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

const (
	defaultMaxSubtasks = 6
	defaultMaxParallel = 1
)

// Options are the per-run knobs. The zero value is usable.
type Options struct {
	MaxSubtasks       int
	EnableReview      bool
	EnableWebSearch   bool
	Model             string
	Temperature       *float64
	TopP              *float64
	MaxTokens         int
	SystemInstruction string
	MaxParallel       int
	// Timeout bounds each individual gateway call. Zero means no per-call
	// deadline beyond the run context's own.
	Timeout time.Duration
	Verbose bool
}

func (o Options) maxSubtasks() int {
	if o.MaxSubtasks <= 0 {
		return defaultMaxSubtasks
	}
	return o.MaxSubtasks
}

func (o Options) maxParallel() int {
	if o.MaxParallel <= 0 {
		return defaultMaxParallel
	}
	return o.MaxParallel
}

// Orchestrator owns the collaborators shared across runs. Safe for
// concurrent Run calls; per-run state lives on the stack.
type Orchestrator struct {
	gw        gateway.Client
	cache     *cache.Cache
	templates *prompts.Registry
	tools     *tools.Registry
	logger    *slog.Logger
}

// Option configures an Orchestrator at construction.
type Option func(*Orchestrator)

func WithCache(c *cache.Cache) Option          { return func(o *Orchestrator) { o.cache = c } }
func WithTemplates(r *prompts.Registry) Option { return func(o *Orchestrator) { o.templates = r } }
func WithTools(r *tools.Registry) Option       { return func(o *Orchestrator) { o.tools = r } }
func WithLogger(l *slog.Logger) Option         { return func(o *Orchestrator) { o.logger = l } }

// New builds an Orchestrator around a gateway client. Collaborators not
// supplied via options get working defaults.
func New(gw gateway.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{gw: gw}
	for _, opt := range opts {
		opt(o)
	}
	if o.cache == nil {
		o.cache = cache.New()
	}
	if o.templates == nil {
		o.templates = prompts.NewRegistry()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Run executes the full pipeline for question. It returns a DeepThinkResult
// in every case: stage failures degrade into fallback payloads, and even a
// panic while constructing a fallback is recovered into a result whose final
// answer explains the failure. The returned error is always nil today and
// kept in the signature for callers that want to treat future fatal modes
// uniformly.
func (o *Orchestrator) Run(ctx context.Context, question string, opts Options) (result *models.DeepThinkResult, err error) {
	state := StateInit
	sc := &models.StageContext{
		Model:             opts.Model,
		SystemInstruction: opts.SystemInstruction,
		Temperature:       opts.Temperature,
		TopP:              opts.TopP,
		MaxTokens:         opts.MaxTokens,
		Verbose:           opts.Verbose,
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline panic recovered", "state", string(state), "panic", r)
			result = &models.DeepThinkResult{
				OriginalQuestion:       question,
				FinalAnswer:            fmt.Sprintf("The reasoning pipeline failed unexpectedly (%v) and could not produce an answer.", r),
				TotalLLMCalls:          sc.LLMCalls(),
				ThinkingProcessSummary: "The pipeline aborted before completing.",
			}
			err = nil
		}
	}()

	started := time.Now()
	o.logger.Info("deep think run started",
		"question_length", len(question),
		"max_subtasks", opts.maxSubtasks(),
		"max_parallel", opts.maxParallel(),
		"review", opts.EnableReview)

	state = StatePlanning
	plan := o.runPlan(ctx, sc, question, opts)

	state = StateSolving
	results := o.runSolve(ctx, sc, question, plan, opts)

	state = StateSynthesizing
	finalAnswer := o.runSynthesize(ctx, sc, question, plan, results, opts)

	var review *models.ReviewResult
	if opts.EnableReview {
		state = StateReviewing
		review = o.runReview(ctx, sc, question, finalAnswer, opts)
	}

	state = StateDone
	res := &models.DeepThinkResult{
		OriginalQuestion:       question,
		FinalAnswer:            finalAnswer,
		Plan:                   plan,
		SubtaskResults:         results,
		Review:                 review,
		TotalLLMCalls:          sc.LLMCalls(),
		ThinkingProcessSummary: processSummary(question, plan, results, review),
	}
	o.logger.Info("deep think run complete",
		"llm_calls", res.TotalLLMCalls,
		"subtasks", len(results),
		"duration", time.Since(started).Round(time.Millisecond))
	return res, nil
}

// runPlan invokes the Planner, consulting the plan cache first. Identical
// question and parameters reuse the cached plan without a gateway call.
func (o *Orchestrator) runPlan(ctx context.Context, sc *models.StageContext, question string, opts Options) models.Plan {
	key := planCacheKey(question, opts)
	if v, ok := o.cache.Get(key); ok {
		if plan, ok := v.(models.Plan); ok {
			o.logger.Debug("plan cache hit", "subtasks", len(plan.Subtasks))
			return plan
		}
	}

	planner := stages.NewPlanner(o.gw, o.templates, o.logger, opts.maxSubtasks())
	res := o.execute(ctx, planner, sc, stages.Inputs{Question: question}, opts)
	plan, ok := res.Payload.(models.Plan)
	if !ok {
		// Template failure path: the stage produced no payload at all.
		plan = stages.FallbackPlan(question)
	}
	if res.Success && res.Err == nil {
		o.cache.Set(key, plan)
	}
	return plan
}

// runSolve executes the Solver over the plan's subtasks, sequentially or in
// fixed-size parallel batches. Results are indexed by subtask position, so
// the returned slice matches plan order regardless of completion order.
func (o *Orchestrator) runSolve(ctx context.Context, sc *models.StageContext, question string, plan models.Plan, opts Options) []models.SubtaskResult {
	solver := stages.NewSolver(o.gw, o.templates, o.logger)
	solver.Tools = o.tools
	solver.EnableWebSearch = opts.EnableWebSearch

	subtasks := plan.Subtasks
	results := make([]models.SubtaskResult, len(subtasks))
	parallel := opts.maxParallel()

	for start := 0; start < len(subtasks); start += parallel {
		if ctx.Err() != nil {
			o.logger.Warn("run cancelled, stopping before next solve batch",
				"completed", start, "remaining", len(subtasks)-start)
			return results[:start]
		}
		end := start + parallel
		if end > len(subtasks) {
			end = len(subtasks)
		}
		// Each batch sees only results completed in earlier batches.
		completed := append([]models.SubtaskResult(nil), results[:start]...)

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				in := stages.Inputs{Question: question, Subtask: subtasks[i], Previous: completed}
				res := o.execute(gctx, solver, sc, in, opts)
				results[i] = solverPayload(subtasks[i], res)
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

func (o *Orchestrator) runSynthesize(ctx context.Context, sc *models.StageContext, question string, plan models.Plan, results []models.SubtaskResult, opts Options) string {
	syn := stages.NewSynthesizer(o.gw, o.templates, o.logger)
	res := o.execute(ctx, syn, sc, stages.Inputs{Question: question, Plan: &plan, Results: results}, opts)
	if answer, ok := res.Payload.(string); ok && answer != "" {
		return answer
	}
	return "No answer could be generated: the synthesis stage failed and no subtask conclusions were available."
}

func (o *Orchestrator) runReview(ctx context.Context, sc *models.StageContext, question, finalAnswer string, opts Options) *models.ReviewResult {
	rev := stages.NewReviewer(o.gw, o.templates, o.logger)
	res := o.execute(ctx, rev, sc, stages.Inputs{Question: question, FinalAnswer: finalAnswer}, opts)
	if review, ok := res.Payload.(*models.ReviewResult); ok {
		return review
	}
	return nil
}

// execute runs one processor, applying the per-call timeout when configured.
// A timed-out call surfaces as a gateway error inside the processor and is
// absorbed by its fallback policy.
func (o *Orchestrator) execute(ctx context.Context, p stages.Processor, sc *models.StageContext, in stages.Inputs, opts Options) models.StageResult {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return p.Execute(ctx, sc, in)
}

// solverPayload unwraps a solve result, covering the template-failure path
// where no payload exists.
func solverPayload(st models.Subtask, res models.StageResult) models.SubtaskResult {
	if sr, ok := res.Payload.(models.SubtaskResult); ok {
		return sr
	}
	return models.SubtaskResult{
		SubtaskID:              st.ID,
		Description:            st.Description,
		IntermediateConclusion: "(subtask could not be processed)",
		Confidence:             0,
		Limitations:            []string{"stage failed before a gateway call was made"},
	}
}

// planCacheKey includes every parameter that affects planner output, so a
// change to any of them misses the cache rather than serving a stale plan.
func planCacheKey(question string, opts Options) string {
	params := map[string]string{
		"question":           question,
		"model":              opts.Model,
		"max_subtasks":       strconv.Itoa(opts.maxSubtasks()),
		"max_tokens":         strconv.Itoa(opts.MaxTokens),
		"system_instruction": opts.SystemInstruction,
		"temperature":        floatParam(opts.Temperature),
		"top_p":              floatParam(opts.TopP),
	}
	return cache.Key(string(models.StagePlan), params)
}

func floatParam(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// processSummary renders the human-readable trace of the run: clarified
// question, per-subtask confidence lines, and the review score when present.
func processSummary(question string, plan models.Plan, results []models.SubtaskResult, review *models.ReviewResult) string {
	var b strings.Builder
	b.WriteString("## Thinking process\n\n")
	fmt.Fprintf(&b, "**Question:** %s\n", question)
	if plan.ClarifiedQuestion != "" && plan.ClarifiedQuestion != question {
		fmt.Fprintf(&b, "**Clarified as:** %s\n", plan.ClarifiedQuestion)
	}
	if plan.ReasoningApproach != "" {
		fmt.Fprintf(&b, "**Approach:** %s\n", plan.ReasoningApproach)
	}
	b.WriteString("\n**Subtasks:**\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- [%d] %s (confidence %.0f%%): %s\n",
			r.SubtaskID, r.Description, r.Confidence*100, summaryLine(r.IntermediateConclusion))
	}
	if review != nil {
		fmt.Fprintf(&b, "\n**Review score:** %.2f\n", review.OverallQualityScore)
	}
	return b.String()
}

func summaryLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 160 {
		return s[:160] + "..."
	}
	return s
}
