package stages

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/example/deepthink/internal/gateway"
	"github.com/example/deepthink/internal/models"
	"github.com/example/deepthink/internal/parse"
	"github.com/example/deepthink/internal/prompts"
)

// Planner clarifies the question and decomposes it into subtasks.
type Planner struct {
	core
	MaxSubtasks int
}

func NewPlanner(gw gateway.Client, templates *prompts.Registry, logger *slog.Logger, maxSubtasks int) *Planner {
	if maxSubtasks <= 0 {
		maxSubtasks = 6
	}
	return &Planner{core: core{Gateway: gw, Templates: templates, Logger: logger}, MaxSubtasks: maxSubtasks}
}

func (p *Planner) Stage() models.Stage { return models.StagePlan }

func (p *Planner) Execute(ctx context.Context, sc *models.StageContext, in Inputs) models.StageResult {
	if in.Question == "" {
		return failureResult(p.Stage(), errors.New("question must not be empty"), 0)
	}
	tpl, ok := p.Templates.ForStage(p.Stage())
	if !ok {
		return failureResult(p.Stage(), errors.New("no template registered for plan stage"), 0)
	}
	prompt, err := tpl.Render(map[string]string{
		"question":     in.Question,
		"max_subtasks": strconv.Itoa(p.MaxSubtasks),
	})
	if err != nil {
		// Template errors are programming defects, not model noise.
		return failureResult(p.Stage(), err, 0)
	}

	raw, err := p.callLLM(ctx, sc, p.Stage(), prompt)
	if err != nil {
		return successResult(p.Stage(), FallbackPlan(in.Question), 1, err)
	}
	data, err := parse.Extract(raw)
	if err != nil {
		p.logger().Warn("plan response unparsable, using fallback plan",
			"length", len(raw), "preview", truncate(raw, 200))
		return successResult(p.Stage(), FallbackPlan(in.Question), 1, err)
	}

	plan := p.buildPlan(in.Question, data)
	if sc.Verbose {
		p.logger().Info("plan generated", "subtasks", len(plan.Subtasks))
	}
	return successResult(p.Stage(), plan, 1, nil)
}

func (p *Planner) buildPlan(question string, data map[string]any) models.Plan {
	rawSubtasks, _ := data["subtasks"].([]any)
	subtasks := make([]models.Subtask, 0, len(rawSubtasks))
	for i, v := range rawSubtasks {
		if len(subtasks) >= p.MaxSubtasks {
			break
		}
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		st := models.Subtask{
			ID:           int(floatField(m, "id", float64(i+1))),
			Description:  stringField(m, "description", ""),
			Priority:     normalizePriority(stringField(m, "priority", models.PriorityMedium)),
			Dependencies: intsField(m, "dependencies"),
		}
		if st.Description == "" {
			continue
		}
		subtasks = append(subtasks, st)
	}
	if len(subtasks) == 0 {
		return FallbackPlan(question)
	}
	return models.Plan{
		ClarifiedQuestion: stringField(data, "clarified_question", question),
		Subtasks:          subtasks,
		PlanText:          stringField(data, "plan_text", ""),
		ReasoningApproach: stringField(data, "reasoning_approach", ""),
	}
}

// FallbackPlan is the fixed generic decomposition used when planning output
// cannot be obtained, so downstream stages always have subtasks to solve.
// The orchestrator uses the same plan when the stage fails outright.
func FallbackPlan(question string) models.Plan {
	return models.Plan{
		ClarifiedQuestion: question,
		Subtasks: []models.Subtask{
			{ID: 1, Description: "Understand and analyze the question in depth", Priority: models.PriorityHigh},
			{ID: 2, Description: "Explore possible solutions", Priority: models.PriorityMedium},
			{ID: 3, Description: "Evaluate and summarize the findings", Priority: models.PriorityMedium},
		},
		PlanText: "Planning output was unavailable; using the default three-step analysis.",
	}
}

func normalizePriority(p string) string {
	switch p {
	case models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
		return p
	default:
		return models.PriorityMedium
	}
}

var _ Processor = (*Planner)(nil)
