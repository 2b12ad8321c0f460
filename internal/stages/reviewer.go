package stages

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/deepthink/internal/gateway"
	"github.com/example/deepthink/internal/models"
	"github.com/example/deepthink/internal/parse"
	"github.com/example/deepthink/internal/prompts"
)

// reviewFallbackScore is the neutral score reported when the review stage
// cannot produce structured output. It passes no judgement either way.
const reviewFallbackScore = 0.7

// Reviewer grades the synthesized answer. It is optional and advisory: a
// failed review never degrades the answer itself.
type Reviewer struct {
	core
}

func NewReviewer(gw gateway.Client, templates *prompts.Registry, logger *slog.Logger) *Reviewer {
	return &Reviewer{core: core{Gateway: gw, Templates: templates, Logger: logger}}
}

func (r *Reviewer) Stage() models.Stage { return models.StageReview }

func (r *Reviewer) Execute(ctx context.Context, sc *models.StageContext, in Inputs) models.StageResult {
	if in.FinalAnswer == "" {
		return failureResult(r.Stage(), errors.New("final answer must not be empty"), 0)
	}
	tpl, ok := r.Templates.ForStage(r.Stage())
	if !ok {
		return failureResult(r.Stage(), errors.New("no template registered for review stage"), 0)
	}
	prompt, err := tpl.Render(map[string]string{
		"original_question": in.Question,
		"final_answer":      in.FinalAnswer,
	})
	if err != nil {
		return failureResult(r.Stage(), err, 0)
	}

	raw, err := r.callLLM(ctx, sc, r.Stage(), prompt)
	if err != nil {
		return successResult(r.Stage(), fallbackReview(), 1, err)
	}
	data, err := parse.Extract(raw)
	if err != nil {
		r.logger().Warn("review response unparsable, using neutral review", "length", len(raw))
		return successResult(r.Stage(), fallbackReview(), 1, err)
	}

	review := &models.ReviewResult{
		OverallQualityScore:    models.ClampScore(floatField(data, "overall_quality_score", models.DefaultQualityScore)),
		IssuesFound:            stringsField(data, "issues_found"),
		ImprovementSuggestions: stringsField(data, "improvement_suggestions"),
		ReviewNotes:            stringField(data, "review_notes", ""),
	}
	if sc.Verbose {
		r.logger().Info("review complete",
			slog.Float64("score", review.OverallQualityScore),
			slog.Int("issues", len(review.IssuesFound)))
	}
	return successResult(r.Stage(), review, 1, nil)
}

func fallbackReview() *models.ReviewResult {
	return &models.ReviewResult{
		OverallQualityScore:    reviewFallbackScore,
		IssuesFound:            []string{},
		ImprovementSuggestions: []string{},
		ReviewNotes:            "review output could not be parsed; neutral score assigned",
	}
}

var _ Processor = (*Reviewer)(nil)
