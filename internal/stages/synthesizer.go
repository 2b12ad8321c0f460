package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/deepthink/internal/gateway"
	"github.com/example/deepthink/internal/models"
	"github.com/example/deepthink/internal/parse"
	"github.com/example/deepthink/internal/prompts"
)

// noAnswerMessage is returned when synthesis fails and there are no subtask
// conclusions to fall back on. The pipeline never returns an empty answer.
const noAnswerMessage = "No answer could be generated: the synthesis stage failed and no subtask conclusions were available."

// Synthesizer combines the ordered subtask conclusions into one final answer.
type Synthesizer struct {
	core
}

func NewSynthesizer(gw gateway.Client, templates *prompts.Registry, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{core: core{Gateway: gw, Templates: templates, Logger: logger}}
}

func (s *Synthesizer) Stage() models.Stage { return models.StageSynthesize }

func (s *Synthesizer) Execute(ctx context.Context, sc *models.StageContext, in Inputs) models.StageResult {
	if in.Plan == nil {
		return failureResult(s.Stage(), errors.New("plan must not be nil"), 0)
	}
	tpl, ok := s.Templates.ForStage(s.Stage())
	if !ok {
		return failureResult(s.Stage(), errors.New("no template registered for synthesize stage"), 0)
	}
	prompt, err := tpl.Render(map[string]string{
		"original_question":  in.Question,
		"clarified_question": in.Plan.ClarifiedQuestion,
		"reasoning_approach": in.Plan.ReasoningApproach,
		"all_conclusions":    allConclusions(in.Results),
	})
	if err != nil {
		return failureResult(s.Stage(), err, 0)
	}

	raw, err := s.callLLM(ctx, sc, s.Stage(), prompt)
	if err != nil {
		return successResult(s.Stage(), fallbackAnswer(raw, in.Results), 1, err)
	}
	data, err := parse.Extract(raw)
	if err != nil {
		s.logger().Warn("synthesize response unparsable, using fallback answer", "length", len(raw))
		return successResult(s.Stage(), fallbackAnswer(raw, in.Results), 1, err)
	}

	answer := stringField(data, "final_answer", raw)
	if notes := stringField(data, "synthesis_notes", ""); notes != "" {
		answer += "\n\n---\n**Synthesis notes:** " + notes
	}
	if strings.TrimSpace(answer) == "" {
		answer = fallbackAnswer(raw, in.Results)
	}
	if sc.Verbose {
		s.logger().Info("final answer synthesized", "length", len(answer))
	}
	return successResult(s.Stage(), answer, 1, nil)
}

func allConclusions(results []models.SubtaskResult) string {
	if len(results) == 0 {
		return "no subtask conclusions available"
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		limitations := "none"
		if len(r.Limitations) > 0 {
			limitations = strings.Join(r.Limitations, ", ")
		}
		parts = append(parts, fmt.Sprintf(
			"**Subtask %d: %s**\nConclusion: %s\nConfidence: %.0f%%\nLimitations: %s",
			r.SubtaskID, r.Description, r.IntermediateConclusion, r.Confidence*100, limitations))
	}
	return strings.Join(parts, "\n\n")
}

// fallbackAnswer degrades gracefully: the raw response verbatim if non-empty,
// otherwise the subtask conclusions concatenated, otherwise a fixed
// explanation. Never empty.
func fallbackAnswer(raw string, results []models.SubtaskResult) string {
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		return trimmed
	}
	if len(results) == 0 {
		return noAnswerMessage
	}
	parts := []string{"Based on the analysis above, the combined conclusions are:\n"}
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("- %s: %s", r.Description, truncate(r.IntermediateConclusion, 100)))
	}
	return strings.Join(parts, "\n")
}

var _ Processor = (*Synthesizer)(nil)
