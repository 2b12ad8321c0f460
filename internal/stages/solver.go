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
	"github.com/example/deepthink/internal/tools"
)

// solverFallbackConfidence is assigned when the response could not be parsed
// and the raw text stands in for a conclusion.
const solverFallbackConfidence = 0.6

// solverConclusionLimit bounds the fallback conclusion length.
const solverConclusionLimit = 200

// placeholderConclusion guarantees a non-empty conclusion even for an empty
// model response.
const placeholderConclusion = "(subtask completed, but no conclusion could be extracted)"

// Solver analyzes one subtask, optionally enriching the prompt with web
// search results when a tool registry is attached.
type Solver struct {
	core
	Tools           *tools.Registry
	EnableWebSearch bool
}

func NewSolver(gw gateway.Client, templates *prompts.Registry, logger *slog.Logger) *Solver {
	return &Solver{core: core{Gateway: gw, Templates: templates, Logger: logger}}
}

func (s *Solver) Stage() models.Stage { return models.StageSolve }

func (s *Solver) Execute(ctx context.Context, sc *models.StageContext, in Inputs) models.StageResult {
	if in.Subtask.Description == "" {
		return failureResult(s.Stage(), errors.New("subtask must not be empty"), 0)
	}
	tpl, ok := s.Templates.ForStage(s.Stage())
	if !ok {
		return failureResult(s.Stage(), errors.New("no template registered for solve stage"), 0)
	}
	prompt, err := tpl.Render(map[string]string{
		"original_question":    in.Question,
		"subtask_description":  in.Subtask.Description,
		"previous_conclusions": previousConclusions(in.Previous),
		"available_tools":      s.availableTools(),
	})
	if err != nil {
		return failureResult(s.Stage(), err, 0)
	}
	if ref := s.searchContext(ctx, in.Subtask); ref != "" {
		prompt += "\n\nReference material from web search:\n" + ref
	}

	raw, err := s.callLLM(ctx, sc, s.Stage(), prompt)
	if err != nil {
		return successResult(s.Stage(), s.fallbackResult(in.Subtask, raw, err), 1, err)
	}
	data, err := parse.Extract(raw)
	if err != nil {
		s.logger().Warn("solve response unparsable, using raw output",
			"subtask_id", in.Subtask.ID, "length", len(raw))
		return successResult(s.Stage(), s.fallbackResult(in.Subtask, raw, err), 1, err)
	}

	result := buildSubtaskResult(in.Subtask, data, raw)
	if sc.Verbose {
		s.logger().Info("subtask solved",
			"subtask_id", in.Subtask.ID,
			"confidence", result.Confidence,
			"description", truncate(in.Subtask.Description, 60))
	}
	return successResult(s.Stage(), result, 1, nil)
}

// availableTools names the registered tools so the model can fill
// suggested_tools from real options rather than invented ones.
func (s *Solver) availableTools() string {
	if s.Tools == nil {
		return "none"
	}
	names := s.Tools.Names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// searchContext runs the web_search tool for the subtask when enabled.
// Tool failures degrade to an unenriched prompt, never to a stage failure.
func (s *Solver) searchContext(ctx context.Context, st models.Subtask) string {
	if !s.EnableWebSearch || s.Tools == nil {
		return ""
	}
	tool, ok := s.Tools.Get("web_search")
	if !ok {
		return ""
	}
	out, _, err := tool.Execute(ctx, map[string]any{"query": st.Description})
	if err != nil {
		s.logger().Warn("web search failed, continuing without it",
			"subtask_id", st.ID, "error", err)
		return ""
	}
	text, _ := out.(string)
	return text
}

func previousConclusions(previous []models.SubtaskResult) string {
	if len(previous) == 0 {
		return "none yet"
	}
	lines := make([]string, 0, len(previous))
	for _, r := range previous {
		lines = append(lines, fmt.Sprintf("- subtask %d: %s", r.SubtaskID, r.IntermediateConclusion))
	}
	return strings.Join(lines, "\n")
}

func buildSubtaskResult(st models.Subtask, data map[string]any, raw string) models.SubtaskResult {
	conclusion := strings.TrimSpace(stringField(data, "intermediate_conclusion", ""))
	if conclusion == "" {
		conclusion = truncate(strings.TrimSpace(raw), solverConclusionLimit)
	}
	if conclusion == "" {
		conclusion = placeholderConclusion
	}
	return models.SubtaskResult{
		SubtaskID:              st.ID,
		Description:            st.Description,
		Analysis:               stringField(data, "analysis", raw),
		IntermediateConclusion: conclusion,
		Confidence:             models.ClampScore(floatField(data, "confidence", models.DefaultConfidence)),
		Limitations:            stringsField(data, "limitations"),
		NeedsExternalInfo:      boolField(data, "needs_external_info"),
		SuggestedTools:         stringsField(data, "suggested_tools"),
	}
}

// fallbackResult builds a degraded result from the raw response. The
// conclusion is never left empty.
func (s *Solver) fallbackResult(st models.Subtask, raw string, cause error) models.SubtaskResult {
	conclusion := truncate(strings.TrimSpace(raw), solverConclusionLimit)
	if conclusion == "" {
		conclusion = placeholderConclusion
	}
	return models.SubtaskResult{
		SubtaskID:              st.ID,
		Description:            st.Description,
		Analysis:               raw,
		IntermediateConclusion: conclusion,
		Confidence:             solverFallbackConfidence,
		Limitations:            []string{fmt.Sprintf("degraded: structured output unavailable (%v)", cause)},
	}
}

var _ Processor = (*Solver)(nil)
