// Package stages implements the four deep-think stage processors. Each one
// renders its template, makes a single non-streaming gateway call, parses the
// response, and builds its typed payload. Gateway and parse failures never
// escape a processor: they are absorbed into a stage-specific fallback
// payload, recorded for diagnostics, and the pipeline continues. Only
// template errors are reported as stage failures.
package stages

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/example/deepthink/internal/gateway"
	"github.com/example/deepthink/internal/models"
	"github.com/example/deepthink/internal/prompts"
)

// Inputs carries the per-stage arguments. Each processor reads only the
// fields relevant to its stage.
type Inputs struct {
	Question    string
	Subtask     models.Subtask
	Previous    []models.SubtaskResult
	Plan        *models.Plan
	Results     []models.SubtaskResult
	FinalAnswer string
}

// Processor is the common shape of the four stage processors.
type Processor interface {
	Stage() models.Stage
	Execute(ctx context.Context, sc *models.StageContext, in Inputs) models.StageResult
}

// core holds the collaborators shared by every processor.
type core struct {
	Gateway   gateway.Client
	Templates *prompts.Registry
	Logger    *slog.Logger
}

func (c core) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// callLLM makes one gateway invocation with the run's shared parameters.
// The call is counted whether or not it succeeds: a failed call was still
// issued and must show up in the run's accounting.
func (c core) callLLM(ctx context.Context, sc *models.StageContext, stage models.Stage, prompt string) (string, error) {
	sc.AddCalls(1)
	if sc.Verbose {
		c.logger().Info("llm call", "stage", string(stage), "call", sc.LLMCalls())
	}
	raw, err := c.Gateway.Invoke(ctx, gateway.Request{
		Messages:          []gateway.Message{{Role: "user", Content: prompt}},
		Model:             sc.Model,
		SystemInstruction: sc.SystemInstruction,
		Temperature:       sc.Temperature,
		TopP:              sc.TopP,
		MaxTokens:         sc.MaxTokens,
		Stream:            false,
	})
	if err != nil {
		c.logger().Warn("gateway call failed", "stage", string(stage), "error", err)
		return "", err
	}
	if sc.Verbose {
		c.logger().Debug("llm response", "stage", string(stage), "length", len(raw))
	}
	return raw, nil
}

func successResult(stage models.Stage, payload any, llmCalls int, diag error) models.StageResult {
	return models.StageResult{Stage: stage, Success: true, Payload: payload, Err: diag, LLMCalls: llmCalls}
}

func failureResult(stage models.Stage, err error, llmCalls int) models.StageResult {
	return models.StageResult{Stage: stage, Success: false, Err: err, LLMCalls: llmCalls}
}

// truncate shortens s to at most n bytes, marking the cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Helpers for reading loosely-typed parsed records.

func stringField(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

func floatField(m map[string]any, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func stringsField(m map[string]any, key string) []string {
	arr, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intsField(m map[string]any, key string) []int {
	arr, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(arr))
	for _, v := range arr {
		if f, ok := v.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}
