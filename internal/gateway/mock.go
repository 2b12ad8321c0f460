package gateway

import (
	"context"
	"strings"
)

// MockClient is used when no real provider is configured. It answers each
// pipeline stage with minimal well-formed JSON so the full pipeline can run
// offline.
type MockClient struct{}

func (m *MockClient) Invoke(ctx context.Context, req Request) (string, error) {
	if req.Stream {
		return "", errStreamingUnsupported("mock")
	}
	if err := ctx.Err(); err != nil {
		return "", classifyTransport("mock", err)
	}

	prompt := ""
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}
	switch {
	case strings.Contains(prompt, `"clarified_question"`):
		return `{"clarified_question": "mock clarification", "reasoning_approach": "mock strategy",
			"subtasks": [
				{"id": 1, "description": "understand the question", "priority": "high", "dependencies": []},
				{"id": 2, "description": "explore possible answers", "priority": "medium", "dependencies": [1]}
			],
			"plan_text": "mock plan"}`, nil
	case strings.Contains(prompt, `"intermediate_conclusion"`):
		return `{"analysis": "mock analysis", "intermediate_conclusion": "mock conclusion",
			"confidence": 0.8, "limitations": ["mock data"], "needs_external_info": false, "suggested_tools": []}`, nil
	case strings.Contains(prompt, `"final_answer"`):
		return `{"final_answer": "mock final answer", "synthesis_notes": "combined mock conclusions"}`, nil
	case strings.Contains(prompt, `"overall_quality_score"`):
		return `{"issues_found": [], "improvement_suggestions": [], "overall_quality_score": 0.9, "review_notes": "mock review"}`, nil
	default:
		return `{"answer": "mock response"}`, nil
	}
}
