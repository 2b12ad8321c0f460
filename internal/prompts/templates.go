package prompts

import "github.com/example/deepthink/internal/models"

func defaultTemplates() []*Template {
	return []*Template{
		{name: "plan_prompt", stage: models.StagePlan, text: planTemplate},
		{name: "subtask_prompt", stage: models.StageSolve, text: solveTemplate},
		{name: "synthesize_prompt", stage: models.StageSynthesize, text: synthesizeTemplate},
		{name: "review_prompt", stage: models.StageReview, text: reviewTemplate},
	}
}

const planTemplate = `You are an expert at analyzing questions. Analyze the question below and plan how to answer it.

User question:
{{question}}

Requirements:
1. Clarify the core intent of the question.
2. Decompose it into 3-{{max_subtasks}} manageable subtasks.
3. Assign each subtask a priority (high/medium/low).
4. Lay out a sensible reasoning path.

Output a single JSON object with exactly this structure, no prose, no code fences:
{
    "clarified_question": "the clarified question",
    "reasoning_approach": "overall reasoning strategy",
    "subtasks": [
        {
            "id": 1,
            "description": "subtask description",
            "priority": "high|medium|low",
            "dependencies": []
        }
    ],
    "plan_text": "natural-language description of the plan"
}`

const solveTemplate = `You are a rigorous research analyst. Analyze the subtask below in depth.

Original question: {{original_question}}

Current subtask:
{{subtask_description}}

Conclusions from completed subtasks:
{{previous_conclusions}}

External tools available for follow-up: {{available_tools}}

Requirements:
1. Analyze the subtask thoroughly.
2. Draw an intermediate conclusion from what is known.
3. Rate the confidence of that conclusion between 0.0 and 1.0.
4. Name the limitations of the analysis.
5. Say whether external information (search, data lookup) is needed, and
   list in suggested_tools which of the available tools would help.

Output a single JSON object, no prose, no code fences:
{
    "analysis": "detailed analysis",
    "intermediate_conclusion": "conclusion for this subtask",
    "confidence": 0.85,
    "limitations": ["limitation 1", "limitation 2"],
    "needs_external_info": false,
    "suggested_tools": []
}`

const synthesizeTemplate = `You are an expert at synthesizing knowledge. Combine the subtask conclusions below into one final answer.

Original question:
{{original_question}}

Clarified question:
{{clarified_question}}

Reasoning strategy:
{{reasoning_approach}}

Subtask conclusions:
{{all_conclusions}}

Requirements:
1. Integrate every subtask conclusion.
2. Produce one coherent, complete answer.
3. Keep the logic tight and flag anything uncertain.
4. Structure the answer clearly (sections, lists).

Output a single JSON object, no prose, no code fences:
{
    "final_answer": "the structured final answer in Markdown",
    "synthesis_notes": "notes on how the conclusions were combined"
}`

const reviewTemplate = `You are a strict quality reviewer. Critically review the answer below.

Original question:
{{original_question}}

Answer under review:
{{final_answer}}

Requirements:
1. Check logical consistency.
2. Identify errors or omissions.
3. Judge completeness.
4. Suggest improvements.
5. Give an overall quality score between 0.0 and 1.0.

Output a single JSON object, no prose, no code fences:
{
    "issues_found": ["issue 1", "issue 2"],
    "improvement_suggestions": ["suggestion 1", "suggestion 2"],
    "overall_quality_score": 0.85,
    "review_notes": "overall assessment"
}`
